package multisig

import (
	"context"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/updates"
)

// Node is the subset of the node API that proposals need. Implementations
// must return an error wrapping ErrNodeUnreachable when the node cannot be
// contacted.
type Node interface {
	// ConsensusStatus returns the current state of consensus.
	ConsensusStatus(ctx context.Context) (*ConsensusStatus, error)

	// BlockSummary returns the summary of the block with given hash.
	BlockSummary(ctx context.Context, blockHash string) (*BlockSummary, error)

	// AccountInfo returns the state of an account as of given block.
	AccountInfo(ctx context.Context, address cosign.AccountAddress, blockHash string) (*AccountInfo, error)

	// SendTransaction submits a serialized block item. False means the
	// node refused it.
	SendTransaction(ctx context.Context, payload []byte) (bool, error)
}

// ConsensusStatus is the part of the consensus status the proposals use.
type ConsensusStatus struct {
	LastFinalizedBlock string `json:"lastFinalizedBlock"`
	ProtocolVersion    uint64 `json:"protocolVersion"`
}

// BlockSummary is the part of a block summary the proposals use.
type BlockSummary struct {
	Updates BlockUpdates `json:"updates"`
}

// BlockUpdates holds the chain update state of a block.
type BlockUpdates struct {
	Keys         updates.UpdateKeys   `json:"keys"`
	UpdateQueues updates.UpdateQueues `json:"updateQueues"`
}

// AccountInfo is the part of the account state the proposals use.
type AccountInfo struct {
	Nonce uint64               `json:"accountNonce,string"`
	Keys  accounts.AccountKeys `json:"accountKeys"`
}

// lastFinalized returns the summary of the last finalized block.
func lastFinalized(ctx context.Context, node Node) (string, error) {
	status, err := node.ConsensusStatus(ctx)
	if err != nil {
		return "", err
	}
	return status.LastFinalizedBlock, nil
}
