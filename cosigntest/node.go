package cosigntest

import (
	"context"
	"sync"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
)

// LastFinalizedBlock is the block hash reported by a FakeNode.
const LastFinalizedBlock = "b3f1c9e5a2d4f6e8b3f1c9e5a2d4f6e8b3f1c9e5a2d4f6e8b3f1c9e5a2d4f6e8"

// FakeNode is an in memory multisig.Node. It is safe for concurrent use.
type FakeNode struct {
	mu sync.Mutex
	// Summary is returned for the last finalized block.
	Summary multisig.BlockSummary
	// Accounts are returned by AccountInfo.
	Accounts map[cosign.AccountAddress]multisig.AccountInfo
	// Reject makes SendTransaction refuse transactions.
	Reject bool
	// Unreachable makes every call fail with ErrNodeUnreachable.
	Unreachable bool

	sent  [][]byte
	calls int
}

var _ multisig.Node = (*FakeNode)(nil)

// NewFakeNode returns a node knowing given update keys.
func NewFakeNode(summary multisig.BlockSummary) *FakeNode {
	return &FakeNode{
		Summary:  summary,
		Accounts: make(map[cosign.AccountAddress]multisig.AccountInfo),
	}
}

// SetUnreachable changes the reachability of the node.
func (n *FakeNode) SetUnreachable(v bool) {
	n.mu.Lock()
	n.Unreachable = v
	n.mu.Unlock()
}

// SetReject changes whether submissions are refused.
func (n *FakeNode) SetReject(v bool) {
	n.mu.Lock()
	n.Reject = v
	n.mu.Unlock()
}

// Sent returns all transactions submitted so far.
func (n *FakeNode) Sent() [][]byte {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]byte{}, n.sent...)
}

// Calls returns the number of calls made to the node.
func (n *FakeNode) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func (n *FakeNode) call(ctx context.Context) error {
	n.calls++
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrNodeUnreachable, err.Error())
	}
	if n.Unreachable {
		return errors.Wrap(errors.ErrNodeUnreachable, "fake node is down")
	}
	return nil
}

func (n *FakeNode) ConsensusStatus(ctx context.Context) (*multisig.ConsensusStatus, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call(ctx); err != nil {
		return nil, err
	}
	return &multisig.ConsensusStatus{LastFinalizedBlock: LastFinalizedBlock, ProtocolVersion: 6}, nil
}

func (n *FakeNode) BlockSummary(ctx context.Context, blockHash string) (*multisig.BlockSummary, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call(ctx); err != nil {
		return nil, err
	}
	if blockHash != LastFinalizedBlock {
		return nil, errors.Wrapf(errors.ErrNotFound, "block %s", blockHash)
	}
	summary := n.Summary
	return &summary, nil
}

func (n *FakeNode) AccountInfo(ctx context.Context, address cosign.AccountAddress, blockHash string) (*multisig.AccountInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call(ctx); err != nil {
		return nil, err
	}
	info, ok := n.Accounts[address]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "account %s", address)
	}
	return &info, nil
}

func (n *FakeNode) SendTransaction(ctx context.Context, payload []byte) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.call(ctx); err != nil {
		return false, err
	}
	if n.Reject {
		return false, nil
	}
	n.sent = append(n.sent, append([]byte{}, payload...))
	return true, nil
}
