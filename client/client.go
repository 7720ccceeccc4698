/*
Package client talks to a node over JSON-RPC. Client implements the
multisig.Node interface.
*/
package client

import (
	"context"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/multisig"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/ybbus/jsonrpc/v2"
)

// Method names served by the node.
const (
	MethodConsensusStatus = "getConsensusStatus"
	MethodBlockSummary    = "getBlockSummary"
	MethodAccountInfo     = "getAccountInfo"
	MethodSendTransaction = "sendTransaction"
)

// DefaultNetworkID is the network that submitted transactions are sent to.
const DefaultNetworkID = 100

// Client is a JSON-RPC connection to a node.
type Client struct {
	rpc       jsonrpc.RPCClient
	networkID uint32
	logger    log.Logger
}

var _ multisig.Node = (*Client)(nil)

// NewClient returns a client for the node listening at endpoint. Every
// request is abandoned after timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	rpc := jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	return &Client{
		rpc:       rpc,
		networkID: DefaultNetworkID,
		logger:    cosign.DefaultLogger,
	}
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger log.Logger) *Client {
	c.logger = logger.With("module", "client")
	return c
}

// WithNetworkID changes the network submitted transactions are sent to.
func (c *Client) WithNetworkID(id uint32) *Client {
	c.networkID = id
	return c
}

// ConsensusStatus implements multisig.Node.
func (c *Client) ConsensusStatus(ctx context.Context) (*multisig.ConsensusStatus, error) {
	var status multisig.ConsensusStatus
	if err := c.call(ctx, &status, MethodConsensusStatus); err != nil {
		return nil, err
	}
	if status.LastFinalizedBlock == "" {
		return nil, errors.Wrap(errors.ErrNodeUnreachable, "consensus status without last finalized block")
	}
	return &status, nil
}

type blockParams struct {
	BlockHash string `json:"blockHash"`
}

// BlockSummary implements multisig.Node.
func (c *Client) BlockSummary(ctx context.Context, blockHash string) (*multisig.BlockSummary, error) {
	var summary multisig.BlockSummary
	if err := c.call(ctx, &summary, MethodBlockSummary, blockParams{BlockHash: blockHash}); err != nil {
		return nil, errors.Wrapf(err, "block %s", blockHash)
	}
	return &summary, nil
}

type accountParams struct {
	Address   cosign.AccountAddress `json:"address"`
	BlockHash string                `json:"blockHash"`
}

// AccountInfo implements multisig.Node.
func (c *Client) AccountInfo(ctx context.Context, address cosign.AccountAddress, blockHash string) (*multisig.AccountInfo, error) {
	var info multisig.AccountInfo
	params := accountParams{Address: address, BlockHash: blockHash}
	if err := c.call(ctx, &info, MethodAccountInfo, params); err != nil {
		return nil, errors.Wrapf(err, "account %s", address)
	}
	return &info, nil
}

type sendParams struct {
	NetworkID uint32 `json:"networkId"`
	Payload   string `json:"payload"`
}

// SendTransaction implements multisig.Node. The payload is sent hex
// encoded. An error object returned by the node is a refusal of the
// transaction and is reported as not accepted.
func (c *Client) SendTransaction(ctx context.Context, payload []byte) (bool, error) {
	params := sendParams{NetworkID: c.networkID, Payload: hex.EncodeToString(payload)}
	resp, err := c.roundTrip(ctx, MethodSendTransaction, params)
	if err != nil {
		return false, err
	}
	if resp.Error != nil {
		c.logger.Info("transaction refused", "code", resp.Error.Code, "reason", resp.Error.Message, "size", len(payload))
		return false, nil
	}
	var accepted bool
	if err := decode(resp, &accepted, MethodSendTransaction); err != nil {
		return false, err
	}
	c.logger.Info("transaction sent", "accepted", accepted, "size", len(payload))
	return accepted, nil
}

type callResult struct {
	resp *jsonrpc.RPCResponse
	err  error
}

// call runs a request and decodes its result into out. An error object
// sent by the node is reported as ErrNodeUnreachable and a null result as
// ErrNotFound.
func (c *Client) call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	resp, err := c.roundTrip(ctx, method, params...)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return errors.Wrapf(errors.ErrNodeUnreachable, "%s: %s", method, resp.Error)
	}
	return decode(resp, out, method)
}

// roundTrip sends a request and waits for the response. The request keeps
// running in the background when ctx is cancelled, until the HTTP client
// timeout.
func (c *Client) roundTrip(ctx context.Context, method string, params ...interface{}) (*jsonrpc.RPCResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrNodeUnreachable, err.Error())
	}

	done := make(chan callResult, 1)
	go func() {
		resp, err := c.rpc.Call(method, params...)
		done <- callResult{resp: resp, err: err}
	}()

	var res callResult
	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(errors.ErrNodeUnreachable, "%s: %s", method, ctx.Err())
	case res = <-done:
	}

	switch {
	case res.err != nil:
		c.logger.Debug("node request failed", "method", method, "err", res.err)
		return nil, errors.Wrapf(errors.ErrNodeUnreachable, "%s: %s", method, res.err)
	case res.resp == nil:
		return nil, errors.Wrapf(errors.ErrNodeUnreachable, "%s: empty response", method)
	}
	return res.resp, nil
}

func decode(resp *jsonrpc.RPCResponse, out interface{}, method string) error {
	if resp.Result == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s returned no result", method)
	}
	if err := resp.GetObject(out); err != nil {
		return errors.Wrapf(errors.ErrCodec, "%s result: %s", method, err)
	}
	return nil
}
