package multisig

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/updates"
	"github.com/tendermint/tendermint/libs/log"
)

// Controller owns the lifecycle of all proposals kept in a store. All
// changes of a single proposal are serialized.
type Controller struct {
	db      cosign.CacheableKVStore
	bucket  ProposalBucket
	node    Node
	clock   clock.Clock
	logger  log.Logger
	metrics *Metrics

	locks idLocks
	// insertMu guards the id sequence.
	insertMu sync.Mutex
}

// NewController returns a controller keeping proposals in db. The node is
// used to fetch keys and to submit transactions.
func NewController(db cosign.CacheableKVStore, node Node) *Controller {
	return &Controller{
		db:     db,
		bucket: NewProposalBucket(),
		node:   node,
		clock:  clock.New(),
		logger: cosign.DefaultLogger,
	}
}

// WithLogger sets the logger.
func (c *Controller) WithLogger(logger log.Logger) *Controller {
	c.logger = logger.With("module", "multisig")
	return c
}

// WithClock sets the clock used to check deadlines.
func (c *Controller) WithClock(clk clock.Clock) *Controller {
	c.clock = clk
	return c
}

// WithMetrics sets the metrics. Nil disables them.
func (c *Controller) WithMetrics(m *Metrics) *Controller {
	c.metrics = m
	return c
}

func (c *Controller) now() cosign.UnixTime {
	return cosign.AsUnixTime(c.clock.Now())
}

// update runs fn on a cache of the store and writes all its changes at once
// if it succeeds.
func (c *Controller) update(fn func(db cosign.KVStore) error) error {
	cache := c.db.CacheWrap()
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	return cache.Write()
}

// Create persists an unsigned transaction as a new open proposal.
func (c *Controller) Create(ctx context.Context, tx Transaction, threshold int) (*Proposal, error) {
	if tx == nil {
		return nil, errors.Wrap(errors.ErrInput, "missing transaction")
	}
	if err := tx.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid transaction")
	}
	if threshold < 1 || threshold > MaxThreshold {
		return nil, errors.Field("Threshold", errors.ErrInput, "must be between 1 and %d", MaxThreshold)
	}
	if tx.SignatureCount() != 0 {
		return nil, errors.Wrap(errors.ErrInput, "a new proposal must not be signed")
	}
	if now := c.now(); tx.Deadline().Before(now) {
		return nil, errors.Wrapf(errors.ErrExpired, "deadline %s already passed", tx.Deadline())
	}

	p := &Proposal{
		Threshold: uint32(threshold),
		Status:    StatusOpen,
		CreatedAt: c.now(),
	}
	if err := p.setTx(tx); err != nil {
		return nil, err
	}

	c.insertMu.Lock()
	defer c.insertMu.Unlock()
	err := c.update(func(db cosign.KVStore) error {
		return c.bucket.Insert(db, p)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.proposalCreated(p.Kind)
	c.logger.Info("proposal created", "id", p.ID, "kind", p.Kind, "type", p.Type, "threshold", p.Threshold)
	return p, nil
}

// Get returns the proposal with given id.
func (c *Controller) Get(id uint64) (*Proposal, error) {
	return c.bucket.GetProposal(c.db, id)
}

// List returns all proposals ordered by id.
func (c *Controller) List() ([]*Proposal, error) {
	return c.bucket.GetAll(c.db)
}

// ListByStatus returns all proposals in given status ordered by id.
func (c *Controller) ListByStatus(status ProposalStatus) ([]*Proposal, error) {
	return c.bucket.ByStatus(c.db, status)
}

// AddSignature validates a signature against the on-chain keys and adds it
// to an open proposal.
func (c *Controller) AddSignature(ctx context.Context, id uint64, sig Signature) (*Proposal, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	var p *Proposal
	err := c.update(func(db cosign.KVStore) error {
		var err error
		p, err = c.addSignature(ctx, db, id, sig)
		return err
	})
	c.metrics.signatureAdded(err)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// addSignature must be called with the lock of id held.
func (c *Controller) addSignature(ctx context.Context, db cosign.KVStore, id uint64, sig Signature) (*Proposal, error) {
	if sig == nil {
		return nil, errors.Wrap(errors.ErrInput, "missing signature")
	}
	p, err := c.bucket.GetProposal(db, id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	tx, err := p.Tx()
	if err != nil {
		return nil, err
	}
	if sig.TxKind() != tx.TxKind() {
		return nil, errors.Wrapf(errors.ErrInput, "%s signature for %s proposal %d", sig.TxKind(), tx.TxKind(), id)
	}
	if err := CheckDuplicate(tx, sig); err != nil {
		return nil, err
	}
	if p.Signatures >= p.Threshold {
		return nil, errors.Wrapf(errors.ErrThresholdAlreadyMet, "proposal %d has %d of %d signatures", id, p.Signatures, p.Threshold)
	}

	ok, err := c.verify(ctx, tx, sig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidSignature, "%s on proposal %d", sig, id)
	}

	if err := appendSignature(tx, sig); err != nil {
		return nil, err
	}
	if err := p.setTx(tx); err != nil {
		return nil, err
	}
	if err := c.bucket.Update(db, p); err != nil {
		return nil, err
	}
	c.logger.Info("signature added", "id", id, "signer", sig.String(), "signatures", p.Signatures, "threshold", p.Threshold)
	return p, nil
}

// verify checks the signature against the keys valid in the last finalized
// block.
func (c *Controller) verify(ctx context.Context, tx Transaction, sig Signature) (bool, error) {
	var (
		ok  bool
		err error
	)
	switch tx := tx.(type) {
	case *UpdateTransaction:
		var keys updates.AuthorizationKeySet
		keys, err = c.updateKeys(ctx, tx.Instruction.Kind())
		if err != nil {
			return false, err
		}
		ok, err = ValidateUpdateSignature(tx.Instruction, updates.Signature(sig.(UpdateSignature)), keys)
	case *AccountTransaction:
		var keys accounts.AccountKeys
		keys, err = c.accountKeys(ctx, tx.Header.Sender)
		if err != nil {
			return false, err
		}
		ok, err = ValidateAccountSignature(tx.Transaction, accounts.Signature(sig.(AccountSignature)), keys)
	default:
		return false, errors.WithType(errors.ErrHuman, tx)
	}
	if err != nil {
		// The signature refers to a key that does not exist or cannot
		// be used.
		return false, errors.Wrapf(errors.ErrInvalidSignature, "%s: %s", sig, err)
	}
	return ok, nil
}

func (c *Controller) updateKeys(ctx context.Context, kind updates.UpdateType) (updates.AuthorizationKeySet, error) {
	summary, err := c.blockSummary(ctx)
	if err != nil {
		return updates.AuthorizationKeySet{}, err
	}
	return summary.Updates.Keys.KeySet(kind)
}

func (c *Controller) accountKeys(ctx context.Context, address cosign.AccountAddress) (accounts.AccountKeys, error) {
	info, err := c.accountInfo(ctx, address)
	if err != nil {
		return accounts.AccountKeys{}, err
	}
	return info.Keys, nil
}

func (c *Controller) blockSummary(ctx context.Context) (*BlockSummary, error) {
	block, err := lastFinalized(ctx, c.node)
	if err != nil {
		return nil, err
	}
	return c.node.BlockSummary(ctx, block)
}

func (c *Controller) accountInfo(ctx context.Context, address cosign.AccountAddress) (*AccountInfo, error) {
	block, err := lastFinalized(ctx, c.node)
	if err != nil {
		return nil, err
	}
	return c.node.AccountInfo(ctx, address, block)
}

// NextSequenceNumber returns the sequence number the next update of given
// type must carry, as of the last finalized block.
func (c *Controller) NextSequenceNumber(ctx context.Context, kind updates.UpdateType) (uint64, error) {
	summary, err := c.blockSummary(ctx)
	if err != nil {
		return 0, err
	}
	return summary.Updates.UpdateQueues.NextSequenceNumber(kind)
}

// NextNonce returns the nonce the next transaction of given account must
// carry, as of the last finalized block.
func (c *Controller) NextNonce(ctx context.Context, address cosign.AccountAddress) (uint64, error) {
	info, err := c.accountInfo(ctx, address)
	if err != nil {
		return 0, err
	}
	return info.Nonce, nil
}

// SignTransaction signs a transaction with a device key. The key must be
// one of the on-chain keys allowed to sign it.
func (c *Controller) SignTransaction(ctx context.Context, tx Transaction, device crypto.Device, path crypto.KeyPath) (Signature, error) {
	digest, err := tx.SignDigest()
	if err != nil {
		return nil, err
	}
	sig, err := c.signer(ctx, tx, device, path)
	if err != nil {
		return nil, err
	}
	return deviceSign(ctx, sig, device, path, digest)
}

// signer returns an unsigned signature of the on-chain key held by the
// device under path.
func (c *Controller) signer(ctx context.Context, tx Transaction, device crypto.Device, path crypto.KeyPath) (Signature, error) {
	pub, err := device.PublicKey(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "device public key")
	}

	switch tx := tx.(type) {
	case *UpdateTransaction:
		keys, err := c.updateKeys(ctx, tx.Instruction.Kind())
		if err != nil {
			return nil, err
		}
		index, ok := keys.IndexOf(pub)
		if !ok {
			return nil, errors.Wrapf(errors.ErrInput, "key %s may not sign %s updates", pub, tx.Type())
		}
		return UpdateSignature{AuthorizationKeyIndex: index}, nil
	case *AccountTransaction:
		keys, err := c.accountKeys(ctx, tx.Header.Sender)
		if err != nil {
			return nil, err
		}
		cred, index, ok := keys.IndexOf(pub)
		if !ok {
			return nil, errors.Wrapf(errors.ErrInput, "key %s is not a key of account %s", pub, tx.Header.Sender)
		}
		return AccountSignature{CredentialIndex: cred, KeyIndex: index}, nil
	default:
		return nil, errors.WithType(errors.ErrHuman, tx)
	}
}

// deviceSign asks the device to sign digest and sets the result on sig.
func deviceSign(ctx context.Context, sig Signature, device crypto.Device, path crypto.KeyPath, digest []byte) (Signature, error) {
	raw, err := device.Sign(ctx, path, digest)
	if err != nil {
		return nil, errors.Wrap(err, "device signature")
	}
	switch s := sig.(type) {
	case UpdateSignature:
		s.Signature = raw
		return s, nil
	case AccountSignature:
		s.Signature = raw
		return s, nil
	}
	return nil, errors.WithType(errors.ErrHuman, sig)
}

// Sign signs an open proposal with a device key and adds the signature.
// The device is not asked to sign when the proposal cannot take the
// signature.
func (c *Controller) Sign(ctx context.Context, id uint64, device crypto.Device, path crypto.KeyPath) (*Proposal, error) {
	p, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	tx, err := p.Tx()
	if err != nil {
		return nil, err
	}
	digest, err := tx.SignDigest()
	if err != nil {
		return nil, err
	}
	sig, err := c.signer(ctx, tx, device, path)
	if err != nil {
		return nil, err
	}
	if err := CheckDuplicate(tx, sig); err != nil {
		return nil, err
	}
	if p.Signatures >= p.Threshold {
		return nil, errors.Wrapf(errors.ErrThresholdAlreadyMet, "proposal %d has %d of %d signatures", id, p.Signatures, p.Threshold)
	}
	if sig, err = deviceSign(ctx, sig, device, path, digest); err != nil {
		return nil, err
	}
	return c.AddSignature(ctx, id, sig)
}

// Submit sends a proposal that collected all its signatures to the node.
//
// A proposal whose deadline passed, or that the node refuses, fails. When
// the node cannot be reached the proposal is left unchanged and the call
// can be repeated.
func (c *Controller) Submit(ctx context.Context, id uint64) (*Proposal, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	p, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	if !p.Eligible() {
		return nil, errors.Wrapf(errors.ErrState, "proposal %d has %d of %d signatures", id, p.Signatures, p.Threshold)
	}
	if p.Deadline.Before(c.now()) {
		if err := c.transition(p, StatusFailed); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(errors.ErrExpired, "proposal %d deadline %s passed", id, p.Deadline)
	}

	tx, err := p.Tx()
	if err != nil {
		return nil, err
	}
	payload, err := tx.SubmissionBytes()
	if err != nil {
		return nil, err
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	accepted, err := c.node.SendTransaction(ctx, payload)
	if err != nil {
		if !errors.ErrNodeUnreachable.Is(err) {
			err = errors.Wrap(errors.ErrNodeUnreachable, err.Error())
		}
		c.logger.Error("submission failed", "id", id, "err", err)
		return nil, err
	}
	if !accepted {
		if err := c.transition(p, StatusFailed); err != nil {
			return nil, err
		}
		return nil, errors.Wrapf(errors.ErrSubmissionRejected, "proposal %d", id)
	}

	p.Hash = hash
	if err := c.transition(p, StatusSubmitted); err != nil {
		return nil, err
	}
	return p, nil
}

// Close abandons an open proposal.
func (c *Controller) Close(id uint64) (*Proposal, error) {
	unlock := c.locks.lock(id)
	defer unlock()

	p, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	if err := c.transition(p, StatusClosed); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordOutcome stores what happened to a submitted proposal. Status must
// be finalized, failed or expired.
func (c *Controller) RecordOutcome(id uint64, status ProposalStatus) (*Proposal, error) {
	switch status {
	case StatusFinalized, StatusFailed, StatusExpired:
	default:
		return nil, errors.Wrapf(errors.ErrInput, "%s is not an outcome", status)
	}

	unlock := c.locks.lock(id)
	defer unlock()

	p, err := c.Get(id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusSubmitted:
	case StatusOpen:
		return nil, errors.Wrapf(errors.ErrState, "proposal %d was not submitted", id)
	default:
		return nil, errors.Wrapf(errors.ErrProposalTerminal, "proposal %d is %s", id, p.Status)
	}
	if err := c.transition(p, status); err != nil {
		return nil, err
	}
	return p, nil
}

// Expire fails an open proposal whose deadline passed. It returns false if
// the proposal is not open or its deadline is still ahead.
func (c *Controller) Expire(ctx context.Context, id uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	unlock := c.locks.lock(id)
	defer unlock()

	p, err := c.Get(id)
	if err != nil {
		return false, err
	}
	if p.Status != StatusOpen || !p.Deadline.Before(c.now()) {
		return false, nil
	}
	if err := c.transition(p, StatusFailed); err != nil {
		return false, err
	}
	return true, nil
}

// transition persists a status change. The lock of the proposal must be
// held.
func (c *Controller) transition(p *Proposal, to ProposalStatus) error {
	from := p.Status
	p.Status = to
	err := c.update(func(db cosign.KVStore) error {
		return c.bucket.Update(db, p)
	})
	if err != nil {
		p.Status = from
		return err
	}
	c.metrics.transitioned(to)
	c.logger.Info("proposal status changed", "id", p.ID, "from", from, "to", to)
	return nil
}

// ProposalSummary is a one line description of a proposal.
func ProposalSummary(p *Proposal) string {
	return fmt.Sprintf("#%d %s/%s %s %d/%d", p.ID, p.Kind, p.Type, p.Status, p.Signatures, p.Threshold)
}
