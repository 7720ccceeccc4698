package multisig

import (
	"encoding/json"
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/orm"
)

// ProposalStatus is the lifecycle state of a proposal.
type ProposalStatus int32

const (
	// StatusOpen proposals accept signatures.
	StatusOpen ProposalStatus = 1
	// StatusSubmitted proposals were accepted by the node and wait for
	// their outcome.
	StatusSubmitted ProposalStatus = 2
	// StatusFinalized proposals were executed on chain.
	StatusFinalized ProposalStatus = 3
	// StatusFailed proposals were rejected, failed on chain, or expired
	// before they were submitted.
	StatusFailed ProposalStatus = 4
	// StatusExpired proposals were submitted but never finalized.
	StatusExpired ProposalStatus = 5
	// StatusClosed proposals were abandoned by the user.
	StatusClosed ProposalStatus = 6
)

var statusNames = map[ProposalStatus]string{
	StatusOpen:      "open",
	StatusSubmitted: "submitted",
	StatusFinalized: "finalized",
	StatusFailed:    "failed",
	StatusExpired:   "expired",
	StatusClosed:    "closed",
}

func (s ProposalStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseProposalStatus returns the status of given name.
func ParseProposalStatus(name string) (ProposalStatus, error) {
	name = strings.ToLower(name)
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrInput, "unknown proposal status %q", name)
}

// MarshalJSON writes the status name.
func (s ProposalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads a status name.
func (s *ProposalStatus) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	status, err := ParseProposalStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// IsTerminal returns true for every status other than open. Proposals in
// a terminal status cannot be modified.
func (s ProposalStatus) IsTerminal() bool {
	return s != StatusOpen
}

// Proposal is a transaction together with the number of signatures it
// needs before it can be submitted.
type Proposal struct {
	ID uint64 `protobuf:"varint,1,opt,name=id,proto3" json:"id"`
	// Transaction is the JSON form written by MarshalTransaction,
	// including the collected signatures.
	Transaction string `protobuf:"bytes,2,opt,name=transaction,proto3" json:"transaction"`
	// Threshold is the number of signatures required to submit.
	Threshold uint32          `protobuf:"varint,3,opt,name=threshold,proto3" json:"threshold"`
	Status    ProposalStatus  `protobuf:"varint,4,opt,name=status,proto3" json:"status"`
	CreatedAt cosign.UnixTime `protobuf:"varint,5,opt,name=created_at,json=createdAt,proto3" json:"createdAt"`
	// Deadline is copied from the transaction so that expired proposals
	// can be found without decoding it.
	Deadline cosign.UnixTime `protobuf:"varint,6,opt,name=deadline,proto3" json:"deadline"`
	Kind     TxKind          `protobuf:"bytes,7,opt,name=kind,proto3" json:"kind"`
	// Type is the payload type, kept for listings.
	Type string `protobuf:"bytes,8,opt,name=type,proto3" json:"type"`
	// Signatures is the number of collected signatures.
	Signatures uint32 `protobuf:"varint,9,opt,name=signatures,proto3" json:"signatures"`
	// Hash is set when the proposal is submitted.
	Hash []byte `protobuf:"bytes,10,opt,name=hash,proto3" json:"hash,omitempty"`
}

func (m *Proposal) Reset()         { *m = Proposal{} }
func (m *Proposal) String() string { return proto.CompactTextString(m) }
func (*Proposal) ProtoMessage()    {}

var _ orm.Model = (*Proposal)(nil)

// Validate checks the proposal fields. It does not decode the transaction.
func (m *Proposal) Validate() error {
	var errs error
	if m.ID == 0 {
		errs = errors.AppendField(errs, "ID", errors.ErrInput)
	}
	if m.Transaction == "" {
		errs = errors.AppendField(errs, "Transaction", errors.ErrInput)
	}
	if m.Threshold == 0 || m.Threshold > MaxThreshold {
		errs = errors.AppendField(errs, "Threshold",
			errors.Wrapf(errors.ErrInput, "must be between 1 and %d", MaxThreshold))
	}
	if _, ok := statusNames[m.Status]; !ok {
		errs = errors.AppendField(errs, "Status", errors.Wrapf(errors.ErrInput, "status %d", m.Status))
	}
	if m.Kind != KindUpdate && m.Kind != KindAccount {
		errs = errors.AppendField(errs, "Kind", errors.Wrapf(errors.ErrInput, "kind %q", m.Kind))
	}
	if m.Signatures > m.Threshold {
		errs = errors.AppendField(errs, "Signatures",
			errors.Wrapf(errors.ErrState, "%d signatures for threshold %d", m.Signatures, m.Threshold))
	}
	return errs
}

// Tx decodes the transaction of the proposal.
func (m *Proposal) Tx() (Transaction, error) {
	tx, err := UnmarshalTransaction([]byte(m.Transaction))
	if err != nil {
		return nil, errors.Wrapf(err, "proposal %d", m.ID)
	}
	return tx, nil
}

// setTx stores the transaction and refreshes the fields derived from it.
func (m *Proposal) setTx(tx Transaction) error {
	raw, err := MarshalTransaction(tx)
	if err != nil {
		return err
	}
	m.Transaction = string(raw)
	m.Kind = tx.TxKind()
	m.Type = tx.Type()
	m.Deadline = tx.Deadline()
	m.Signatures = uint32(tx.SignatureCount())
	return nil
}

// Eligible returns true if the proposal collected all the signatures it
// needs and was not submitted yet.
func (m *Proposal) Eligible() bool {
	return m.Status == StatusOpen && m.Signatures == m.Threshold
}

// MaxThreshold is the largest supported number of signatures.
const MaxThreshold = 255

const (
	// BucketName is where proposals are stored.
	BucketName = "proposal"
	// statusIndex maps a status to the proposals in it.
	statusIndex = "status"
)

// ProposalBucket persists proposals. Proposals are never deleted.
type ProposalBucket struct {
	orm.Bucket
	idSeq orm.Sequence
}

// NewProposalBucket returns a bucket with a status index.
func NewProposalBucket() ProposalBucket {
	return ProposalBucket{
		Bucket: orm.NewBucket(BucketName, &Proposal{}).WithIndex(statusIndex, indexStatus),
		idSeq:  orm.NewSequence(BucketName, orm.SeqID),
	}
}

func indexStatus(m orm.Model) ([]byte, error) {
	p, ok := m.(*Proposal)
	if !ok {
		return nil, errors.WithType(errors.ErrHuman, m)
	}
	return []byte{byte(p.Status)}, nil
}

// Insert assigns the next id to the proposal and saves it.
func (b ProposalBucket) Insert(db cosign.KVStore, p *Proposal) error {
	id, err := b.idSeq.NextInt(db)
	if err != nil {
		return err
	}
	p.ID = id
	return b.Put(db, orm.EncodeSequence(id), p)
}

// Update saves an existing proposal.
func (b ProposalBucket) Update(db cosign.KVStore, p *Proposal) error {
	key := orm.EncodeSequence(p.ID)
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case !ok:
		return errors.Wrapf(errors.ErrNotFound, "proposal %d", p.ID)
	}
	return b.Put(db, key, p)
}

// GetProposal returns the proposal with given id.
func (b ProposalBucket) GetProposal(db cosign.ReadOnlyKVStore, id uint64) (*Proposal, error) {
	var p Proposal
	if err := b.One(db, orm.EncodeSequence(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAll returns all proposals ordered by id.
func (b ProposalBucket) GetAll(db cosign.ReadOnlyKVStore) ([]*Proposal, error) {
	keys, err := b.Keys(db)
	if err != nil {
		return nil, err
	}
	return b.load(db, keys)
}

// ByStatus returns all proposals in given status ordered by id.
func (b ProposalBucket) ByStatus(db cosign.ReadOnlyKVStore, status ProposalStatus) ([]*Proposal, error) {
	keys, err := b.ByIndex(db, statusIndex, []byte{byte(status)})
	if err != nil {
		return nil, err
	}
	return b.load(db, keys)
}

func (b ProposalBucket) load(db cosign.ReadOnlyKVStore, keys [][]byte) ([]*Proposal, error) {
	res := make([]*Proposal, 0, len(keys))
	for _, k := range keys {
		var p Proposal
		if err := b.One(db, k, &p); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, nil
}
