package multisig

import (
	"encoding/json"
	"fmt"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/x/accounts"
	"github.com/iov-one/cosign/x/updates"
)

// TxKind tells which variant of Transaction is used.
type TxKind string

const (
	KindUpdate  TxKind = "update"
	KindAccount TxKind = "account"
)

// Transaction is either an *UpdateTransaction or an *AccountTransaction.
// The set is closed.
type Transaction interface {
	TxKind() TxKind
	// Validate checks the transaction without its signatures.
	Validate() error
	// Deadline is the time after which the node no longer accepts the
	// transaction.
	Deadline() cosign.UnixTime
	// SignatureCount returns the number of signatures collected so far.
	SignatureCount() int
	// SignDigest returns the bytes that keys sign.
	SignDigest() ([]byte, error)
	// SubmissionBytes returns the signed transaction as sent to the node.
	SubmissionBytes() ([]byte, error)
	// Hash identifies the signed transaction.
	Hash() ([]byte, error)
	// Type is the human readable payload type.
	Type() string

	isTransaction()
}

// Signature is either an UpdateSignature or an AccountSignature.
type Signature interface {
	TxKind() TxKind
	fmt.Stringer

	isSignature()
}

// UpdateTransaction is a governance update instruction.
type UpdateTransaction struct {
	*updates.Instruction
}

var _ Transaction = (*UpdateTransaction)(nil)

func (*UpdateTransaction) isTransaction() {}

// TxKind returns KindUpdate.
func (*UpdateTransaction) TxKind() TxKind { return KindUpdate }

func (t *UpdateTransaction) Deadline() cosign.UnixTime { return t.Header.Deadline() }

func (t *UpdateTransaction) SignatureCount() int { return len(t.Signatures) }

func (t *UpdateTransaction) Type() string { return t.Instruction.Kind().String() }

// AccountTransaction is a transaction sent from an account with several
// credentials or keys.
type AccountTransaction struct {
	*accounts.Transaction
}

var _ Transaction = (*AccountTransaction)(nil)

func (*AccountTransaction) isTransaction() {}

// TxKind returns KindAccount.
func (*AccountTransaction) TxKind() TxKind { return KindAccount }

func (t *AccountTransaction) Deadline() cosign.UnixTime { return t.Header.Deadline() }

func (t *AccountTransaction) SignatureCount() int { return len(t.Signatures) }

func (t *AccountTransaction) Type() string { return t.Transaction.Kind().String() }

// UpdateSignature signs an UpdateTransaction.
type UpdateSignature updates.Signature

func (UpdateSignature) isSignature() {}

// TxKind returns KindUpdate.
func (UpdateSignature) TxKind() TxKind { return KindUpdate }

func (s UpdateSignature) String() string {
	return fmt.Sprintf("key %d", s.AuthorizationKeyIndex)
}

// AccountSignature signs an AccountTransaction.
type AccountSignature accounts.Signature

func (AccountSignature) isSignature() {}

// TxKind returns KindAccount.
func (AccountSignature) TxKind() TxKind { return KindAccount }

func (s AccountSignature) String() string {
	return fmt.Sprintf("credential %d key %d", s.CredentialIndex, s.KeyIndex)
}

// Signatures returns the signatures collected by a transaction.
func Signatures(tx Transaction) ([]Signature, error) {
	switch tx := tx.(type) {
	case *UpdateTransaction:
		sigs := make([]Signature, len(tx.Signatures))
		for i, s := range tx.Signatures {
			sigs[i] = UpdateSignature(s)
		}
		return sigs, nil
	case *AccountTransaction:
		sigs := make([]Signature, len(tx.Signatures))
		for i, s := range tx.Signatures {
			sigs[i] = AccountSignature(s)
		}
		return sigs, nil
	default:
		return nil, errors.WithType(errors.ErrHuman, tx)
	}
}

// appendSignature adds a signature to the transaction. The signature must
// be of the matching kind.
func appendSignature(tx Transaction, sig Signature) error {
	switch tx := tx.(type) {
	case *UpdateTransaction:
		s, ok := sig.(UpdateSignature)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s signature for an update", sig.TxKind())
		}
		tx.Signatures = append(tx.Signatures, updates.Signature(s))
		return nil
	case *AccountTransaction:
		s, ok := sig.(AccountSignature)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s signature for an account transaction", sig.TxKind())
		}
		tx.Signatures = append(tx.Signatures, accounts.Signature(s))
		return nil
	default:
		return errors.WithType(errors.ErrHuman, tx)
	}
}

type envelope struct {
	Kind        TxKind          `json:"kind"`
	Transaction json.RawMessage `json:"transaction"`
}

// MarshalTransaction writes the transaction together with its kind so
// that UnmarshalTransaction can restore the variant.
func MarshalTransaction(tx Transaction) ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch tx := tx.(type) {
	case *UpdateTransaction:
		raw, err = json.Marshal(tx.Instruction)
	case *AccountTransaction:
		raw, err = json.Marshal(tx.Transaction)
	default:
		return nil, errors.WithType(errors.ErrHuman, tx)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	return json.MarshalIndent(envelope{Kind: tx.TxKind(), Transaction: raw}, "", "  ")
}

// UnmarshalTransaction reads the format written by MarshalTransaction.
func UnmarshalTransaction(raw []byte) (Transaction, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "transaction file: %s", err)
	}
	if len(env.Transaction) == 0 {
		return nil, errors.Wrap(errors.ErrInput, "missing transaction")
	}
	switch env.Kind {
	case KindUpdate:
		var ins updates.Instruction
		if err := json.Unmarshal(env.Transaction, &ins); err != nil {
			return nil, wrapJSON(err)
		}
		return &UpdateTransaction{Instruction: &ins}, nil
	case KindAccount:
		var tx accounts.Transaction
		if err := json.Unmarshal(env.Transaction, &tx); err != nil {
			return nil, wrapJSON(err)
		}
		return &AccountTransaction{Transaction: &tx}, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "transaction kind %q", env.Kind)
	}
}

// wrapJSON keeps registered errors returned by custom unmarshalers and
// wraps everything else as an input error.
func wrapJSON(err error) error {
	if _, ok := err.(interface{ Cause() error }); ok {
		return err
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.Wrap(errors.ErrInput, err.Error())
}
