package accounts

import (
	"encoding/json"
	"fmt"

	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// TransactionType is the wire tag of an account transaction payload.
type TransactionType uint8

const (
	TypeSimpleTransfer       TransactionType = 3
	TypeTransferWithSchedule TransactionType = 19
	TypeUpdateCredentials    TransactionType = 20
	TypeRegisterData         TransactionType = 21
	TypeTransferWithMemo     TransactionType = 22
	TypeConfigureDelegation  TransactionType = 26
)

var typeNames = map[TransactionType]string{
	TypeSimpleTransfer:       "SimpleTransfer",
	TypeTransferWithSchedule: "TransferWithSchedule",
	TypeUpdateCredentials:    "UpdateCredentials",
	TypeRegisterData:         "RegisterData",
	TypeTransferWithMemo:     "TransferWithMemo",
	TypeConfigureDelegation:  "ConfigureDelegation",
}

func (t TransactionType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", uint8(t))
}

// ParseTransactionType returns the transaction type of given name.
func ParseTransactionType(name string) (TransactionType, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "%q", name)
}

func (t TransactionType) MarshalJSON() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "transaction type %d", uint8(t))
	}
	return json.Marshal(t.String())
}

func (t *TransactionType) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, "transaction type must be a string")
	}
	parsed, err := ParseTransactionType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Payload is the type specific body of an account transaction.
type Payload interface {
	Kind() TransactionType
	// Serialize writes the payload body without the type tag.
	Serialize(w *codec.Writer)
	Validate() error
}

type bodyReader interface {
	Payload
	readBody(r *codec.Reader)
}

// NewPayload returns an empty payload of given type.
func NewPayload(t TransactionType) (Payload, error) {
	p, err := newBodyReader(t)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newBodyReader(t TransactionType) (bodyReader, error) {
	switch t {
	case TypeSimpleTransfer:
		return &SimpleTransfer{}, nil
	case TypeTransferWithSchedule:
		return &TransferWithSchedule{}, nil
	case TypeUpdateCredentials:
		return &UpdateCredentials{}, nil
	case TypeRegisterData:
		return &RegisterData{}, nil
	case TypeTransferWithMemo:
		return &TransferWithMemo{}, nil
	case TypeConfigureDelegation:
		return &ConfigureDelegation{}, nil
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "transaction type %d", uint8(t))
}

// WritePayload writes the type tag followed by the payload body.
func WritePayload(w *codec.Writer, p Payload) {
	if p == nil {
		w.Fail(errors.Wrap(errors.ErrInput, "missing payload"))
		return
	}
	if _, ok := typeNames[p.Kind()]; !ok {
		w.Fail(errors.Wrapf(errors.ErrUnsupportedPayloadKind, "transaction type %d", uint8(p.Kind())))
		return
	}
	w.Word8(uint8(p.Kind()))
	p.Serialize(w)
}

// SerializePayload returns the tagged payload.
func SerializePayload(p Payload) ([]byte, error) {
	w := codec.NewWriter()
	WritePayload(w, p)
	return w.Bytes()
}

// PayloadByteLength returns the length of SerializePayload output.
func PayloadByteLength(p Payload) (uint32, error) {
	b, err := SerializePayload(p)
	if err != nil {
		return 0, err
	}
	return uint32(len(b)), nil
}

// DecodePayload reads a payload written by SerializePayload.
func DecodePayload(b []byte) (Payload, error) {
	r := codec.NewReader(b)
	p := ReadPayload(r)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadPayload reads a type tag and the payload body.
func ReadPayload(r *codec.Reader) Payload {
	tag := r.Word8()
	if r.Err() != nil {
		return nil
	}
	p, err := newBodyReader(TransactionType(tag))
	if err != nil {
		r.Fail(err)
		return nil
	}
	p.readBody(r)
	if r.Err() != nil {
		return nil
	}
	return p
}
