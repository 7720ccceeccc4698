package accounts

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

const (
	blockItemKind     = 0
	submissionVersion = 0
)

// Signature is a signature of an account transaction by one key of one
// credential of the sender account.
type Signature struct {
	CredentialIndex uint8           `json:"credentialIndex"`
	KeyIndex        uint8           `json:"keyIndex"`
	Signature       cosign.HexBytes `json:"signature"`
}

// Transaction is an account transaction together with the signatures
// collected so far.
type Transaction struct {
	Header  Header
	Payload Payload
	// Signatures are kept in the order they were added.
	Signatures []Signature
}

// NewTransaction returns an unsigned transaction with the payload size of
// the header set.
func NewTransaction(header Header, p Payload) (*Transaction, error) {
	size, err := PayloadByteLength(p)
	if err != nil {
		return nil, err
	}
	header.PayloadSize = size
	return &Transaction{Header: header, Payload: p}, nil
}

// Kind returns the type of the payload.
func (tx *Transaction) Kind() TransactionType {
	if tx.Payload == nil {
		return 0
	}
	return tx.Payload.Kind()
}

// Validate returns an error if the transaction is not well formed. It does
// not check the signatures.
func (tx *Transaction) Validate() error {
	if tx == nil {
		return errors.Wrap(errors.ErrInput, "missing transaction")
	}
	var errs error
	errs = errors.AppendField(errs, "Header", tx.Header.Validate())
	if tx.Payload == nil {
		errs = errors.AppendField(errs, "Payload", errors.ErrInput)
	} else if err := tx.Payload.Validate(); err != nil {
		errs = errors.AppendField(errs, "Payload", err)
	} else {
		errs = errors.AppendField(errs, "Header.PayloadSize", checkPayloadSize(tx.Header.PayloadSize, tx.Payload))
	}
	seen := make(map[[2]uint8]struct{}, len(tx.Signatures))
	for _, s := range tx.Signatures {
		id := [2]uint8{s.CredentialIndex, s.KeyIndex}
		if _, ok := seen[id]; ok {
			errs = errors.AppendField(errs, "Signatures",
				errors.Wrapf(errors.ErrDuplicateSignature, "credential %d key %d", s.CredentialIndex, s.KeyIndex))
		}
		seen[id] = struct{}{}
	}
	return errs
}

// checkPayloadSize returns an error unless size is the serialized length
// of p.
func checkPayloadSize(size uint32, p Payload) error {
	n, err := PayloadByteLength(p)
	if err != nil {
		return err
	}
	if n != size {
		return errors.Wrapf(errors.ErrCodec, "header payload size %d, payload is %d bytes", size, n)
	}
	return nil
}

// HasSignature returns true if a signature by given key was already added.
func (tx *Transaction) HasSignature(credential, key uint8) bool {
	for _, s := range tx.Signatures {
		if s.CredentialIndex == credential && s.KeyIndex == key {
			return true
		}
	}
	return false
}

// writeBody writes the header followed by the tagged payload.
func (tx *Transaction) writeBody(w *codec.Writer) {
	payload, err := SerializePayload(tx.Payload)
	if err != nil {
		w.Fail(err)
		return
	}
	if uint32(len(payload)) != tx.Header.PayloadSize {
		w.Fail(errors.Wrapf(errors.ErrCodec, "header payload size %d, payload is %d bytes",
			tx.Header.PayloadSize, len(payload)))
		return
	}
	tx.Header.Serialize(w)
	w.Raw(payload)
}

// SignDigest returns the hash that credential keys sign.
func (tx *Transaction) SignDigest() ([]byte, error) {
	w := codec.NewWriter()
	tx.writeBody(w)
	b, err := w.Bytes()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Serialize returns the block item form of the transaction. Signatures are
// grouped by credential, both credentials and keys in ascending order.
func (tx *Transaction) Serialize() ([]byte, error) {
	w := codec.NewWriter()
	w.Word8(blockItemKind)
	writeSignatures(w, tx.Signatures)
	tx.writeBody(w)
	return w.Bytes()
}

// SubmissionBytes returns the bytes sent to the node.
func (tx *Transaction) SubmissionBytes() ([]byte, error) {
	b, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	return append([]byte{submissionVersion}, b...), nil
}

// Hash returns the hash the node identifies the transaction by.
func (tx *Transaction) Hash() ([]byte, error) {
	b, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

func writeSignatures(w *codec.Writer, sigs []Signature) {
	grouped := make(map[uint8]map[uint8][]byte)
	for _, s := range sigs {
		cred, ok := grouped[s.CredentialIndex]
		if !ok {
			cred = make(map[uint8][]byte)
			grouped[s.CredentialIndex] = cred
		}
		cred[s.KeyIndex] = s.Signature
	}
	codec.WriteMap8(w, grouped, codec.W8, func(w *codec.Writer, keys map[uint8][]byte) {
		codec.WriteMap8(w, keys, codec.W8, (*codec.Writer).Bytes16)
	})
}

func readSignatures(r *codec.Reader) []Signature {
	grouped := codec.ReadMap8(r, codec.R8, func(r *codec.Reader) map[uint8][]byte {
		return codec.ReadMap8(r, codec.R8, (*codec.Reader).Bytes16)
	})
	var sigs []Signature
	codec.EachSorted(grouped, func(cred uint8, keys map[uint8][]byte) {
		codec.EachSorted(keys, func(key uint8, sig []byte) {
			sigs = append(sigs, Signature{CredentialIndex: cred, KeyIndex: key, Signature: sig})
		})
	})
	return sigs
}

// DecodeTransaction reads a transaction written by Serialize.
func DecodeTransaction(b []byte) (*Transaction, error) {
	r := codec.NewReader(b)
	if kind := r.Word8(); r.Err() == nil && kind != blockItemKind {
		return nil, errors.Wrapf(errors.ErrCodec, "block item kind %d is not an account transaction", kind)
	}
	sigs := readSignatures(r)
	header := ReadHeader(r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	if int(header.PayloadSize) > r.Remaining() {
		return nil, errors.Wrapf(errors.ErrCodec, "payload size %d exceeds input", header.PayloadSize)
	}
	payload := codec.NewReader(r.Raw(int(header.PayloadSize)))
	p := ReadPayload(payload)
	if err := payload.Done(); err != nil {
		return nil, errors.Wrap(err, "payload")
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return &Transaction{Header: header, Payload: p, Signatures: sigs}, nil
}

type transactionJSON struct {
	Header     Header          `json:"header"`
	Type       TransactionType `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Signatures []Signature     `json:"signatures"`
}

// MarshalJSON writes the transaction in the format used by exported
// proposal files.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	if tx.Payload == nil {
		return nil, errors.Wrap(errors.ErrInput, "missing payload")
	}
	payload, err := json.Marshal(tx.Payload)
	if err != nil {
		return nil, err
	}
	sigs := tx.Signatures
	if sigs == nil {
		sigs = []Signature{}
	}
	return json.Marshal(transactionJSON{
		Header:     tx.Header,
		Type:       tx.Payload.Kind(),
		Payload:    payload,
		Signatures: sigs,
	})
}

// UnmarshalJSON reads the format written by MarshalJSON.
func (tx *Transaction) UnmarshalJSON(raw []byte) error {
	var in transactionJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return err
	}
	p, err := NewPayload(in.Type)
	if err != nil {
		return err
	}
	if len(in.Payload) == 0 {
		return errors.Wrap(errors.ErrInput, "missing payload")
	}
	if err := json.Unmarshal(in.Payload, p); err != nil {
		return errors.Wrapf(errors.ErrInput, "%s payload: %s", in.Type, err)
	}
	var sigs []Signature
	if len(in.Signatures) > 0 {
		sigs = in.Signatures
	}
	*tx = Transaction{Header: in.Header, Payload: p, Signatures: sigs}
	return nil
}
