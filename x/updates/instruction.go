package updates

import (
	"crypto/sha256"
	"encoding/json"
	"sort"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

const (
	// blockItemKind is the discriminant of update instructions among the
	// block items accepted by the node.
	blockItemKind = 2
	// submissionVersion prefixes all submitted block items.
	submissionVersion = 0
)

// Signature is a signature of an update instruction by one of the
// authorization keys. Keys are referenced by their index.
type Signature struct {
	AuthorizationKeyIndex uint16          `json:"authorizationKeyIndex"`
	Signature             cosign.HexBytes `json:"signature"`
}

// Instruction is an update instruction together with the signatures
// collected for it so far.
type Instruction struct {
	Header  Header
	Payload Payload
	// Signatures are kept in the order they were added. They are sorted by
	// key index when serialized.
	Signatures []Signature
}

// NewInstruction returns an unsigned instruction with the payload size
// of the header set.
func NewInstruction(header Header, p Payload) (*Instruction, error) {
	size, err := PayloadByteLength(p)
	if err != nil {
		return nil, err
	}
	header.PayloadSize = size
	return &Instruction{Header: header, Payload: p}, nil
}

// Kind returns the update type of the payload.
func (ins *Instruction) Kind() UpdateType {
	if ins.Payload == nil {
		return 0
	}
	return ins.Payload.Kind()
}

// Validate returns an error if the instruction is not well formed. It does
// not check the signatures.
func (ins *Instruction) Validate() error {
	if ins == nil {
		return errors.Wrap(errors.ErrInput, "missing instruction")
	}
	var errs error
	errs = errors.AppendField(errs, "Header", ins.Header.Validate())
	if ins.Payload == nil {
		errs = errors.AppendField(errs, "Payload", errors.ErrInput)
	} else if err := ins.Payload.Validate(); err != nil {
		errs = errors.AppendField(errs, "Payload", err)
	} else {
		errs = errors.AppendField(errs, "Header.PayloadSize", checkPayloadSize(ins.Header.PayloadSize, ins.Payload))
	}
	seen := make(map[uint16]struct{}, len(ins.Signatures))
	for _, s := range ins.Signatures {
		if _, ok := seen[s.AuthorizationKeyIndex]; ok {
			errs = errors.AppendField(errs, "Signatures",
				errors.Wrapf(errors.ErrDuplicateSignature, "key index %d", s.AuthorizationKeyIndex))
		}
		seen[s.AuthorizationKeyIndex] = struct{}{}
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

// HasSignature returns true if a signature by the key with given index was
// already added.
func (ins *Instruction) HasSignature(index uint16) bool {
	for _, s := range ins.Signatures {
		if s.AuthorizationKeyIndex == index {
			return true
		}
	}
	return false
}

// writeBody writes the header followed by the tagged payload. A payload
// size that does not match the payload is an error.
func (ins *Instruction) writeBody(w *codec.Writer) {
	payload, err := SerializePayload(ins.Payload)
	if err != nil {
		w.Fail(err)
		return
	}
	if uint32(len(payload)) != ins.Header.PayloadSize {
		w.Fail(errors.Wrapf(errors.ErrCodec, "header payload size %d, payload is %d bytes",
			ins.Header.PayloadSize, len(payload)))
		return
	}
	ins.Header.Serialize(w)
	w.Raw(payload)
}

// SignDigest returns the hash that authorization keys sign.
func (ins *Instruction) SignDigest() ([]byte, error) {
	w := codec.NewWriter()
	ins.writeBody(w)
	b, err := w.Bytes()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Serialize returns the block item form of the instruction including the
// signatures.
func (ins *Instruction) Serialize() ([]byte, error) {
	w := codec.NewWriter()
	w.Word8(blockItemKind)
	ins.writeBody(w)
	writeSignatures(w, ins.Signatures)
	return w.Bytes()
}

// SubmissionBytes returns the bytes sent to the node.
func (ins *Instruction) SubmissionBytes() ([]byte, error) {
	b, err := ins.Serialize()
	if err != nil {
		return nil, err
	}
	return append([]byte{submissionVersion}, b...), nil
}

// Hash returns the hash the node identifies the instruction by.
func (ins *Instruction) Hash() ([]byte, error) {
	b, err := ins.Serialize()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

func writeSignatures(w *codec.Writer, sigs []Signature) {
	sorted := make([]Signature, len(sigs))
	copy(sorted, sigs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AuthorizationKeyIndex < sorted[j].AuthorizationKeyIndex
	})
	codec.WriteList(w, sorted, func(w *codec.Writer, s Signature) {
		w.Word16(s.AuthorizationKeyIndex)
		w.Bytes16(s.Signature)
	})
}

// DecodeInstruction reads an instruction written by Serialize.
func DecodeInstruction(b []byte) (*Instruction, error) {
	r := codec.NewReader(b)
	if kind := r.Word8(); r.Err() == nil && kind != blockItemKind {
		return nil, errors.Wrapf(errors.ErrCodec, "block item kind %d is not an update instruction", kind)
	}
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
	sigs := codec.ReadList(r, func(r *codec.Reader) Signature {
		return Signature{
			AuthorizationKeyIndex: r.Word16(),
			Signature:             r.Bytes16(),
		}
	})
	if err := r.Done(); err != nil {
		return nil, err
	}
	return &Instruction{Header: header, Payload: p, Signatures: sigs}, nil
}

type instructionJSON struct {
	Header     Header          `json:"header"`
	Type       UpdateType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Signatures []Signature     `json:"signatures"`
}

// MarshalJSON writes the instruction in the format used by exported
// proposal files.
func (ins Instruction) MarshalJSON() ([]byte, error) {
	if ins.Payload == nil {
		return nil, errors.Wrap(errors.ErrInput, "missing payload")
	}
	payload, err := json.Marshal(ins.Payload)
	if err != nil {
		return nil, err
	}
	sigs := ins.Signatures
	if sigs == nil {
		sigs = []Signature{}
	}
	return json.Marshal(instructionJSON{
		Header:     ins.Header,
		Type:       ins.Payload.Kind(),
		Payload:    payload,
		Signatures: sigs,
	})
}

// UnmarshalJSON reads the instruction format written by MarshalJSON.
func (ins *Instruction) UnmarshalJSON(raw []byte) error {
	var in instructionJSON
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
	*ins = Instruction{Header: in.Header, Payload: p, Signatures: sigs}
	return nil
}
