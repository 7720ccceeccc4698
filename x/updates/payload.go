package updates

import (
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// Payload is the kind specific body of an update instruction.
//
// Implementations are registered in this package and the set is closed.
type Payload interface {
	// Kind returns the update type of this payload.
	Kind() UpdateType
	// Serialize writes the payload body, without the update type tag.
	Serialize(w *codec.Writer)
	// Validate returns an error if the payload is not well formed.
	Validate() error
}

// bodyReader is implemented by all payloads. It reads the body written by
// Serialize. For key updates the sub tag was already consumed while
// resolving the update type.
type bodyReader interface {
	Payload
	readBody(r *codec.Reader)
}

type registration struct {
	name string
	tag  uint8
	new  func() bodyReader
}

var registry = map[UpdateType]registration{}

func register(kind UpdateType, name string, tag uint8, new func() bodyReader) {
	if _, ok := registry[kind]; ok {
		panic("update type registered twice: " + name)
	}
	registry[kind] = registration{name: name, tag: tag, new: new}
}

// Kinds returns all registered update types in ascending order.
func Kinds() []UpdateType {
	kinds := make([]UpdateType, 0, len(registry))
	for k := UpdateProtocol; k <= UpdateFinalizationCommitteeParameters; k++ {
		if _, ok := registry[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// NewPayload returns an empty payload of given kind.
func NewPayload(kind UpdateType) (Payload, error) {
	r, ok := registry[kind]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "update type %d", uint8(kind))
	}
	return r.new(), nil
}

// WireTag returns the update type tag that precedes the payload on the wire.
func WireTag(kind UpdateType) (uint8, error) {
	r, ok := registry[kind]
	if !ok {
		return 0, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "update type %d", uint8(kind))
	}
	return r.tag, nil
}

// WritePayload writes the update type tag followed by the payload body.
func WritePayload(w *codec.Writer, p Payload) {
	if p == nil {
		w.Fail(errors.Wrap(errors.ErrInput, "missing payload"))
		return
	}
	tag, err := WireTag(p.Kind())
	if err != nil {
		w.Fail(err)
		return
	}
	w.Word8(tag)
	p.Serialize(w)
}

// SerializePayload returns the update type tag followed by the payload body.
// This is the part of an instruction that Header.PayloadSize describes.
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

// DecodePayload reads a payload written by SerializePayload. All input must
// be consumed.
func DecodePayload(b []byte) (Payload, error) {
	r := codec.NewReader(b)
	p := ReadPayload(r)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadPayload reads an update type tag and the payload body.
func ReadPayload(r *codec.Reader) Payload {
	tag := r.Word8()
	if r.Err() != nil {
		return nil
	}
	p, err := payloadOfTag(tag, r)
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

// payloadOfTag returns an empty payload for a wire tag. Key updates share a
// tag per signing level and are told apart by a sub tag that is consumed
// here.
func payloadOfTag(tag uint8, r *codec.Reader) (bodyReader, error) {
	switch tag {
	case rootUpdateTag:
		sub := r.Word8()
		switch sub {
		case 0:
			return &HigherLevelKeysUpdate{Type: UpdateRootKeys}, nil
		case 1:
			return &HigherLevelKeysUpdate{Type: UpdateLevel1KeysUsingRootKeys}, nil
		case 2, 3:
			return &AuthorizationKeysUpdate{Type: UpdateLevel2KeysUsingRootKeys, Version: sub - 2}, nil
		}
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "root update %d", sub)
	case level1UpdateTag:
		sub := r.Word8()
		switch sub {
		case 0:
			return &HigherLevelKeysUpdate{Type: UpdateLevel1KeysUsingLevel1Keys}, nil
		case 1, 2:
			return &AuthorizationKeysUpdate{Type: UpdateLevel2KeysUsingLevel1Keys, Version: sub - 1}, nil
		}
		return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "level 1 update %d", sub)
	}
	for _, reg := range registry {
		if reg.tag == tag {
			return reg.new(), nil
		}
	}
	return nil, errors.Wrapf(errors.ErrUnsupportedPayloadKind, "update tag %d", tag)
}
