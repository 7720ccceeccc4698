package updates

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// HeaderLength is the serialized size of a Header.
const HeaderLength = 28

// Header precedes the payload of every update instruction.
type Header struct {
	// SequenceNumber must match the next sequence number of the update
	// queue of the payload kind.
	SequenceNumber uint64 `json:"sequenceNumber,string"`
	// EffectiveTime is the unix time in seconds at which the update takes
	// effect. Zero means immediately.
	EffectiveTime uint64 `json:"effectiveTime,string"`
	// Timeout is the unix time in seconds after which the instruction is
	// no longer accepted.
	Timeout uint64 `json:"timeout,string"`
	// PayloadSize is the byte length of the serialized payload including
	// its update type tag. It is computed during serialization.
	PayloadSize uint32 `json:"payloadSize"`
}

// Validate returns an error if the header cannot be submitted.
func (h *Header) Validate() error {
	if h == nil {
		return errors.Wrap(errors.ErrInput, "missing header")
	}
	var errs error
	if h.Timeout == 0 {
		errs = errors.AppendField(errs, "Timeout", errors.ErrInput)
	}
	if h.EffectiveTime != 0 && h.EffectiveTime < h.Timeout {
		errs = errors.AppendField(errs, "EffectiveTime",
			errors.Wrap(errors.ErrInput, "effective time must not be before the timeout"))
	}
	return errs
}

// Deadline returns the time after which the instruction expires.
func (h *Header) Deadline() cosign.UnixTime {
	return cosign.UnixTime(h.Timeout)
}

// Serialize writes the header.
func (h *Header) Serialize(w *codec.Writer) {
	w.Word64(h.SequenceNumber)
	w.Word64(h.EffectiveTime)
	w.Word64(h.Timeout)
	w.Word32(h.PayloadSize)
}

// ReadHeader reads a header written by Header.Serialize.
func ReadHeader(r *codec.Reader) Header {
	return Header{
		SequenceNumber: r.Word64(),
		EffectiveTime:  r.Word64(),
		Timeout:        r.Word64(),
		PayloadSize:    r.Word32(),
	}
}
