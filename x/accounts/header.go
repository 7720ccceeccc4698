package accounts

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// HeaderLength is the serialized size of a Header.
const HeaderLength = cosign.AccountAddressLength + 8 + 8 + 4 + 8

// Header precedes the payload of every account transaction.
type Header struct {
	Sender cosign.AccountAddress `json:"sender"`
	// Nonce is the account sequence number of the transaction.
	Nonce uint64 `json:"nonce,string"`
	// Energy is the maximum energy the transaction may use.
	Energy uint64 `json:"energyAmount,string"`
	// PayloadSize is the byte length of the tagged payload. It is computed
	// during serialization.
	PayloadSize uint32 `json:"payloadSize"`
	// Expiry is the unix time in seconds after which the transaction is
	// no longer accepted.
	Expiry uint64 `json:"expiry,string"`
}

// Validate returns an error if the header cannot be submitted.
func (h *Header) Validate() error {
	if h == nil {
		return errors.Wrap(errors.ErrInput, "missing header")
	}
	var errs error
	if h.Sender.IsZero() {
		errs = errors.AppendField(errs, "Sender", errors.ErrInput)
	}
	if h.Nonce == 0 {
		errs = errors.AppendField(errs, "Nonce", errors.Wrap(errors.ErrInput, "nonces start at 1"))
	}
	if h.Energy == 0 {
		errs = errors.AppendField(errs, "Energy", errors.ErrInput)
	}
	if h.Expiry == 0 {
		errs = errors.AppendField(errs, "Expiry", errors.ErrInput)
	}
	return errs
}

// Deadline returns the time after which the transaction expires.
func (h *Header) Deadline() cosign.UnixTime {
	return cosign.UnixTime(h.Expiry)
}

// Serialize writes the header.
func (h *Header) Serialize(w *codec.Writer) {
	w.Raw(h.Sender[:])
	w.Word64(h.Nonce)
	w.Word64(h.Energy)
	w.Word32(h.PayloadSize)
	w.Word64(h.Expiry)
}

// ReadHeader reads a header written by Header.Serialize.
func ReadHeader(r *codec.Reader) Header {
	var h Header
	copy(h.Sender[:], r.Raw(cosign.AccountAddressLength))
	h.Nonce = r.Word64()
	h.Energy = r.Word64()
	h.PayloadSize = r.Word32()
	h.Expiry = r.Word64()
	return h
}
