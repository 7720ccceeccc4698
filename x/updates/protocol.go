package updates

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

func init() {
	register(UpdateProtocol, "Protocol", 1, func() bodyReader { return &ProtocolUpdate{} })
}

// SpecificationHashLength is the length of the sha256 hash of a protocol
// specification document.
const SpecificationHashLength = 32

// ProtocolUpdate announces a new protocol version.
type ProtocolUpdate struct {
	Message                    string          `json:"message"`
	SpecificationURL           string          `json:"specificationUrl"`
	SpecificationHash          cosign.HexBytes `json:"specificationHash"`
	SpecificationAuxiliaryData cosign.HexBytes `json:"specificationAuxiliaryData,omitempty"`
}

func (*ProtocolUpdate) Kind() UpdateType { return UpdateProtocol }

func (p *ProtocolUpdate) Validate() error {
	var errs error
	if p.Message == "" {
		errs = errors.AppendField(errs, "Message", errors.ErrInput)
	}
	if p.SpecificationURL == "" {
		errs = errors.AppendField(errs, "SpecificationURL", errors.ErrInput)
	}
	if len(p.SpecificationHash) != SpecificationHashLength {
		errs = errors.AppendField(errs, "SpecificationHash",
			errors.Wrapf(errors.ErrInput, "must be %d bytes", SpecificationHashLength))
	}
	return errs
}

// Serialize writes the u64 length of the rest of the payload, followed by
// the u64 length prefixed message and URL, the specification hash and the
// auxiliary data that takes the remaining space.
func (p *ProtocolUpdate) Serialize(w *codec.Writer) {
	inner := codec.NewWriter()
	inner.String64(p.Message)
	inner.String64(p.SpecificationURL)
	if len(p.SpecificationHash) != SpecificationHashLength {
		inner.Fail(errors.Wrapf(errors.ErrCodec, "specification hash must be %d bytes", SpecificationHashLength))
	}
	inner.Raw(p.SpecificationHash)
	inner.Raw(p.SpecificationAuxiliaryData)
	b, err := inner.Bytes()
	if err != nil {
		w.Fail(err)
		return
	}
	w.Bytes64(b)
}

func (p *ProtocolUpdate) readBody(r *codec.Reader) {
	b := r.Bytes64()
	if r.Err() != nil {
		return
	}
	inner := codec.NewReader(b)
	p.Message = inner.String64()
	p.SpecificationURL = inner.String64()
	p.SpecificationHash = inner.Raw(SpecificationHashLength)
	if aux := inner.Raw(inner.Remaining()); len(aux) > 0 {
		p.SpecificationAuxiliaryData = aux
	}
	r.Fail(inner.Err())
}
