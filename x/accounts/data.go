package accounts

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// MaxRegisteredDataSize is the largest data blob that can be registered.
const MaxRegisteredDataSize = 256

// RegisterData registers arbitrary data on chain.
type RegisterData struct {
	Data cosign.HexBytes `json:"data"`
}

func (*RegisterData) Kind() TransactionType { return TypeRegisterData }

func (p *RegisterData) Validate() error {
	if len(p.Data) == 0 {
		return errors.Field("Data", errors.ErrInput, "required")
	}
	if len(p.Data) > MaxRegisteredDataSize {
		return errors.Field("Data", errors.ErrInput, "longer than %d bytes", MaxRegisteredDataSize)
	}
	return nil
}

func (p *RegisterData) Serialize(w *codec.Writer) { w.Bytes16(p.Data) }
func (p *RegisterData) readBody(r *codec.Reader)  { p.Data = r.Bytes16() }
