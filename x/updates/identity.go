package updates

import (
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

func init() {
	register(UpdateAddAnonymityRevoker, "AddAnonymityRevoker", 12, func() bodyReader { return &AddAnonymityRevoker{} })
	register(UpdateAddIdentityProvider, "AddIdentityProvider", 13, func() bodyReader { return &AddIdentityProvider{} })
}

const (
	// ARPublicKeyLength is the length of an anonymity revoker public key.
	ARPublicKeyLength = 96
	// IPCdiVerifyKeyLength is the length of the ed25519 key an identity
	// provider signs credential deployments with.
	IPCdiVerifyKeyLength = 32
)

// Description is the public metadata of an anonymity revoker or an identity
// provider.
type Description struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (d *Description) write(w *codec.Writer) {
	w.String32(d.Name)
	w.String32(d.URL)
	w.String32(d.Description)
}

func (d *Description) read(r *codec.Reader) {
	d.Name = r.String32()
	d.URL = r.String32()
	d.Description = r.String32()
}

// AddAnonymityRevoker registers a new anonymity revoker.
type AddAnonymityRevoker struct {
	ARIdentity    uint32          `json:"arIdentity"`
	ARDescription Description     `json:"arDescription"`
	ARPublicKey   cosign.HexBytes `json:"arPublicKey"`
}

func (*AddAnonymityRevoker) Kind() UpdateType { return UpdateAddAnonymityRevoker }

func (p *AddAnonymityRevoker) Validate() error {
	var errs error
	if p.ARIdentity == 0 {
		errs = errors.AppendField(errs, "ARIdentity", errors.Wrap(errors.ErrInput, "must not be zero"))
	}
	if p.ARDescription.Name == "" {
		errs = errors.AppendField(errs, "ARDescription.Name", errors.ErrInput)
	}
	if len(p.ARPublicKey) != ARPublicKeyLength {
		errs = errors.AppendField(errs, "ARPublicKey", errors.Wrapf(errors.ErrInput, "must be %d bytes", ARPublicKeyLength))
	}
	return errs
}

// Serialize writes the anonymity revoker info prefixed by its u32 length.
func (p *AddAnonymityRevoker) Serialize(w *codec.Writer) {
	inner := codec.NewWriter()
	inner.Word32(p.ARIdentity)
	p.ARDescription.write(inner)
	inner.Raw(p.ARPublicKey)
	b, err := inner.Bytes()
	if err != nil {
		w.Fail(err)
		return
	}
	w.Bytes32(b)
}

func (p *AddAnonymityRevoker) readBody(r *codec.Reader) {
	b := r.Bytes32()
	if r.Err() != nil {
		return
	}
	inner := codec.NewReader(b)
	p.ARIdentity = inner.Word32()
	p.ARDescription.read(inner)
	p.ARPublicKey = inner.Raw(inner.Remaining())
	r.Fail(inner.Err())
}

// AddIdentityProvider registers a new identity provider.
type AddIdentityProvider struct {
	IPIdentity     uint32          `json:"ipIdentity"`
	IPDescription  Description     `json:"ipDescription"`
	IPVerifyKey    cosign.HexBytes `json:"ipVerifyKey"`
	IPCdiVerifyKey cosign.HexBytes `json:"ipCdiVerifyKey"`
}

func (*AddIdentityProvider) Kind() UpdateType { return UpdateAddIdentityProvider }

func (p *AddIdentityProvider) Validate() error {
	var errs error
	if p.IPDescription.Name == "" {
		errs = errors.AppendField(errs, "IPDescription.Name", errors.ErrInput)
	}
	if len(p.IPVerifyKey) == 0 {
		errs = errors.AppendField(errs, "IPVerifyKey", errors.ErrInput)
	}
	if len(p.IPCdiVerifyKey) != IPCdiVerifyKeyLength {
		errs = errors.AppendField(errs, "IPCdiVerifyKey", errors.Wrapf(errors.ErrInput, "must be %d bytes", IPCdiVerifyKeyLength))
	}
	return errs
}

// Serialize writes the identity provider info prefixed by its u32 length.
// The verify key has no length of its own; it takes all the space before
// the fixed size credential verify key.
func (p *AddIdentityProvider) Serialize(w *codec.Writer) {
	inner := codec.NewWriter()
	inner.Word32(p.IPIdentity)
	p.IPDescription.write(inner)
	inner.Raw(p.IPVerifyKey)
	if len(p.IPCdiVerifyKey) != IPCdiVerifyKeyLength {
		inner.Fail(errors.Wrapf(errors.ErrCodec, "credential verify key must be %d bytes", IPCdiVerifyKeyLength))
	}
	inner.Raw(p.IPCdiVerifyKey)
	b, err := inner.Bytes()
	if err != nil {
		w.Fail(err)
		return
	}
	w.Bytes32(b)
}

func (p *AddIdentityProvider) readBody(r *codec.Reader) {
	b := r.Bytes32()
	if r.Err() != nil {
		return
	}
	inner := codec.NewReader(b)
	p.IPIdentity = inner.Word32()
	p.IPDescription.read(inner)
	p.IPVerifyKey = inner.Raw(inner.Remaining() - IPCdiVerifyKeyLength)
	p.IPCdiVerifyKey = inner.Raw(IPCdiVerifyKeyLength)
	r.Fail(inner.Err())
}
