package accounts

import (
	"github.com/iov-one/cosign/codec"
	"github.com/iov-one/cosign/errors"
)

// IndexedCredential is a credential deployed at a given credential index.
type IndexedCredential struct {
	Index      uint8                          `json:"index"`
	Credential codec.CredentialDeploymentInfo `json:"value"`
}

// UpdateCredentials adds and removes credentials of an account and sets
// the number of credentials that must sign its transactions.
type UpdateCredentials struct {
	NewCredentials []IndexedCredential `json:"addedCredentials"`
	// RemoveCredentialIDs are hex encoded credential registration ids.
	RemoveCredentialIDs []string `json:"removedCredIds"`
	NewThreshold        uint8    `json:"threshold"`
}

func (*UpdateCredentials) Kind() TransactionType { return TypeUpdateCredentials }

func (p *UpdateCredentials) Validate() error {
	var errs error
	if len(p.NewCredentials) == 0 && len(p.RemoveCredentialIDs) == 0 {
		errs = errors.Append(errs, errors.Wrap(errors.ErrInput, "no credentials added or removed"))
	}
	if p.NewThreshold == 0 {
		errs = errors.AppendField(errs, "NewThreshold", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	// Index 0 belongs to the credential the account was created with.
	seen := make(map[uint8]struct{})
	for _, c := range p.NewCredentials {
		if c.Index == 0 {
			errs = errors.AppendField(errs, "NewCredentials", errors.Wrap(errors.ErrInput, "index 0 is reserved"))
		}
		if _, ok := seen[c.Index]; ok {
			errs = errors.AppendField(errs, "NewCredentials", errors.Wrapf(errors.ErrDuplicate, "index %d", c.Index))
		}
		seen[c.Index] = struct{}{}
	}
	return errs
}

func (p *UpdateCredentials) Serialize(w *codec.Writer) {
	codec.WriteList8(w, p.NewCredentials, func(w *codec.Writer, c IndexedCredential) {
		w.Word8(c.Index)
		codec.WriteCredentialDeploymentInfo(w, c.Credential)
	})
	codec.WriteList8(w, p.RemoveCredentialIDs, func(w *codec.Writer, id string) {
		w.Hex(id, codec.CredentialIDLength)
	})
	w.Word8(p.NewThreshold)
}

func (p *UpdateCredentials) readBody(r *codec.Reader) {
	p.NewCredentials = codec.ReadList8(r, func(r *codec.Reader) IndexedCredential {
		return IndexedCredential{
			Index:      r.Word8(),
			Credential: codec.ReadCredentialDeploymentInfo(r),
		}
	})
	p.RemoveCredentialIDs = codec.ReadList8(r, func(r *codec.Reader) string {
		return r.Hex(codec.CredentialIDLength)
	})
	p.NewThreshold = r.Word8()
}
