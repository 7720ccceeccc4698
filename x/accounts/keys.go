package accounts

import (
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"golang.org/x/exp/slices"
)

// CredentialKeys are the keys of one account credential.
type CredentialKeys struct {
	Keys      map[uint8]crypto.VerifyKey `json:"keys"`
	Threshold uint8                      `json:"threshold"`
}

// AccountKeys are the keys of all credentials of an account, indexed by
// credential index.
type AccountKeys struct {
	Credentials map[uint8]CredentialKeys `json:"keys"`
	// Threshold is the number of credentials that must sign.
	Threshold uint8 `json:"threshold"`
}

// Key returns the key of given credential and key index.
func (a AccountKeys) Key(credential, key uint8) (crypto.VerifyKey, error) {
	cred, ok := a.Credentials[credential]
	if !ok {
		return crypto.VerifyKey{}, errors.Wrapf(errors.ErrInput, "no credential at index %d", credential)
	}
	k, ok := cred.Keys[key]
	if !ok {
		return crypto.VerifyKey{}, errors.Wrapf(errors.ErrInput, "no key %d in credential %d", key, credential)
	}
	return k, nil
}

// IndexOf returns the credential and key index of given key.
func (a AccountKeys) IndexOf(key crypto.VerifyKey) (credential, index uint8, ok bool) {
	for c, cred := range a.Credentials {
		for i, k := range cred.Keys {
			if k.Equal(key) {
				return c, i, true
			}
		}
	}
	return 0, 0, false
}

// RequiredSignatures returns the number of signatures needed when the
// credentials with the lowest thresholds sign.
func (a AccountKeys) RequiredSignatures() int {
	thresholds := make([]int, 0, len(a.Credentials))
	for _, c := range a.Credentials {
		thresholds = append(thresholds, int(c.Threshold))
	}
	slices.Sort(thresholds)
	var total int
	for i := 0; i < int(a.Threshold) && i < len(thresholds); i++ {
		total += thresholds[i]
	}
	return total
}
