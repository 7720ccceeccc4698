package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"github.com/iov-one/cosign/errors"
	"golang.org/x/crypto/ed25519"
)

// KeyScheme is the signature scheme discriminant that prefixes key material
// on the wire.
type KeyScheme uint8

const (
	// SchemeEd25519 is the only scheme supported by the node.
	SchemeEd25519 KeyScheme = 0
)

func (s KeyScheme) String() string {
	switch s {
	case SchemeEd25519:
		return "Ed25519"
	default:
		return "Unknown"
	}
}

// ParseKeyScheme returns the scheme of given name.
func ParseKeyScheme(name string) (KeyScheme, error) {
	switch name {
	case "Ed25519", "ed25519":
		return SchemeEd25519, nil
	default:
		return 0, errors.Wrapf(errors.ErrUnknownKeyScheme, "scheme %q", name)
	}
}

// Known returns true if this scheme is supported.
func (s KeyScheme) Known() bool {
	return s == SchemeEd25519
}

// VerifyKey is a public key together with its signature scheme.
type VerifyKey struct {
	Scheme KeyScheme
	Key    []byte
}

// NewVerifyKey returns a verification key for given ed25519 public key.
func NewVerifyKey(pub ed25519.PublicKey) VerifyKey {
	return VerifyKey{Scheme: SchemeEd25519, Key: append([]byte(nil), pub...)}
}

// Validate returns an error if the scheme is not known or the key material
// does not match the scheme.
func (k VerifyKey) Validate() error {
	if !k.Scheme.Known() {
		return errors.Wrapf(errors.ErrUnknownKeyScheme, "scheme %d", k.Scheme)
	}
	if len(k.Key) != ed25519.PublicKeySize {
		return errors.Wrapf(errors.ErrCodec, "ed25519 key must be %d bytes, got %d", ed25519.PublicKeySize, len(k.Key))
	}
	return nil
}

// Verify returns true if the signature was created for given message with
// the private key matching this key. An invalid signature is not an error.
// Malformed key material is.
func (k VerifyKey) Verify(message, signature []byte) (bool, error) {
	if err := k.Validate(); err != nil {
		return false, err
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(k.Key), message, signature), nil
}

// Equal returns true if both keys are the same.
func (k VerifyKey) Equal(other VerifyKey) bool {
	return k.Scheme == other.Scheme && bytes.Equal(k.Key, other.Key)
}

func (k VerifyKey) String() string {
	return k.Scheme.String() + ":" + hex.EncodeToString(k.Key)
}

type verifyKeyJSON struct {
	SchemeID  string `json:"schemeId"`
	VerifyKey string `json:"verifyKey"`
}

// MarshalJSON uses the node representation of a key.
func (k VerifyKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(verifyKeyJSON{
		SchemeID:  k.Scheme.String(),
		VerifyKey: hex.EncodeToString(k.Key),
	})
}

// UnmarshalJSON reads the node representation of a key.
func (k *VerifyKey) UnmarshalJSON(raw []byte) error {
	var v verifyKeyJSON
	if err := json.Unmarshal(raw, &v); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	scheme, err := ParseKeyScheme(v.SchemeID)
	if err != nil {
		return err
	}
	key, err := hex.DecodeString(v.VerifyKey)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "verify key: %s", err)
	}
	*k = VerifyKey{Scheme: scheme, Key: key}
	return nil
}
