/*
Package cosigntest provides fixtures shared by the tests of cosign
packages: deterministic keys, a fake node, and ready to use transactions.
*/
package cosigntest

import (
	"bytes"

	"github.com/iov-one/cosign/crypto"
	"golang.org/x/crypto/ed25519"
)

// Key is an ed25519 key pair.
type Key struct {
	Private ed25519.PrivateKey
	Public  crypto.VerifyKey
}

// NewKey returns the key derived from a seed of 32 repeated bytes. The
// same n always returns the same key.
func NewKey(n byte) Key {
	priv := crypto.PrivKeyEd25519FromSeed(bytes.Repeat([]byte{n}, ed25519.SeedSize))
	return Key{Private: priv, Public: crypto.PublicKeyOf(priv)}
}

// NewKeys returns n distinct deterministic keys.
func NewKeys(n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = NewKey(byte(i + 1))
	}
	return keys
}

// Sign signs a message.
func (k Key) Sign(message []byte) []byte {
	return crypto.Sign(k.Private, message)
}

// PublicKeys returns the verification keys of all given keys.
func PublicKeys(keys []Key) []crypto.VerifyKey {
	res := make([]crypto.VerifyKey, len(keys))
	for i, k := range keys {
		res[i] = k.Public
	}
	return res
}

// NewDevice returns a software signing device with a fixed seed.
func NewDevice(n byte) *crypto.SoftDevice {
	d, err := crypto.NewSoftDevice(bytes.Repeat([]byte{n}, ed25519.SeedSize))
	if err != nil {
		panic(err)
	}
	return d
}
