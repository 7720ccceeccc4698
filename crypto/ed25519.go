package crypto

import (
	"golang.org/x/crypto/ed25519"
)

// GenPrivKeyEd25519 returns a random new private key.
func GenPrivKeyEd25519() ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return priv
}

// PrivKeyEd25519FromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
func PrivKeyEd25519FromSeed(seed []byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed)
}

// PublicKeyOf returns the verification key of given private key.
func PublicKeyOf(priv ed25519.PrivateKey) VerifyKey {
	return NewVerifyKey(priv.Public().(ed25519.PublicKey))
}

// Sign returns a signature of the message created with given private key.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}
