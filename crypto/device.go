package crypto

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iov-one/cosign/errors"
	"github.com/stellar/go/exp/crypto/derivation"
	"golang.org/x/crypto/ed25519"
)

// KeyPath identifies a key held by a signing device. All elements are
// hardened, so each must be below 2^31.
type KeyPath []uint32

// ParseKeyPath reads a slash separated path, for example "1105/0/0/0/0".
// A leading "m" and hardened markers (') are accepted and ignored.
func ParseKeyPath(s string) (KeyPath, error) {
	s = strings.Trim(strings.TrimSpace(s), "/")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "m"), "/")
	if s == "" {
		return nil, errors.Wrap(errors.ErrInput, "empty key path")
	}
	parts := strings.Split(s, "/")
	path := make(KeyPath, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSuffix(p, "'"), 10, 31)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "key path element %d: %q", i, p)
		}
		path[i] = uint32(n)
	}
	return path, nil
}

func (p KeyPath) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, "/")
}

// Device produces signatures with keys it never reveals. Implementations
// talk to hardware wallets and may block until the user confirms, so every
// call accepts a context.
type Device interface {
	// PublicKey returns the verification key stored under given path.
	PublicKey(ctx context.Context, path KeyPath) (VerifyKey, error)

	// Sign returns a signature of the message created with the key
	// stored under given path.
	Sign(ctx context.Context, path KeyPath, message []byte) ([]byte, error)
}

// SoftDevice is a Device that keeps a master seed in memory and derives an
// ed25519 key for each path using SLIP-0010, the scheme hardware wallets
// use. It is meant for tests and for operators without a hardware wallet.
type SoftDevice struct {
	seed []byte
}

var _ Device = (*SoftDevice)(nil)

// NewSoftDevice returns a device using given master seed.
func NewSoftDevice(seed []byte) (*SoftDevice, error) {
	if len(seed) < ed25519.SeedSize {
		return nil, errors.Wrapf(errors.ErrInput, "seed must be at least %d bytes", ed25519.SeedSize)
	}
	return &SoftDevice{seed: append([]byte(nil), seed...)}, nil
}

// LoadSoftDevice reads a hex encoded master seed from a file.
func LoadSoftDevice(filename string) (*SoftDevice, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "seed file: %s", err)
	}
	return NewSoftDevice(seed)
}

func (d *SoftDevice) key(path KeyPath) (ed25519.PrivateKey, error) {
	k, err := derivation.NewMasterKey(d.seed)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	for _, n := range path {
		if n >= derivation.FirstHardenedIndex {
			return nil, errors.Wrapf(errors.ErrInput, "key path element %d out of range", n)
		}
		if k, err = k.Derive(derivation.FirstHardenedIndex + n); err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "derive %s: %s", path, err)
		}
	}
	return ed25519.NewKeyFromSeed(k.Key), nil
}

// PublicKey implements Device.
func (d *SoftDevice) PublicKey(ctx context.Context, path KeyPath) (VerifyKey, error) {
	if err := ctx.Err(); err != nil {
		return VerifyKey{}, err
	}
	priv, err := d.key(path)
	if err != nil {
		return VerifyKey{}, err
	}
	return PublicKeyOf(priv), nil
}

// Sign implements Device.
func (d *SoftDevice) Sign(ctx context.Context, path KeyPath, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	priv, err := d.key(path)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(priv, message), nil
}
