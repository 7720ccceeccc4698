package cosign

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/iov-one/cosign/errors"
)

const (
	// AccountAddressLength is the length of all account addresses.
	AccountAddressLength = 32

	// accountAddressVersion is the base58check version byte of account
	// addresses.
	accountAddressVersion = 1
)

// AccountAddress identifies an account on chain. Its human readable form is
// base58check with version byte 1.
type AccountAddress [AccountAddressLength]byte

// ParseAccountAddress decodes an address from its human readable form.
//
// A "hex:" prefix can be used to provide the raw address bytes instead.
func ParseAccountAddress(s string) (AccountAddress, error) {
	var a AccountAddress
	if enc := strings.TrimPrefix(s, "hex:"); enc != s {
		raw, err := hex.DecodeString(enc)
		if err != nil {
			return a, errors.Wrap(errors.ErrInput, "cannot decode hex")
		}
		if len(raw) != AccountAddressLength {
			return a, errors.Wrapf(errors.ErrInput, "address must be %d bytes", AccountAddressLength)
		}
		copy(a[:], raw)
		return a, nil
	}

	raw, version, err := base58.CheckDecode(s)
	if err != nil {
		return a, errors.Wrapf(errors.ErrInput, "address %q: %s", s, err)
	}
	if version != accountAddressVersion {
		return a, errors.Wrapf(errors.ErrInput, "address version %d", version)
	}
	if len(raw) != AccountAddressLength {
		return a, errors.Wrapf(errors.ErrInput, "address must be %d bytes", AccountAddressLength)
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the base58check representation.
func (a AccountAddress) String() string {
	return base58.CheckEncode(a[:], accountAddressVersion)
}

// IsZero returns true if no byte of the address is set.
func (a AccountAddress) IsZero() bool {
	return a == AccountAddress{}
}

// MarshalJSON writes the base58check representation.
func (a AccountAddress) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON reads the base58check representation.
func (a *AccountAddress) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return errors.Wrap(errors.ErrInput, "address must be a string")
	}
	addr, err := ParseAccountAddress(enc)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}
