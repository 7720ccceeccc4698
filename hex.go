package cosign

import (
	"encoding/hex"
	"encoding/json"

	"github.com/iov-one/cosign/errors"
)

// HexBytes is a byte slice that is represented as a lowercase hex string in
// JSON. Signatures, hashes and key material are exchanged this way.
type HexBytes []byte

// MarshalJSON writes the value as a hex string.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

// UnmarshalJSON reads a hex string. Both lower and upper case are accepted.
func (h *HexBytes) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "hex value must be a string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "invalid hex: %s", err)
	}
	*h = b
	return nil
}

// String returns the lowercase hex representation.
func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

// ParseHex decodes a hex string of an exact length in bytes. Use a negative
// length to accept any length.
func ParseHex(s string, length int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodec, "invalid hex: %s", err)
	}
	if length >= 0 && len(b) != length {
		return nil, errors.Wrapf(errors.ErrCodec, "want %d bytes, got %d", length, len(b))
	}
	return b, nil
}
