package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/exp/constraints"
)

// Reader decodes values written by a Writer. The first error is remembered
// and all later reads return zero values.
type Reader struct {
	b   []byte
	off int
	err error
}

// NewReader returns a reader over given bytes.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Err returns the first error that happened while reading.
func (r *Reader) Err() error {
	return r.err
}

// Fail sets the reader error unless one is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.b) - r.off
}

// Done returns the first read error, or an error if not all input was
// consumed.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n != 0 {
		return errors.Wrapf(errors.ErrCodec, "%d trailing bytes", n)
	}
	return nil
}

// Raw returns the next n bytes.
func (r *Reader) Raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = errors.Wrapf(errors.ErrCodec, "unexpected end of input at offset %d, want %d bytes", r.off, n)
		return nil
	}
	b := make([]byte, n)
	copy(b, r.b[r.off:])
	r.off += n
	return b
}

// Word8 reads a single byte.
func (r *Reader) Word8() uint8 {
	b := r.Raw(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Word16 reads a big endian 16 bit integer.
func (r *Reader) Word16() uint16 {
	b := r.Raw(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Word32 reads a big endian 32 bit integer.
func (r *Reader) Word32() uint32 {
	b := r.Raw(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Word64 reads a big endian 64 bit integer.
func (r *Reader) Word64() uint64 {
	b := r.Raw(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Bool reads a single byte that must be either 0 or 1.
func (r *Reader) Bool() bool {
	switch v := r.Word8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.Fail(errors.Wrapf(errors.ErrCodec, "invalid boolean %d", v))
		return false
	}
}

// Bytes16 reads a u16 length prefixed byte string.
func (r *Reader) Bytes16() []byte {
	return r.Raw(int(r.Word16()))
}

// Bytes32 reads a u32 length prefixed byte string.
func (r *Reader) Bytes32() []byte {
	n := r.Word32()
	if uint64(n) > uint64(r.Remaining()) {
		r.Fail(errors.Wrapf(errors.ErrCodec, "length %d exceeds input", n))
		return nil
	}
	return r.Raw(int(n))
}

// Bytes64 reads a u64 length prefixed byte string.
func (r *Reader) Bytes64() []byte {
	n := r.Word64()
	if n > uint64(r.Remaining()) {
		r.Fail(errors.Wrapf(errors.ErrCodec, "length %d exceeds input", n))
		return nil
	}
	return r.Raw(int(n))
}

// String32 reads a u32 length prefixed UTF-8 string.
func (r *Reader) String32() string {
	return r.utf8(r.Bytes32())
}

// String64 reads a u64 length prefixed UTF-8 string.
func (r *Reader) String64() string {
	return r.utf8(r.Bytes64())
}

func (r *Reader) utf8(b []byte) string {
	if !utf8.Valid(b) {
		r.Fail(errors.Wrap(errors.ErrCodec, "string is not valid UTF-8"))
		return ""
	}
	return string(b)
}

// Hex reads n bytes and returns them as a lowercase hex string.
func (r *Reader) Hex(n int) string {
	b := r.Raw(n)
	if b == nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// YearMonth reads a u16 year and u8 month and returns them as YYYYMM.
func (r *Reader) YearMonth() string {
	year := r.Word16()
	month := r.Word8()
	if r.err != nil {
		return ""
	}
	if month < 1 || month > 12 || year > 9999 {
		r.Fail(errors.Wrapf(errors.ErrInvalidDateFormat, "year %d month %d", year, month))
		return ""
	}
	return fmt.Sprintf("%04d%02d", year, month)
}

// VerifyKey reads a scheme discriminant followed by the key material.
func (r *Reader) VerifyKey() crypto.VerifyKey {
	scheme := crypto.KeyScheme(r.Word8())
	if r.err != nil {
		return crypto.VerifyKey{}
	}
	if !scheme.Known() {
		r.Fail(errors.Wrapf(errors.ErrUnknownKeyScheme, "scheme %d", scheme))
		return crypto.VerifyKey{}
	}
	return crypto.VerifyKey{Scheme: scheme, Key: r.Raw(ed25519.PublicKeySize)}
}

// ReadMap reads a map written by WriteMap.
func ReadMap[K constraints.Ordered, V any](r *Reader, key func(*Reader) K, value func(*Reader) V) map[K]V {
	return readEntries(r, int(r.Word16()), key, value)
}

// ReadMap8 reads a map written by WriteMap8.
func ReadMap8[K constraints.Ordered, V any](r *Reader, key func(*Reader) K, value func(*Reader) V) map[K]V {
	return readEntries(r, int(r.Word8()), key, value)
}

func readEntries[K constraints.Ordered, V any](r *Reader, n int, key func(*Reader) K, value func(*Reader) V) map[K]V {
	if n == 0 || r.err != nil {
		return nil
	}
	m := make(map[K]V, n)
	var prev K
	for i := 0; i < n && r.err == nil; i++ {
		k := key(r)
		if i > 0 && k <= prev {
			r.Fail(errors.Wrap(errors.ErrCodec, "map keys not in ascending order"))
			return nil
		}
		m[k] = value(r)
		prev = k
	}
	if r.err != nil {
		return nil
	}
	return m
}

// ReadList reads a list written by WriteList.
func ReadList[T any](r *Reader, elem func(*Reader) T) []T {
	return readElements(r, int(r.Word16()), elem)
}

// ReadList8 reads a list written by WriteList8.
func ReadList8[T any](r *Reader, elem func(*Reader) T) []T {
	return readElements(r, int(r.Word8()), elem)
}

func readElements[T any](r *Reader, n int, elem func(*Reader) T) []T {
	if n == 0 || r.err != nil {
		return nil
	}
	list := make([]T, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		list = append(list, elem(r))
	}
	if r.err != nil {
		return nil
	}
	return list
}

// Element readers usable with ReadMap and ReadList.
var (
	R8  = (*Reader).Word8
	R16 = (*Reader).Word16
	R32 = (*Reader).Word32
	R64 = (*Reader).Word64
	RK  = (*Reader).VerifyKey
)
