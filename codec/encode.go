package codec

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EncodeWord8 returns a single byte.
func EncodeWord8(v uint8) []byte {
	return []byte{v}
}

// EncodeWord16 returns the big endian encoding of v.
func EncodeWord16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// EncodeWord32 returns the big endian encoding of v.
func EncodeWord32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// EncodeWord64 returns the big endian encoding of v.
func EncodeWord64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// EncodeYearMonth encodes a YYYYMM string as a u16 year followed by a u8
// month.
func EncodeYearMonth(s string) ([]byte, error) {
	if len(s) != 6 {
		return nil, errors.Wrapf(errors.ErrInvalidDateFormat, "%q is not in YYYYMM format", s)
	}
	var n [6]uint16
	for i := 0; i < 6; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return nil, errors.Wrapf(errors.ErrInvalidDateFormat, "%q is not in YYYYMM format", s)
		}
		n[i] = uint16(c - '0')
	}
	year := n[0]*1000 + n[1]*100 + n[2]*10 + n[3]
	month := n[4]*10 + n[5]
	if month < 1 || month > 12 {
		return nil, errors.Wrapf(errors.ErrInvalidDateFormat, "month %d out of range", month)
	}
	b := make([]byte, 3)
	binary.BigEndian.PutUint16(b, year)
	b[2] = uint8(month)
	return b, nil
}

// EncodeVerifyKey encodes the scheme discriminant followed by the key.
func EncodeVerifyKey(k crypto.VerifyKey) ([]byte, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, 0, 1+len(k.Key))
	b = append(b, byte(k.Scheme))
	return append(b, k.Key...), nil
}

// EncodeMap encodes a map as a u16 element count followed by all entries in
// ascending key order.
func EncodeMap[K constraints.Ordered, V any](m map[K]V, key func(*Writer, K), value func(*Writer, V)) ([]byte, error) {
	w := NewWriter()
	WriteMap(w, m, key, value)
	return w.Bytes()
}

// EncodeList encodes a list as a u16 element count followed by all elements
// in input order.
func EncodeList[T any](list []T, elem func(*Writer, T)) ([]byte, error) {
	w := NewWriter()
	WriteList(w, list, elem)
	return w.Bytes()
}

// WriteMap writes a map with a u16 element count.
func WriteMap[K constraints.Ordered, V any](w *Writer, m map[K]V, key func(*Writer, K), value func(*Writer, V)) {
	w.Length16(len(m))
	writeEntries(w, m, key, value)
}

// WriteMap8 writes a map with a u8 element count.
func WriteMap8[K constraints.Ordered, V any](w *Writer, m map[K]V, key func(*Writer, K), value func(*Writer, V)) {
	w.Length8(len(m))
	writeEntries(w, m, key, value)
}

func writeEntries[K constraints.Ordered, V any](w *Writer, m map[K]V, key func(*Writer, K), value func(*Writer, V)) {
	EachSorted(m, func(k K, v V) {
		key(w, k)
		value(w, v)
	})
}

// EachSorted calls fn for every map entry in ascending key order.
func EachSorted[K constraints.Ordered, V any](m map[K]V, fn func(K, V)) {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		fn(k, m[k])
	}
}

// WriteList writes a list with a u16 element count.
func WriteList[T any](w *Writer, list []T, elem func(*Writer, T)) {
	w.Length16(len(list))
	for _, e := range list {
		elem(w, e)
	}
}

// WriteList8 writes a list with a u8 element count.
func WriteList8[T any](w *Writer, list []T, elem func(*Writer, T)) {
	w.Length8(len(list))
	for _, e := range list {
		elem(w, e)
	}
}

// Element writers usable with WriteMap and WriteList.
var (
	W8  = (*Writer).Word8
	W16 = (*Writer).Word16
	W32 = (*Writer).Word32
	W64 = (*Writer).Word64
	WK  = (*Writer).VerifyKey
)

func parseAnyHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodec, "invalid hex: %s", err)
	}
	return b, nil
}

func hexString(b []byte) string {
	return hex.EncodeToString(b)
}
