package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
)

// Writer accumulates encoded values. The first error is remembered and all
// later writes are ignored.
type Writer struct {
	buf bytes.Buffer
	err error
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Err returns the first error that happened while writing.
func (w *Writer) Err() error {
	return w.err
}

// Fail sets the writer error unless one is already set.
func (w *Writer) Fail(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Bytes returns the encoded data or the first error.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Raw writes given bytes as they are.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(b)
}

// Word8 writes a single byte.
func (w *Writer) Word8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf.WriteByte(v)
}

// Word16 writes a big endian 16 bit integer.
func (w *Writer) Word16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Raw(b[:])
}

// Word32 writes a big endian 32 bit integer.
func (w *Writer) Word32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Raw(b[:])
}

// Word64 writes a big endian 64 bit integer. The whole unsigned range is
// supported.
func (w *Writer) Word64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.Raw(b[:])
}

// Bool writes a single byte, 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Word8(1)
	} else {
		w.Word8(0)
	}
}

// Length8 writes a collection length that must fit in one byte.
func (w *Writer) Length8(n int) {
	if n > math.MaxUint8 {
		w.Fail(errors.Wrapf(errors.ErrCodec, "length %d does not fit in 8 bits", n))
		return
	}
	w.Word8(uint8(n))
}

// Length16 writes a collection length that must fit in two bytes.
func (w *Writer) Length16(n int) {
	if n > math.MaxUint16 {
		w.Fail(errors.Wrapf(errors.ErrCodec, "length %d does not fit in 16 bits", n))
		return
	}
	w.Word16(uint16(n))
}

// Length32 writes a collection length that must fit in four bytes.
func (w *Writer) Length32(n int) {
	if uint64(n) > math.MaxUint32 {
		w.Fail(errors.Wrapf(errors.ErrCodec, "length %d does not fit in 32 bits", n))
		return
	}
	w.Word32(uint32(n))
}

// Bytes16 writes a u16 length prefixed byte string.
func (w *Writer) Bytes16(b []byte) {
	w.Length16(len(b))
	w.Raw(b)
}

// Bytes32 writes a u32 length prefixed byte string.
func (w *Writer) Bytes32(b []byte) {
	w.Length32(len(b))
	w.Raw(b)
}

// Bytes64 writes a u64 length prefixed byte string.
func (w *Writer) Bytes64(b []byte) {
	w.Word64(uint64(len(b)))
	w.Raw(b)
}

// String32 writes a u32 length prefixed UTF-8 string.
func (w *Writer) String32(s string) {
	if !utf8.ValidString(s) {
		w.Fail(errors.Wrap(errors.ErrCodec, "string is not valid UTF-8"))
		return
	}
	w.Bytes32([]byte(s))
}

// String64 writes a u64 length prefixed UTF-8 string.
func (w *Writer) String64(s string) {
	if !utf8.ValidString(s) {
		w.Fail(errors.Wrap(errors.ErrCodec, "string is not valid UTF-8"))
		return
	}
	w.Bytes64([]byte(s))
}

// Hex decodes a hex string and writes the raw bytes. Length is the exact
// number of bytes expected, or negative to accept any length.
func (w *Writer) Hex(s string, length int) {
	if w.err != nil {
		return
	}
	b, err := cosign.ParseHex(s, length)
	if err != nil {
		w.Fail(err)
		return
	}
	w.Raw(b)
}

// YearMonth writes a YYYYMM string.
func (w *Writer) YearMonth(s string) {
	if w.err != nil {
		return
	}
	b, err := EncodeYearMonth(s)
	if err != nil {
		w.Fail(err)
		return
	}
	w.Raw(b)
}

// VerifyKey writes the scheme discriminant followed by the key material.
func (w *Writer) VerifyKey(k crypto.VerifyKey) {
	if w.err != nil {
		return
	}
	b, err := EncodeVerifyKey(k)
	if err != nil {
		w.Fail(err)
		return
	}
	w.Raw(b)
}
