package orm

import (
	"bytes"
	"testing"

	"github.com/iov-one/cosign/cosigntest/assert"
	"github.com/iov-one/cosign/errors"
	"github.com/iov-one/cosign/store"
)

func TestSequence(t *testing.T) {
	db := store.MemStore()

	cases := map[string]struct {
		bucket     string
		name       string
		init       uint64
		increments uint64
	}{
		"fresh sequence": {"proposal", "id", 0, 22},
		"another name":   {"proposal", "other", 0, 11},
		"continue first": {"proposal", "id", 22, 18},
		"another bucket": {"signature", "id", 0, 77},
		"continue other": {"proposal", "other", 11, 248},
	}

	// Cases share the store so they must run in declaration order.
	order := []string{"fresh sequence", "another name", "continue first", "another bucket", "continue other"}
	for _, testName := range order {
		tc := cases[testName]
		t.Run(testName, func(t *testing.T) {
			s := NewSequence(tc.bucket, tc.name)
			init, orig, err := s.Latest(db)
			assert.Nil(t, err)
			assert.Equal(t, tc.init, init)

			var val uint64
			for i := uint64(0); i < tc.increments; i++ {
				val, err = s.NextInt(db)
				assert.Nil(t, err)
			}
			assert.Equal(t, tc.init+tc.increments, val)

			// make sure final value is bigger than original value
			// if we use the raw bytes to index stuff
			_, last, err := s.Latest(db)
			assert.Nil(t, err)
			assert.Equal(t, 1, bytes.Compare(last, orig))
		})
	}
}

func TestSequenceNextVal(t *testing.T) {
	db := store.MemStore()
	s := NewSequence("proposal", "id")

	first, err := s.NextVal(db)
	assert.Nil(t, err)
	assert.EqualBytes(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, first)
	second, err := s.NextVal(db)
	assert.Nil(t, err)
	assert.EqualBytes(t, []byte{0, 0, 0, 0, 0, 0, 0, 2}, second)
}

func TestDecodeSequence(t *testing.T) {
	cases := map[string]struct {
		raw     []byte
		want    uint64
		wantErr *errors.Error
	}{
		"nil is zero": {raw: nil, want: 0},
		"one":         {raw: EncodeSequence(1), want: 1},
		"large":       {raw: EncodeSequence(1 << 40), want: 1 << 40},
		"too short":   {raw: []byte{1, 2, 3}, wantErr: errors.ErrInput},
		"empty":       {raw: []byte{}, wantErr: errors.ErrInput},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := DecodeSequence(tc.raw)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSequenceCorrupted(t *testing.T) {
	db := store.MemStore()
	s := NewSequence("proposal", "id")
	assert.Nil(t, db.Set([]byte("_s.proposal:id"), []byte{1}))
	_, err := s.NextInt(db)
	assert.IsErr(t, errors.ErrInput, err)
}
