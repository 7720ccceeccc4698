/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
* Each bucket contains only one type of object.
* It has a primary index and may possess secondary indexes.
* Easy queries for one and iteration.

Objects are protobuf messages, serialized with gogo/protobuf.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
)

var (
	isBucketName = regexp.MustCompile(`^[a-z_]{3,10}$`).MatchString
)

// Model is what is stored in a bucket.
type Model interface {
	proto.Message
	// Validate returns error if the object is not in a valid
	// state to save to the db (eg. field missing, out of range, ...)
	Validate() error
}

// Bucket is a prefixed subspace of the DB holding models of a single type.
//
// This is a generic building block that should generally
// be embedded in a type-safe wrapper to ensure all data
// is the same type.
type Bucket struct {
	name    string
	prefix  []byte
	proto   Model
	indexes []Index
}

// NewBucket creates a bucket to store data. All stored models must be of
// the same type as proto.
func NewBucket(name string, proto Model) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}

	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
		proto:  proto,
	}
}

// WithIndex returns a copy of this bucket that maintains an additional
// secondary index. Indexes must be declared before any data is written.
func (b Bucket) WithIndex(name string, indexer Indexer) Bucket {
	for _, idx := range b.indexes {
		if idx.name == name {
			panic(fmt.Sprintf("Index %s registered twice", name))
		}
	}
	indexes := append([]Index{}, b.indexes...)
	b.indexes = append(indexes, newIndex(b.name, name, indexer))
	return b
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b Bucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// One loads the model stored under given key into dest. It returns
// ErrNotFound if there is no such model.
func (b Bucket) One(db cosign.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %x", b.name, key)
	}
	if err := proto.Unmarshal(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "cannot unmarshal %s %x: %s", b.name, key, err)
	}
	return nil
}

// Has returns true if a model is stored under given key.
func (b Bucket) Has(db cosign.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(b.DBKey(key))
}

// Put validates and writes a model, updating all secondary indexes.
func (b Bucket) Put(db cosign.KVStore, key []byte, m Model) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrInput, "empty key")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrapf(err, "invalid %s", b.name)
	}
	bz, err := proto.Marshal(m)
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "cannot marshal %s: %s", b.name, err)
	}
	prev, err := b.load(db, key)
	if err != nil {
		return err
	}
	if err := b.updateIndexes(db, key, prev, m); err != nil {
		return err
	}
	return db.Set(b.DBKey(key), bz)
}

// Delete removes the model stored under given key together with its
// index entries. Deleting a missing key is a no-op.
func (b Bucket) Delete(db cosign.KVStore, key []byte) error {
	prev, err := b.load(db, key)
	if err != nil {
		return err
	}
	if prev == nil {
		return nil
	}
	if err := b.updateIndexes(db, key, prev, nil); err != nil {
		return err
	}
	return db.Delete(b.DBKey(key))
}

// load returns the stored model or nil if missing.
func (b Bucket) load(db cosign.ReadOnlyKVStore, key []byte) (Model, error) {
	if len(b.indexes) == 0 {
		// Nothing needs the previous value.
		return nil, nil
	}
	m := proto.Clone(b.proto).(Model)
	m.Reset()
	switch err := b.One(db, key, m); {
	case errors.ErrNotFound.Is(err):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return m, nil
}

func (b Bucket) updateIndexes(db cosign.KVStore, key []byte, prev, save Model) error {
	for _, idx := range b.indexes {
		if err := idx.update(db, key, prev, save); err != nil {
			return errors.Wrapf(err, "index %s", idx.name)
		}
	}
	return nil
}

// Keys returns the keys of all models in the bucket in ascending order.
func (b Bucket) Keys(db cosign.ReadOnlyKVStore) ([][]byte, error) {
	start, end := PrefixRange(b.prefix)
	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	entries, err := ConsumeIterator(it)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(entries))
	for i, e := range entries {
		keys[i] = e.Key[len(b.prefix):]
	}
	return keys, nil
}

// ByIndex returns the keys of all models that the named index maps to
// given value, in ascending order.
func (b Bucket) ByIndex(db cosign.ReadOnlyKVStore, name string, value []byte) ([][]byte, error) {
	for _, idx := range b.indexes {
		if idx.name == name {
			return idx.keys(db, value)
		}
	}
	return nil, errors.Wrapf(errors.ErrHuman, "no index %s in bucket %s", name, b.name)
}
