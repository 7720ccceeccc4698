package orm

import (
	"bytes"

	"github.com/iov-one/cosign"
	"github.com/iov-one/cosign/errors"
)

const idxPrefix = "_i."

// Indexer calculates the secondary index value for a given model. A nil
// value means the model is not indexed.
type Indexer func(Model) ([]byte, error)

// Index is a non unique secondary index. Each indexed model gets its own
// entry under
//    _i.<bucket>_<name>:<len(value)><value><key>
// so that looking up a value is a prefix iteration.
type Index struct {
	name    string
	prefix  []byte
	indexer Indexer
}

func newIndex(bucket, name string, indexer Indexer) Index {
	return Index{
		name:    name,
		prefix:  []byte(idxPrefix + bucket + "_" + name + ":"),
		indexer: indexer,
	}
}

func (i Index) valuePrefix(value []byte) ([]byte, error) {
	if len(value) > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "index value too long: %d", len(value))
	}
	out := make([]byte, 0, len(i.prefix)+1+len(value))
	out = append(out, i.prefix...)
	out = append(out, byte(len(value)))
	return append(out, value...), nil
}

func (i Index) entryKey(value, key []byte) ([]byte, error) {
	p, err := i.valuePrefix(value)
	if err != nil {
		return nil, err
	}
	return append(p, key...), nil
}

func (i Index) value(m Model) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return i.indexer(m)
}

// update moves the index entry of key from the value of prev to the value
// of save. Either may be nil.
func (i Index) update(db cosign.KVStore, key []byte, prev, save Model) error {
	before, err := i.value(prev)
	if err != nil {
		return err
	}
	after, err := i.value(save)
	if err != nil {
		return err
	}
	if prev != nil && save != nil && bytes.Equal(before, after) {
		return nil
	}
	if prev != nil && before != nil {
		k, err := i.entryKey(before, key)
		if err != nil {
			return err
		}
		if err := db.Delete(k); err != nil {
			return err
		}
	}
	if save != nil && after != nil {
		k, err := i.entryKey(after, key)
		if err != nil {
			return err
		}
		if err := db.Set(k, []byte{}); err != nil {
			return err
		}
	}
	return nil
}

func (i Index) keys(db cosign.ReadOnlyKVStore, value []byte) ([][]byte, error) {
	p, err := i.valuePrefix(value)
	if err != nil {
		return nil, err
	}
	start, end := PrefixRange(p)
	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	entries, err := ConsumeIterator(it)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(entries))
	for n, e := range entries {
		keys[n] = e.Key[len(p):]
	}
	return keys, nil
}
