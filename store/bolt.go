package store

import (
	"bytes"
	"os"
	"time"

	"github.com/iov-one/cosign/errors"
	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("cosign")

// BoltStore keeps all data in a single bbolt bucket.
type BoltStore struct {
	db *bolt.DB
}

var _ DB = (*BoltStore)(nil)

// OpenBolt opens or creates a bbolt database file. Only one process can
// have the file open at a time.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, os.FileMode(0600), &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %s: %s", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrDatabase, "create bucket: %s", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get(key); v != nil {
			// Values are only valid for the life of the transaction.
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return value, nil
}

func (s *BoltStore) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

func (s *BoltStore) Set(key, value []byte) error {
	return s.update(SetOp(key, value))
}

func (s *BoltStore) Delete(key []byte) error {
	return s.update(DelOp(key))
}

func (s *BoltStore) update(ops ...Op) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, op := range ops {
			var err error
			switch op.kind {
			case setKind:
				err = b.Put(op.key, op.value)
			case delKind:
				err = b.Delete(op.key)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Iterator reads the whole range upfront. A bbolt read transaction must
// not stay open while the same goroutine writes.
func (s *BoltStore) Iterator(start, end []byte) (Iterator, error) {
	var models []Model
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		var k, v []byte
		if start == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(start)
		}
		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) >= 0 {
				break
			}
			models = append(models, Pair(append([]byte{}, k...), append([]byte{}, v...)))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return newSliceIterator(models), nil
}

// CacheWrap returns a cache whose Write applies all changes in a single
// bbolt transaction.
func (s *BoltStore) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(s, &boltBatch{store: s}, nil)
}

type boltBatch struct {
	store *BoltStore
	ops   []Op
}

func (b *boltBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, SetOp(key, value))
	return nil
}

func (b *boltBatch) Delete(key []byte) error {
	b.ops = append(b.ops, DelOp(key))
	return nil
}

func (b *boltBatch) Write() error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.update(b.ops...)
	b.ops = nil
	return err
}
