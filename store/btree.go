package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/iov-one/cosign/errors"
)

// DefaultFreeListSize is the number of released btree nodes kept for reuse.
const DefaultFreeListSize = btree.DefaultFreeListSize

// BTreeCacheable gives a KVStore without its own transactions a cache wrap
// that buffers writes in a btree.
type BTreeCacheable struct {
	KVStore
}

var _ CacheableKVStore = BTreeCacheable{}

// CacheWrap implements CacheableKVStore.
func (b BTreeCacheable) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b.KVStore, NewNonAtomicBatch(b.KVStore), nil)
}

// MemStore returns a store that keeps all data in memory. There is no
// persistence here. Cache wraps created from it write into it.
func MemStore() BTreeCacheWrap {
	e := EmptyKVStore{}
	return NewBTreeCacheWrap(e, NewNonAtomicBatch(e), nil)
}

// BTreeCacheWrap buffers writes on top of a read only store. Reads see the
// buffered writes first. Write flushes the batch, Discard drops everything.
// It is safe for concurrent use.
type BTreeCacheWrap struct {
	mu    *sync.RWMutex
	bt    *btree.BTree
	free  *btree.FreeList
	back  ReadOnlyKVStore
	batch Batch
}

var _ KVCacheWrap = BTreeCacheWrap{}

// NewBTreeCacheWrap returns a cache over kv. All writes are recorded in
// batch, kv is only read. A nil free list allocates a new one; cache wraps
// layered on each other share theirs.
func NewBTreeCacheWrap(kv ReadOnlyKVStore, batch Batch, free *btree.FreeList) BTreeCacheWrap {
	if free == nil {
		free = btree.NewFreeList(DefaultFreeListSize)
	}
	return BTreeCacheWrap{
		mu:    &sync.RWMutex{},
		bt:    btree.NewWithFreeList(2, free),
		free:  free,
		back:  kv,
		batch: batch,
	}
}

// CacheWrap returns a cache whose Write lands in this one.
func (b BTreeCacheWrap) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(b, NewNonAtomicBatch(b), b.free)
}

// Write flushes the batch into the backing store and empties the cache.
func (b BTreeCacheWrap) Write() error {
	err := b.batch.Write()
	b.Discard()
	return err
}

// Discard drops the buffered entries. The batch is left alone, a discarded
// cache wrap must not be written.
func (b BTreeCacheWrap) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.bt.DeleteMin() != nil {
	}
}

// Set implements SetDeleter. Empty keys are rejected.
func (b BTreeCacheWrap) Set(key, value []byte) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrInput, "empty key")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bt.ReplaceOrInsert(setItem{itemKey{key}, value})
	return b.batch.Set(key, value)
}

// Delete implements SetDeleter. The deletion shadows the backing store
// entry until written.
func (b BTreeCacheWrap) Delete(key []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bt.ReplaceOrInsert(deletedItem{itemKey{key}})
	return b.batch.Delete(key)
}

// lookup returns the cached entry for key. found is false when the cache
// has no opinion and the backing store must be asked.
func (b BTreeCacheWrap) lookup(key []byte) (value []byte, exists, found bool, err error) {
	b.mu.RLock()
	item := b.bt.Get(itemKey{key})
	b.mu.RUnlock()

	switch it := item.(type) {
	case nil:
		return nil, false, false, nil
	case setItem:
		return it.value, true, true, nil
	case deletedItem:
		return nil, false, true, nil
	default:
		return nil, false, true, errors.Wrapf(errors.ErrDatabase, "cache holds %T", item)
	}
}

// Get implements ReadOnlyKVStore.
func (b BTreeCacheWrap) Get(key []byte) ([]byte, error) {
	value, _, found, err := b.lookup(key)
	if found || err != nil {
		return value, err
	}
	return b.back.Get(key)
}

// Has implements ReadOnlyKVStore.
func (b BTreeCacheWrap) Has(key []byte) (bool, error) {
	_, exists, found, err := b.lookup(key)
	if found || err != nil {
		return exists, err
	}
	return b.back.Has(key)
}

// Iterator walks [start, end) in ascending key order, merging the cached
// entries with the backing store.
func (b BTreeCacheWrap) Iterator(start, end []byte) (Iterator, error) {
	b.mu.RLock()
	items := ascendBtree(b.bt, start, end)
	b.mu.RUnlock()

	parentIter, err := b.back.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	return &itemIter{items: items, parent: parentIter}, nil
}

// keyer is implemented by every item stored in the btree.
type keyer interface {
	Key() []byte
}

// itemKey orders btree items by key. A bare itemKey is used for lookups.
type itemKey struct {
	key []byte
}

var (
	_ keyer      = itemKey{}
	_ btree.Item = itemKey{}
)

func (k itemKey) Key() []byte {
	return k.key
}

func (k itemKey) Less(item btree.Item) bool {
	return bytes.Compare(k.key, item.(keyer).Key()) < 0
}

// deletedItem marks a key removed in the cache.
type deletedItem struct {
	itemKey
}

// setItem is a value written in the cache.
type setItem struct {
	itemKey
	value []byte
}
