package store

import "github.com/iov-one/cosign"

// Move references for all storage types into this package
// for shorter names everywhere

type ReadOnlyKVStore = cosign.ReadOnlyKVStore
type SetDeleter = cosign.SetDeleter
type KVStore = cosign.KVStore
type Iterator = cosign.Iterator
type CacheableKVStore = cosign.CacheableKVStore
type KVCacheWrap = cosign.KVCacheWrap

// Batch collects writes that are applied to the underlying store on Write.
type Batch interface {
	SetDeleter
	Write() error
}

// DB is a store that must be closed when no longer used.
type DB interface {
	CacheableKVStore
	cosign.Closer
}
