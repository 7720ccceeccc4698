package store

import (
	"github.com/iov-one/cosign/errors"
)

// Supported storage backends.
const (
	BackendMemory  = "memory"
	BackendBolt    = "bolt"
	BackendLevelDB = "leveldb"
)

// Open returns a store of given backend. Path is a file for bolt and a
// directory for leveldb. It is ignored for the memory backend.
func Open(backend, path string) (DB, error) {
	switch backend {
	case BackendMemory:
		return memDB{MemStore()}, nil
	case BackendBolt:
		return OpenBolt(path)
	case BackendLevelDB:
		return OpenLevelDB(path)
	}
	return nil, errors.Wrapf(errors.ErrInput, "unknown store backend %q", backend)
}

type memDB struct {
	BTreeCacheWrap
}

func (memDB) Close() error { return nil }
