package multisig

import "sync"

// idLocks hands out one mutex per proposal id. Entries are dropped once no
// goroutine holds or waits for them.
type idLocks struct {
	mu    sync.Mutex
	locks map[uint64]*idLock
}

type idLock struct {
	sync.Mutex
	refs int
}

// lock blocks until the caller holds the lock of given id. The returned
// function releases it.
func (l *idLocks) lock(id uint64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uint64]*idLock)
	}
	e, ok := l.locks[id]
	if !ok {
		e = &idLock{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
