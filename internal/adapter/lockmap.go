package adapter

import (
	"sync"
)

// LinkLocks serializes read-modify-write sequences per external link. The
// label replace-by-prefix path reads the remote label set, computes the
// desired set and writes it back; that sequence is not atomic at either the
// store or the provider, so in-process callers take the link's lock.
type LinkLocks struct {
	mu    sync.Mutex
	locks map[string]*linkLock
}

type linkLock struct {
	mu   sync.Mutex
	refs int
}

func NewLinkLocks() *LinkLocks {
	return &LinkLocks{locks: make(map[string]*linkLock)}
}

// Lock acquires the mutex for key and returns the unlock function. Entries
// are refcounted and removed once the last holder releases, so the map stays
// bounded by the number of in-flight syncs.
func (l *LinkLocks) Lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &linkLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
