package copylock

import "sync"

// Keyed provides per-key mutual exclusion. Borrow, return and request
// operations for the same copy id must not interleave; operations on
// different copies proceed independently.
type Keyed struct {
	mu    sync.Mutex
	locks map[uint]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new keyed lock set
func New() *Keyed {
	return &Keyed{locks: make(map[uint]*entry)}
}

// Lock acquires the lock for key and returns its release function.
// Entries are reference counted so the map does not grow with the
// number of copies ever touched.
func (k *Keyed) Lock(key uint) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
