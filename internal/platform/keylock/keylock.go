// Package keylock hands out one mutex per key so that writers for different
// keys never share a lock.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker keeps an entry only while some caller holds or waits on its key.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()
	return e
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Lock blocks until the key is exclusively held and returns the release func.
// The entry is dropped once the last holder or waiter lets go. Calling unlock
// more than once is a no-op.
func (l *Locker) Lock(key string) (unlock func()) {
	e := l.acquire(key)
	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.release(key, e)
		})
	}
}

// Do runs fn while holding the key.
func (l *Locker) Do(key string, fn func() error) error {
	unlock := l.Lock(key)
	defer unlock()
	return fn()
}

// Len reports how many keys currently have an entry.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
