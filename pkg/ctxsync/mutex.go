// Package ctxsync contains a mutual exclusion lock whose Lock can be abandoned
// when a context is done.
package ctxsync

import (
	"context"
)

// A Mutex is a mutual exclusion lock. The zero value is not usable, create
// one with [NewMutex].
type Mutex struct {
	held chan struct{}
}

// NewMutex creates a new unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{held: make(chan struct{}, 1)}
}

// Lock locks m, waiting as long as needed.
func (m *Mutex) Lock() {
	m.held <- struct{}{}
}

// LockWithContext locks m, or returns the context error if ctx is done
// first. A done context is reported even if m is free.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.held <- struct{}{}:
		return nil
	}
}

// TryLock tries to lock m and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	select {
	case m.held <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock unlocks m. It panics if m is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.held:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}

// Do runs fn while holding m. The lock is released when fn returns, even if
// it panics.
func (m *Mutex) Do(ctx context.Context, fn func() error) error {
	if err := m.LockWithContext(ctx); err != nil {
		return err
	}
	defer m.Unlock()
	return fn()
}
