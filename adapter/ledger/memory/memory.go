// Package memory contains an in-process [domain.Ledger]. Its content is lost
// when the process exits.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Ledger implements [domain.Ledger] over a map.
type Ledger struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{data: make(map[string][]byte)}
}

// Get implements [domain.Ledger].
func (l *Ledger) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set implements [domain.Ledger].
func (l *Ledger) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	l.data[key] = v
	return nil
}

// Delete implements [domain.Ledger].
func (l *Ledger) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, key)
	return nil
}

// Keys implements [domain.Ledger].
func (l *Ledger) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.data))
	for k := range l.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Close implements [domain.Ledger].
func (l *Ledger) Close() error {
	return nil
}
