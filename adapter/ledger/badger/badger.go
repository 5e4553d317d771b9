// Package badger contains a [domain.Ledger] stored in a BadgerDB database.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Ledger implements [domain.Ledger] over BadgerDB.
type Ledger struct {
	db         *badger.DB
	logger     zerolog.Logger
	inMemory   bool
	syncWrites bool
}

// NewLedger opens (or creates) the badger database kept in path.
func NewLedger(path string, options ...Option) (*Ledger, error) {
	l := &Ledger{
		logger:     zerolog.Nop(),
		syncWrites: true,
	}
	for _, option := range options {
		option(l)
	}

	if l.inMemory {
		path = ""
	} else if path == "" {
		return nil, errors.New("badger ledger: empty path")
	}

	opts := badger.DefaultOptions(path).
		WithInMemory(l.inMemory).
		WithSyncWrites(l.syncWrites && !l.inMemory).
		WithLogger(logAdapter{logger: l.logger}).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	l.db = db

	l.logger.Info().
		Str("path", path).
		Bool("in_memory", l.inMemory).
		Msg("ledger opened")

	return l, nil
}

// Get implements [domain.Ledger].
func (l *Ledger) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Set implements [domain.Ledger].
func (l *Ledger) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), v)
	})
}

// Delete implements [domain.Ledger].
func (l *Ledger) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Keys implements [domain.Ledger]. Badger iterates keys in byte order, which
// is the lexical order of their strings.
func (l *Ledger) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close implements [domain.Ledger].
func (l *Ledger) Close() error {
	return l.db.Close()
}
