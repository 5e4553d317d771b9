// Package ledger opens the [domain.Ledger] drivers and holds the key layout
// shared by everything stored in a ledger.
//
// Each collection lives under a single key, made of a prefix and the
// collection name, and its value is the JSON array of its documents. The
// storage mode flag of the router lives under [ModeKey].
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/badger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/file"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/memory"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/sqlite"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

const (
	// DefaultPrefix is prepended to collection names to build their keys.
	DefaultPrefix = "mockdb_"
	// ModeKey holds the persisted storage mode.
	ModeKey = "storage_mode"
)

// Driver names a ledger implementation.
type Driver string

// Available drivers.
const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverBadger Driver = "badger"
	DriverSQLite Driver = "sqlite"
)

// ErrUnknownDriver is returned by [Open] for unsupported driver names.
type ErrUnknownDriver struct {
	Driver string
}

// Error implements [error].
func (e ErrUnknownDriver) Error() string {
	return fmt.Sprintf("unknown ledger driver %q", e.Driver)
}

// Key returns the ledger key of collection name.
func Key(prefix, name string) string {
	return prefix + name
}

// Name returns the collection name stored under key, and false if key does
// not belong to prefix.
func Name(prefix, key string) (string, bool) {
	name, ok := strings.CutPrefix(key, prefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Option configures [Open].
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger given to drivers that report their own events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Open returns a ledger of the given driver. Path is a directory for file and
// badger and a database file for sqlite. Memory ignores it.
func Open(ctx context.Context, driver Driver, path string, opts ...Option) (domain.Ledger, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		l   domain.Ledger
		err error
	)
	switch driver {
	case DriverMemory, "":
		l = memory.NewLedger()
	case DriverFile:
		l, err = file.NewLedger(path)
	case DriverBadger:
		l, err = badger.NewLedger(path, badger.WithLogger(o.logger))
	case DriverSQLite:
		l, err = sqlite.NewLedger(ctx, path)
	default:
		return nil, ErrUnknownDriver{Driver: string(driver)}
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}
