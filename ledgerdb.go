// Package ledgerdb provides a MongoDB-like document store emulated over a
// key-value ledger.
//
// Every collection is kept as a JSON array under a single ledger key, and the
// usual query, update, cursor and aggregation operations are computed in
// process. A [Router] decides, once per process, whether collections are
// served locally or proxied to a REST backend.
//
// The basic usage starts with [Open], which builds a ledger and a router from
// a [config.Config], or with [NewLedger] and [NewRouter] for finer control.
package ledgerdb

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/collection"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/database"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/remote"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/router"
	"github.com/vinicius-lino-figueiredo/ledgerdb/config"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a nil decoding target is given.
	ErrTargetNil = domain.ErrTargetNil
	// ErrMixedOperators is returned when a query or update mixes operators
	// and plain fields in the same object.
	ErrMixedOperators = domain.ErrMixedOperators
	// ErrNotConnected is returned by [Router.Database] before a successful
	// [Router.ConnectToDatabase].
	ErrNotConnected = domain.ErrNotConnected
)

// ErrConnection is returned when a connection string is invalid or the REST
// backend cannot be reached.
type ErrConnection = domain.ErrConnection

// ErrNotImplemented is returned in remote mode by operations the backend does
// not serve.
type ErrNotImplemented = domain.ErrNotImplemented

// ErrRemote is returned when the REST backend rejects a request.
type ErrRemote = domain.ErrRemote

// ErrUnknownOperator is returned for unknown $ keys in queries.
type ErrUnknownOperator = domain.ErrUnknownOperator

// ErrUnsupportedModifier is returned for update operators other than $set.
type ErrUnsupportedModifier = domain.ErrUnsupportedModifier

// ErrUnknownStage is returned for aggregation stages that cannot run.
type ErrUnknownStage = domain.ErrUnknownStage

// ErrInvalidMode is returned for mode values other than [ModeLocal] and
// [ModeRemote].
type ErrInvalidMode = domain.ErrInvalidMode

// ErrDocumentType is returned when a value cannot be used as a [Document].
type ErrDocumentType = domain.ErrDocumentType

// Document represents a record stored in a collection.
type Document = domain.Document

// ID is the identity of a stored [Document], kept under the _id field.
type ID = domain.ID

// Sort represents an ordered list of fields used to sort results.
type Sort = domain.Sort

// SortName is a single field of a [Sort] and its direction, 1 or -1.
type SortName = domain.SortName

// Cursor is a one-shot view over the results of [Collection.Find].
type Cursor = domain.Cursor

// Collection is the per-collection API.
type Collection = domain.Collection

// Database is a set of named collections.
type Database = domain.Database

// Ledger is the key-value store holding every collection.
type Ledger = domain.Ledger

// Mode identifies the backend served by a [Router].
type Mode = domain.Mode

// Storage modes.
const (
	ModeLocal  = domain.ModeLocal
	ModeRemote = domain.ModeRemote
)

// Stats describes the size of a database.
type Stats = domain.Stats

// IndexInfo is descriptive index metadata.
type IndexInfo = domain.IndexInfo

// Router hands out database handles for the mode chosen at start.
type Router = router.Router

// RouterOption configures a [Router].
type RouterOption = router.Option

// Driver names a [Ledger] implementation.
type Driver = ledger.Driver

// Ledger drivers.
const (
	DriverMemory = ledger.DriverMemory
	DriverFile   = ledger.DriverFile
	DriverBadger = ledger.DriverBadger
	DriverSQLite = ledger.DriverSQLite
)

// NewLedger opens the ledger driver at path. The memory driver ignores path.
func NewLedger(ctx context.Context, driver Driver, path string) (Ledger, error) {
	return ledger.Open(ctx, driver, path)
}

// NewRouter returns a [Router] keeping its mode flag and local collections in
// l. See [router.New] for the mode resolution rules.
func NewRouter(ctx context.Context, l Ledger, options ...RouterOption) (*Router, error) {
	return router.New(ctx, l, options...)
}

// NewDatabase returns a local [Database] over l, without a router.
func NewDatabase(name string, l Ledger, options ...database.Option) Database {
	return database.NewDatabase(name, l, options...)
}

// WithIndexes declares static index metadata for the collection name. It is
// reported by [Collection.ListIndexes] and counted by [Database.Stats].
func WithIndexes(name string, indexes ...IndexInfo) database.Option {
	return database.WithIndexes(name, indexes...)
}

// IDIndex is the index every collection reports.
var IDIndex = collection.IDIndex

// Store is a [Router] that owns its [Ledger].
type Store struct {
	*Router
	ledger Ledger
}

// Open builds the ledger and router described by cfg. Extra options are
// applied after the ones derived from cfg.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger, options ...RouterOption) (*Store, error) {
	l, err := ledger.Open(ctx, Driver(cfg.Ledger.Driver), cfg.Ledger.Path, ledger.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	opts := []RouterOption{
		router.WithMode(Mode(cfg.Mode)),
		router.WithURI(cfg.URI),
		router.WithDatabaseName(cfg.Database),
		router.WithBackendURL(cfg.Backend.URL),
		router.WithLogger(logger),
		router.WithLocalOptions(database.WithPrefix(cfg.Prefix)),
		router.WithRemoteOptions(remote.WithTimeout(cfg.Backend.Timeout)),
	}
	r, err := router.New(ctx, l, append(opts, options...)...)
	if err != nil {
		return nil, errors.Join(err, l.Close())
	}
	return &Store{Router: r, ledger: l}, nil
}

// Ledger returns the ledger owned by the store.
func (s *Store) Ledger() Ledger {
	return s.ledger
}

// Close disconnects the router and closes the ledger.
func (s *Store) Close() error {
	return errors.Join(s.Router.Close(), s.ledger.Close())
}
