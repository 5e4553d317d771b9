// Package database contains the local [domain.Database] implementation, a set
// of collections kept in a single ledger.
package database

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/collection"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Database implements [domain.Database].
type Database struct {
	name     string
	ledger   domain.Ledger
	prefix   string
	logger   zerolog.Logger
	indexes  map[string][]domain.IndexInfo
	collOpts []collection.Option

	mu      sync.Mutex
	handles map[string]domain.Collection
}

// NewDatabase returns the database name stored in l.
func NewDatabase(name string, l domain.Ledger, options ...Option) *Database {
	d := &Database{
		name:    name,
		ledger:  l,
		prefix:  ledger.DefaultPrefix,
		logger:  zerolog.Nop(),
		indexes: make(map[string][]domain.IndexInfo),
		handles: make(map[string]domain.Collection),
	}
	for _, option := range options {
		option(d)
	}
	d.logger = d.logger.With().Str("database", name).Logger()
	return d
}

// Name implements [domain.Database].
func (d *Database) Name() string {
	return d.name
}

// Mode implements [domain.Database].
func (d *Database) Mode() domain.Mode {
	return domain.ModeLocal
}

// Collection implements [domain.Database]. The same handle is returned for
// every call with the same name, so calls on it are serialized.
func (d *Database) Collection(name string) domain.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.handles[name]; ok {
		return c
	}

	options := []collection.Option{
		collection.WithPrefix(d.prefix),
		collection.WithLogger(d.logger),
		collection.WithResolver(d.resolve),
		collection.WithIndexes(d.indexes[name]...),
	}
	c := collection.NewCollection(name, d.ledger, append(options, d.collOpts...)...)
	d.handles[name] = c
	return c
}

// ListCollections implements [domain.Database]. Only collections that were
// written at least once are listed.
func (d *Database) ListCollections(ctx context.Context) ([]string, error) {
	keys, err := d.ledger.Keys(ctx, d.prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if name, ok := ledger.Name(d.prefix, key); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Stats implements [domain.Database]. DataSize counts the stored values and
// StorageSize also counts their keys. Every collection reports its _id index
// plus the declared ones.
func (d *Database) Stats(ctx context.Context) (domain.Stats, error) {
	names, err := d.ListCollections(ctx)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := domain.Stats{Collections: len(names)}
	for _, name := range names {
		key := ledger.Key(d.prefix, name)
		value, ok, err := d.ledger.Get(ctx, key)
		if err != nil {
			return domain.Stats{}, err
		}
		if !ok {
			continue
		}
		stats.DataSize += int64(len(value))
		stats.StorageSize += int64(len(key) + len(value))
		stats.Indexes += 1 + len(d.indexes[name])
	}
	return stats, nil
}

// Ping implements [domain.Database].
func (d *Database) Ping(ctx context.Context) error {
	_, _, err := d.ledger.Get(ctx, ledger.ModeKey)
	return err
}

func (d *Database) resolve(ctx context.Context, name string) ([]domain.Document, error) {
	cur, err := d.Collection(name).Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.ToArray(ctx)
}
