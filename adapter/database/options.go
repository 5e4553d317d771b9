package database

import (
	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/collection"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// WithPrefix sets the prefix of every collection key.
func WithPrefix(p string) Option {
	return func(d *Database) {
		d.prefix = p
	}
}

// WithLogger sets the logger handed to every collection.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithIndexes declares index metadata for the collection name.
func WithIndexes(name string, indexes ...domain.IndexInfo) Option {
	return func(d *Database) {
		d.indexes[name] = append(d.indexes[name], indexes...)
	}
}

// WithCollectionOptions adds options applied to every collection handle,
// after the ones set by the database.
func WithCollectionOptions(options ...collection.Option) Option {
	return func(d *Database) {
		d.collOpts = append(d.collOpts, options...)
	}
}

// Option configures database behavior through the functional options pattern.
type Option func(*Database)
