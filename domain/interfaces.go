// Package domain contains domain-specific interfaces, types and errors for
// ledgerdb.
//
// This package defines the core interfaces that must be implemented by
// adapters: the key-value ledger that stores collections, the components that
// evaluate queries and updates, cursors, and the collection and database
// handles exposed to callers.
package domain

import (
	"context"
	"time"
)

// Ledger is a persistent key-value store. Each collection is kept whole under
// a single key.
type Ledger interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Removing a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases the resources held by the ledger.
	Close() error
}

// Serializer converts a collection to bytes for storage.
type Serializer interface {
	// Serialize encodes the documents of a collection.
	Serialize(context.Context, []Document) ([]byte, error)
}

// Deserializer converts bytes back to a collection.
type Deserializer interface {
	// Deserialize decodes the documents of a collection.
	Deserialize(context.Context, []byte) ([]Document, error)
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode copies source into target, which must be a pointer.
	Decode(source any, target any) error
}

// Comparer provides ordering and comparison for different data types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be ordered against each
	// other by range operators.
	Comparable(any, any) bool
}

// FieldNavigator provides field access with dot notation support.
type FieldNavigator interface {
	// GetAddress splits a dotted field name into its path segments.
	GetAddress(field string) []string
	// GetField walks addr inside doc. The returned bool is false if any
	// segment is missing.
	GetField(doc any, addr ...string) (any, bool)
	// SetField sets value at addr, creating intermediate documents.
	SetField(doc Document, value any, addr ...string) error
}

// Matcher evaluates whether values match query criteria.
type Matcher interface {
	// Match returns true if the value matches the query.
	Match(value any, query any) (bool, error)
}

// Modifier applies update documents.
type Modifier interface {
	// Modify applies update to doc and returns the resulting document,
	// leaving doc untouched.
	Modify(doc Document, update Document) (Document, error)
}

// IDGenerator is used to create identities for inserted documents.
type IDGenerator interface {
	// GenerateID returns a new identity.
	GenerateID() (ID, error)
}

// TimeGetter provides current time.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// Cursor is a one-shot view over a snapshot of documents. Sort, Skip and Limit
// return new cursors and never change the store; results are always sorted
// before skip and limit are applied, whatever the call order.
type Cursor interface {
	// Sort returns a cursor ordered by s.
	Sort(s Sort) Cursor
	// Skip returns a cursor that drops the first n documents.
	Skip(n int64) Cursor
	// Limit returns a cursor that yields at most n documents, so zero
	// yields none. Negative values remove the limit.
	Limit(n int64) Cursor
	// ToArray materializes the cursor.
	ToArray(ctx context.Context) ([]Document, error)
	// All decodes every document into target, which must be a pointer to
	// a slice.
	All(ctx context.Context, target any) error
	// Next advances the cursor to the next document, returning true if
	// available.
	Next() bool
	// Scan decodes the current document into target.
	Scan(ctx context.Context, target any) error
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources.
	Close() error
}

// CursorFactory creates a [Cursor] over a snapshot of documents.
type CursorFactory = func(context.Context, []Document) (Cursor, error)

// CollectionResolver returns the current documents of a named collection. It
// is used by stages that read other collections, such as $lookup.
type CollectionResolver = func(ctx context.Context, name string) ([]Document, error)

// Aggregator runs aggregation pipelines.
type Aggregator interface {
	// Aggregate runs pipeline over docs.
	Aggregate(ctx context.Context, docs []Document, pipeline []Document, resolve CollectionResolver) ([]Document, error)
}

// Collection is the public per-collection API.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// Find returns a cursor over every document matching filter.
	Find(ctx context.Context, filter any) (Cursor, error)
	// FindOne returns the first matching document, or nil if none does.
	FindOne(ctx context.Context, filter any) (Document, error)
	// InsertOne stores a document, assigning an identity if it has none.
	InsertOne(ctx context.Context, doc any) (InsertOneResult, error)
	// InsertMany stores every document with a single write.
	InsertMany(ctx context.Context, docs []any) (InsertManyResult, error)
	// UpdateOne updates the first matching document.
	UpdateOne(ctx context.Context, filter any, update any) (UpdateResult, error)
	// UpdateMany updates every matching document.
	UpdateMany(ctx context.Context, filter any, update any) (UpdateResult, error)
	// DeleteOne removes the first matching document.
	DeleteOne(ctx context.Context, filter any) (DeleteResult, error)
	// DeleteMany removes every matching document.
	DeleteMany(ctx context.Context, filter any) (DeleteResult, error)
	// CountDocuments counts matching documents.
	CountDocuments(ctx context.Context, filter any) (int64, error)
	// Aggregate runs an aggregation pipeline over the collection.
	Aggregate(ctx context.Context, pipeline []Document) ([]Document, error)
	// ListIndexes returns the static index metadata of the collection.
	ListIndexes(ctx context.Context) ([]IndexInfo, error)
	// Drop removes every document of the collection.
	Drop(ctx context.Context) error
}

// Database is a set of named collections.
type Database interface {
	// Name returns the database name.
	Name() string
	// Mode reports which backend serves this database.
	Mode() Mode
	// Collection returns the handle of a collection. Collections are
	// created implicitly on first write.
	Collection(name string) Collection
	// ListCollections returns the names of stored collections.
	ListCollections(ctx context.Context) ([]string, error)
	// Stats returns the size of the database.
	Stats(ctx context.Context) (Stats, error)
	// Ping checks the backend is usable.
	Ping(ctx context.Context) error
}
