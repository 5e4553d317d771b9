package collection

import (
	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
	"github.com/vinicius-lino-figueiredo/ledgerdb/pkg/ctxsync"
)

// WithPrefix sets the prefix added to the collection name to build its ledger
// key.
func WithPrefix(p string) Option {
	return func(c *Collection) {
		c.prefix = p
	}
}

// WithSerializer sets the serializer used to store the collection.
func WithSerializer(s domain.Serializer) Option {
	return func(c *Collection) {
		c.serializer = s
	}
}

// WithDeserializer sets the deserializer used to read the collection.
func WithDeserializer(d domain.Deserializer) Option {
	return func(c *Collection) {
		c.deserializer = d
	}
}

// WithMatcher sets the matcher used to evaluate filters.
func WithMatcher(m domain.Matcher) Option {
	return func(c *Collection) {
		c.matcher = m
	}
}

// WithModifier sets the modifier used to apply updates.
func WithModifier(m domain.Modifier) Option {
	return func(c *Collection) {
		c.modifier = m
	}
}

// WithIDGenerator sets the generator of identities for inserted documents
// that have none.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(c *Collection) {
		c.idGenerator = g
	}
}

// WithCursorFactory sets the factory of the cursors returned by Find.
func WithCursorFactory(f domain.CursorFactory) Option {
	return func(c *Collection) {
		c.cursorFactory = f
	}
}

// WithAggregator sets the aggregator used to run pipelines.
func WithAggregator(a domain.Aggregator) Option {
	return func(c *Collection) {
		c.aggregator = a
	}
}

// WithResolver sets how $lookup reads other collections. By default they are
// read straight from the ledger.
func WithResolver(r domain.CollectionResolver) Option {
	return func(c *Collection) {
		c.resolver = r
	}
}

// WithIndexes declares index metadata reported by ListIndexes, after the
// default _id index.
func WithIndexes(indexes ...domain.IndexInfo) Option {
	return func(c *Collection) {
		c.indexes = append(c.indexes, indexes...)
	}
}

// WithLogger sets the logger used to report recovered corruption and writes.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Collection) {
		c.logger = l
	}
}

// WithMutex sets the lock guarding read-modify-write cycles. Handles of the
// same collection must share it.
func WithMutex(mu *ctxsync.Mutex) Option {
	return func(c *Collection) {
		c.mu = mu
	}
}

// Option configures collection behavior through the functional options
// pattern.
type Option func(*Collection)
