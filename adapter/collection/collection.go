// Package collection contains the default [domain.Collection] implementation.
//
// A collection is kept whole under a single ledger key as the serialized list
// of its documents. Every operation reads the full list, and mutations write
// it back in a single call. Each handle runs one read-modify-write cycle at a
// time, so single calls are atomic within the process; sequences of calls,
// such as FindOne followed by UpdateOne, are not.
package collection

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/aggregator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/serializer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
	"github.com/vinicius-lino-figueiredo/ledgerdb/pkg/ctxsync"
)

// IDIndex is the index every collection reports.
var IDIndex = domain.IndexInfo{
	Name:   "_id_",
	Key:    domain.Sort{{Key: domain.IDField, Order: 1}},
	Unique: true,
}

// queryCompiler is implemented by matchers that parse a query once and
// evaluate it many times.
type queryCompiler interface {
	Compile(query any) (matcher.Query, error)
	MatchQuery(value any, query matcher.Query) (bool, error)
}

type predicate func(doc domain.Document) (bool, error)

// Collection implements [domain.Collection].
type Collection struct {
	name          string
	prefix        string
	ledger        domain.Ledger
	serializer    domain.Serializer
	deserializer  domain.Deserializer
	matcher       domain.Matcher
	modifier      domain.Modifier
	idGenerator   domain.IDGenerator
	cursorFactory domain.CursorFactory
	aggregator    domain.Aggregator
	resolver      domain.CollectionResolver
	indexes       []domain.IndexInfo
	logger        zerolog.Logger
	mu            *ctxsync.Mutex
}

// NewCollection returns a handle of the collection name stored in l.
func NewCollection(name string, l domain.Ledger, options ...Option) domain.Collection {
	comp := comparer.NewComparer()
	fn := fieldnavigator.NewFieldNavigator(data.NewDocument)
	mtchr := matcher.NewMatcher(
		matcher.WithComparer(comp),
		matcher.WithFieldNavigator(fn),
	)
	curFac := cursor.NewFactory(
		cursor.WithComparer(comp),
		cursor.WithFieldNavigator(fn),
	)

	c := &Collection{
		name:          name,
		prefix:        ledger.DefaultPrefix,
		ledger:        l,
		serializer:    serializer.NewSerializer(),
		deserializer:  deserializer.NewDeserializer(),
		matcher:       mtchr,
		modifier:      modifier.NewModifier(modifier.WithFieldNavigator(fn)),
		idGenerator:   idgenerator.NewIDGenerator(),
		cursorFactory: curFac,
		aggregator: aggregator.NewAggregator(
			aggregator.WithComparer(comp),
			aggregator.WithFieldNavigator(fn),
			aggregator.WithMatcher(mtchr),
			aggregator.WithCursorFactory(curFac),
		),
		indexes: []domain.IndexInfo{IDIndex},
		logger:  zerolog.Nop(),
		mu:      ctxsync.NewMutex(),
	}
	for _, option := range options {
		option(c)
	}
	if c.resolver == nil {
		c.resolver = c.readOther
	}
	c.logger = c.logger.With().Str("collection", name).Logger()
	return c
}

// Name implements [domain.Collection].
func (c *Collection) Name() string {
	return c.name
}

// Key returns the ledger key holding the collection.
func (c *Collection) Key() string {
	return ledger.Key(c.prefix, c.name)
}

// Find implements [domain.Collection].
func (c *Collection) Find(ctx context.Context, filter any) (domain.Cursor, error) {
	match, err := c.compile(filter)
	if err != nil {
		return nil, err
	}
	var matched []domain.Document
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		matched, err = c.filter(docs, match)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.cursorFactory(ctx, matched)
}

// FindOne implements [domain.Collection]. It returns nil if no document
// matches.
func (c *Collection) FindOne(ctx context.Context, filter any) (domain.Document, error) {
	match, err := c.compile(filter)
	if err != nil {
		return nil, err
	}
	var found domain.Document
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		n, err := c.first(docs, match)
		if err != nil || n < 0 {
			return err
		}
		found = docs[n]
		return nil
	})
	return found, err
}

// InsertOne implements [domain.Collection].
func (c *Collection) InsertOne(ctx context.Context, doc any) (domain.InsertOneResult, error) {
	prepared, err := c.prepare(doc)
	if err != nil {
		return domain.InsertOneResult{}, err
	}
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		return c.write(ctx, append(docs, prepared))
	})
	if err != nil {
		return domain.InsertOneResult{}, err
	}
	return domain.InsertOneResult{
		InsertedID: prepared[domain.IDField].(domain.ID).String(),
	}, nil
}

// InsertMany implements [domain.Collection]. Every document is prepared before
// anything is written, and the collection is written once.
func (c *Collection) InsertMany(ctx context.Context, docs []any) (domain.InsertManyResult, error) {
	prepared := make([]domain.Document, len(docs))
	ids := make([]string, len(docs))
	for n, doc := range docs {
		p, err := c.prepare(doc)
		if err != nil {
			return domain.InsertManyResult{}, err
		}
		prepared[n] = p
		ids[n] = p[domain.IDField].(domain.ID).String()
	}

	err := c.mu.Do(ctx, func() error {
		stored, err := c.read(ctx)
		if err != nil {
			return err
		}
		return c.write(ctx, append(stored, prepared...))
	})
	if err != nil {
		return domain.InsertManyResult{}, err
	}
	return domain.InsertManyResult{InsertedIDs: ids}, nil
}

// UpdateOne implements [domain.Collection]. Only the first matching document,
// in stored order, is updated.
func (c *Collection) UpdateOne(ctx context.Context, filter any, update any) (domain.UpdateResult, error) {
	return c.update(ctx, filter, update, false)
}

// UpdateMany implements [domain.Collection].
func (c *Collection) UpdateMany(ctx context.Context, filter any, update any) (domain.UpdateResult, error) {
	return c.update(ctx, filter, update, true)
}

func (c *Collection) update(ctx context.Context, filter any, update any, multi bool) (domain.UpdateResult, error) {
	match, err := c.compile(filter)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	mod, err := data.NewDocument(update)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	// invalid updates fail even when nothing matches
	if _, err := c.modifier.Modify(domain.Document{}, mod); err != nil {
		return domain.UpdateResult{}, err
	}

	var res domain.UpdateResult
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		for n, doc := range docs {
			ok, err := match(doc)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if docs[n], err = c.modifier.Modify(doc, mod); err != nil {
				return err
			}
			res.MatchedCount++
			if !multi {
				break
			}
		}
		if res.MatchedCount == 0 {
			return nil
		}
		return c.write(ctx, docs)
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	res.ModifiedCount = res.MatchedCount
	return res, nil
}

// DeleteOne implements [domain.Collection].
func (c *Collection) DeleteOne(ctx context.Context, filter any) (domain.DeleteResult, error) {
	return c.delete(ctx, filter, false)
}

// DeleteMany implements [domain.Collection].
func (c *Collection) DeleteMany(ctx context.Context, filter any) (domain.DeleteResult, error) {
	return c.delete(ctx, filter, true)
}

func (c *Collection) delete(ctx context.Context, filter any, multi bool) (domain.DeleteResult, error) {
	match, err := c.compile(filter)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	var res domain.DeleteResult
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		kept := make([]domain.Document, 0, len(docs))
		for _, doc := range docs {
			if !multi && res.DeletedCount > 0 {
				kept = append(kept, doc)
				continue
			}
			ok, err := match(doc)
			if err != nil {
				return err
			}
			if ok {
				res.DeletedCount++
				continue
			}
			kept = append(kept, doc)
		}
		if res.DeletedCount == 0 {
			return nil
		}
		return c.write(ctx, kept)
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return res, nil
}

// CountDocuments implements [domain.Collection].
func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	match, err := c.compile(filter)
	if err != nil {
		return 0, err
	}
	var count int64
	err = c.mu.Do(ctx, func() error {
		docs, err := c.read(ctx)
		if err != nil {
			return err
		}
		matched, err := c.filter(docs, match)
		count = int64(len(matched))
		return err
	})
	return count, err
}

// Aggregate implements [domain.Collection]. The pipeline runs over a snapshot
// taken at call time.
func (c *Collection) Aggregate(ctx context.Context, pipeline []domain.Document) ([]domain.Document, error) {
	var docs []domain.Document
	err := c.mu.Do(ctx, func() (err error) {
		docs, err = c.read(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.aggregator.Aggregate(ctx, docs, pipeline, c.resolver)
}

// ListIndexes implements [domain.Collection]. The list is descriptive only.
func (c *Collection) ListIndexes(ctx context.Context) ([]domain.IndexInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	res := make([]domain.IndexInfo, len(c.indexes))
	copy(res, c.indexes)
	return res, nil
}

// Drop implements [domain.Collection]. It removes the ledger key, so the
// collection is no longer listed until written again.
func (c *Collection) Drop(ctx context.Context) error {
	return c.mu.Do(ctx, func() error {
		if err := c.ledger.Delete(ctx, c.Key()); err != nil {
			return err
		}
		c.logger.Info().Msg("collection dropped")
		return nil
	})
}

// read loads the stored documents. A missing key is an empty collection and
// so is a value that cannot be decoded, which is logged.
func (c *Collection) read(ctx context.Context) ([]domain.Document, error) {
	return c.readKey(ctx, c.Key(), c.logger)
}

func (c *Collection) readOther(ctx context.Context, name string) ([]domain.Document, error) {
	logger := c.logger.With().Str("collection", name).Logger()
	return c.readKey(ctx, ledger.Key(c.prefix, name), logger)
}

func (c *Collection) readKey(ctx context.Context, key string, logger zerolog.Logger) ([]domain.Document, error) {
	b, ok, err := c.ledger.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.Document{}, nil
	}
	docs, err := c.deserializer.Deserialize(ctx, b)
	if err != nil {
		if errors.As(err, &deserializer.ErrCorrupt{}) {
			logger.Warn().
				Err(err).
				Str("key", key).
				Int("bytes", len(b)).
				Msg("corrupt collection value, reading as empty")
			return []domain.Document{}, nil
		}
		return nil, err
	}
	return docs, nil
}

func (c *Collection) write(ctx context.Context, docs []domain.Document) error {
	b, err := c.serializer.Serialize(ctx, docs)
	if err != nil {
		return err
	}
	if err := c.ledger.Set(ctx, c.Key(), b); err != nil {
		return err
	}
	c.logger.Debug().
		Int("documents", len(docs)).
		Int("bytes", len(b)).
		Msg("collection written")
	return nil
}

// compile parses filter once. Matchers that cannot compile queries are called
// with the raw filter for every document.
func (c *Collection) compile(filter any) (predicate, error) {
	cm, ok := c.matcher.(queryCompiler)
	if !ok {
		return func(doc domain.Document) (bool, error) {
			return c.matcher.Match(doc, filter)
		}, nil
	}
	qry, err := cm.Compile(filter)
	if err != nil {
		return nil, err
	}
	return func(doc domain.Document) (bool, error) {
		return cm.MatchQuery(doc, qry)
	}, nil
}

func (c *Collection) filter(docs []domain.Document, match predicate) ([]domain.Document, error) {
	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := match(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, doc)
		}
	}
	return res, nil
}

// first returns the position of the first document matching filter, or -1.
func (c *Collection) first(docs []domain.Document, match predicate) (int, error) {
	for n, doc := range docs {
		ok, err := match(doc)
		if err != nil {
			return -1, err
		}
		if ok {
			return n, nil
		}
	}
	return -1, nil
}

// prepare normalises doc and sets its identity, generating one if missing.
func (c *Collection) prepare(doc any) (domain.Document, error) {
	d, err := data.NewDocument(doc)
	if err != nil {
		return nil, err
	}
	d = data.Clone(d)

	if v, ok := d[domain.IDField]; ok && v != nil {
		id, ok := domain.AsID(v)
		if !ok {
			return nil, domain.ErrDocumentType{Reason: "_id must be a scalar value"}
		}
		d[domain.IDField] = id
		return d, nil
	}

	id, err := c.idGenerator.GenerateID()
	if err != nil {
		return nil, err
	}
	d[domain.IDField] = id
	return d, nil
}
