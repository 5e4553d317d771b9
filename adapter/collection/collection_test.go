package collection

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/memory"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type M = domain.Document

type A = []any

type ledgerMock struct{ mock.Mock }

// Get implements [domain.Ledger].
func (l *ledgerMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	call := l.Called(ctx, key)
	b, _ := call.Get(0).([]byte)
	return b, call.Bool(1), call.Error(2)
}

// Set implements [domain.Ledger].
func (l *ledgerMock) Set(ctx context.Context, key string, value []byte) error {
	return l.Called(ctx, key, value).Error(0)
}

// Delete implements [domain.Ledger].
func (l *ledgerMock) Delete(ctx context.Context, key string) error {
	return l.Called(ctx, key).Error(0)
}

// Keys implements [domain.Ledger].
func (l *ledgerMock) Keys(ctx context.Context, prefix string) ([]string, error) {
	call := l.Called(ctx, prefix)
	keys, _ := call.Get(0).([]string)
	return keys, call.Error(1)
}

// Close implements [domain.Ledger].
func (l *ledgerMock) Close() error {
	return l.Called().Error(0)
}

// countingLedger counts writes to the wrapped ledger.
type countingLedger struct {
	*memory.Ledger
	mu   sync.Mutex
	sets int
}

func (c *countingLedger) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Ledger.Set(ctx, key, value)
}

// countingMatcher counts the queries parsed by the wrapped matcher.
type countingMatcher struct {
	*matcher.Matcher
	compiles int
}

func (c *countingMatcher) Compile(query any) (matcher.Query, error) {
	c.compiles++
	return c.Matcher.Compile(query)
}

// plainMatcher only exposes Match.
type plainMatcher struct{ mock.Mock }

// Match implements [domain.Matcher].
func (p *plainMatcher) Match(value any, query any) (bool, error) {
	call := p.Called(value, query)
	return call.Bool(0), call.Error(1)
}

type product struct {
	ID  string `ledger:"_id,omitzero"`
	SKU string `ledger:"sku"`
	Qty int    `ledger:"qty"`
}

type CollectionTestSuite struct {
	suite.Suite
	ledger *memory.Ledger
	coll   *Collection
	ctx    context.Context
}

func (s *CollectionTestSuite) SetupTest() {
	s.ledger = memory.NewLedger()
	s.coll = NewCollection("products", s.ledger).(*Collection)
	s.ctx = context.Background()
}

func (s *CollectionTestSuite) insert(docs ...any) []string {
	s.T().Helper()
	res, err := s.coll.InsertMany(s.ctx, docs)
	s.Require().NoError(err)
	return res.InsertedIDs
}

func (s *CollectionTestSuite) all(filter any) []M {
	s.T().Helper()
	cur, err := s.coll.Find(s.ctx, filter)
	s.Require().NoError(err)
	docs, err := cur.ToArray(s.ctx)
	s.Require().NoError(err)
	return docs
}

func (s *CollectionTestSuite) TestName() {
	s.Equal("products", s.coll.Name())
	s.Equal("mockdb_products", s.coll.Key())

	c := NewCollection("orders", s.ledger, WithPrefix("browserStorage_")).(*Collection)
	s.Equal("browserStorage_orders", c.Key())
}

func (s *CollectionTestSuite) TestRoundTrip() {
	res, err := s.coll.InsertOne(s.ctx, M{"sku": "A1", "qty": 5, "tags": A{"x"}, "loc": M{"bin": "A-01"}})
	s.Require().NoError(err)
	s.NotEmpty(res.InsertedID)

	doc, err := s.coll.FindOne(s.ctx, M{"_id": res.InsertedID})
	s.NoError(err)
	s.Equal(M{
		"_id":  domain.ID(res.InsertedID),
		"sku":  "A1",
		"qty":  5,
		"tags": A{"x"},
		"loc":  M{"bin": "A-01"},
	}, doc)
}

func (s *CollectionTestSuite) TestStoredFormat() {
	_, err := s.coll.InsertOne(s.ctx, M{"_id": "p1", "sku": "A1"})
	s.Require().NoError(err)

	b, ok, err := s.ledger.Get(s.ctx, "mockdb_products")
	s.NoError(err)
	s.True(ok)
	s.JSONEq(`[{"_id":"p1","sku":"A1"}]`, string(b))
}

func (s *CollectionTestSuite) TestFindMissingCollection() {
	s.Empty(s.all(nil))

	doc, err := s.coll.FindOne(s.ctx, M{"sku": "A1"})
	s.NoError(err)
	s.Nil(doc)
}

func (s *CollectionTestSuite) TestFindByQuantity() {
	s.insert(M{"sku": "A1", "qty": 5}, M{"sku": "B2", "qty": 12})

	docs := s.all(M{"qty": M{"$gt": 10}})
	s.Require().Len(docs, 1)
	s.Equal("B2", docs[0]["sku"])
	s.Equal(12, docs[0]["qty"])
}

func (s *CollectionTestSuite) TestFindSortLimit() {
	s.insert(
		M{"a": 2, "b": 1},
		M{"a": 1, "b": 1},
		M{"a": 2, "b": 3},
		M{"a": 1, "b": 2},
	)
	cur, err := s.coll.Find(s.ctx, nil)
	s.Require().NoError(err)

	docs, err := cur.Limit(3).Sort(domain.Sort{{Key: "a", Order: 1}, {Key: "b", Order: -1}}).ToArray(s.ctx)
	s.NoError(err)
	s.Require().Len(docs, 3)
	for n, want := range []M{{"a": 1, "b": 2}, {"a": 1, "b": 1}, {"a": 2, "b": 3}} {
		s.Equal(want["a"], docs[n]["a"])
		s.Equal(want["b"], docs[n]["b"])
	}
}

func (s *CollectionTestSuite) TestFindDoesNotMutate() {
	s.insert(M{"_id": "1", "sku": "A1"})

	docs := s.all(nil)
	docs[0]["sku"] = "changed"

	doc, err := s.coll.FindOne(s.ctx, M{"_id": "1"})
	s.NoError(err)
	s.Equal("A1", doc["sku"])
}

func (s *CollectionTestSuite) TestFindDecodesStructs() {
	_, err := s.coll.InsertOne(s.ctx, product{ID: "p1", SKU: "A1", Qty: 5})
	s.Require().NoError(err)
	_, err = s.coll.InsertOne(s.ctx, &product{SKU: "B2", Qty: 12})
	s.Require().NoError(err)

	cur, err := s.coll.Find(s.ctx, product{SKU: "A1", Qty: 5})
	s.Require().NoError(err)

	var res []product
	s.NoError(cur.All(s.ctx, &res))
	s.Equal([]product{{ID: "p1", SKU: "A1", Qty: 5}}, res)
}

func (s *CollectionTestSuite) TestInsertCallerID() {
	res, err := s.coll.InsertOne(s.ctx, M{"_id": 42, "sku": "A1"})
	s.NoError(err)
	s.Equal("42", res.InsertedID)

	doc, err := s.coll.FindOne(s.ctx, M{"_id": "42"})
	s.NoError(err)
	s.Equal(domain.ID("42"), doc["_id"])

	_, err = s.coll.InsertOne(s.ctx, M{"_id": M{"nested": true}})
	s.ErrorAs(err, &domain.ErrDocumentType{})
}

func (s *CollectionTestSuite) TestInsertDoesNotModifyInput() {
	in := M{"sku": "A1"}
	_, err := s.coll.InsertOne(s.ctx, in)
	s.NoError(err)
	s.Equal(M{"sku": "A1"}, in)
}

func (s *CollectionTestSuite) TestInsertManyDistinctIDs() {
	docs := make([]any, 100)
	for n := range docs {
		docs[n] = M{"n": n}
	}
	ids := s.insert(docs...)
	s.Len(ids, 100)

	seen := map[string]bool{}
	for _, id := range ids {
		s.False(seen[id], id)
		seen[id] = true
	}
}

func (s *CollectionTestSuite) TestInsertManySingleWrite() {
	l := &countingLedger{Ledger: memory.NewLedger()}
	c := NewCollection("products", l)

	res, err := c.InsertMany(s.ctx, []any{M{"a": 1}, M{"a": 2}, M{"a": 3}})
	s.NoError(err)
	s.Len(res.InsertedIDs, 3)
	s.Equal(1, l.sets)
}

func (s *CollectionTestSuite) TestInsertManyInvalidWritesNothing() {
	_, err := s.coll.InsertMany(s.ctx, []any{M{"a": 1}, 5})
	s.ErrorAs(err, &domain.ErrDocumentType{})

	_, ok, err := s.ledger.Get(s.ctx, s.coll.Key())
	s.NoError(err)
	s.False(ok)
}

func (s *CollectionTestSuite) TestUpdateSet() {
	res, err := s.coll.InsertOne(s.ctx, M{"name": "x", "qty": 1})
	s.Require().NoError(err)
	s.insert(M{"name": "other", "qty": 1})

	upd, err := s.coll.UpdateOne(s.ctx, M{"name": "x"}, M{"$set": M{"name": "y", "_id": "hijack"}})
	s.NoError(err)
	s.Equal(domain.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, upd)

	doc, err := s.coll.FindOne(s.ctx, M{"name": "y"})
	s.NoError(err)
	s.Equal(M{"_id": domain.ID(res.InsertedID), "name": "y", "qty": 1}, doc)

	doc, err = s.coll.FindOne(s.ctx, M{"name": "x"})
	s.NoError(err)
	s.Nil(doc)

	s.Len(s.all(M{"name": "other", "qty": 1}), 1)
}

func (s *CollectionTestSuite) TestUpdateOneFirstMatchOnly() {
	s.insert(M{"_id": "1", "g": 1}, M{"_id": "2", "g": 1})

	upd, err := s.coll.UpdateOne(s.ctx, M{"g": 1}, M{"done": true})
	s.NoError(err)
	s.Equal(int64(1), upd.MatchedCount)

	s.Equal([]M{
		{"_id": domain.ID("1"), "g": 1, "done": true},
		{"_id": domain.ID("2"), "g": 1},
	}, s.all(nil))
}

func (s *CollectionTestSuite) TestUpdateMany() {
	s.insert(M{"g": 1}, M{"g": 1}, M{"g": 2})

	upd, err := s.coll.UpdateMany(s.ctx, M{"g": 1}, M{"$set": M{"loc.bin": "B"}})
	s.NoError(err)
	s.Equal(domain.UpdateResult{MatchedCount: 2, ModifiedCount: 2}, upd)
	s.Len(s.all(M{"loc.bin": "B"}), 2)
}

func (s *CollectionTestSuite) TestUpdateNoMatch() {
	l := &countingLedger{Ledger: memory.NewLedger()}
	c := NewCollection("products", l)
	_, err := c.InsertOne(s.ctx, M{"a": 1})
	s.Require().NoError(err)

	upd, err := c.UpdateOne(s.ctx, M{"a": 2}, M{"$set": M{"a": 3}})
	s.NoError(err)
	s.Zero(upd)
	s.Equal(1, l.sets)
}

func (s *CollectionTestSuite) TestInvalidFilterOnEmptyCollection() {
	bad := M{"qty": M{"$where": 1}}

	_, err := s.coll.Find(s.ctx, bad)
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	_, err = s.coll.FindOne(s.ctx, bad)
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	_, err = s.coll.CountDocuments(s.ctx, bad)
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	_, err = s.coll.UpdateMany(s.ctx, bad, M{"$set": M{"a": 1}})
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	_, err = s.coll.DeleteMany(s.ctx, bad)
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	keys, err := s.ledger.Keys(s.ctx, "")
	s.NoError(err)
	s.Empty(keys)
}

func (s *CollectionTestSuite) TestFilterCompiledOncePerCall() {
	m := &countingMatcher{Matcher: matcher.NewMatcher().(*matcher.Matcher)}
	c := NewCollection("products", memory.NewLedger(), WithMatcher(m))
	_, err := c.InsertMany(s.ctx, A{M{"a": 1}, M{"a": 2}, M{"a": 3}})
	s.Require().NoError(err)

	n, err := c.CountDocuments(s.ctx, M{"a": M{"$gte": 2}})
	s.NoError(err)
	s.Equal(int64(2), n)
	s.Equal(1, m.compiles)

	res, err := c.DeleteMany(s.ctx, M{"a": M{"$lt": 3}})
	s.NoError(err)
	s.Equal(int64(2), res.DeletedCount)
	s.Equal(2, m.compiles)
}

func (s *CollectionTestSuite) TestMatcherWithoutCompile() {
	m := new(plainMatcher)
	m.On("Match", M{"_id": domain.ID("1"), "a": 1}, M{"a": 1}).Return(true, nil).Once()
	c := NewCollection("products", memory.NewLedger(), WithMatcher(m))
	_, err := c.InsertOne(s.ctx, M{"_id": "1", "a": 1})
	s.Require().NoError(err)

	doc, err := c.FindOne(s.ctx, M{"a": 1})
	s.NoError(err)
	s.Equal(M{"_id": domain.ID("1"), "a": 1}, doc)
	m.AssertExpectations(s.T())
}

func (s *CollectionTestSuite) TestUpdateErrors() {
	s.insert(M{"a": 1})

	_, err := s.coll.UpdateOne(s.ctx, M{"a": 1}, M{"$inc": M{"a": 1}})
	s.ErrorAs(err, &domain.ErrUnsupportedModifier{})

	_, err = s.coll.UpdateOne(s.ctx, M{"a": 1}, M{"$set": M{"a": 2}, "b": 1})
	s.ErrorIs(err, domain.ErrMixedOperators)

	_, err = s.coll.UpdateOne(s.ctx, M{"a": 1}, 7)
	s.ErrorAs(err, &domain.ErrDocumentType{})

	s.Len(s.all(M{"a": 1}), 1)
}

func (s *CollectionTestSuite) TestUpdateErrorsWithoutMatches() {
	_, err := s.coll.UpdateMany(s.ctx, M{"missing": true}, M{"$inc": M{"a": 1}})
	s.ErrorAs(err, &domain.ErrUnsupportedModifier{})
}

func (s *CollectionTestSuite) TestDeleteOne() {
	s.insert(M{"_id": "1", "g": 1}, M{"_id": "2", "g": 1})

	res, err := s.coll.DeleteOne(s.ctx, M{"g": 1})
	s.NoError(err)
	s.Equal(int64(1), res.DeletedCount)
	s.Equal([]M{{"_id": domain.ID("2"), "g": 1}}, s.all(nil))

	res, err = s.coll.DeleteOne(s.ctx, M{"g": 3})
	s.NoError(err)
	s.Zero(res.DeletedCount)
}

func (s *CollectionTestSuite) TestDeleteMany() {
	s.insert(M{"a": 1}, M{"a": 2}, M{"a": 3})

	res, err := s.coll.DeleteMany(s.ctx, M{"a": M{"$gte": 2}})
	s.NoError(err)
	s.Equal(domain.DeleteResult{DeletedCount: 2}, res)
	s.Len(s.all(M{}), 1)

	res, err = s.coll.DeleteMany(s.ctx, M{"a": M{"$gte": 2}})
	s.NoError(err)
	s.Zero(res.DeletedCount)
}

func (s *CollectionTestSuite) TestCountDocuments() {
	s.insert(M{"a": 1}, M{"a": 2}, M{"a": 3})

	n, err := s.coll.CountDocuments(s.ctx, M{"a": M{"$in": A{1, 3}}})
	s.NoError(err)
	s.Equal(int64(2), n)

	n, err = s.coll.CountDocuments(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(3), n)
}

func (s *CollectionTestSuite) TestAggregateLookup() {
	orders := NewCollection("orders", s.ledger)
	s.insert(M{"sku": "A1", "name": "Widget"})
	_, err := orders.InsertMany(s.ctx, []any{
		M{"_id": "o1", "sku": "A1", "qty": 2},
		M{"_id": "o2", "sku": "A1", "qty": 3},
	})
	s.Require().NoError(err)

	res, err := orders.Aggregate(s.ctx, []M{
		{"$lookup": M{"from": "products", "localField": "sku", "foreignField": "sku", "as": "product"}},
		{"$unwind": "$product"},
		{"$group": M{"_id": "$product.name", "qty": M{"$sum": "$qty"}}},
	})
	s.NoError(err)
	s.Equal([]M{{"_id": "Widget", "qty": 5}}, res)
}

func (s *CollectionTestSuite) TestAggregateLegacyGroup() {
	s.insert(M{"_id": "1"}, M{"_id": "2"})

	res, err := s.coll.Aggregate(s.ctx, []M{{"$group": M{"_id": nil}}})
	s.NoError(err)
	s.Require().Len(res, 1)
	s.Nil(res[0]["_id"])
	s.Equal(2, res[0]["total"])
	s.Len(res[0]["data"], 2)
}

func (s *CollectionTestSuite) TestAggregateResolver() {
	called := false
	c := NewCollection("orders", s.ledger, WithResolver(func(_ context.Context, name string) ([]M, error) {
		called = true
		s.Equal("remote", name)
		return []M{{"k": 1}}, nil
	}))
	_, err := c.InsertOne(s.ctx, M{"k": 1})
	s.Require().NoError(err)

	res, err := c.Aggregate(s.ctx, []M{
		{"$lookup": M{"from": "remote", "localField": "k", "foreignField": "k", "as": "j"}},
	})
	s.NoError(err)
	s.True(called)
	s.Equal(A{M{"k": 1}}, res[0]["j"])
}

func (s *CollectionTestSuite) TestListIndexes() {
	idx, err := s.coll.ListIndexes(s.ctx)
	s.NoError(err)
	s.Equal([]domain.IndexInfo{IDIndex}, idx)

	sku := domain.IndexInfo{Name: "sku_1", Key: domain.Sort{{Key: "sku", Order: 1}}, Unique: true}
	c := NewCollection("products", s.ledger, WithIndexes(sku))
	idx, err = c.ListIndexes(s.ctx)
	s.NoError(err)
	s.Equal([]domain.IndexInfo{IDIndex, sku}, idx)

	idx[0].Name = "changed"
	idx, _ = c.ListIndexes(s.ctx)
	s.Equal("_id_", idx[0].Name)
}

func (s *CollectionTestSuite) TestDrop() {
	s.insert(M{"a": 1})
	s.NoError(s.coll.Drop(s.ctx))

	keys, err := s.ledger.Keys(s.ctx, "")
	s.NoError(err)
	s.Empty(keys)
	s.Empty(s.all(nil))

	s.NoError(s.coll.Drop(s.ctx))
}

func (s *CollectionTestSuite) TestCorruptValueReadsEmpty() {
	buf := new(bytes.Buffer)
	c := NewCollection("products", s.ledger, WithLogger(zerolog.New(buf)))
	s.Require().NoError(s.ledger.Set(s.ctx, "mockdb_products", []byte(`{not json`)))

	cur, err := c.Find(s.ctx, nil)
	s.Require().NoError(err)
	docs, err := cur.ToArray(s.ctx)
	s.NoError(err)
	s.Empty(docs)

	s.Contains(buf.String(), `"level":"warn"`)
	s.Contains(buf.String(), `"collection":"products"`)

	res, err := c.InsertOne(s.ctx, M{"a": 1})
	s.NoError(err)
	doc, err := c.FindOne(s.ctx, M{"_id": res.InsertedID})
	s.NoError(err)
	s.Equal(1, doc["a"])
}

func (s *CollectionTestSuite) TestLedgerErrors() {
	errGet := errors.New("get failed")
	errSet := errors.New("set failed")

	l := new(ledgerMock)
	l.On("Get", mock.Anything, "mockdb_products").Return(nil, false, errGet).Once()
	c := NewCollection("products", l)
	_, err := c.Find(s.ctx, nil)
	s.ErrorIs(err, errGet)

	l.On("Get", mock.Anything, "mockdb_products").Return(nil, false, nil).Once()
	l.On("Set", mock.Anything, "mockdb_products", mock.Anything).Return(errSet).Once()
	_, err = c.InsertOne(s.ctx, M{"a": 1})
	s.ErrorIs(err, errSet)

	l.AssertExpectations(s.T())
}

func (s *CollectionTestSuite) TestInvalidFilter() {
	s.insert(M{"a": 1})
	_, err := s.coll.Find(s.ctx, M{"a": M{"$near": 1}})
	s.ErrorAs(err, &domain.ErrUnknownOperator{})

	_, err = s.coll.DeleteMany(s.ctx, M{"$where": "x"})
	s.ErrorAs(err, &domain.ErrUnknownOperator{})
	s.Len(s.all(nil), 1)
}

func (s *CollectionTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.coll.Find(ctx, nil)
	s.ErrorIs(err, context.Canceled)
	_, err = s.coll.InsertOne(ctx, M{"a": 1})
	s.ErrorIs(err, context.Canceled)
	_, err = s.coll.ListIndexes(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *CollectionTestSuite) TestConcurrentWrites() {
	const workers = 50
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for n := range workers {
		go func() {
			defer wg.Done()
			_, err := s.coll.InsertOne(s.ctx, M{"n": n})
			s.NoError(err)
		}()
	}
	wg.Wait()

	count, err := s.coll.CountDocuments(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(workers), count)
}

func TestCollectionTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionTestSuite))
}
