package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/collection"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/memory"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type M = domain.Document

type DatabaseTestSuite struct {
	suite.Suite
	ledger *memory.Ledger
	db     *Database
	ctx    context.Context
}

func (s *DatabaseTestSuite) SetupTest() {
	s.ledger = memory.NewLedger()
	s.db = NewDatabase("warehouse", s.ledger)
	s.ctx = context.Background()
}

func (s *DatabaseTestSuite) TestIdentity() {
	s.Equal("warehouse", s.db.Name())
	s.Equal(domain.ModeLocal, s.db.Mode())
}

func (s *DatabaseTestSuite) TestHandlesAreCached() {
	s.Same(s.db.Collection("products"), s.db.Collection("products"))
	s.NotSame(s.db.Collection("products"), s.db.Collection("orders"))
}

func (s *DatabaseTestSuite) TestListCollections() {
	names, err := s.db.ListCollections(s.ctx)
	s.NoError(err)
	s.Empty(names)

	_, err = s.db.Collection("products").InsertOne(s.ctx, M{"a": 1})
	s.NoError(err)
	_, err = s.db.Collection("inventory").InsertOne(s.ctx, M{"a": 1})
	s.NoError(err)
	s.db.Collection("untouched")
	s.NoError(s.ledger.Set(s.ctx, ledger.ModeKey, []byte("mock")))

	names, err = s.db.ListCollections(s.ctx)
	s.NoError(err)
	s.Equal([]string{"inventory", "products"}, names)
}

func (s *DatabaseTestSuite) TestStats() {
	sku := domain.IndexInfo{Name: "sku_1", Key: domain.Sort{{Key: "sku", Order: 1}}}
	db := NewDatabase("warehouse", s.ledger, WithIndexes("products", sku))

	_, err := db.Collection("products").InsertOne(s.ctx, M{"_id": "1", "sku": "A1"})
	s.NoError(err)
	_, err = db.Collection("orders").InsertOne(s.ctx, M{"_id": "o"})
	s.NoError(err)

	products := `[{"_id":"1","sku":"A1"}]`
	orders := `[{"_id":"o"}]`

	stats, err := db.Stats(s.ctx)
	s.NoError(err)
	s.Equal(domain.Stats{
		Collections: 2,
		DataSize:    int64(len(products) + len(orders)),
		StorageSize: int64(len("mockdb_products") + len(products) + len("mockdb_orders") + len(orders)),
		Indexes:     3,
	}, stats)

	idx, err := db.Collection("products").ListIndexes(s.ctx)
	s.NoError(err)
	s.Equal([]domain.IndexInfo{collection.IDIndex, sku}, idx)
}

func (s *DatabaseTestSuite) TestPrefix() {
	db := NewDatabase("warehouse", s.ledger, WithPrefix("browserStorage_"))
	_, err := db.Collection("products").InsertOne(s.ctx, M{"a": 1})
	s.NoError(err)

	keys, err := s.ledger.Keys(s.ctx, "")
	s.NoError(err)
	s.Equal([]string{"browserStorage_products"}, keys)

	names, err := s.db.ListCollections(s.ctx)
	s.NoError(err)
	s.Empty(names)
}

func (s *DatabaseTestSuite) TestLookupAcrossCollections() {
	_, err := s.db.Collection("products").InsertOne(s.ctx, M{"sku": "A1", "name": "Widget"})
	s.NoError(err)
	_, err = s.db.Collection("inventory").InsertOne(s.ctx, M{"sku": "A1", "qty": 4})
	s.NoError(err)

	res, err := s.db.Collection("inventory").Aggregate(s.ctx, []M{
		{"$lookup": M{"from": "products", "localField": "sku", "foreignField": "sku", "as": "p"}},
		{"$project": M{"_id": 0, "qty": 1, "name": "$p.0.name"}},
	})
	s.NoError(err)
	s.Equal([]M{{"qty": 4, "name": "Widget"}}, res)
}

func (s *DatabaseTestSuite) TestSelfLookup() {
	c := s.db.Collection("locations")
	_, err := c.InsertMany(s.ctx, []any{
		M{"_id": "z", "parent": nil},
		M{"_id": "z1", "parent": "z"},
	})
	s.NoError(err)

	res, err := c.Aggregate(s.ctx, []M{
		{"$match": M{"_id": "z1"}},
		{"$lookup": M{"from": "locations", "localField": "parent", "foreignField": "_id", "as": "up"}},
	})
	s.NoError(err)
	s.Require().Len(res, 1)
	s.Len(res[0]["up"], 1)
}

func (s *DatabaseTestSuite) TestPing() {
	s.NoError(s.db.Ping(s.ctx))

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.ErrorIs(s.db.Ping(ctx), context.Canceled)
}

func TestDatabaseTestSuite(t *testing.T) {
	suite.Run(t, new(DatabaseTestSuite))
}
