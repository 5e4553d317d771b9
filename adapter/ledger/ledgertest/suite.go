// Package ledgertest holds the behavior every [domain.Ledger] driver must
// show, as a testify suite drivers run from their own tests.
package ledgertest

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Suite checks a [domain.Ledger] implementation. New is called before each
// test and the returned ledger is closed after it.
type Suite struct {
	suite.Suite
	New    func() domain.Ledger
	Ledger domain.Ledger
}

// SetupTest implements [suite.SetupTestSuite].
func (s *Suite) SetupTest() {
	s.Require().NotNil(s.New, "ledger constructor not set")
	s.Ledger = s.New()
}

// TearDownTest implements [suite.TearDownTestSuite].
func (s *Suite) TearDownTest() {
	if s.Ledger != nil {
		s.NoError(s.Ledger.Close())
	}
}

func (s *Suite) TestGetMissing() {
	v, ok, err := s.Ledger.Get(context.Background(), "mockdb_missing")
	s.NoError(err)
	s.False(ok)
	s.Nil(v)
}

func (s *Suite) TestSetAndGet() {
	ctx := context.Background()
	s.NoError(s.Ledger.Set(ctx, "mockdb_products", []byte(`[{"sku":"A1"}]`)))

	v, ok, err := s.Ledger.Get(ctx, "mockdb_products")
	s.NoError(err)
	s.True(ok)
	s.Equal(`[{"sku":"A1"}]`, string(v))
}

func (s *Suite) TestOverwrite() {
	ctx := context.Background()
	s.NoError(s.Ledger.Set(ctx, "k", []byte("one")))
	s.NoError(s.Ledger.Set(ctx, "k", []byte("two")))

	v, ok, err := s.Ledger.Get(ctx, "k")
	s.NoError(err)
	s.True(ok)
	s.Equal("two", string(v))
}

func (s *Suite) TestEmptyValue() {
	ctx := context.Background()
	s.NoError(s.Ledger.Set(ctx, "k", []byte{}))

	v, ok, err := s.Ledger.Get(ctx, "k")
	s.NoError(err)
	s.True(ok)
	s.Empty(v)
}

func (s *Suite) TestValuesAreCopied() {
	ctx := context.Background()
	in := []byte("abc")
	s.NoError(s.Ledger.Set(ctx, "k", in))
	in[0] = 'x'

	v, _, err := s.Ledger.Get(ctx, "k")
	s.NoError(err)
	s.Equal("abc", string(v))

	v[1] = 'y'
	v, _, err = s.Ledger.Get(ctx, "k")
	s.NoError(err)
	s.Equal("abc", string(v))
}

func (s *Suite) TestDelete() {
	ctx := context.Background()
	s.NoError(s.Ledger.Set(ctx, "k", []byte("v")))
	s.NoError(s.Ledger.Delete(ctx, "k"))

	_, ok, err := s.Ledger.Get(ctx, "k")
	s.NoError(err)
	s.False(ok)

	s.NoError(s.Ledger.Delete(ctx, "k"))
}

func (s *Suite) TestKeys() {
	ctx := context.Background()
	for _, k := range []string{"mockdb_orders", "storage_mode", "mockdb_inventory", "mockdb_products", "other"} {
		s.NoError(s.Ledger.Set(ctx, k, []byte("[]")))
	}

	keys, err := s.Ledger.Keys(ctx, "mockdb_")
	s.NoError(err)
	s.Equal([]string{"mockdb_inventory", "mockdb_orders", "mockdb_products"}, keys)

	keys, err = s.Ledger.Keys(ctx, "")
	s.NoError(err)
	s.Len(keys, 5)

	keys, err = s.Ledger.Keys(ctx, "none_")
	s.NoError(err)
	s.Empty(keys)
}

func (s *Suite) TestManyKeys() {
	ctx := context.Background()
	for n := range 50 {
		s.NoError(s.Ledger.Set(ctx, fmt.Sprintf("mockdb_c%02d", n), []byte("[]")))
	}
	keys, err := s.Ledger.Keys(ctx, "mockdb_")
	s.NoError(err)
	s.Len(keys, 50)
	s.Equal("mockdb_c00", keys[0])
	s.Equal("mockdb_c49", keys[49])
}

func (s *Suite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Ledger.Get(ctx, "k")
	s.ErrorIs(err, context.Canceled)
	s.ErrorIs(s.Ledger.Set(ctx, "k", []byte("v")), context.Canceled)
	s.ErrorIs(s.Ledger.Delete(ctx, "k"), context.Canceled)
	_, err = s.Ledger.Keys(ctx, "")
	s.ErrorIs(err, context.Canceled)
}
