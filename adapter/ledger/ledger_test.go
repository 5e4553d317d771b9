package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/badger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/file"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/memory"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/sqlite"
)

type LedgerTestSuite struct {
	suite.Suite
}

func (s *LedgerTestSuite) TestKeyAndName() {
	key := Key(DefaultPrefix, "products")
	s.Equal("mockdb_products", key)

	name, ok := Name(DefaultPrefix, key)
	s.True(ok)
	s.Equal("products", name)

	_, ok = Name(DefaultPrefix, ModeKey)
	s.False(ok)
	_, ok = Name(DefaultPrefix, DefaultPrefix)
	s.False(ok)
}

func (s *LedgerTestSuite) TestOpen() {
	ctx := context.Background()
	dir := s.T().TempDir()

	testCases := []struct {
		driver Driver
		path   string
		want   any
	}{
		{driver: "", want: &memory.Ledger{}},
		{driver: DriverMemory, want: &memory.Ledger{}},
		{driver: DriverFile, path: filepath.Join(dir, "files"), want: &file.Ledger{}},
		{driver: DriverBadger, path: filepath.Join(dir, "badger"), want: &badger.Ledger{}},
		{driver: DriverSQLite, path: filepath.Join(dir, "ledger.db"), want: &sqlite.Ledger{}},
	}

	for _, tc := range testCases {
		s.Run(string(tc.driver), func() {
			l, err := Open(ctx, tc.driver, tc.path)
			s.Require().NoError(err)
			s.IsType(tc.want, l)

			s.NoError(l.Set(ctx, Key(DefaultPrefix, "c"), []byte("[]")))
			keys, err := l.Keys(ctx, DefaultPrefix)
			s.NoError(err)
			s.Equal([]string{"mockdb_c"}, keys)
			s.NoError(l.Close())
		})
	}
}

func (s *LedgerTestSuite) TestUnknownDriver() {
	_, err := Open(context.Background(), "redis", "")
	s.ErrorAs(err, &ErrUnknownDriver{})
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
