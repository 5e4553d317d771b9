package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/database"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger/memory"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/remote"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type M = domain.Document

type restartMock struct{ mock.Mock }

func (r *restartMock) Restart(ctx context.Context, mode domain.Mode) error {
	return r.Called(ctx, mode).Error(0)
}

type RouterTestSuite struct {
	suite.Suite
	ledger  *memory.Ledger
	backend *httptest.Server
	healthy atomic.Bool
	ctx     context.Context
}

func (s *RouterTestSuite) SetupTest() {
	s.ledger = memory.NewLedger()
	s.healthy.Store(true)
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health" && s.healthy.Load():
			_, _ = io.WriteString(w, `{"ok":true}`)
		case r.URL.Path == "/api/health":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"ok":false,"error":"down"}`)
		case r.URL.Path == "/api/db-stats":
			_, _ = io.WriteString(w, `{"ok":true,"data":{"collections":4,"dataSize":1,"storageSize":2,"indexes":4}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"ok":false,"error":"not found"}`)
		}
	}))
	s.ctx = context.Background()
}

func (s *RouterTestSuite) TearDownTest() {
	s.backend.Close()
}

func (s *RouterTestSuite) newRouter(options ...Option) *Router {
	r, err := New(s.ctx, s.ledger, append([]Option{WithBackendURL(s.backend.URL)}, options...)...)
	s.Require().NoError(err)
	return r
}

func (s *RouterTestSuite) TestDefaultsToLocal() {
	r := s.newRouter()
	s.Equal(domain.ModeLocal, r.Mode())
	s.False(r.IsConnected())
}

func (s *RouterTestSuite) TestPersistedMode() {
	s.NoError(s.ledger.Set(s.ctx, ledger.ModeKey, []byte("api")))
	s.Equal(domain.ModeRemote, s.newRouter().Mode())
}

func (s *RouterTestSuite) TestUnknownPersistedMode() {
	s.NoError(s.ledger.Set(s.ctx, ledger.ModeKey, []byte("sql")))
	s.Equal(domain.ModeLocal, s.newRouter().Mode())
}

func (s *RouterTestSuite) TestConfiguredModeWins() {
	s.NoError(s.ledger.Set(s.ctx, ledger.ModeKey, []byte("api")))
	s.Equal(domain.ModeLocal, s.newRouter(WithMode(domain.ModeLocal)).Mode())
}

func (s *RouterTestSuite) TestInvalidConfiguredMode() {
	_, err := New(s.ctx, s.ledger, WithMode("sql"))
	s.Equal(domain.ErrInvalidMode{Mode: "sql"}, err)
}

func (s *RouterTestSuite) TestSetModePersistsAndRestarts() {
	restart := new(restartMock)
	restart.On("Restart", mock.Anything, domain.ModeRemote).Return(nil).Once()

	r := s.newRouter(WithRestart(restart.Restart))
	s.NoError(r.SetMode(s.ctx, domain.ModeRemote))
	restart.AssertExpectations(s.T())

	// no hot swap
	s.Equal(domain.ModeLocal, r.Mode())

	stored, err := r.StoredMode(s.ctx)
	s.NoError(err)
	s.Equal(domain.ModeRemote, stored)

	// next instance picks the flag up
	s.Equal(domain.ModeRemote, s.newRouter().Mode())

	b, ok, err := s.ledger.Get(s.ctx, ledger.ModeKey)
	s.NoError(err)
	s.True(ok)
	s.Equal("api", string(b))
}

func (s *RouterTestSuite) TestSetModeErrors() {
	r := s.newRouter()
	s.ErrorAs(r.SetMode(s.ctx, "sql"), &domain.ErrInvalidMode{})

	errRestart := errors.New("restart failed")
	restart := new(restartMock)
	restart.On("Restart", mock.Anything, domain.ModeLocal).Return(errRestart).Once()
	r = s.newRouter(WithRestart(restart.Restart))
	s.ErrorIs(r.SetMode(s.ctx, domain.ModeLocal), errRestart)
}

func (s *RouterTestSuite) TestConnectLocal() {
	r := s.newRouter()
	for _, uri := range []string{"", "mongodb://db:27017", "mongodb+srv://cluster.example"} {
		db, err := r.ConnectToDatabase(s.ctx, uri, "")
		s.NoError(err)
		s.IsType(&database.Database{}, db)
		s.Equal(DefaultDatabase, db.Name())
		s.Equal(domain.ModeLocal, db.Mode())
		s.True(r.IsConnected())
	}

	db, err := r.ConnectToDatabase(s.ctx, "", "other")
	s.NoError(err)
	s.Equal("other", db.Name())

	current, err := r.Database()
	s.NoError(err)
	s.Same(db, current)
}

func (s *RouterTestSuite) TestConnectLocalInvalidURI() {
	r := s.newRouter()
	_, err := r.ConnectToDatabase(s.ctx, "", "")
	s.Require().NoError(err)

	for _, uri := range []string{"postgres://db", "mongodb://", "localhost:27017"} {
		db, err := r.ConnectToDatabase(s.ctx, uri, "")
		s.Nil(db)
		var connErr domain.ErrConnection
		s.Require().ErrorAs(err, &connErr)
		s.Equal(uri, connErr.URI)
		s.False(r.IsConnected())
	}

	_, err = r.Database()
	s.ErrorIs(err, domain.ErrNotConnected)
}

func (s *RouterTestSuite) TestConnectRemote() {
	r := s.newRouter(WithMode(domain.ModeRemote))

	db, err := r.ConnectToDatabase(s.ctx, "not even a uri", "wms")
	s.NoError(err)
	s.IsType(&remote.Database{}, db)
	s.Equal(domain.ModeRemote, db.Mode())

	_, err = db.Collection("accounts").Find(s.ctx, nil)
	s.ErrorAs(err, &domain.ErrNotImplemented{})
}

func (s *RouterTestSuite) TestConnectRemoteUnhealthy() {
	s.healthy.Store(false)
	r := s.newRouter(WithMode(domain.ModeRemote))

	_, err := r.ConnectToDatabase(s.ctx, "", "")
	var connErr domain.ErrConnection
	s.Require().ErrorAs(err, &connErr)
	s.Equal(s.backend.URL, connErr.URI)
	s.ErrorAs(err, &domain.ErrRemote{})
	s.False(r.IsConnected())
}

func (s *RouterTestSuite) TestStats() {
	r := s.newRouter()
	_, err := r.GetDatabaseStats(s.ctx)
	s.ErrorIs(err, domain.ErrNotConnected)

	db, err := r.ConnectToDatabase(s.ctx, "", "")
	s.Require().NoError(err)
	_, err = db.Collection("products").InsertOne(s.ctx, M{"_id": "1"})
	s.Require().NoError(err)

	stats, err := r.GetDatabaseStats(s.ctx)
	s.NoError(err)
	s.Equal(1, stats.Collections)
	s.Equal(1, stats.Indexes)
	s.Equal(int64(len(`[{"_id":"1"}]`)), stats.DataSize)

	remoteRouter := s.newRouter(WithMode(domain.ModeRemote))
	_, err = remoteRouter.ConnectToDatabase(s.ctx, "", "")
	s.Require().NoError(err)
	stats, err = remoteRouter.GetDatabaseStats(s.ctx)
	s.NoError(err)
	s.Equal(domain.Stats{Collections: 4, DataSize: 1, StorageSize: 2, Indexes: 4}, stats)
}

func (s *RouterTestSuite) TestLocalOptions() {
	r := s.newRouter(WithLocalOptions(database.WithPrefix("wms_")))
	db, err := r.ConnectToDatabase(s.ctx, "", "")
	s.Require().NoError(err)
	_, err = db.Collection("orders").InsertOne(s.ctx, M{"a": 1})
	s.Require().NoError(err)

	keys, err := s.ledger.Keys(s.ctx, "wms_")
	s.NoError(err)
	s.Equal([]string{"wms_orders"}, keys)
}

func (s *RouterTestSuite) TestTestConnection() {
	status, err := s.newRouter().TestConnection(s.ctx)
	s.NoError(err)
	s.True(status.OK)
	s.Equal(domain.ModeLocal, status.Mode)

	r := s.newRouter(WithMode(domain.ModeRemote))
	status, err = r.TestConnection(s.ctx)
	s.NoError(err)
	s.Equal(domain.ConnectionStatus{OK: true, Mode: domain.ModeRemote, Message: "backend is reachable"}, status)

	s.healthy.Store(false)
	status, err = r.TestConnection(s.ctx)
	s.NoError(err)
	s.False(status.OK)
	s.Contains(status.Message, "down")

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = r.TestConnection(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *RouterTestSuite) TestClose() {
	r := s.newRouter()
	_, err := r.ConnectToDatabase(s.ctx, "", "")
	s.Require().NoError(err)

	s.NoError(r.Close())
	s.False(r.IsConnected())

	// the ledger still works
	_, _, err = s.ledger.Get(s.ctx, ledger.ModeKey)
	s.NoError(err)
}

func (s *RouterTestSuite) TestLogsModeChange() {
	var buf bytes.Buffer
	r := s.newRouter(WithLogger(zerolog.New(&buf)))
	s.NoError(r.SetMode(s.ctx, domain.ModeRemote))
	s.Contains(buf.String(), `"component":"router"`)
	s.Contains(buf.String(), `"to":"api"`)
	s.Contains(buf.String(), "storage mode changed")
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
