// Package router selects the backend of a database handle.
//
// A [Router] serves either [domain.ModeLocal], where collections live in the
// ledger, or [domain.ModeRemote], where wired operations are proxied to a
// REST backend. The mode is chosen once, when the router is built. Changing
// it persists the new value and asks the application to restart, so a running
// router never changes backend.
package router

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/database"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/ledger"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/remote"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Defaults used when the router is not configured.
const (
	DefaultURI        = "mongodb://localhost:27017"
	DefaultDatabase   = "wms"
	DefaultBackendURL = "http://localhost:3001"
)

// SchemePrefixes lists the accepted connection string prefixes.
var SchemePrefixes = []string{"mongodb://", "mongodb+srv://"}

// RestartFunc is called after a mode change is persisted. It should restart
// the application so the new mode takes effect.
type RestartFunc func(ctx context.Context, mode domain.Mode) error

// Router hands out database handles for the selected mode.
type Router struct {
	ledger     domain.Ledger
	configured domain.Mode
	mode       domain.Mode
	uri        string
	dbName     string
	backendURL string
	restart    RestartFunc
	logger     zerolog.Logger
	localOpts  []database.Option
	remoteOpts []remote.Option

	mu sync.Mutex
	db domain.Database
}

// New returns a router storing its mode flag and local collections in l.
//
// The mode comes from [WithMode] if given, else from the flag persisted by a
// previous [Router.SetMode], else it is [domain.ModeLocal].
func New(ctx context.Context, l domain.Ledger, options ...Option) (*Router, error) {
	r := &Router{
		ledger:     l,
		uri:        DefaultURI,
		dbName:     DefaultDatabase,
		backendURL: DefaultBackendURL,
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(r)
	}
	r.logger = r.logger.With().Str("component", "router").Logger()

	mode, err := r.resolveMode(ctx)
	if err != nil {
		return nil, err
	}
	r.mode = mode
	r.logger.Debug().Str("mode", string(mode)).Msg("storage mode resolved")
	return r, nil
}

func (r *Router) resolveMode(ctx context.Context) (domain.Mode, error) {
	if r.configured != "" {
		if !r.configured.Valid() {
			return "", domain.ErrInvalidMode{Mode: string(r.configured)}
		}
		return r.configured, nil
	}
	return r.StoredMode(ctx)
}

// StoredMode returns the persisted mode flag. A missing or unknown flag reads
// as [domain.ModeLocal].
func (r *Router) StoredMode(ctx context.Context) (domain.Mode, error) {
	b, ok, err := r.ledger.Get(ctx, ledger.ModeKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return domain.ModeLocal, nil
	}
	mode := domain.Mode(b)
	if !mode.Valid() {
		r.logger.Warn().Str("stored", string(b)).Msg("ignoring unknown storage mode")
		return domain.ModeLocal, nil
	}
	return mode, nil
}

// Mode returns the mode served by this router.
func (r *Router) Mode() domain.Mode {
	return r.mode
}

// SetMode persists mode and calls the restart hook. The router keeps serving
// its current mode.
func (r *Router) SetMode(ctx context.Context, mode domain.Mode) error {
	if !mode.Valid() {
		return domain.ErrInvalidMode{Mode: string(mode)}
	}
	if err := r.ledger.Set(ctx, ledger.ModeKey, []byte(mode)); err != nil {
		return err
	}
	r.logger.Info().
		Str("from", string(r.mode)).
		Str("to", string(mode)).
		Msg("storage mode changed")

	if r.restart == nil {
		return nil
	}
	return r.restart(ctx, mode)
}

// ConnectToDatabase connects to the database name. Empty arguments fall back
// to the configured values.
//
// In local mode uri must be a mongodb:// or mongodb+srv:// connection string;
// it is only validated. In remote mode uri is ignored and the backend health
// endpoint is checked instead. On failure the router is left disconnected and
// a [domain.ErrConnection] is returned.
func (r *Router) ConnectToDatabase(ctx context.Context, uri, name string) (domain.Database, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if uri == "" {
		uri = r.uri
	}
	if name == "" {
		name = r.dbName
	}

	db, err := r.connect(ctx, uri, name)
	if err != nil {
		r.db = nil
		r.logger.Warn().Err(err).Str("mode", string(r.mode)).Msg("connection failed")
		return nil, err
	}
	r.db = db
	r.logger.Info().Str("mode", string(r.mode)).Str("database", name).Msg("connected")
	return db, nil
}

func (r *Router) connect(ctx context.Context, uri, name string) (domain.Database, error) {
	if r.mode == domain.ModeRemote {
		options := append([]remote.Option{remote.WithLogger(r.logger)}, r.remoteOpts...)
		db := remote.NewDatabase(name, r.backendURL, options...)
		if err := db.Ping(ctx); err != nil {
			return nil, domain.ErrConnection{
				URI:    r.backendURL,
				Reason: "backend health check failed",
				Err:    err,
			}
		}
		return db, nil
	}

	if !validURI(uri) {
		return nil, domain.ErrConnection{
			URI:    uri,
			Reason: "unsupported connection string",
		}
	}
	options := append([]database.Option{database.WithLogger(r.logger)}, r.localOpts...)
	db := database.NewDatabase(name, r.ledger, options...)
	if err := db.Ping(ctx); err != nil {
		return nil, domain.ErrConnection{URI: uri, Reason: "ledger unavailable", Err: err}
	}
	return db, nil
}

func validURI(uri string) bool {
	for _, prefix := range SchemePrefixes {
		if strings.HasPrefix(uri, prefix) && len(uri) > len(prefix) {
			return true
		}
	}
	return false
}

// Database returns the connected database.
func (r *Router) Database() (domain.Database, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil, domain.ErrNotConnected
	}
	return r.db, nil
}

// IsConnected reports whether ConnectToDatabase succeeded and Close was not
// called since.
func (r *Router) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db != nil
}

// GetDatabaseStats returns the stats of the connected database. Local
// databases measure the ledger, remote ones ask the backend.
func (r *Router) GetDatabaseStats(ctx context.Context) (domain.Stats, error) {
	db, err := r.Database()
	if err != nil {
		return domain.Stats{}, err
	}
	return db.Stats(ctx)
}

// TestConnection checks the backend of the current mode. Failures are
// reported in the returned status, only context errors are returned.
func (r *Router) TestConnection(ctx context.Context) (domain.ConnectionStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConnectionStatus{}, err
	}

	status := domain.ConnectionStatus{Mode: r.mode}

	db, err := r.Database()
	if err != nil {
		db = r.transient()
	}
	if err := db.Ping(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ConnectionStatus{}, ctxErr
		}
		status.Message = err.Error()
		return status, nil
	}

	status.OK = true
	if r.mode == domain.ModeRemote {
		status.Message = "backend is reachable"
	} else {
		status.Message = "local ledger is working"
	}
	return status, nil
}

// transient builds a throwaway database for the current mode.
func (r *Router) transient() domain.Database {
	if r.mode == domain.ModeRemote {
		return remote.NewDatabase(r.dbName, r.backendURL, r.remoteOpts...)
	}
	return database.NewDatabase(r.dbName, r.ledger, r.localOpts...)
}

// Close disconnects the router. The ledger stays open, as it belongs to the
// caller.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.db = nil
	return nil
}
