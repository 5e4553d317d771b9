package router

import (
	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/database"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/remote"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// WithMode forces the mode, ignoring the persisted flag. An empty mode keeps
// the default resolution.
func WithMode(m domain.Mode) Option {
	return func(r *Router) {
		r.configured = m
	}
}

// WithURI sets the connection string used when ConnectToDatabase receives an
// empty one.
func WithURI(uri string) Option {
	return func(r *Router) {
		r.uri = uri
	}
}

// WithDatabaseName sets the database used when ConnectToDatabase receives an
// empty name.
func WithDatabaseName(name string) Option {
	return func(r *Router) {
		r.dbName = name
	}
}

// WithBackendURL sets the base URL of the REST backend used in remote mode.
func WithBackendURL(u string) Option {
	return func(r *Router) {
		r.backendURL = u
	}
}

// WithRestart sets the hook called after SetMode persists a new mode.
func WithRestart(f RestartFunc) Option {
	return func(r *Router) {
		r.restart = f
	}
}

// WithLogger sets the router logger. It is also handed to the databases the
// router creates.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithLocalOptions adds options to the local databases.
func WithLocalOptions(options ...database.Option) Option {
	return func(r *Router) {
		r.localOpts = append(r.localOpts, options...)
	}
}

// WithRemoteOptions adds options to the remote databases.
func WithRemoteOptions(options ...remote.Option) Option {
	return func(r *Router) {
		r.remoteOpts = append(r.remoteOpts, options...)
	}
}

// Option configures the router through the functional options pattern.
type Option func(*Router)
