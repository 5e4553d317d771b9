package remote

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Database) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout bounds every request. Zero keeps the client as it is.
func WithTimeout(t time.Duration) Option {
	return func(d *Database) {
		d.timeout = t
	}
}

// WithWiring replaces the table of collections and operations served by the
// backend.
func WithWiring(w Wiring) Option {
	return func(d *Database) {
		d.wiring = w
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithCursorFactory sets the factory of cursors returned by Find.
func WithCursorFactory(f domain.CursorFactory) Option {
	return func(d *Database) {
		d.cursorFactory = f
	}
}

// Option configures the remote database through the functional options
// pattern.
type Option func(*Database)
