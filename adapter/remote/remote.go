// Package remote contains a [domain.Database] that proxies collection
// operations to a REST backend.
//
// Only the collections and operations listed in its [Wiring] reach the
// backend. Anything else fails with [domain.ErrNotImplemented].
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/dolmen-go/contextio"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/wire"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Wiring maps collection names to the operations the backend serves for them.
type Wiring map[string][]domain.Operation

// Allows reports whether op is wired for the collection name.
func (w Wiring) Allows(name string, op domain.Operation) bool {
	return slices.Contains(w[name], op)
}

// DefaultWiring returns the operations served by the warehouse backend.
func DefaultWiring() Wiring {
	ops := []domain.Operation{
		domain.OpFind,
		domain.OpFindOne,
		domain.OpInsertOne,
		domain.OpDeleteOne,
		domain.OpCountDocuments,
	}
	return Wiring{
		"products":  ops,
		"locations": ops,
		"inventory": ops,
		"orders":    ops,
	}
}

// Database implements [domain.Database] over HTTP.
type Database struct {
	name          string
	baseURL       string
	client        *http.Client
	timeout       time.Duration
	wiring        Wiring
	logger        zerolog.Logger
	cursorFactory domain.CursorFactory
}

// NewDatabase returns a proxy for the backend listening at baseURL.
func NewDatabase(name, baseURL string, options ...Option) *Database {
	d := &Database{
		name:          name,
		baseURL:       strings.TrimRight(baseURL, "/"),
		client:        http.DefaultClient,
		wiring:        DefaultWiring(),
		logger:        zerolog.Nop(),
		cursorFactory: cursor.NewFactory(),
	}
	for _, option := range options {
		option(d)
	}
	d.logger = d.logger.With().Str("component", "remote").Str("backend", d.baseURL).Logger()
	return d
}

// Name implements [domain.Database].
func (d *Database) Name() string {
	return d.name
}

// Mode implements [domain.Database].
func (d *Database) Mode() domain.Mode {
	return domain.ModeRemote
}

// BaseURL returns the backend address.
func (d *Database) BaseURL() string {
	return d.baseURL
}

// Collection implements [domain.Database].
func (d *Database) Collection(name string) domain.Collection {
	return &Collection{db: d, name: name}
}

// ListCollections implements [domain.Database]. The backend has no listing
// endpoint, so the wired collections are returned.
func (d *Database) ListCollections(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.wiring))
	for name := range d.wiring {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Stats implements [domain.Database].
func (d *Database) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	res, err := d.call(ctx, http.MethodGet, wire.StatsPath, nil, nil)
	if err != nil {
		return stats, err
	}
	if err := json.Unmarshal(res, &stats); err != nil {
		return stats, d.invalid(http.StatusOK, err)
	}
	return stats, nil
}

// Ping implements [domain.Database] through the health endpoint.
func (d *Database) Ping(ctx context.Context) error {
	_, err := d.call(ctx, http.MethodGet, wire.HealthPath, nil, nil)
	return err
}

// call sends a request and returns the data of a successful envelope.
func (d *Database) call(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	target := d.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	id := uuid.NewString()
	req.Header.Set(wire.RequestIDHeader, id)

	logger := d.logger.With().Str("request_id", id).Str("method", method).Str("path", path).Logger()
	logger.Debug().Msg("sending request")

	resp, err := d.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(contextio.NewReader(ctx, resp.Body))
	if err != nil {
		return nil, err
	}

	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, d.invalid(resp.StatusCode, err)
	}
	if !env.OK || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		logger.Debug().Int("status", resp.StatusCode).Str("error", msg).Msg("backend rejected request")
		return nil, domain.ErrRemote{Status: resp.StatusCode, Message: msg}
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("request done")
	return env.Data, nil
}

func (d *Database) invalid(status int, err error) error {
	return domain.ErrRemote{
		Status:  status,
		Message: fmt.Sprintf("invalid response: %v", err),
	}
}
