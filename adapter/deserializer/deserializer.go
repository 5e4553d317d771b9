// Package deserializer contains the default [domain.Deserializer]
// implementation.
package deserializer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// ErrCorrupt is returned when stored bytes are not a JSON array of documents.
type ErrCorrupt struct {
	Err error
}

// Error implements [error].
func (e ErrCorrupt) Error() string {
	return "corrupt collection data: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e ErrCorrupt) Unwrap() error {
	return e.Err
}

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer() domain.Deserializer {
	return &Deserializer{}
}

// Deserializer implements [domain.Deserializer]. Identities are restored as
// [domain.ID], dates stored as {"$$date": millis} as [time.Time] and whole
// numbers that fit an int as int.
type Deserializer struct{}

// Deserialize implements [domain.Deserializer]. Empty input is an empty
// collection.
func (d *Deserializer) Deserialize(ctx context.Context, b []byte) ([]domain.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []domain.Document{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, ErrCorrupt{Err: err}
	}
	if dec.More() {
		return nil, ErrCorrupt{Err: fmt.Errorf("trailing data after offset %d", dec.InputOffset())}
	}

	docs := make([]domain.Document, 0, len(raw))
	for n, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			return nil, ErrCorrupt{Err: fmt.Errorf("item %d is %T, not a document", n, item)}
		}
		restored, ok := d.restore(doc).(map[string]any)
		if !ok {
			return nil, ErrCorrupt{Err: fmt.Errorf("item %d is not a document", n)}
		}
		if id, ok := restored[domain.IDField].(string); ok {
			restored[domain.IDField] = domain.ID(id)
		}
		docs = append(docs, restored)
	}
	return docs, nil
}

func (d *Deserializer) restore(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if date, ok := d.date(t); ok {
			return date
		}
		for k, item := range t {
			t[k] = d.restore(item)
		}
		return t
	case []any:
		for n, item := range t {
			t[n] = d.restore(item)
		}
		return t
	case json.Number:
		return d.number(t)
	default:
		return v
	}
}

func (d *Deserializer) date(doc map[string]any) (time.Time, bool) {
	if len(doc) != 1 {
		return time.Time{}, false
	}
	n, ok := doc["$$date"].(json.Number)
	if !ok {
		return time.Time{}, false
	}
	ms, err := n.Int64()
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (d *Deserializer) number(n json.Number) any {
	if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return f
}
