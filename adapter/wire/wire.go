// Package wire holds the JSON format shared by the REST client in
// adapter/remote and the server in adapter/restserver.
//
// Documents travel in the same form they are stored in the ledger: dates are
// written as {"$$date": millis} and whole numbers are restored as int.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/deserializer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Endpoints and headers of the REST surface.
const (
	HealthPath      = "/api/health"
	StatsPath       = "/api/db-stats"
	APIPrefix       = "/api/"
	RequestIDHeader = "X-Request-ID"
)

// Envelope wraps every response body.
type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

var null = []byte("null")

// Encode marshals a filter, update, pipeline or document. Structs are
// normalized the way collections normalize them and regular expressions are
// sent as $regex patterns.
func Encode(v any) ([]byte, error) {
	val, err := data.Value(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(toWire(val))
}

func toWire(v any) any {
	switch t := v.(type) {
	case domain.Document:
		res := make(map[string]any, len(t))
		for k, item := range t {
			if re, ok := item.(*regexp.Regexp); ok && k != "$regex" {
				res[k] = map[string]any{"$regex": re.String()}
				continue
			}
			res[k] = toWire(item)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = toWire(item)
		}
		return res
	case time.Time:
		return map[string]any{"$$date": t.UnixMilli()}
	case domain.ID:
		return string(t)
	case *regexp.Regexp:
		return t.String()
	default:
		return v
	}
}

// DecodeDocuments reads a list of documents. Null or empty input is an empty
// list.
func DecodeDocuments(ctx context.Context, b []byte) ([]domain.Document, error) {
	if isNull(b) {
		return []domain.Document{}, nil
	}
	return deserializer.NewDeserializer().Deserialize(ctx, b)
}

// DecodeDocument reads a single document. Null or empty input returns nil.
func DecodeDocument(ctx context.Context, b []byte) (domain.Document, error) {
	if isNull(b) {
		return nil, nil
	}
	list := make([]byte, 0, len(b)+2)
	list = append(list, '[')
	list = append(list, b...)
	list = append(list, ']')

	docs, err := deserializer.NewDeserializer().Deserialize(ctx, list)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, domain.ErrDocumentType{Reason: "expected a single document"}
	}
	return docs[0], nil
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, null)
}
