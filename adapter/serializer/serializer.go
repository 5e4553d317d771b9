// Package serializer contains the default [domain.Serializer] implementation.
//
// A collection is written as a JSON array of documents. Dates are stored as
// {"$$date": <unix millis>} so they can be restored by the deserializer.
package serializer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

var (
	// ErrDottedField is returned when a stored field name contains a dot.
	ErrDottedField = errors.New("field names cannot contain a '.'")
	// ErrDollarField is returned when a stored field name starts with $.
	ErrDollarField = errors.New("field names cannot start with the $ character")
)

// Serializer implements domain.Serializer.
type Serializer struct{}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer() domain.Serializer {
	return &Serializer{}
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, docs []domain.Document) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	res := make([]any, len(docs))
	for n, doc := range docs {
		for k := range doc {
			if err := s.checkKey(k); err != nil {
				return nil, fmt.Errorf("document %d: %w", n, err)
			}
		}
		cp, err := s.copyAny(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		res[n] = cp
	}
	return json.Marshal(res)
}

func (s *Serializer) copyAny(v any) (any, error) {
	switch t := v.(type) {
	case domain.Document:
		res := make(map[string]any, len(t))
		for k, item := range t {
			copied, err := s.copyAny(item)
			if err != nil {
				return nil, err
			}
			res[k] = copied
		}
		return res, nil
	case []any:
		newList := make([]any, len(t))
		for n, item := range t {
			copied, err := s.copyAny(item)
			if err != nil {
				return nil, err
			}
			newList[n] = copied
		}
		return newList, nil
	case time.Time:
		return map[string]any{"$$date": t.UnixMilli()}, nil
	case domain.ID:
		return string(t), nil
	case *regexp.Regexp, domain.Undefined:
		return nil, domain.ErrDocumentType{Reason: fmt.Sprintf("cannot store value of type %T", v)}
	default:
		return v, nil
	}
}

func (s *Serializer) checkKey(k string) error {
	if strings.ContainsRune(k, '.') {
		return ErrDottedField
	}
	if strings.HasPrefix(k, "$") {
		return ErrDollarField
	}
	return nil
}
