// Package fieldnavigator resolves dotted field paths inside documents.
package fieldnavigator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct {
	docFac func(any) (domain.Document, error)
}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator]. docFac
// creates the intermediate documents [FieldNavigator.SetField] needs.
func NewFieldNavigator(docFac func(any) (domain.Document, error)) domain.FieldNavigator {
	return &FieldNavigator{
		docFac: docFac,
	}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) []string {
	return strings.Split(field, ".")
}

// GetField implements [domain.FieldNavigator]. Numeric segments index lists.
func (fn *FieldNavigator) GetField(obj any, addr ...string) (any, bool) {
	if obj == nil || len(addr) == 0 {
		return nil, false
	}
	curr := obj
	for _, part := range addr {
		switch t := curr.(type) {
		case domain.Document:
			v, ok := t[part]
			if !ok {
				return nil, false
			}
			curr = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			curr = t[i]
		default:
			return nil, false
		}
	}
	return curr, true
}

// SetField implements [domain.FieldNavigator]. Missing or non-document
// intermediate values are replaced by new documents.
func (fn *FieldNavigator) SetField(doc domain.Document, value any, addr ...string) error {
	if doc == nil {
		return domain.ErrDocumentType{Reason: "cannot set field on nil document"}
	}
	if len(addr) == 0 {
		return domain.ErrDocumentType{Reason: "empty field path"}
	}
	curr := doc
	for n, part := range addr[:len(addr)-1] {
		if part == "" {
			return domain.ErrDocumentType{
				Reason: fmt.Sprintf("empty segment at position %d", n),
			}
		}
		next, ok := curr[part].(domain.Document)
		if !ok {
			newDoc, err := fn.docFac(nil)
			if err != nil {
				return err
			}
			curr[part] = newDoc
			next = newDoc
		}
		curr = next
	}
	curr[addr[len(addr)-1]] = value
	return nil
}
