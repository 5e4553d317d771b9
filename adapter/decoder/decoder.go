// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. Struct fields are matched through the
// ledger tag, the same one read by [data.NewDocument].
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}
	if value.IsNil() {
		return domain.ErrTargetNil
	}

	source = d.detach(source)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: data.TagName,
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := domain.ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// detach copies documents so decoded maps never alias stored data.
func (d *Decoder) detach(value any) any {
	switch t := value.(type) {
	case domain.Document:
		return data.Clone(t)
	case []domain.Document:
		lst := make([]any, len(t))
		for n, doc := range t {
			lst[n] = data.Clone(doc)
		}
		return lst
	case []any:
		return data.Clone(domain.Document{"v": t})["v"]
	default:
		return value
	}
}
