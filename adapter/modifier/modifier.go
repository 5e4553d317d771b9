// Package modifier contains a [domain.Modifier] implementation to apply update
// documents to stored documents.
//
// Two forms are accepted: a plain document, merged field by field onto the
// target, and a document whose only key is $set, whose value is merged the
// same way with dotted keys addressing nested fields. The identity field never
// changes.
package modifier

import (
	"maps"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type modFunc func(domain.Document, any) error

// Modifier implements [domain.Modifier].
type Modifier struct {
	docFac         func(any) (domain.Document, error)
	fieldNavigator domain.FieldNavigator
	mods           map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{
		docFac:         data.NewDocument,
		fieldNavigator: fieldnavigator.NewFieldNavigator(data.NewDocument),
	}
	for _, option := range options {
		option(m)
	}

	m.mods = map[string]modFunc{
		"$set": m.set,
	}

	return m
}

// Modify implements [domain.Modifier].
func (m *Modifier) Modify(obj domain.Document, mod domain.Document) (domain.Document, error) {
	dollar := 0
	for k := range mod {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	if dollar > 0 && dollar != len(mod) {
		return nil, domain.ErrMixedOperators
	}

	res := data.Clone(obj)
	if res == nil {
		res = make(domain.Document)
	}

	if dollar == 0 {
		if err := m.merge(res, mod); err != nil {
			return nil, err
		}
		return m.restoreID(obj, res), nil
	}

	for _, name := range slices.Sorted(maps.Keys(mod)) {
		fn, ok := m.mods[name]
		if !ok {
			return nil, domain.ErrUnsupportedModifier{Modifier: name}
		}
		if err := fn(res, mod[name]); err != nil {
			return nil, err
		}
	}
	return m.restoreID(obj, res), nil
}

// merge copies the top level fields of mod onto res.
func (m *Modifier) merge(res domain.Document, mod domain.Document) error {
	for k, v := range mod {
		value, err := data.Value(v)
		if err != nil {
			return err
		}
		res[k] = data.CloneValue(value)
	}
	return nil
}

func (m *Modifier) set(res domain.Document, arg any) error {
	fields, err := m.docFac(arg)
	if err != nil {
		return err
	}
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		addr := m.fieldNavigator.GetAddress(k)
		if err := m.fieldNavigator.SetField(res, data.CloneValue(fields[k]), addr...); err != nil {
			return err
		}
	}
	return nil
}

// restoreID puts back the identity obj had before the update, or removes the
// field if obj had none.
func (m *Modifier) restoreID(obj, res domain.Document) domain.Document {
	if id, ok := obj[domain.IDField]; ok {
		res[domain.IDField] = id
	} else {
		delete(res, domain.IDField)
	}
	return res
}
