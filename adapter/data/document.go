// Package data converts caller values into [domain.Document] instances and
// copies documents so stored data is never shared with callers.
package data

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// TagName is the struct tag read when converting structs into documents.
const TagName = "ledger"

var timeTyp = goreflect.TypeOf(*new(time.Time))

// NewDocument returns a new [domain.Document] holding the same data as in. It
// accepts maps with string keys and structs, or pointers to them; nil returns
// an empty document. Nested maps, structs, slices and arrays are converted
// recursively, so the result only holds documents, lists and scalars.
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return domain.Document{}, nil
	}
	if m, ok := in.(map[string]any); ok {
		return convertMap(m)
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == reflect.Pointer {
		if r.IsNil() {
			return domain.Document{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if k != goreflect.Struct && k != goreflect.Map {
		return nil, domain.ErrDocumentType{
			Reason: fmt.Sprintf("expected map or struct, got %s", r.Type().String()),
		}
	}
	if k == goreflect.Map && r.Type().Key().Kind() != reflect.String {
		return nil, domain.ErrDocumentType{Reason: "map keys must be strings"}
	}
	v, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	return v.(domain.Document), nil
}

// Value converts a single value the same way [NewDocument] converts fields.
func Value(in any) (any, error) {
	if v, ok, err := simple(in); ok || err != nil {
		return v, err
	}
	return parseReflect(goreflect.ValueNoEscapeOf(in))
}

// Clone returns a deep copy of doc. Lists and nested documents are copied,
// other values are shared.
func Clone(doc domain.Document) domain.Document {
	if doc == nil {
		return nil
	}
	res := make(domain.Document, len(doc))
	for k, v := range doc {
		res[k] = CloneValue(v)
	}
	return res
}

// CloneAll returns a deep copy of every document in docs.
func CloneAll(docs []domain.Document) []domain.Document {
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = Clone(doc)
	}
	return res
}

// CloneValue returns a deep copy of v if it is a document or a list, or v
// itself otherwise.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Clone(t)
	case []any:
		lst := make([]any, len(t))
		for n, item := range t {
			lst[n] = CloneValue(item)
		}
		return lst
	default:
		return v
	}
}

// simple handles values that must not be walked by reflection.
func simple(v any) (any, bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, true, nil
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t, true, nil
	case domain.ID, time.Time, *regexp.Regexp, domain.Sort:
		return t, true, nil
	case map[string]any:
		doc, err := convertMap(t)
		return doc, true, err
	case []any:
		lst := make([]any, len(t))
		for n, item := range t {
			var err error
			if lst[n], err = Value(item); err != nil {
				return nil, true, err
			}
		}
		return lst, true, nil
	default:
		return nil, false, nil
	}
}

func convertMap(m map[string]any) (domain.Document, error) {
	res := make(domain.Document, len(m))
	for k, v := range m {
		var err error
		if res[k], err = Value(v); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func parseReflect(r goreflect.Value) (any, error) {
	for r.Kind() == reflect.Pointer || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		r = r.Elem()
	}
	if r.IsValid() && r.CanInterface() {
		if v, ok, err := simple(r.Interface()); ok || err != nil {
			return v, err
		}
	}
	switch r.Kind() {
	case goreflect.Invalid:
		return nil, nil
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		fallthrough
	case goreflect.Array:
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMapReflect(r)
	case goreflect.Chan, goreflect.Func:
		return nil, domain.ErrDocumentType{
			Reason: fmt.Sprintf("unsupported value of kind %s", r.Kind()),
		}
	case goreflect.String:
		return r.String(), nil
	case goreflect.Bool:
		return r.Bool(), nil
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		return r.Int(), nil
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64:
		return r.Uint(), nil
	case goreflect.Float32, goreflect.Float64:
		return r.Float(), nil
	default:
		return r.Interface(), nil
	}
}

func parseStruct(r goreflect.Value) (domain.Document, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(domain.Document, numField)

	for n := range numField {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		fieldValue := r.Field(n)

		name, keep := fieldName(fieldValue, field)
		if !keep {
			continue
		}
		value, err := parseReflect(fieldValue)
		if err != nil {
			return nil, err
		}
		res[name] = value
	}
	return res, nil
}

func fieldName(r goreflect.Value, field goreflect.StructField) (string, bool) {
	name := field.Name
	var tagSegments []string
	if tag, ok := field.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return "", false
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isNullable(r.Kind()) && r.IsNil() {
		return "", false
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return "", false
	}
	return name, true
}

func parseMapReflect(r goreflect.Value) (domain.Document, error) {
	if r.Type().Key().Kind() != reflect.String {
		return nil, domain.ErrDocumentType{Reason: "map keys must be strings"}
	}
	res := make(domain.Document, r.Len())
	for _, k := range r.MapKeys() {
		v, err := parseReflect(r.MapIndex(k))
		if err != nil {
			return nil, err
		}
		res[k.String()] = v
	}
	return res, nil
}

func parseList(r goreflect.Value) ([]any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		v, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func isNullable(k goreflect.Kind) bool {
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface
}
