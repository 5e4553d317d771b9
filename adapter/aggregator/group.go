package aggregator

import (
	"context"
	"maps"
	"slices"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// accumulator folds the values of one group field.
type accumulator interface {
	add(v any, found bool) error
	result() any
}

type accField struct {
	name string
	expr any
	new  func() accumulator
}

type group struct {
	key  any
	accs []accumulator
}

// keyComparer orders group keys in the tree. Each key holds the position of
// its group, so values are never compared for anything but identity.
type keyComparer struct {
	comparer domain.Comparer
}

// CompareKeys implements [bst.Comparer].
func (k keyComparer) CompareKeys(a any, b any) (int, error) {
	return k.comparer.Compare(a, b)
}

// CompareValues implements [bst.Comparer].
func (k keyComparer) CompareValues(a int, b int) (bool, error) {
	return a == b, nil
}

// group buckets documents by the _id expression. A stage with a nil _id and
// no accumulators returns a single summary document holding the count and
// every document of the working set.
func (a *Aggregator) group(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	def, ok := arg.(domain.Document)
	if !ok {
		return nil, domain.ErrCompArgType{Comp: "$group", Want: "document", Actual: arg}
	}
	idExpr := def[domain.IDField]

	fields, err := a.accFields(def)
	if err != nil {
		return nil, err
	}

	if idExpr == nil && len(fields) == 0 {
		return a.summary(docs), nil
	}

	var tree bst.BST[any, int] = avl.NewBST(true, 8, bst.Comparer[any, int](keyComparer{comparer: a.comparer}))
	var groups []*group

	for _, doc := range docs {
		key, found := a.eval(doc, idExpr)
		if !found {
			key = nil
		}

		node, err := tree.Search(key)
		if err != nil {
			return nil, err
		}

		var g *group
		if node != nil {
			g = groups[node.Values()[0]]
		} else {
			g = &group{key: key, accs: make([]accumulator, len(fields))}
			for n, f := range fields {
				g.accs[n] = f.new()
			}
			if err := tree.Insert(key, len(groups)); err != nil {
				return nil, err
			}
			groups = append(groups, g)
		}

		for n, f := range fields {
			v, found := a.eval(doc, f.expr)
			if err := g.accs[n].add(v, found); err != nil {
				return nil, err
			}
		}
	}

	res := make([]domain.Document, 0, len(groups))
	for pos := range tree.GetAll() {
		g := groups[pos]
		out := domain.Document{domain.IDField: g.key}
		for n, f := range fields {
			out[f.name] = g.accs[n].result()
		}
		res = append(res, out)
	}
	return res, nil
}

func (a *Aggregator) summary(docs []domain.Document) []domain.Document {
	lst := make([]any, len(docs))
	for n, doc := range docs {
		lst[n] = doc
	}
	return []domain.Document{{
		domain.IDField: nil,
		"total":        len(docs),
		"data":         lst,
	}}
}

func (a *Aggregator) accFields(def domain.Document) ([]accField, error) {
	var fields []accField
	for _, name := range slices.Sorted(maps.Keys(def)) {
		if name == domain.IDField {
			continue
		}
		acc, ok := def[name].(domain.Document)
		if !ok || len(acc) != 1 {
			return nil, domain.ErrCompArgType{
				Comp:   "$group." + name,
				Want:   "single accumulator document",
				Actual: def[name],
			}
		}
		for op, expr := range acc {
			newAcc, ok := a.accumulatorFor(op)
			if !ok {
				return nil, domain.ErrUnknownOperator{Operator: op}
			}
			fields = append(fields, accField{name: name, expr: expr, new: newAcc})
		}
	}
	return fields, nil
}

func (a *Aggregator) accumulatorFor(op string) (func() accumulator, bool) {
	switch op {
	case "$sum":
		return func() accumulator { return &sumAcc{onlyInts: true} }, true
	case "$avg":
		return func() accumulator { return &avgAcc{} }, true
	case "$min":
		return func() accumulator { return &extremeAcc{comparer: a.comparer, sign: -1} }, true
	case "$max":
		return func() accumulator { return &extremeAcc{comparer: a.comparer, sign: 1} }, true
	case "$push":
		return func() accumulator { return &pushAcc{values: []any{}} }, true
	case "$first":
		return func() accumulator { return &firstAcc{} }, true
	case "$last":
		return func() accumulator { return &lastAcc{} }, true
	case "$count":
		return func() accumulator { return &countAcc{} }, true
	default:
		return nil, false
	}
}

// sumAcc keeps integer sums as int while every added value is an integer.
// Non-numeric values are ignored.
type sumAcc struct {
	onlyInts bool
	ints     int64
	floats   float64
}

func (s *sumAcc) add(v any, found bool) error {
	if !found {
		return nil
	}
	if i, ok := asInt(v); ok {
		s.ints += i
		return nil
	}
	if f, ok := asFloat(v); ok {
		s.onlyInts = false
		s.floats += f
	}
	return nil
}

func (s *sumAcc) result() any {
	if s.onlyInts {
		return int(s.ints)
	}
	return float64(s.ints) + s.floats
}

type avgAcc struct {
	sum float64
	n   int
}

func (s *avgAcc) add(v any, found bool) error {
	if f, ok := asFloat(v); ok && found {
		s.sum += f
		s.n++
	}
	return nil
}

func (s *avgAcc) result() any {
	if s.n == 0 {
		return nil
	}
	return s.sum / float64(s.n)
}

// extremeAcc keeps the lowest (sign -1) or highest (sign 1) value, ignoring
// missing and nil values.
type extremeAcc struct {
	comparer domain.Comparer
	sign     int
	value    any
	set      bool
}

func (s *extremeAcc) add(v any, found bool) error {
	if !found || v == nil {
		return nil
	}
	if !s.set {
		s.value, s.set = v, true
		return nil
	}
	comp, err := s.comparer.Compare(v, s.value)
	if err != nil {
		return err
	}
	if comp == s.sign {
		s.value = v
	}
	return nil
}

func (s *extremeAcc) result() any {
	return s.value
}

type pushAcc struct {
	values []any
}

func (s *pushAcc) add(v any, found bool) error {
	if found {
		s.values = append(s.values, v)
	}
	return nil
}

func (s *pushAcc) result() any {
	return s.values
}

type firstAcc struct {
	value any
	set   bool
}

func (s *firstAcc) add(v any, found bool) error {
	if !s.set {
		if found {
			s.value = v
		}
		s.set = true
	}
	return nil
}

func (s *firstAcc) result() any {
	return s.value
}

type lastAcc struct {
	value any
}

func (s *lastAcc) add(v any, found bool) error {
	if !found {
		v = nil
	}
	s.value = v
	return nil
}

func (s *lastAcc) result() any {
	return s.value
}

type countAcc struct {
	n int
}

func (s *countAcc) add(any, bool) error {
	s.n++
	return nil
}

func (s *countAcc) result() any {
	return s.n
}
