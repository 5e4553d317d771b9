// Package aggregator contains the default [domain.Aggregator] implementation.
//
// A pipeline is a list of single-key documents, each naming a stage. Stages
// run in order and each one receives the output of the previous one. The
// supported stages are $match, $sort, $skip, $limit, $project, $unwind,
// $lookup, $count and $group.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

type stageFunc func(ctx context.Context, docs []domain.Document, arg any, resolve domain.CollectionResolver) ([]domain.Document, error)

// Aggregator implements [domain.Aggregator].
type Aggregator struct {
	matcher        domain.Matcher
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	cursorFactory  domain.CursorFactory
	stages         map[string]stageFunc
}

// NewAggregator returns a new implementation of [domain.Aggregator].
func NewAggregator(options ...Option) domain.Aggregator {
	a := &Aggregator{
		comparer:       comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(data.NewDocument),
	}
	for _, option := range options {
		option(a)
	}
	if a.matcher == nil {
		a.matcher = matcher.NewMatcher(
			matcher.WithComparer(a.comparer),
			matcher.WithFieldNavigator(a.fieldNavigator),
		)
	}
	if a.cursorFactory == nil {
		a.cursorFactory = cursor.NewFactory(
			cursor.WithComparer(a.comparer),
			cursor.WithFieldNavigator(a.fieldNavigator),
		)
	}

	a.stages = map[string]stageFunc{
		"$match":   a.match,
		"$sort":    a.sort,
		"$skip":    a.skip,
		"$limit":   a.limit,
		"$project": a.project,
		"$unwind":  a.unwind,
		"$lookup":  a.lookup,
		"$count":   a.count,
		"$group":   a.group,
	}
	return a
}

// Aggregate implements [domain.Aggregator]. The input documents are not
// modified.
func (a *Aggregator) Aggregate(ctx context.Context, docs []domain.Document, pipeline []domain.Document, resolve domain.CollectionResolver) ([]domain.Document, error) {
	res := data.CloneAll(docs)
	for _, stage := range pipeline {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name, arg, err := a.stageOf(stage)
		if err != nil {
			return nil, err
		}
		fn, ok := a.stages[name]
		if !ok {
			return nil, domain.ErrUnknownStage{Stage: name}
		}
		if res, err = fn(ctx, res, arg, resolve); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return res, nil
}

func (a *Aggregator) stageOf(stage domain.Document) (string, any, error) {
	if len(stage) != 1 {
		return "", nil, domain.ErrCompArgType{
			Comp:   "pipeline stage",
			Want:   "document with a single key",
			Actual: stage,
		}
	}
	for name, arg := range stage {
		v, err := data.Value(arg)
		if err != nil {
			return "", nil, err
		}
		return name, v, nil
	}
	return "", nil, nil
}

func (a *Aggregator) match(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	if _, ok := arg.(domain.Document); !ok && arg != nil {
		return nil, domain.ErrCompArgType{Comp: "$match", Want: "document", Actual: arg}
	}
	match := func(doc domain.Document) (bool, error) { return a.matcher.Match(doc, arg) }
	if cm, ok := a.matcher.(interface {
		Compile(query any) (matcher.Query, error)
		MatchQuery(value any, query matcher.Query) (bool, error)
	}); ok {
		qry, err := cm.Compile(arg)
		if err != nil {
			return nil, err
		}
		match = func(doc domain.Document) (bool, error) { return cm.MatchQuery(doc, qry) }
	}

	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := match(doc)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (a *Aggregator) sort(ctx context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	s, err := a.sortSpec(arg)
	if err != nil {
		return nil, err
	}
	cur, err := a.cursorFactory(ctx, docs)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return cur.Sort(s).ToArray(ctx)
}

// sortSpec accepts a [domain.Sort], a document with a single key, or a list
// of such documents.
func (a *Aggregator) sortSpec(arg any) (domain.Sort, error) {
	switch t := arg.(type) {
	case domain.Sort:
		return t, nil
	case domain.Document:
		if len(t) != 1 {
			return nil, domain.ErrCompArgType{
				Comp:   "$sort",
				Want:   "single-key document or list of them",
				Actual: arg,
			}
		}
		for k, v := range t {
			order, err := a.sortOrder(v)
			if err != nil {
				return nil, err
			}
			return domain.Sort{{Key: k, Order: order}}, nil
		}
	case []any:
		s := make(domain.Sort, 0, len(t))
		for _, item := range t {
			part, err := a.sortSpec(item)
			if err != nil {
				return nil, err
			}
			s = append(s, part...)
		}
		return s, nil
	}
	return nil, domain.ErrCompArgType{
		Comp:   "$sort",
		Want:   "single-key document or list of them",
		Actual: arg,
	}
}

func (a *Aggregator) sortOrder(v any) (int64, error) {
	n, ok := asFloat(v)
	if !ok || (n != 1 && n != -1) {
		return 0, domain.ErrCompArgType{Comp: "$sort", Want: "1 or -1", Actual: v}
	}
	return int64(n), nil
}

func (a *Aggregator) skip(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	n, err := a.count64("$skip", arg)
	if err != nil {
		return nil, err
	}
	return docs[min(n, int64(len(docs))):], nil
}

func (a *Aggregator) limit(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	n, err := a.count64("$limit", arg)
	if err != nil {
		return nil, err
	}
	return docs[:min(n, int64(len(docs)))], nil
}

func (a *Aggregator) count64(stage string, arg any) (int64, error) {
	n, ok := asFloat(arg)
	if !ok || n < 0 || n != math.Trunc(n) {
		return 0, domain.ErrCompArgType{Comp: stage, Want: "non-negative integer", Actual: arg}
	}
	return int64(n), nil
}

func (a *Aggregator) count(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	field, ok := arg.(string)
	if !ok || field == "" || strings.HasPrefix(field, "$") || strings.Contains(field, ".") {
		return nil, domain.ErrCompArgType{Comp: "$count", Want: "field name", Actual: arg}
	}
	if len(docs) == 0 {
		return []domain.Document{}, nil
	}
	return []domain.Document{{field: len(docs)}}, nil
}

// fieldPath returns the path referenced by a "$field" expression.
func (a *Aggregator) fieldPath(expr any) ([]string, bool) {
	s, ok := expr.(string)
	if !ok || len(s) < 2 || s[0] != '$' {
		return nil, false
	}
	return a.fieldNavigator.GetAddress(s[1:]), true
}

// eval resolves an expression against doc. Field references are looked up,
// documents and lists are evaluated item by item and anything else is a
// literal. The returned bool is false when a referenced field is missing.
func (a *Aggregator) eval(doc domain.Document, expr any) (any, bool) {
	if addr, ok := a.fieldPath(expr); ok {
		return a.fieldNavigator.GetField(doc, addr...)
	}
	switch t := expr.(type) {
	case domain.Document:
		res := make(domain.Document, len(t))
		for k, v := range t {
			if val, ok := a.eval(doc, v); ok {
				res[k] = val
			}
		}
		return res, true
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			val, ok := a.eval(doc, v)
			if !ok {
				val = nil
			}
			res[n] = val
		}
		return res, true
	default:
		return expr, true
	}
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
