// Package matcher contains the default implementation of [domain.Matcher]
// using basic mongo-like match API.
package matcher

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {

	m := &Matcher{
		comparer: comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(
			data.NewDocument,
		),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(value any, query any) (bool, error) {
	qry, err := m.Compile(query)
	if err != nil {
		return false, err
	}
	return m.MatchQuery(value, qry)
}

// Compile parses query once so it can be evaluated against many values with
// [Matcher.MatchQuery]. A nil or empty query matches everything; a query that
// is not a document is compared to the whole value.
func (m *Matcher) Compile(query any) (qry Query, err error) {
	if query == nil {
		return qry, nil
	}
	q, err := data.Value(query)
	if err != nil {
		return qry, err
	}
	mapping, ok := q.(domain.Document)
	if !ok {
		qry.Lo.Rules = []FieldRule{{Conds: []Cond{{Op: Eq, Val: q}}}}
		return qry, nil
	}
	qry.Lo, err = m.makeQueryOp(mapping)
	return qry, err
}

func (m *Matcher) makeQueryOp(mapping domain.Document) (lo LogicOp, err error) {
	var ops, plain, logical int
	for k := range mapping {
		switch {
		case m.isLogical(k):
			logical++
		case strings.HasPrefix(k, "$"):
			ops++
		default:
			plain++
		}
	}

	// operators applied to the matched value itself
	if ops > 0 {
		if plain > 0 || logical > 0 {
			return lo, domain.ErrMixedOperators
		}
		rule, err := m.makeDollarRule(nil, mapping)
		if err != nil {
			return lo, err
		}
		lo.Rules = []FieldRule{rule}
		return lo, nil
	}

	lo.Rules = make([]FieldRule, 0, plain)
	for _, key := range slices.Sorted(maps.Keys(mapping)) {
		value := mapping[key]
		switch key {
		case "$and":
			sub, err := m.makeLogicOp(And, key, value)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, sub)
		case "$or":
			sub, err := m.makeLogicOp(Or, key, value)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, sub)
		case "$nor":
			sub, err := m.makeLogicOp(Nor, key, value)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, sub)
		default:
			rule, err := m.makeFieldRule(key, value)
			if err != nil {
				return lo, err
			}
			lo.Rules = append(lo.Rules, rule)
		}
	}
	return lo, nil
}

func (m *Matcher) isLogical(key string) bool {
	return key == "$and" || key == "$or" || key == "$nor"
}

func (m *Matcher) makeLogicOp(typ uint8, name string, v any) (LogicOp, error) {
	lo := LogicOp{Type: typ}
	items, ok := v.([]any)
	if !ok {
		return lo, domain.ErrCompArgType{Comp: name, Want: "list", Actual: v}
	}
	lo.Sub = make([]LogicOp, 0, len(items))
	for _, item := range items {
		doc, ok := item.(domain.Document)
		if !ok {
			return lo, domain.ErrCompArgType{Comp: name, Want: "list of documents", Actual: item}
		}
		sub, err := m.makeQueryOp(doc)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) makeFieldRule(field string, obj any) (fr FieldRule, err error) {
	addr := m.fieldNavigator.GetAddress(field)

	switch t := obj.(type) {
	case *regexp.Regexp:
		return FieldRule{Addr: addr, Conds: []Cond{{Op: Regex, Rgx: t}}}, nil
	case domain.Document:
		var dollar int
		for k := range t {
			if strings.HasPrefix(k, "$") {
				dollar++
			}
		}
		if dollar == 0 {
			break
		}
		if dollar != len(t) {
			return fr, domain.ErrMixedOperators
		}
		return m.makeDollarRule(addr, t)
	}

	return FieldRule{Addr: addr, Conds: []Cond{{Op: Eq, Val: obj}}}, nil
}

func (m *Matcher) makeDollarRule(addr []string, mapping domain.Document) (fr FieldRule, err error) {
	rule := FieldRule{
		Addr:  addr,
		Conds: make([]Cond, 0, len(mapping)),
	}

	options, hasOptions := mapping["$options"]
	if _, hasRegex := mapping["$regex"]; hasOptions && !hasRegex {
		return fr, domain.ErrCompArgType{Comp: "$options", Want: "$regex alongside", Actual: options}
	}

	var cond Cond
	for _, key := range slices.Sorted(maps.Keys(mapping)) {
		switch key {
		case "$options":
			continue
		case "$regex":
			cond, err = m.makeRegex(mapping[key], options)
		default:
			cond, err = m.makeCond(key, mapping[key])
		}
		if err != nil {
			return fr, err
		}
		rule.Conds = append(rule.Conds, cond)
	}

	return rule, nil
}

func (m *Matcher) makeCond(k string, v any) (cond Cond, err error) {
	switch k {
	case "$eq":
		return Cond{Op: Eq, Val: v}, nil
	case "$ne":
		return Cond{Op: Ne, Val: v}, nil
	case "$lt":
		return Cond{Op: Lt, Val: v}, nil
	case "$lte":
		return Cond{Op: Lte, Val: v}, nil
	case "$gt":
		return Cond{Op: Gt, Val: v}, nil
	case "$gte":
		return Cond{Op: Gte, Val: v}, nil
	case "$in":
		return m.makeList(In, k, v)
	case "$nin":
		return m.makeList(Nin, k, v)
	case "$exists":
		return m.makeExists(v)
	default:
		return cond, domain.ErrUnknownOperator{Operator: k}
	}
}

func (m *Matcher) makeList(op uint8, name string, v any) (cond Cond, err error) {
	lst, ok := v.([]any)
	if !ok {
		return cond, domain.ErrCompArgType{Comp: name, Want: "list", Actual: v}
	}
	return Cond{Op: op, List: lst}, nil
}

func (m *Matcher) makeExists(v any) (Cond, error) {
	if v == nil {
		return Cond{Op: Exists, Val: false}, nil
	}
	if exists, ok := v.(bool); ok {
		return Cond{Op: Exists, Val: exists}, nil
	}
	if m.comparer.Comparable(v, 0) {
		c, err := m.comparer.Compare(v, 0)
		return Cond{Op: Exists, Val: c != 0}, err
	}
	return Cond{Op: Exists, Val: true}, nil
}

func (m *Matcher) makeRegex(v any, options any) (cond Cond, err error) {
	flags, err := m.regexFlags(options)
	if err != nil {
		return cond, err
	}

	var pattern string
	switch t := v.(type) {
	case *regexp.Regexp:
		if flags == "" {
			return Cond{Op: Regex, Rgx: t}, nil
		}
		pattern = t.String()
	case string:
		pattern = t
	default:
		return cond, domain.ErrCompArgType{Comp: "$regex", Want: "string or regexp", Actual: v}
	}

	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	rgx, err := regexp.Compile(pattern)
	if err != nil {
		return cond, fmt.Errorf("$regex: %w", err)
	}
	return Cond{Op: Regex, Rgx: rgx}, nil
}

// regexFlags translates $options into Go inline flags. Global and unicode
// flags have no meaning for a single match and are dropped.
func (m *Matcher) regexFlags(options any) (string, error) {
	if options == nil {
		return "", nil
	}
	opts, ok := options.(string)
	if !ok {
		return "", domain.ErrCompArgType{Comp: "$options", Want: "string", Actual: options}
	}
	var flags []rune
	for _, r := range opts {
		switch r {
		case 'i', 'm', 's':
			if !slices.Contains(flags, r) {
				flags = append(flags, r)
			}
		case 'g', 'u':
		default:
			return "", fmt.Errorf("$options: unsupported flag %q: %w", r,
				domain.ErrCompArgType{Comp: "$options", Want: "flags among imsgu", Actual: options})
		}
	}
	return string(flags), nil
}

// MatchQuery evaluates a compiled query against value.
func (m *Matcher) MatchQuery(value any, query Query) (bool, error) {
	return m.matchLogicOp(value, query.Lo)
}

func (m *Matcher) matchLogicOp(value any, lo LogicOp) (bool, error) {
	switch lo.Type {
	case And:
		for _, rule := range lo.Rules {
			matches, err := m.matchRule(value, rule)
			if err != nil || !matches {
				return false, err
			}
		}
		for _, sub := range lo.Sub {
			matches, err := m.matchLogicOp(value, sub)
			if err != nil || !matches {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, sub := range lo.Sub {
			matches, err := m.matchLogicOp(value, sub)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	case Nor:
		for _, sub := range lo.Sub {
			matches, err := m.matchLogicOp(value, sub)
			if err != nil {
				return false, err
			}
			if matches {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, nil
	}
}

func (m *Matcher) matchRule(value any, rule FieldRule) (bool, error) {
	actual, found := value, true
	if len(rule.Addr) > 0 {
		actual, found = m.fieldNavigator.GetField(value, rule.Addr...)
	}

	for _, cond := range rule.Conds {
		matches, err := m.matchCond(actual, found, cond)
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchCond(actual any, found bool, cond Cond) (bool, error) {
	switch cond.Op {
	case Exists:
		return found == cond.Val.(bool), nil
	case Ne:
		if !found {
			return true, nil
		}
		eq, err := m.equal(actual, cond.Val)
		return !eq, err
	case Nin:
		if !found {
			return true, nil
		}
		in, err := m.contains(cond.List, actual)
		return !in, err
	}

	if !found {
		return false, nil
	}

	switch cond.Op {
	case Eq:
		return m.equal(actual, cond.Val)
	case In:
		return m.contains(cond.List, actual)
	case Regex:
		return m.regex(actual, cond.Rgx), nil
	case Lt, Lte, Gt, Gte:
		return m.order(actual, cond)
	default:
		return false, nil
	}
}

func (m *Matcher) equal(a, b any) (bool, error) {
	c, err := m.comparer.Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func (m *Matcher) contains(lst []any, v any) (bool, error) {
	for _, item := range lst {
		eq, err := m.equal(v, item)
		if err != nil || eq {
			return eq, err
		}
	}
	return false, nil
}

func (m *Matcher) regex(actual any, rgx *regexp.Regexp) bool {
	switch t := actual.(type) {
	case string:
		return rgx.MatchString(t)
	case domain.ID:
		return rgx.MatchString(string(t))
	default:
		return false
	}
}

func (m *Matcher) order(actual any, cond Cond) (bool, error) {
	if !m.comparer.Comparable(actual, cond.Val) {
		return false, nil
	}
	c, err := m.comparer.Compare(actual, cond.Val)
	if err != nil {
		return false, err
	}
	switch cond.Op {
	case Lt:
		return c < 0, nil
	case Lte:
		return c <= 0, nil
	case Gt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}
