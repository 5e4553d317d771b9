package aggregator

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// ErrNoResolver is returned by $lookup when the pipeline runs without a way
// to read other collections.
var ErrNoResolver = errors.New("no collection resolver")

type projection struct {
	addr     []string
	include  bool
	computed bool
	expr     any
}

func (a *Aggregator) project(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	def, ok := arg.(domain.Document)
	if !ok || len(def) == 0 {
		return nil, domain.ErrCompArgType{Comp: "$project", Want: "non-empty document", Actual: arg}
	}

	keepID := true
	var fields []projection
	inclusion, exclusion := false, false
	for _, k := range slices.Sorted(maps.Keys(def)) {
		p := projection{addr: a.fieldNavigator.GetAddress(k), expr: def[k]}
		switch v := def[k].(type) {
		case bool:
			p.include = v
		default:
			if n, isNum := asFloat(v); isNum {
				p.include = n != 0
			} else {
				p.include, p.computed = true, true
			}
		}

		if k == domain.IDField && !p.computed {
			keepID = p.include
			continue
		}
		if p.include {
			inclusion = true
		} else {
			exclusion = true
		}
		fields = append(fields, p)
	}
	if inclusion && exclusion {
		return nil, domain.ErrCompArgType{
			Comp:   "$project",
			Want:   "only inclusions or only exclusions",
			Actual: arg,
		}
	}

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		out, err := a.projectDoc(doc, fields, keepID, exclusion || len(fields) == 0)
		if err != nil {
			return nil, err
		}
		res[n] = out
	}
	return res, nil
}

func (a *Aggregator) projectDoc(doc domain.Document, fields []projection, keepID bool, exclude bool) (domain.Document, error) {
	if exclude {
		out := data.Clone(doc)
		for _, p := range fields {
			unset(out, p.addr)
		}
		if !keepID {
			delete(out, domain.IDField)
		}
		return out, nil
	}

	out := make(domain.Document, len(fields)+1)
	if id, ok := doc[domain.IDField]; ok && keepID {
		out[domain.IDField] = id
	}
	for _, p := range fields {
		var (
			v  any
			ok bool
		)
		if p.computed {
			v, ok = a.eval(doc, p.expr)
		} else {
			v, ok = a.fieldNavigator.GetField(doc, p.addr...)
		}
		if !ok {
			continue
		}
		if err := a.fieldNavigator.SetField(out, data.CloneValue(v), p.addr...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// unset removes the field at addr, if every parent is a document.
func unset(doc domain.Document, addr []string) {
	for len(addr) > 1 {
		next, ok := doc[addr[0]].(domain.Document)
		if !ok {
			return
		}
		doc, addr = next, addr[1:]
	}
	delete(doc, addr[0])
}

func (a *Aggregator) unwind(_ context.Context, docs []domain.Document, arg any, _ domain.CollectionResolver) ([]domain.Document, error) {
	var (
		pathExpr   any = arg
		preserve   bool
		indexField string
	)
	if def, ok := arg.(domain.Document); ok {
		pathExpr = def["path"]
		preserve, _ = def["preserveNullAndEmptyArrays"].(bool)
		indexField, _ = def["includeArrayIndex"].(string)
	}
	addr, ok := a.fieldPath(pathExpr)
	if !ok {
		return nil, domain.ErrCompArgType{Comp: "$unwind", Want: `"$field" path`, Actual: arg}
	}

	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		v, found := a.fieldNavigator.GetField(doc, addr...)
		lst, isList := v.([]any)
		switch {
		case !found || v == nil || (isList && len(lst) == 0):
			if !preserve {
				continue
			}
			if isList {
				unset(doc, addr)
			}
			if indexField != "" {
				doc[indexField] = nil
			}
			res = append(res, doc)
		case !isList:
			if indexField != "" {
				doc[indexField] = nil
			}
			res = append(res, doc)
		default:
			for n, item := range lst {
				out := data.Clone(doc)
				if err := a.fieldNavigator.SetField(out, data.CloneValue(item), addr...); err != nil {
					return nil, err
				}
				if indexField != "" {
					out[indexField] = n
				}
				res = append(res, out)
			}
		}
	}
	return res, nil
}

func (a *Aggregator) lookup(ctx context.Context, docs []domain.Document, arg any, resolve domain.CollectionResolver) ([]domain.Document, error) {
	def, ok := arg.(domain.Document)
	if !ok {
		return nil, domain.ErrCompArgType{Comp: "$lookup", Want: "document", Actual: arg}
	}
	var names [4]string
	for n, k := range [...]string{"from", "localField", "foreignField", "as"} {
		if names[n], ok = def[k].(string); !ok || names[n] == "" {
			return nil, domain.ErrCompArgType{Comp: "$lookup." + k, Want: "string", Actual: def[k]}
		}
	}
	if resolve == nil {
		return nil, ErrNoResolver
	}

	foreign, err := resolve(ctx, names[0])
	if err != nil {
		return nil, err
	}
	localAddr := a.fieldNavigator.GetAddress(names[1])
	foreignAddr := a.fieldNavigator.GetAddress(names[2])
	asAddr := a.fieldNavigator.GetAddress(names[3])

	for _, doc := range docs {
		local, _ := a.fieldNavigator.GetField(doc, localAddr...)
		joined := []any{}
		for _, f := range foreign {
			fv, _ := a.fieldNavigator.GetField(f, foreignAddr...)
			eq, err := a.lookupEqual(local, fv)
			if err != nil {
				return nil, err
			}
			if eq {
				joined = append(joined, data.Clone(f))
			}
		}
		if err := a.fieldNavigator.SetField(doc, joined, asAddr...); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// lookupEqual matches a local value against a foreign one. Missing fields
// count as nil and lists match if any of their items does.
func (a *Aggregator) lookupEqual(local, foreign any) (bool, error) {
	for _, l := range candidates(local) {
		for _, f := range candidates(foreign) {
			comp, err := a.comparer.Compare(l, f)
			if err != nil {
				return false, err
			}
			if comp == 0 {
				return true, nil
			}
		}
	}
	return false, nil
}

func candidates(v any) []any {
	if lst, ok := v.([]any); ok && len(lst) > 0 {
		return lst
	}
	return []any{v}
}
