// Package cursor contains the default [domain.Cursor] implementation.
//
// A cursor holds a snapshot of documents and a description of the sort, skip
// and limit to apply to it. The description is only evaluated when the cursor
// is read, always sorting first, then skipping, then limiting.
package cursor

import (
	"context"
	"slices"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/data"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// Cursor implements domain.Cursor.
type Cursor struct {
	data   []domain.Document
	parent context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	comp   domain.Comparer
	fn     domain.FieldNavigator

	sort  domain.Sort
	skip  int64
	limit int64 // negative when unset

	rows  []domain.Document
	index int64
}

// NewCursor returns a new implementation of Cursor over dt. The slice is
// owned by the cursor afterwards and is never modified.
func NewCursor(ctx context.Context, dt []domain.Document, options ...Option) (domain.Cursor, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	cur := &Cursor{
		parent: ctx,
		data:   dt,
		dec:    decoder.NewDecoder(),
		comp:   comparer.NewComparer(),
		fn:     fieldnavigator.NewFieldNavigator(data.NewDocument),
		limit:  -1,
		index:  -1,
	}

	for _, option := range options {
		option(cur)
	}

	cur.ctx, cur.cancel = context.WithCancelCause(ctx)

	return cur, nil
}

// NewFactory returns a [domain.CursorFactory] creating cursors with the given
// options.
func NewFactory(options ...Option) domain.CursorFactory {
	return func(ctx context.Context, dt []domain.Document) (domain.Cursor, error) {
		return NewCursor(ctx, dt, options...)
	}
}

// Sort implements domain.Cursor.
func (c *Cursor) Sort(s domain.Sort) domain.Cursor {
	return c.derive(func(n *Cursor) { n.sort = slices.Clone(s) })
}

// Skip implements domain.Cursor.
func (c *Cursor) Skip(n int64) domain.Cursor {
	return c.derive(func(cur *Cursor) { cur.skip = max(n, 0) })
}

// Limit implements domain.Cursor.
func (c *Cursor) Limit(n int64) domain.Cursor {
	return c.derive(func(cur *Cursor) { cur.limit = max(n, -1) })
}

func (c *Cursor) derive(change func(*Cursor)) domain.Cursor {
	n := &Cursor{
		parent: c.parent,
		data:   c.data,
		dec:    c.dec,
		comp:   c.comp,
		fn:     c.fn,
		sort:   c.sort,
		skip:   c.skip,
		limit:  c.limit,
		index:  -1,
	}
	change(n)
	n.ctx, n.cancel = context.WithCancelCause(c.parent)
	if c.ctx.Err() != nil {
		n.cancel(context.Cause(c.ctx))
	}
	return n
}

// ToArray implements domain.Cursor. Every call returns new copies of the
// documents.
func (c *Cursor) ToArray(ctx context.Context) ([]domain.Document, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}
	rows, err := c.materialize()
	if err != nil {
		return nil, err
	}
	return data.CloneAll(rows), nil
}

// All implements domain.Cursor.
func (c *Cursor) All(ctx context.Context, target any) error {
	rows, err := c.ToArray(ctx)
	if err != nil {
		return err
	}
	return c.dec.Decode(rows, target)
}

// Err implements domain.Cursor.
func (c *Cursor) Err() error {
	return context.Cause(c.ctx)
}

// Scan implements domain.Cursor.
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if c.index < 0 {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.rows[c.index], target)
}

// Close implements domain.Cursor.
func (c *Cursor) Close() error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	default:
	}
	c.cancel(domain.ErrCursorClosed)
	c.data, c.rows = nil, nil
	return nil
}

// Next implements domain.Cursor.
func (c *Cursor) Next() bool {
	select {
	case <-c.ctx.Done():
		return false
	default:
	}
	if c.rows == nil {
		rows, err := c.materialize()
		if err != nil {
			c.cancel(err)
			return false
		}
		c.rows = rows
	}
	if c.index+1 < int64(len(c.rows)) {
		c.index++
		return true
	}
	return false
}

func (c *Cursor) check(ctx context.Context) error {
	select {
	case <-c.ctx.Done():
		return context.Cause(c.ctx)
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (c *Cursor) materialize() ([]domain.Document, error) {
	rows := slices.Clone(c.data)
	if rows == nil {
		rows = []domain.Document{}
	}

	if len(c.sort) > 0 {
		if err := c.sortRows(rows); err != nil {
			return nil, err
		}
	}

	skip := min(c.skip, int64(len(rows)))
	rows = rows[skip:]

	if c.limit >= 0 && c.limit < int64(len(rows)) {
		rows = rows[:c.limit]
	}
	return rows, nil
}

func (c *Cursor) sortRows(rows []domain.Document) error {
	addrs := make([][]string, len(c.sort))
	for n, s := range c.sort {
		addrs[n] = c.fn.GetAddress(s.Key)
	}

	var err error
	slices.SortStableFunc(rows, func(a, b domain.Document) int {
		if err != nil {
			return 0
		}
		for n, s := range c.sort {
			var comp int
			comp, err = c.comp.Compare(c.sortValue(a, addrs[n]), c.sortValue(b, addrs[n]))
			if err != nil {
				return 0
			}
			if comp != 0 {
				if s.Order < 0 {
					return -comp
				}
				return comp
			}
		}
		return 0
	})
	return err
}

func (c *Cursor) sortValue(doc domain.Document, addr []string) any {
	v, ok := c.fn.GetField(doc, addr...)
	if !ok {
		return domain.Undefined{}
	}
	return v
}
