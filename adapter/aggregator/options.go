package aggregator

import "github.com/vinicius-lino-figueiredo/ledgerdb/domain"

// WithMatcher sets the matcher used by $match.
func WithMatcher(m domain.Matcher) Option {
	return func(a *Aggregator) {
		a.matcher = m
	}
}

// WithComparer sets the comparer used to order group keys, to compare
// $lookup fields and to evaluate $min and $max.
func WithComparer(c domain.Comparer) Option {
	return func(a *Aggregator) {
		a.comparer = c
	}
}

// WithFieldNavigator sets the field navigator used to resolve field paths.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(a *Aggregator) {
		a.fieldNavigator = f
	}
}

// WithCursorFactory sets the cursor factory used by $sort.
func WithCursorFactory(f domain.CursorFactory) Option {
	return func(a *Aggregator) {
		a.cursorFactory = f
	}
}

// Option configures aggregator behavior through the functional options
// pattern.
type Option func(*Aggregator)
