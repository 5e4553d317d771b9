package cursor

import "github.com/vinicius-lino-figueiredo/ledgerdb/domain"

// WithDecoder sets the decoder used by [Cursor.Scan] and [Cursor.All].
func WithDecoder(d domain.Decoder) Option {
	return func(c *Cursor) {
		c.dec = d
	}
}

// WithComparer sets the comparer used to sort documents.
func WithComparer(c domain.Comparer) Option {
	return func(cur *Cursor) {
		cur.comp = c
	}
}

// WithFieldNavigator sets the field navigator used to read sort keys.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(c *Cursor) {
		c.fn = f
	}
}

// Option configures cursor behavior through the functional options pattern.
type Option func(*Cursor)
