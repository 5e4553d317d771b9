package modifier

import "github.com/vinicius-lino-figueiredo/ledgerdb/domain"

// WithFieldNavigator sets the field navigator used to resolve dotted keys in
// $set.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(m *Modifier) {
		m.fieldNavigator = f
	}
}

// WithDocumentFactory sets the function used to normalise update values.
func WithDocumentFactory(f func(any) (domain.Document, error)) Option {
	return func(m *Modifier) {
		m.docFac = f
	}
}

// Option configures modifier behavior through the functional options pattern.
type Option func(*Modifier)
