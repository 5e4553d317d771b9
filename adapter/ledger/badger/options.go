package badger

import "github.com/rs/zerolog"

// Option configures a [Ledger].
type Option func(*Ledger)

// WithLogger sets the logger badger reports to. Badger's own messages below
// warning level are dropped.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Ledger) {
		b.logger = l.With().Str("component", "badger").Logger()
	}
}

// WithInMemory keeps every value in memory, ignoring the path.
func WithInMemory(inMemory bool) Option {
	return func(b *Ledger) {
		b.inMemory = inMemory
	}
}

// WithSyncWrites makes every write wait for the value log to be synced.
func WithSyncWrites(sync bool) Option {
	return func(b *Ledger) {
		b.syncWrites = sync
	}
}
