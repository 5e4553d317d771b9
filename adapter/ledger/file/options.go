package file

import "os"

// Option configures a [Ledger].
type Option func(*Ledger)

// WithDirMode sets the permission used to create the ledger directory.
func WithDirMode(mode os.FileMode) Option {
	return func(l *Ledger) {
		l.dirMode = mode
	}
}

// WithFileMode sets the permission used to create value files.
func WithFileMode(mode os.FileMode) Option {
	return func(l *Ledger) {
		l.fileMode = mode
	}
}

func withOS(o osOps) Option {
	return func(l *Ledger) {
		l.os = o
	}
}
