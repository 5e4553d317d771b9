package idgenerator

import (
	"io"

	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// WithReader sets the reader that will provide random bytes.
func WithReader(r io.Reader) Option {
	return func(igo *IDGenerator) {
		igo.reader = r
	}
}

// WithTimeGetter sets the clock used for the time part of identities.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(igo *IDGenerator) {
		igo.timeGetter = t
	}
}

// WithSuffixLength sets how many random characters follow the time part.
// Values lower than one are ignored.
func WithSuffixLength(l int) Option {
	return func(igo *IDGenerator) {
		if l > 0 {
			igo.suffixLen = l
		}
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*IDGenerator)
