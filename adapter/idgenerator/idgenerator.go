// Package idgenerator contains the default [domain.IDGenerator] implementation.
//
// Identities have the form <unix millis>-<suffix>, where suffix holds
// alphanumeric characters taken from base64-encoded random bytes. The time
// part keeps identities roughly ordered by creation and the suffix keeps
// documents inserted in the same millisecond apart.
package idgenerator

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strconv"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

// DefaultSuffixLength is the number of random characters of an identity.
const DefaultSuffixLength = 8

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader     io.Reader
	timeGetter domain.TimeGetter
	suffixLen  int
}

// NewIDGenerator returns a new implementation of [domain.IDGenerator].
func NewIDGenerator(opts ...Option) domain.IDGenerator {
	i := IDGenerator{
		reader:     rand.Reader,
		timeGetter: timegetter.NewTimeGetter(),
		suffixLen:  DefaultSuffixLength,
	}
	for _, opt := range opts {
		opt(&i)
	}
	return &i
}

// GenerateID implements [domain.IDGenerator].
func (i *IDGenerator) GenerateID() (domain.ID, error) {
	suffix, err := i.suffix(i.suffixLen)
	if err != nil {
		return "", err
	}
	ms := i.timeGetter.GetTime().UnixMilli()
	return domain.ID(strconv.FormatInt(ms, 10) + "-" + suffix), nil
}

func (i *IDGenerator) suffix(l int) (string, error) {
	res := make([]byte, 0, l)
	for len(res) < l {
		buf := make([]byte, max(8, l*2))
		if _, err := io.ReadFull(i.reader, buf); err != nil {
			return "", err
		}
		for _, b := range []byte(base64.StdEncoding.EncodeToString(buf)) {
			switch b {
			case '+', '/', '=':
			default:
				res = append(res, b)
			}
			if len(res) == l {
				break
			}
		}
	}
	return string(res), nil
}
