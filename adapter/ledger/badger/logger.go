package badger

import "github.com/rs/zerolog"

// logAdapter routes badger's log output to zerolog.
type logAdapter struct {
	logger zerolog.Logger
}

func (a logAdapter) Errorf(format string, args ...any) {
	a.logger.Error().Msgf(format, args...)
}

func (a logAdapter) Warningf(format string, args ...any) {
	a.logger.Warn().Msgf(format, args...)
}

func (a logAdapter) Infof(format string, args ...any) {
	a.logger.Debug().Msgf(format, args...)
}

func (a logAdapter) Debugf(format string, args ...any) {
	a.logger.Trace().Msgf(format, args...)
}
