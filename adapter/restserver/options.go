package restserver

import (
	"time"

	"github.com/rs/zerolog"
)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithShutdownTimeout bounds the graceful shutdown of [Server.Run].
func WithShutdownTimeout(t time.Duration) Option {
	return func(s *Server) {
		if t > 0 {
			s.shutdownTimeout = t
		}
	}
}

// Option configures the server through the functional options pattern.
type Option func(*Server)
