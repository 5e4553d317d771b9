// Package restserver serves a [domain.Database] over the REST surface used by
// adapter/remote, so remote mode can run against a local ledger.
package restserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vinicius-lino-figueiredo/ledgerdb/adapter/wire"
	"github.com/vinicius-lino-figueiredo/ledgerdb/domain"
)

const (
	opKey             = "ledgerdb.operation"
	collParam         = "coll"
	defaultShutdown   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server is the REST backend.
type Server struct {
	db              domain.Database
	engine          *gin.Engine
	registry        *prometheus.Registry
	metrics         *metrics
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

// New returns a server for db. Every server has its own metrics registry,
// exposed at /metrics.
func New(db domain.Database, options ...Option) *Server {
	s := &Server{
		db:              db,
		registry:        prometheus.NewRegistry(),
		logger:          zerolog.Nop(),
		shutdownTimeout: defaultShutdown,
	}
	for _, option := range options {
		option(s)
	}
	s.logger = s.logger.With().Str("component", "restserver").Logger()
	s.metrics = newMetrics(s.registry)

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.observe)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.GET("/db-stats", s.stats)

	coll := api.Group("/:" + collParam)
	coll.GET("", s.find)
	coll.GET("/one", s.findOne)
	coll.GET("/count", s.count)
	coll.GET("/indexes", s.indexes)
	coll.POST("", s.insertOne)
	coll.POST("/bulk", s.insertMany)
	coll.POST("/aggregate", s.aggregate)
	coll.PATCH("", s.update)
	coll.DELETE("", s.delete)
	coll.DELETE("/all", s.drop)
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Registry returns the registry holding the server metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("serving")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("stopped")
	return nil
}

// observe logs and counts every request.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	id := c.GetHeader(wire.RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(wire.RequestIDHeader, id)

	c.Next()

	op := c.GetString(opKey)
	if op == "" {
		op = "other"
	}
	status := c.Writer.Status()
	elapsed := time.Since(start)

	s.metrics.requests.WithLabelValues(c.Param(collParam), op, strconv.Itoa(status)).Inc()
	s.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())

	s.logger.Debug().
		Str("request_id", id).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("operation", op).
		Int("status", status).
		Dur("elapsed", elapsed).
		Msg("request")
}
