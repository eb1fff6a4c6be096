// Package httpapi serves the entity store over HTTP: a JSON REST API, a
// prometheus metrics endpoint and a websocket change feed.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/eventbus"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Config holds server dependencies. Events and Metrics are optional: without
// a bus no events are published and /events answers 503.
type Config struct {
	Store          types.Store
	Events         *eventbus.Bus
	Metrics        *Metrics
	Logger         *zap.Logger
	OriginPatterns []string
}

// Server routes HTTP requests to the store.
type Server struct {
	store   types.Store
	events  *eventbus.Bus
	metrics *Metrics
	logger  *zap.Logger
	origins []string
	router  chi.Router
}

// New creates a Server with all routes registered.
func New(cfg Config) *Server {
	s := &Server{
		store:   cfg.Store,
		events:  cfg.Events,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		origins: cfg.OriginPatterns,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recovery(s.logger))
	r.Use(RequestLogger(s.logger))
	r.Use(s.metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Get("/events", s.handleEvents)

	r.Route("/entity-types", func(r chi.Router) {
		r.Get("/", s.handleListEntityTypes)
		r.Get("/{id}", s.handleGetEntityType)
	})

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.handleListEntities)
		r.Post("/", s.handleCreateEntity)
		r.Get("/by-slug/{type}/{slug}", s.handleGetEntityBySlug)
		r.Get("/{id}", s.handleGetEntity)
		r.Patch("/{id}/values", s.handleUpdateValues)
		r.Delete("/{id}", s.handleDeleteEntity)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("serving catalog API", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}

func (s *Server) publish(ctx context.Context, t eventbus.Type, e types.Entity) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, eventbus.NewEvent(t, e))
	s.metrics.events.WithLabelValues(string(t)).Inc()
}
