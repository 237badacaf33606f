// Package api serves the review queue over HTTP for scripting and
// automation. It shares the queue core with the terminal UI.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pders01/reviewq/internal/config"
	"github.com/pders01/reviewq/internal/queue"
)

// Deps are the collaborators the handlers use.
type Deps struct {
	Querier   queue.Querier
	Deleter   queue.Deleter
	Router    *queue.Router
	Logger    *zap.Logger
	Version   string
	StartTime time.Time
	Now       func() time.Time
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

// New builds the HTTP server (router, middlewares, route registration).
func New(cfg *config.Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	s := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           NewRouter(cfg, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{http: s, logger: d.Logger}
}

// NewRouter registers every route on a fresh chi router.
func NewRouter(cfg *config.Config, d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.StartTime.IsZero() {
		d.StartTime = d.Now()
	}

	h := &handlers{
		cfg:      cfg,
		deps:     d,
		composer: queue.NewComposer(cfg.Queue.PageSize, cfg.Queue.Statuses),
		fetcher:  queue.NewFetcher(d.Querier, cfg.Backend.Timeout),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(accessLog(d.Logger))
	r.Use(httpMetrics)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/queue", func(r chi.Router) {
		r.Get("/", h.listQueue)
		r.Post("/route", h.routeItem)
		r.Delete("/{identifier}", h.retireItem)
	})

	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
