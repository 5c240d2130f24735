// Package web serves the heritage site: HTML pages, the JSON API and
// operational endpoints.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ppiankov/heritage/internal/catalog"
	"github.com/ppiankov/heritage/internal/metrics"
	"github.com/ppiankov/heritage/internal/model"
	"github.com/ppiankov/heritage/internal/search"
	"github.com/ppiankov/heritage/internal/worker"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// Catalog provides page data
type Catalog interface {
	Home(ctx context.Context, query string) (*catalog.Home, error)
	Timeline(ctx context.Context, selected string) (*catalog.Timeline, error)
	Detail(ctx context.Context, slug string) (*catalog.Detail, error)
	Palette(ctx context.Context, query string) (search.Result, error)
	Ready(ctx context.Context) error
}

// Server is the HTTP front end
type Server struct {
	catalog Catalog
	cfg     model.ServerConfig
	logger  *zap.Logger
	limiter *worker.Limiter
	robots  *robotstxt.RobotsData
	views   *views
	handler http.Handler
}

// New creates a server. The robots policy is parsed up front so a broken
// config fails at startup.
func New(c Catalog, cfg model.ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Robots == "" {
		cfg.Robots = model.DefaultRobots
	}

	robots, err := robotstxt.FromString(cfg.Robots)
	if err != nil {
		return nil, fmt.Errorf("parse robots policy: %w", err)
	}

	v, err := loadViews()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	s := &Server{
		catalog: c,
		cfg:     cfg,
		logger:  logger,
		limiter: worker.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		robots:  robots,
		views:   v,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(securityHeaders(defaultHeaders()))
	r.Use(s.rateLimit("/healthz", "/readyz", "/metrics"))
	r.Use(lowBandwidth)
	r.Use(s.robotsTag)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/robots.txt", s.handleRobots)

	r.Get("/", s.handleHome)
	r.Get("/timeline", s.handleTimeline)
	r.Get("/monuments/{slug}", s.handleDetail)

	r.Route("/api", func(r chi.Router) {
		r.Get("/monuments", s.apiMonuments)
		r.Get("/monuments/{slug}", s.apiMonument)
		r.Get("/timeline", s.apiTimeline)
		r.Get("/search", s.apiSearch)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		})
	})

	r.NotFound(s.handleNotFound)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down within the
// configured timeout
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
