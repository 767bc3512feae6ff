// Package web serves the codec over HTTP: request bodies are decoded under
// one dialect and streamed back under another.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/ucsv/internal/config"
	"github.com/JonMunkholm/ucsv/internal/core"
	"github.com/JonMunkholm/ucsv/internal/logging"
	"github.com/JonMunkholm/ucsv/internal/metrics"
	"github.com/JonMunkholm/ucsv/internal/web/middleware"
)

// Server is the HTTP surface.
type Server struct {
	files     *core.Files
	collector *metrics.Collector
	limiter   *Limiter
	cfg       *config.Config
	router    *chi.Mux
	server    *http.Server
}

// NewServer builds the router. collector may be nil, in which case
// /metrics is not mounted.
func NewServer(files *core.Files, collector *metrics.Collector, cfg *config.Config) *Server {
	s := &Server{
		files:     files,
		collector: collector,
		limiter:   NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		cfg:       cfg,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.collector != nil {
		s.router.Handle("/metrics", s.collector.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Get("/dialects", s.handleDialects)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(s.cfg.Upload.MaxBodySize))
			r.Use(s.limiter.Middleware)
			r.Post("/convert", s.handleConvert)
			r.Post("/dedupe", s.handleDedupe)
			r.Post("/slim", s.handleSlim)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for running conversions.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
