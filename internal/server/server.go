// Package server exposes the aggregator over HTTP for the web collaborator.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/ppiankov/legislens/internal/aggregator"
	"github.com/ppiankov/legislens/internal/cache"
	"github.com/ppiankov/legislens/internal/congress"
	"github.com/ppiankov/legislens/internal/model"
	"github.com/ppiankov/legislens/internal/telemetry"
)

const maxBodyBytes = 10 << 20

// Analyzer runs analyses and reports provider availability
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest) (*model.CompositeAnalysis, error)
	CheckAvailability(ctx context.Context) aggregator.Availability
}

// BillFetcher loads a bill and its text from Congress.gov
type BillFetcher interface {
	Configured() bool
	Fetch(ctx context.Context, ref congress.BillRef) (*congress.Bill, error)
}

// Server holds the HTTP handlers and their collaborators
type Server struct {
	analyzer     Analyzer
	bills        BillFetcher
	store        cache.AnalysisStore
	logger       *telemetry.Logger
	defaultLevel model.Level
	corsOrigins  []string
	version      string
}

// Option configures a Server
type Option func(*Server)

// WithBills enables the Congress.gov bill endpoint
func WithBills(b BillFetcher) Option {
	return func(s *Server) { s.bills = b }
}

// WithStore caches analyses by bill ID and level
func WithStore(store cache.AnalysisStore) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

func WithLogger(l *telemetry.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultLevel is used when a request names no level
func WithDefaultLevel(level model.Level) Option {
	return func(s *Server) {
		if level != "" {
			s.defaultLevel = level
		}
	}
}

// WithCORSOrigins sets the browser origins allowed to call the API
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server around analyzer
func New(analyzer Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:     analyzer,
		store:        cache.Nop{},
		logger:       telemetry.Discard(),
		defaultLevel: model.LevelStandard,
		version:      "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestID)
	mux.Use(s.logging)
	mux.Use(s.recovery)
	if len(s.corsOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", s.handleHealth)
	mux.Route("/api", func(r chi.Router) {
		r.Get("/ai/availability", s.handleAvailability)
		r.Post("/analysis", s.handleAnalysis)
		r.Post("/bills/{congress}/{type}/{number}/analysis", s.handleBillAnalysis)
	})
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, CodeNotFound, "no route for "+r.URL.Path)
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, CodeInvalidInput, "method not allowed")
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, cfg model.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", map[string]any{"addr": cfg.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
