// Package server exposes the read API: insight bundles, indicator
// series, sources and cluster inspection. It serves what the pipeline
// has already computed; it never blocks a request on fresh scraping.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/dedup"
	"newslens/internal/indicators"
	"newslens/internal/insights"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/pipeline"
	"newslens/internal/sources"
	"newslens/internal/validate"
)

// Deps are the read surfaces the API serves from. Any nil member turns
// its endpoints into 404s rather than panics.
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Generator *insights.Generator
	Profiles  *insights.ProfileRegistry
	Series    *indicators.SeriesStore
	Catalog   []core.IndicatorDefinition
	Sources   *sources.Registry
	Tracker   *validate.Tracker
	Dedup     *dedup.Deduplicator
	Metrics   *metrics.Registry
}

// Server is the HTTP read API.
type Server struct {
	router *chi.Mux
	http   *http.Server
	deps   Deps
	log    zerolog.Logger
}

// New builds the server with routing and middleware wired.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		log:    logger.With("server"),
	}
	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupMiddleware(cfg config.ServerConfig) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/nai", s.handleNAI)
		r.Post("/run", s.handleRun)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/{companyID}", s.handleInsights)
		})

		r.Route("/indicators", func(r chi.Router) {
			r.Get("/", s.handleIndicatorSnapshot)
			r.Get("/{id}", s.handleIndicator)
			r.Get("/{id}/values", s.handleIndicatorValues)
			r.Get("/{id}/trend", s.handleIndicatorTrend)
			r.Get("/{id}/forecast", s.handleIndicatorForecast)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Get("/{id}/reputation", s.handleSourceReputation)
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Post("/", s.handleAddCompany)
			r.Delete("/{id}", s.handleRemoveCompany)
		})

		r.Get("/clusters/{id}", s.handleCluster)
	})
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("read api listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
