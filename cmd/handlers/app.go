// Package handlers holds the CLI command tree. Each command builds only
// the subsystems it needs from the shared bootstrap.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"newslens/internal/cache"
	"newslens/internal/config"
	"newslens/internal/dedup"
	"newslens/internal/docstore"
	"newslens/internal/embed"
	"newslens/internal/enrich"
	"newslens/internal/impact"
	"newslens/internal/indicators"
	"newslens/internal/insights"
	"newslens/internal/kv"
	"newslens/internal/learning"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/persistence"
	"newslens/internal/pipeline"
	"newslens/internal/scrape"
	"newslens/internal/sources"
	"newslens/internal/validate"
)

// corroborationWindow bounds how long claims stay eligible for
// cross-source confirmation.
const corroborationWindow = 48 * time.Hour

var cfgFile string

// BindConfigFlag registers the shared --config flag on the root command's
// flag set.
func BindConfigFlag(fs *pflag.FlagSet) {
	fs.StringVar(&cfgFile, "config", "", "config file (default searches ., ./config, $HOME/.newslens)")
}

// app is the assembled process: every subsystem the commands share.
// Optional backends (redis, postgres, badger, LLM) degrade to nil with
// a logged warning instead of failing startup.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Registry

	store     kv.Store
	docs      *docstore.Store
	db        *persistence.DB
	tracker   *validate.Tracker
	validator *validate.Validator
	sources   *sources.Registry
	cache     *cache.SmartCache
	dedup     *dedup.Deduplicator
	profiles  *insights.ProfileRegistry
	learning  *learning.Orchestrator
	pipeline  *pipeline.Pipeline
	series    *indicators.SeriesStore
	insights  *insights.Generator
}

// buildApp wires the full pipeline from config.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})

	a := &app{
		cfg:     cfg,
		log:     logger.With("app"),
		metrics: metrics.New(),
	}

	if store, err := kv.NewRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB); err != nil {
		a.log.Warn().Err(err).Str("addr", cfg.Storage.RedisAddr).
			Msg("redis unavailable, running without kv cache")
	} else {
		a.store = store
	}

	if docs, err := docstore.Open(cfg.Storage.BadgerPath); err != nil {
		a.log.Warn().Err(err).Msg("document store unavailable")
	} else {
		a.docs = docs
	}

	if cfg.Storage.PostgresDSN != "" {
		db, err := persistence.Open(cfg.Storage.PostgresDSN)
		if err != nil {
			a.log.Warn().Err(err).Msg("postgres unavailable, running without durable series")
		} else if err := db.Migrate(ctx); err != nil {
			a.log.Warn().Err(err).Msg("migrations failed, running without durable series")
			_ = db.Close()
		} else {
			a.db = db
		}
	}

	a.tracker = validate.NewTracker(a.metrics)
	a.sources = sources.NewRegistry(a.tracker)
	a.sources.Seed(sources.DefaultSources())
	if path := cfg.Sources.ConfigPath; path != "" {
		if err := a.sources.LoadFile(path); err != nil {
			return nil, fmt.Errorf("sources config: %w", err)
		}
	}

	a.profiles = insights.NewProfileRegistry()
	if path := cfg.App.CompaniesPath; path != "" {
		if err := a.profiles.LoadFile(path); err != nil {
			return nil, fmt.Errorf("companies config: %w", err)
		}
	}

	if a.store != nil {
		a.cache = cache.NewSmartCache(a.store, nil, cfg.Cache, a.metrics, cfg.Sources.UserAgent)
	}

	a.dedup = dedup.NewDeduplicator(a.embedder(ctx), a.store, cfg.Dedup, a.tracker.Credibility, a.metrics)

	a.validator = validate.New(a.tracker, corroborationWindow)

	scorer, err := impact.NewScorer(cfg.Scoring.DefaultProfile)
	if err != nil {
		return nil, err
	}

	model := a.model()
	var enrichOpts []enrich.Option
	if model != nil {
		enrichOpts = append(enrichOpts, enrich.WithModel(model))
	}
	enrichOpts = append(enrichOpts, enrich.WithMetrics(a.metrics))
	enricher := enrich.NewEnricher(enrichOpts...)

	aggregator := indicators.NewAggregator(nil, a.metrics)
	a.series = indicators.NewSeriesStore(0)
	if a.db != nil {
		if err := a.seedDefinitions(ctx, aggregator); err != nil {
			a.log.Warn().Err(err).Msg("definition seeding failed")
		}
	}

	genOpts := []insights.GeneratorOption{insights.WithGeneratorMetrics(a.metrics)}
	if model != nil {
		genOpts = append(genOpts, insights.WithLLM(model))
	}
	if a.store != nil {
		genOpts = append(genOpts, insights.WithCache(a.store))
	}
	if a.db != nil {
		genOpts = append(genOpts, insights.WithSink(a.db.Insights()))
	}
	a.insights = insights.NewGenerator(genOpts...)

	a.learning = learning.NewOrchestrator(cfg.Learning, a.tracker, a.cache, a.metrics)

	deps := pipeline.Deps{
		Sources:    a.sources,
		Scraper:    scrape.NewHTTPScraper(cfg.Sources, a.metrics),
		Cache:      a.cache,
		Dedup:      a.dedup,
		Validator:  a.validator,
		Impact:     scorer,
		Enricher:   enricher,
		Aggregator: aggregator,
		Series:     a.series,
		Generator:  a.insights,
		Profiles:   a.profiles,
		Feedback:   a.learning.Feedback,
		Ops:        a.learning.Metrics,
		Tuner:      a.learning.Tuner,
		Docs:       a.docs,
		Metrics:    a.metrics,
	}
	if a.db != nil {
		deps.Values = a.db.Values()
		deps.Events = a.db.Events()
	}
	a.pipeline, err = pipeline.New(pipeline.Config{
		Workers:        cfg.Sources.DefaultParallel,
		NetworkTimeout: cfg.Sources.RequestTimeout,
		LLMTimeout:     cfg.LLM.Timeout,
	}, deps)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// embedder picks the configured backend, falling back to the
// deterministic local one.
func (a *app) embedder(ctx context.Context) embed.Embedder {
	cfg := a.cfg.Embedding
	if cfg.Provider == "gemini" && cfg.APIKey != "" {
		g, err := embed.NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions)
		if err == nil {
			return g
		}
		a.log.Warn().Err(err).Msg("gemini embedder unavailable, using local fallback")
	}
	return embed.NewLocal(cfg.Dimensions)
}

// model builds the LLM service, or nil when reasoning runs rule-only.
func (a *app) model() llm.Invoker {
	cfg := a.cfg.LLM
	if cfg.Provider != "anthropic" || len(cfg.APIKeys) == 0 {
		return nil
	}
	keys := llm.NewKeyManager(cfg.APIKeys, cfg.RatePerMin, cfg.CooldownFor)
	return llm.NewService(llm.NewAnthropic(cfg.Model), keys, cfg.MaxTokens, cfg.Timeout, a.metrics)
}

// seedDefinitions persists the embedded catalog so the relational side
// always matches the running one.
func (a *app) seedDefinitions(ctx context.Context, agg *indicators.Aggregator) error {
	for _, def := range agg.Definitions() {
		if err := a.db.Definitions().Upsert(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// Close releases backends in reverse dependency order.
func (a *app) Close() {
	if a.learning != nil {
		a.learning.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.docs != nil {
		_ = a.docs.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
