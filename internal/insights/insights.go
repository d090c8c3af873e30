package insights

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/kv"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

// BundleTTL bounds how long a cached bundle serves reads before a
// recompute.
const BundleTTL = 15 * time.Minute

// BundleKey is the KV key for a company's cached bundle.
func BundleKey(companyID string) string { return "insights:bundle:" + companyID }

// Sink receives finished bundles for durable storage (relational rows
// plus document payloads).
type Sink interface {
	SaveBundle(ctx context.Context, bundle *core.InsightBundle) error
}

// Generator runs the full insight pass for one company.
type Generator struct {
	narrator *Narrator
	store    kv.Store
	sink     Sink
	metrics  *metrics.Registry
	log      zerolog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLLM upgrades narratives with model polishing.
func WithLLM(svc llm.Invoker) GeneratorOption {
	return func(g *Generator) { g.narrator = NewNarrator(svc) }
}

// WithCache caches finished bundles in the KV store.
func WithCache(store kv.Store) GeneratorOption {
	return func(g *Generator) { g.store = store }
}

// WithSink forwards finished bundles to durable storage.
func WithSink(sink Sink) GeneratorOption {
	return func(g *Generator) { g.sink = sink }
}

// WithGeneratorMetrics wires the insight counters.
func WithGeneratorMetrics(reg *metrics.Registry) GeneratorOption {
	return func(g *Generator) { g.metrics = reg }
}

// NewGenerator builds a template-only generator; options add the model,
// cache and sink.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		narrator: NewNarrator(nil),
		log:      logger.With("insights"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate detects, scores, narrates and aggregates one company's
// insights. degraded marks a bundle built from partial upstream data.
func (g *Generator) Generate(ctx context.Context, profile *core.CompanyProfile, state *State, nai core.NationalActivityIndex, degraded bool) (*core.InsightBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	now := start

	risks := DetectRisks(profile, state, now)
	opps := DetectOpportunities(profile, state, now)

	for i := range risks {
		risks[i].Narrative = g.narrator.RiskNarrative(ctx, profile, &risks[i], precedentFor(risks[i].Code))
		g.metrics.InsightEmitted("risk", string(risks[i].Severity))
	}
	for i := range opps {
		opps[i].Narrative = g.narrator.OpportunityNarrative(ctx, profile, &opps[i])
		g.metrics.InsightEmitted("opportunity", string(opps[i].Severity))
	}

	bundle := &core.InsightBundle{
		CompanyID:       profile.ID,
		GeneratedAt:     now,
		Risks:           risks,
		Opportunities:   opps,
		Recommendations: Recommend(profile.ID, risks, opps, now),
		Portfolio:       BuildPortfolio(profile.ID, risks, opps, now),
		NAI:             nai,
		Degraded:        degraded,
	}

	if g.store != nil {
		if err := kv.SetJSON(ctx, g.store, BundleKey(profile.ID), bundle, BundleTTL); err != nil {
			g.log.Warn().Err(err).Str("company", profile.ID).Msg("bundle cache write failed")
		}
	}
	if g.sink != nil {
		if err := g.sink.SaveBundle(ctx, bundle); err != nil {
			g.log.Error().Err(err).Str("company", profile.ID).Msg("bundle persistence failed")
			bundle.Degraded = true
		}
	}

	g.metrics.ObserveStage("insights", time.Since(start))
	g.log.Info().
		Str("company", profile.ID).
		Int("risks", len(risks)).
		Int("opportunities", len(opps)).
		Float64("portfolio_risk", bundle.Portfolio.PortfolioRisk).
		Bool("degraded", bundle.Degraded).
		Msg("insight bundle generated")
	return bundle, nil
}

// CachedBundle loads a company's bundle from the KV cache.
func (g *Generator) CachedBundle(ctx context.Context, companyID string) (*core.InsightBundle, bool) {
	if g.store == nil {
		return nil, false
	}
	var bundle core.InsightBundle
	if err := kv.GetJSON(ctx, g.store, BundleKey(companyID), &bundle); err != nil {
		return nil, false
	}
	return &bundle, true
}
