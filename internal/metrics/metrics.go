// Package metrics exposes the Prometheus instrumentation for the pipeline.
// A nil *Registry is a no-op, so tests can skip instrumentation entirely.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns every collector the pipeline emits to.
type Registry struct {
	reg *prometheus.Registry

	cacheDecisions   *prometheus.CounterVec // source_id, decision (hit|miss), reason
	scrapeOutcomes   *prometheus.CounterVec // source_id, outcome (ok|error|skipped)
	articlesIngested *prometheus.CounterVec // source_id
	dedupOutcomes    *prometheus.CounterVec // verdict (unique|near_duplicate|exact_duplicate|related)
	stageDuration    *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec // stage
	sourceReputation *prometheus.GaugeVec   // source_id
	feedbackSignals  *prometheus.CounterVec // type
	handlerFailures  prometheus.Counter
	llmCalls         *prometheus.CounterVec // provider, outcome (ok|error|fallback)
	forecastWins     *prometheus.CounterVec // model
	insightsEmitted  *prometheus.CounterVec // kind (risk|opportunity), severity
	indexSize        prometheus.Gauge       // vectors resident in the dedup index
}

// New builds a Registry with all collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	r := &Registry{reg: reg}

	r.cacheDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "cache_decisions_total",
		Help:      "Cache hit/miss decisions by source and reason.",
	}, []string{"source_id", "decision", "reason"})

	r.scrapeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "scrape_outcomes_total",
		Help:      "Scrape attempts by source and outcome.",
	}, []string{"source_id", "outcome"})

	r.articlesIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "articles_ingested_total",
		Help:      "Articles accepted into the pipeline by source.",
	}, []string{"source_id"})

	r.dedupOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "dedup_outcomes_total",
		Help:      "Duplicate-detection verdicts.",
	}, []string{"verdict"})

	r.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "newslens",
		Name:      "stage_duration_seconds",
		Help:      "Per-article stage processing time.",
		Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 15, 60},
	}, []string{"stage"})

	r.stageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "stage_failures_total",
		Help:      "Articles dropped by a failing stage.",
	}, []string{"stage"})

	r.sourceReputation = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "newslens",
		Name:      "source_reputation",
		Help:      "Current reputation score per source.",
	}, []string{"source_id"})

	r.feedbackSignals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "feedback_signals_total",
		Help:      "Feedback signals recorded by type.",
	}, []string{"type"})

	r.handlerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "learning_handler_failures_total",
		Help:      "Feedback handler panics or errors swallowed by the loop.",
	})

	r.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "llm_calls_total",
		Help:      "LLM invocations by provider and outcome.",
	}, []string{"provider", "outcome"})

	r.forecastWins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "forecast_model_wins_total",
		Help:      "Times each forecast model won walk-forward validation.",
	}, []string{"model"})

	r.insightsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "newslens",
		Name:      "insights_emitted_total",
		Help:      "Risks and opportunities emitted by severity.",
	}, []string{"kind", "severity"})

	r.indexSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "newslens",
		Name:      "dedup_index_vectors",
		Help:      "Vectors currently resident in the dedup index.",
	})

	reg.MustRegister(
		r.cacheDecisions, r.scrapeOutcomes, r.articlesIngested, r.dedupOutcomes,
		r.stageDuration, r.stageFailures, r.sourceReputation, r.feedbackSignals,
		r.handlerFailures, r.llmCalls, r.forecastWins, r.insightsEmitted, r.indexSize,
	)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Registry) CacheDecision(sourceID, decision, reason string) {
	if r == nil {
		return
	}
	r.cacheDecisions.WithLabelValues(sourceID, decision, reason).Inc()
}

func (r *Registry) ScrapeOutcome(sourceID, outcome string) {
	if r == nil {
		return
	}
	r.scrapeOutcomes.WithLabelValues(sourceID, outcome).Inc()
}

func (r *Registry) ArticleIngested(sourceID string) {
	if r == nil {
		return
	}
	r.articlesIngested.WithLabelValues(sourceID).Inc()
}

func (r *Registry) DedupOutcome(verdict string) {
	if r == nil {
		return
	}
	r.dedupOutcomes.WithLabelValues(verdict).Inc()
}

func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Registry) StageFailed(stage string) {
	if r == nil {
		return
	}
	r.stageFailures.WithLabelValues(stage).Inc()
}

func (r *Registry) SetReputation(sourceID string, score float64) {
	if r == nil {
		return
	}
	r.sourceReputation.WithLabelValues(sourceID).Set(score)
}

func (r *Registry) FeedbackSignal(signalType string) {
	if r == nil {
		return
	}
	r.feedbackSignals.WithLabelValues(signalType).Inc()
}

func (r *Registry) HandlerFailure() {
	if r == nil {
		return
	}
	r.handlerFailures.Inc()
}

func (r *Registry) LLMCall(provider, outcome string) {
	if r == nil {
		return
	}
	r.llmCalls.WithLabelValues(provider, outcome).Inc()
}

func (r *Registry) ForecastWin(model string) {
	if r == nil {
		return
	}
	r.forecastWins.WithLabelValues(model).Inc()
}

func (r *Registry) InsightEmitted(kind, severity string) {
	if r == nil {
		return
	}
	r.insightsEmitted.WithLabelValues(kind, severity).Inc()
}

func (r *Registry) SetIndexSize(n int) {
	if r == nil {
		return
	}
	r.indexSize.Set(float64(n))
}
