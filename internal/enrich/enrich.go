// Package enrich is the second pipeline layer. It takes validated,
// impact-scored articles and layers on PESTEL classification, sentiment,
// entity extraction and a quality assessment, producing the enriched
// records the indicator layer aggregates.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	impactpkg "newslens/internal/impact"
	"newslens/internal/llm"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/quality"
	"newslens/internal/sentiment"
)

// Enricher orchestrates the enrichment stages for one article. Every
// stage degrades to a rule-based result rather than failing, so the only
// error path is invalid input or a cancelled context.
type Enricher struct {
	classifier *Classifier
	analyzer   *sentiment.Analyzer
	entities   EntityExtractor
	quality    *quality.Scorer
	metrics    *metrics.Registry
	log        zerolog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithModel wires the model-backed classifier and entity extractor on
// top of the rule stack.
func WithModel(svc llm.Invoker) Option {
	return func(e *Enricher) {
		e.classifier = NewClassifier(NewLLMClassifier(svc))
		e.entities = NewLLMExtractor(svc)
	}
}

// WithSentimentBackend swaps the sentiment backend.
func WithSentimentBackend(b sentiment.Backend) Option {
	return func(e *Enricher) {
		e.analyzer = sentiment.NewAnalyzer(b)
	}
}

// WithMetrics wires stage timing counters.
func WithMetrics(reg *metrics.Registry) Option {
	return func(e *Enricher) { e.metrics = reg }
}

// NewEnricher builds the rule-only enricher; options layer the model in.
func NewEnricher(opts ...Option) *Enricher {
	e := &Enricher{
		classifier: NewClassifier(nil),
		analyzer:   sentiment.NewAnalyzer(nil),
		entities:   NewRuleExtractor(),
		quality:    quality.NewScorer(),
		log:        logger.With("enrich"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich runs classification, sentiment, entities and quality over one
// article. The impact score carries the L1 verdicts (trust, impact,
// priority) forward into the enriched record.
func (e *Enricher) Enrich(ctx context.Context, article *core.RawArticle, impact core.ImpactScore) (*core.EnrichedArticle, error) {
	if article == nil {
		return nil, fmt.Errorf("enrich: nil article")
	}
	if strings.TrimSpace(article.Title) == "" && strings.TrimSpace(article.Body) == "" {
		return nil, fmt.Errorf("enrich: article %s has no text", article.ArticleID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	trust, hasTrust := impact.Factors[impactpkg.FactorCredibility]
	if !hasTrust {
		trust = -1 // quality scorer treats negative as validation-not-run
	}

	cls := e.classifier.Classify(ctx, article.Title, article.Body)
	sent := e.analyzer.Analyze(ctx, article.Title, article.Body)
	ents := e.entities.Extract(ctx, article.Title, article.Body)
	qual := e.quality.Score(article, trust, time.Now())

	enriched := &core.EnrichedArticle{
		RawArticle:          *article,
		PESTELCategory:      cls.Category,
		CategoryConfidences: cls.Confidences,
		UrgencyLevel:        urgencyFor(impact, sent),
		BusinessRelevance:   businessRelevance(cls, impact),
		SentimentScore:      sent.Score,
		SentimentLevel:      core.SentimentLevel(sent.Level),
		Entities:            ents,
		QualityScore:        qual.Score,
		QualityBand:         qual.Band,
		ImpactScore:         impact.Overall,
		PriorityRank:        impact.PriorityRank,
	}
	if hasTrust {
		enriched.TrustScore = trust
	} else {
		enriched.TrustScore = 50
	}

	e.metrics.ObserveStage("enrich", time.Since(start))
	e.log.Debug().
		Str("article_id", article.ArticleID).
		Str("category", string(cls.Category)).
		Str("top_label", cls.TopLabel).
		Float64("sentiment", sent.Score).
		Float64("quality", qual.Score).
		Msg("article enriched")
	return enriched, nil
}

// EnrichBatch enriches a slice in order, dropping articles that fail
// input validation. Context cancellation stops the batch.
func (e *Enricher) EnrichBatch(ctx context.Context, articles []*core.RawArticle, impacts []core.ImpactScore) ([]*core.EnrichedArticle, error) {
	if len(articles) != len(impacts) {
		return nil, fmt.Errorf("enrich: %d articles but %d impact scores", len(articles), len(impacts))
	}
	out := make([]*core.EnrichedArticle, 0, len(articles))
	for i, a := range articles {
		enriched, err := e.Enrich(ctx, a, impacts[i])
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			e.log.Warn().Err(err).Msg("skipping article")
			continue
		}
		out = append(out, enriched)
	}
	return out, nil
}

// urgencyFor bands time criticality from the L1 priority rank, bumped a
// level when sentiment is strongly negative.
func urgencyFor(impact core.ImpactScore, sent sentiment.Result) core.UrgencyLevel {
	level := core.UrgencyLow
	switch impact.PriorityRank {
	case 1:
		level = core.UrgencyCritical
	case 2:
		level = core.UrgencyHigh
	case 3:
		level = core.UrgencyMedium
	}
	if sent.Level == sentiment.VeryNegative {
		switch level {
		case core.UrgencyLow:
			level = core.UrgencyMedium
		case core.UrgencyMedium:
			level = core.UrgencyHigh
		}
	}
	return level
}

// businessRelevance folds classification strength and business impact
// into [0,1]. Economic evidence weighs strongest.
func businessRelevance(cls Classification, impact core.ImpactScore) float64 {
	var labelSignal float64
	for label, conf := range cls.Confidences {
		w := 0.5
		switch labelCategories[label] {
		case core.CategoryEconomic:
			w = 1.0
		case core.CategoryPolitical, core.CategoryLegal:
			w = 0.7
		}
		if s := conf * w; s > labelSignal {
			labelSignal = s
		}
	}
	rel := 0.6*labelSignal + 0.4*(impact.Overall/100)
	if rel > 1 {
		rel = 1
	}
	return rel
}
