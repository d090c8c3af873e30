// Package validate cross-checks articles against recent coverage from
// other sources, maintains per-source reputation and produces the trust
// score downstream layers weigh articles by.
package validate

import (
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/core"
	"newslens/internal/logger"
)

// Trust score weighting: reputation and corroboration carry most of it,
// freshness the remainder.
const (
	reputationWeight    = 40
	corroborationWeight = 40
	freshnessWeight     = 20
)

// Validator ties claim extraction, corroboration and reputation together.
type Validator struct {
	tracker   *Tracker
	extractor *Extractor
	engine    *Engine
	log       zerolog.Logger
}

// New builds a validator over the given tracker. window bounds how long
// cached claims stay eligible for corroboration.
func New(tracker *Tracker, window time.Duration) *Validator {
	return &Validator{
		tracker:   tracker,
		extractor: NewExtractor(),
		engine:    NewEngine(window, tracker.TierOf),
		log:       logger.With("validate"),
	}
}

// Tracker exposes the reputation tracker for the scrape scheduler and the
// learning loop.
func (v *Validator) Tracker() *Tracker { return v.tracker }

// Validate grades one article. It extracts claims, assesses corroboration
// against the rolling window, computes the trust score and applies the
// resulting reputation movements.
func (v *Validator) Validate(article *core.RawArticle, clusterID string) core.CrossValidationResult {
	at := article.ScrapeTimestamp
	if at.IsZero() {
		at = time.Now()
	}

	claims := v.extractor.Extract(article)
	assess := v.engine.Assess(article, claims, at)

	// Reputation at check time, before this article moves it.
	reputation := v.tracker.Credibility(article.SourceID)

	trust := reputationWeight*reputation +
		corroborationWeight*assess.Level.Weight() +
		freshnessWeight*freshness(article, at)
	if trust < 0 {
		trust = 0
	} else if trust > 100 {
		trust = 100
	}

	res := core.CrossValidationResult{
		ArticleID:          article.ArticleID,
		ClusterID:          clusterID,
		Status:             status(assess),
		SourceReputation:   reputation,
		Claims:             claims,
		Corroboration:      assess.Level,
		ConfirmingCount:    len(assess.Sources),
		ContradictingCount: len(assess.ContradictingSources),
		Contradictions:     assess.Contradictions,
		TrustScore:         trust,
		TrustLevel:         core.TrustLevelFor(trust),
		CheckedAt:          at,
	}

	v.applyReputation(article.SourceID, assess)

	v.log.Debug().
		Str("article", article.ArticleID).
		Str("level", string(assess.Level)).
		Float64("trust", trust).
		Int("claims", len(claims)).
		Msg("article validated")
	return res
}

// Sweep expires cached claims older than the corroboration window.
func (v *Validator) Sweep(now time.Time) { v.engine.Sweep(now) }

func status(a Assessment) core.ValidationStatus {
	if len(a.Contradictions) > 0 && len(a.ContradictingSources) > len(a.Sources) {
		return core.ValidationContradicted
	}
	switch a.Level {
	case core.CorroborationModerate, core.CorroborationStrong, core.CorroborationVerified:
		return core.ValidationConfirmed
	default:
		return core.ValidationUnconfirmed
	}
}

// applyReputation credits corroborated sources and debits contradicted
// ones. On a corroborated story the earlier reporters are confirmed too,
// with a first-report bonus for whoever broke it.
func (v *Validator) applyReputation(sourceID string, a Assessment) {
	switch a.Level {
	case core.CorroborationModerate, core.CorroborationStrong, core.CorroborationVerified:
		v.tracker.RecordConfirmation(sourceID, len(a.Sources), false)
		for i, src := range a.Sources {
			v.tracker.RecordConfirmation(src, 1, i == 0)
		}
	}
	if n := len(a.ContradictingSources); n > 0 {
		v.tracker.RecordContradiction(sourceID, n)
	}
}

// freshness maps article age onto [0,1] in the same bands the impact
// scorer uses for temporal urgency.
func freshness(article *core.RawArticle, now time.Time) float64 {
	age := article.AgeAt(now)
	switch {
	case age <= 6*time.Hour:
		return 1.0
	case age <= 24*time.Hour:
		return 0.8
	case age <= 72*time.Hour:
		return 0.6
	case age <= 7*24*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}
