package core

import "time"

// FeedbackClass groups feedback types by what the learning loop derives
// from them: usage and relevance feed per-source rates, accuracy feeds
// reputation, manual overrides everything, operational is health only.
type FeedbackClass string

const (
	ClassUsage       FeedbackClass = "usage"
	ClassQuality     FeedbackClass = "quality"
	ClassRelevance   FeedbackClass = "relevance"
	ClassAccuracy    FeedbackClass = "accuracy"
	ClassManual      FeedbackClass = "manual"
	ClassOperational FeedbackClass = "operational"
)

// FeedbackType names one observable outcome the learning layer reacts to.
// The set is closed; handlers switch on it.
type FeedbackType string

const (
	// Usage: did downstream consumers act on the material.
	FeedbackArticleUsed      FeedbackType = "article_used"
	FeedbackArticleDiscarded FeedbackType = "article_discarded"
	FeedbackInsightActioned  FeedbackType = "insight_actioned"
	FeedbackInsightIgnored   FeedbackType = "insight_ignored"

	// Quality of the content itself.
	FeedbackQualityGood      FeedbackType = "quality_good"
	FeedbackQualityPoor      FeedbackType = "quality_poor"
	FeedbackContentCorrupted FeedbackType = "content_corrupted"
	FeedbackDuplicateFound   FeedbackType = "duplicate_found"

	// Relevance of classification and routing.
	FeedbackRelevant        FeedbackType = "relevant"
	FeedbackIrrelevant      FeedbackType = "irrelevant"
	FeedbackCategoryCorrect FeedbackType = "category_correct"
	FeedbackCategoryWrong   FeedbackType = "category_wrong"

	// Accuracy of claims and projections.
	FeedbackClaimConfirmed    FeedbackType = "claim_confirmed"
	FeedbackClaimContradicted FeedbackType = "claim_contradicted"
	FeedbackForecastAccurate  FeedbackType = "forecast_accurate"
	FeedbackForecastMissed    FeedbackType = "forecast_missed"

	// Manual operator judgment.
	FeedbackManualApprove FeedbackType = "manual_approve"
	FeedbackManualReject  FeedbackType = "manual_reject"

	// Operational pipeline health.
	FeedbackScrapeSucceeded FeedbackType = "scrape_succeeded"
	FeedbackScrapeFailed    FeedbackType = "scrape_failed"
	FeedbackStageFailed     FeedbackType = "stage_failed"
	FeedbackSourceDisabled  FeedbackType = "source_disabled"
)

// Class returns the feedback class a type belongs to.
func (t FeedbackType) Class() FeedbackClass {
	switch t {
	case FeedbackArticleUsed, FeedbackArticleDiscarded, FeedbackInsightActioned, FeedbackInsightIgnored:
		return ClassUsage
	case FeedbackQualityGood, FeedbackQualityPoor, FeedbackContentCorrupted, FeedbackDuplicateFound:
		return ClassQuality
	case FeedbackRelevant, FeedbackIrrelevant, FeedbackCategoryCorrect, FeedbackCategoryWrong:
		return ClassRelevance
	case FeedbackClaimConfirmed, FeedbackClaimContradicted, FeedbackForecastAccurate, FeedbackForecastMissed:
		return ClassAccuracy
	case FeedbackManualApprove, FeedbackManualReject:
		return ClassManual
	default:
		return ClassOperational
	}
}

// Positive reports whether a signal counts toward the positive ratio when
// the loop buffers per-source adjustments.
func (t FeedbackType) Positive() bool {
	switch t {
	case FeedbackArticleUsed, FeedbackInsightActioned, FeedbackQualityGood,
		FeedbackRelevant, FeedbackCategoryCorrect, FeedbackClaimConfirmed,
		FeedbackForecastAccurate, FeedbackManualApprove, FeedbackScrapeSucceeded:
		return true
	}
	return false
}

// FeedbackSignal is one unit of feedback flowing retrograde into the
// learning loop. Signals are retained for 30 days.
type FeedbackSignal struct {
	ID            string         `json:"id"`
	Type          FeedbackType   `json:"feedback_type"`
	Severity      string         `json:"severity"`     // info | warning | critical
	SourceLayer   string         `json:"source_layer"` // ingest | enrich | indicators | insights | pipeline
	ArticleID     string         `json:"article_id,omitempty"`
	SourceID      string         `json:"source_id,omitempty"`
	QualityRating float64        `json:"quality_rating,omitempty"` // [0,100] when the signal carries one
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"timestamp"`
}

// LearningMode gates whether tuned parameters are applied.
type LearningMode string

const (
	LearningOff    LearningMode = "off"    // Signals dropped
	LearningShadow LearningMode = "shadow" // Adjustments computed and logged, not applied
	LearningActive LearningMode = "active" // Adjustments applied
)

// ParameterAdjustment is one proposed (or applied) tuning step.
type ParameterAdjustment struct {
	Parameter string    `json:"parameter"` // Dotted path, e.g. "dedup.near_threshold"
	OldValue  float64   `json:"old_value"`
	NewValue  float64   `json:"new_value"`
	Reason    string    `json:"reason"`
	Applied   bool      `json:"applied"` // False in shadow mode
	CreatedAt time.Time `json:"created_at"`
}
