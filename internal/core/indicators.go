package core

import "time"

// CalculationType selects how an indicator's value is derived from the
// run's matched articles.
type CalculationType string

const (
	CalcFrequencyCount     CalculationType = "frequency_count"
	CalcSentimentAggregate CalculationType = "sentiment_aggregate"
	CalcNumericExtraction  CalculationType = "numeric_extraction"
	CalcComposite          CalculationType = "composite"
	CalcRatio              CalculationType = "ratio"
	CalcWeightedAverage    CalculationType = "weighted_average"
)

// Thresholds bound the band an indicator is expected to stay inside.
// Crossing either edge raises a threshold_breach event.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// IndicatorDefinition is one catalog entry. Definitions are versioned;
// only learning-layer weight adjustments change at runtime.
type IndicatorDefinition struct {
	ID              string          `json:"indicator_id"`   // e.g. "ECON_INFLATION"
	Name            string          `json:"indicator_name"` // Display name
	Category        PESTELCategory  `json:"pestel_category"`
	Description     string          `json:"description"`
	Keywords        []string        `json:"keywords"` // Ordered, lowercase
	CalculationType CalculationType `json:"calculation_type"`
	BaseWeight      float64         `json:"base_weight"` // Contribution to the category composite
	Thresholds      Thresholds      `json:"thresholds"`
	Active          bool            `json:"is_active"`
	Version         int             `json:"version"`
	Components      []string        `json:"components,omitempty"` // Member indicator ids for composite/ratio types
}

// IndicatorValue is one observation of one indicator. The series is
// append-only; a stale value arriving after a newer one is dropped.
type IndicatorValue struct {
	IndicatorID    string    `json:"indicator_id"`
	Timestamp      time.Time `json:"timestamp"`
	Value          float64   `json:"value"`      // [0,100]
	Confidence     float64   `json:"confidence"` // [0,1]
	ArticleCount   int       `json:"article_count"`
	SourceArticles []string  `json:"source_articles,omitempty"` // Bounded evidence set
	RawCount       int       `json:"raw_count"`                 // Keyword matches before cluster collapsing
	SentimentScore *float64  `json:"sentiment_score,omitempty"` // Mean sentiment of matched articles
	ComputedAt     time.Time `json:"computed_at"`
}

// IndicatorEventType is the closed set of excursions L3 raises.
type IndicatorEventType string

const (
	EventThresholdBreach  IndicatorEventType = "threshold_breach"
	EventAnomaly          IndicatorEventType = "anomaly"
	EventRapidChange      IndicatorEventType = "rapid_change"
	EventCorrelationBreak IndicatorEventType = "correlation_break"
	EventDataQuality      IndicatorEventType = "data_quality"
)

// IndicatorEvent is a notable excursion detected while recording values.
type IndicatorEvent struct {
	ID           string             `json:"event_id"`
	IndicatorID  string             `json:"indicator_id"`
	Timestamp    time.Time          `json:"timestamp"`
	EventType    IndicatorEventType `json:"event_type"`
	Severity     string             `json:"severity"` // info | warning | critical
	ValueBefore  float64            `json:"value_before"`
	ValueAfter   float64            `json:"value_after"`
	Acknowledged bool               `json:"acknowledged"`
	Description  string             `json:"description"`
}

// TrendDirection is the discrete seven-level trend label.
type TrendDirection string

const (
	TrendStrongRising  TrendDirection = "strong_rising"
	TrendRising        TrendDirection = "rising"
	TrendWeakRising    TrendDirection = "weak_rising"
	TrendStable        TrendDirection = "stable"
	TrendWeakFalling   TrendDirection = "weak_falling"
	TrendFalling       TrendDirection = "falling"
	TrendStrongFalling TrendDirection = "strong_falling"
)

// Negative reports whether the direction reads as deterioration for an
// indicator where high values are good.
func (d TrendDirection) Negative() bool {
	switch d {
	case TrendWeakFalling, TrendFalling, TrendStrongFalling:
		return true
	}
	return false
}

// ChangePoint marks a statistically unusual jump in a series.
type ChangePoint struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	ZScore float64   `json:"z_score"` // Of the day-over-day change
}

// TrendResult is the per-indicator trend analysis over a window.
type TrendResult struct {
	IndicatorID  string         `json:"indicator_id"`
	WindowDays   int            `json:"window_days"`
	Direction    TrendDirection `json:"direction"`
	Slope        float64        `json:"slope"`     // OLS slope, points per day
	RSquared     float64        `json:"r_squared"` // Regression fit
	PValue       float64        `json:"p_value"`
	Volatility   float64        `json:"volatility"` // Stddev of daily changes
	Momentum     float64        `json:"momentum"`   // RSI-style, recentered to [-100,100]
	Significant  bool           `json:"is_significant"`
	Seasonal     bool           `json:"seasonality_detected"` // Weekly autocorrelation
	ChangePoints []ChangePoint  `json:"change_points,omitempty"`
	ComputedAt   time.Time      `json:"computed_at"`
}

// ForecastMethod names one forecasting model.
type ForecastMethod string

const (
	ForecastLinear      ForecastMethod = "linear"
	ForecastExpSmooth   ForecastMethod = "exponential_smoothing"
	ForecastHoltLinear  ForecastMethod = "holt_linear"
	ForecastWeightedAvg ForecastMethod = "weighted_average"
	ForecastEnsemble    ForecastMethod = "ensemble"
)

// ForecastPoint is one step of a projected indicator series.
type ForecastPoint struct {
	IndicatorID string         `json:"indicator_id"`
	DaysAhead   int            `json:"days_ahead"`
	Date        time.Time      `json:"date"`
	Forecast    float64        `json:"forecast_value"` // [0,100]
	Lower       float64        `json:"lower_bound"`    // Clipped to [0,100]
	Upper       float64        `json:"upper_bound"`
	Confidence  float64        `json:"confidence"` // Decays with horizon
	Method      ForecastMethod `json:"method"`
}

// CategoryComposite is the weighted summary of one PESTEL category for a run.
type CategoryComposite struct {
	Category    PESTELCategory `json:"category"`
	Timestamp   time.Time      `json:"timestamp"`
	Value       float64        `json:"value"`      // [0,100] confidence-weighted mean of members
	Confidence  float64        `json:"confidence"` // Mean member confidence
	MemberCount int            `json:"member_count"`
	TopMovers   []string       `json:"top_movers,omitempty"` // Indicator ids with the largest deltas
	ComputedAt  time.Time      `json:"computed_at"`
}

// CategoryWeight returns a category's weight in the cross-category mean.
// Economic coverage moves the needle hardest.
func CategoryWeight(c PESTELCategory) float64 {
	if c == CategoryEconomic {
		return 1.2
	}
	return 1.0
}

// NationalActivityIndex is the single cross-category health number.
type NationalActivityIndex struct {
	Timestamp  time.Time `json:"timestamp"`
	Value      float64   `json:"value"` // [0,100]
	Band       string    `json:"band"`
	Confidence float64   `json:"confidence"`
	ComputedAt time.Time `json:"computed_at"`
}

// NAIBandFor maps an index value onto its qualitative band.
func NAIBandFor(v float64) string {
	switch {
	case v >= 80:
		return "very_high"
	case v >= 65:
		return "high"
	case v >= 55:
		return "moderate"
	case v >= 45:
		return "neutral"
	case v >= 35:
		return "low"
	case v >= 20:
		return "declining"
	default:
		return "critical"
	}
}
