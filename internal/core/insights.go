package core

import "time"

// Severity bands an insight's final score. Bands are closed below.
type Severity string

const (
	SeverityCritical Severity = "critical" // final score >= 40
	SeverityHigh     Severity = "high"     // >= 30
	SeverityMedium   Severity = "medium"   // >= 15
	SeverityLow      Severity = "low"
)

// SeverityFor maps a final score onto its band.
func SeverityFor(score float64) Severity {
	switch {
	case score >= 40:
		return SeverityCritical
	case score >= 30:
		return SeverityHigh
	case score >= 15:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Weight orders severities for aggregate math (critical heaviest).
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// DetectionMethod records how an insight was found.
type DetectionMethod string

const (
	MethodRule     DetectionMethod = "rule_based"
	MethodPattern  DetectionMethod = "pattern"
	MethodML       DetectionMethod = "ml"
	MethodCombined DetectionMethod = "combined" // Rule and pattern agreed
)

// BaseConfidence returns the confidence assigned to a detection method.
func (m DetectionMethod) BaseConfidence() float64 {
	switch m {
	case MethodRule:
		return 0.85
	case MethodPattern:
		return 0.80
	case MethodCombined:
		return 0.90
	default:
		return 0.75
	}
}

// CompanyScale adjusts impact for the size of the affected company.
// Smaller companies absorb the same shock harder.
type CompanyScale string

const (
	ScaleSmall      CompanyScale = "small"
	ScaleMedium     CompanyScale = "medium"
	ScaleLarge      CompanyScale = "large"
	ScaleEnterprise CompanyScale = "enterprise"
)

// Multiplier returns the impact multiplier for a company scale.
func (s CompanyScale) Multiplier() float64 {
	switch s {
	case ScaleSmall:
		return 1.3
	case ScaleLarge:
		return 0.9
	case ScaleEnterprise:
		return 0.8
	default:
		return 1.0
	}
}

// DetectedRisk is a company-facing threat derived from indicator state.
// FinalScore is always probability * impact * urgency * confidence.
type DetectedRisk struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"` // Catalog code, unique per company per run
	CompanyID   string             `json:"company_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    PESTELCategory     `json:"category"`
	Probability float64            `json:"probability"` // [0,1]
	Impact      float64            `json:"impact"`      // [0,10]
	Urgency     float64            `json:"urgency"`     // [1,5]
	Confidence  float64            `json:"confidence"`  // [0,1]
	FinalScore  float64            `json:"final_score"`
	Severity    Severity           `json:"severity_level"`
	Triggers    map[string]float64 `json:"triggering_indicators"` // Indicator id -> value at detection
	Method      DetectionMethod    `json:"detection_method"`
	Reasoning   string             `json:"reasoning"`
	Narrative   string             `json:"narrative,omitempty"`
	Immediate   bool               `json:"requires_immediate_action"`
	DetectedAt  time.Time          `json:"detected_at"`
}

// DetectedOpportunity is the favorable counterpart of DetectedRisk. It
// carries the same score decomposition plus the value/feasibility pair
// the portfolio ranking uses.
type DetectedOpportunity struct {
	ID          string             `json:"id"`
	Code        string             `json:"code"`
	CompanyID   string             `json:"company_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Category    PESTELCategory     `json:"category"`
	Probability float64            `json:"probability"` // [0,1]
	Impact      float64            `json:"impact"`      // [0,10]
	Urgency     float64            `json:"urgency"`     // [1,5]
	Confidence  float64            `json:"confidence"`  // [0,1]
	FinalScore  float64            `json:"final_score"`
	Severity    Severity           `json:"severity_level"` // Reads as priority
	Value       float64            `json:"value"`          // [0,10] upside magnitude
	Feasibility float64            `json:"feasibility"`    // [0,1] after business-scale modifier
	Triggers    map[string]float64 `json:"triggering_indicators"`
	Method      DetectionMethod    `json:"detection_method"`
	Reasoning   string             `json:"reasoning"`
	Narrative   string             `json:"narrative,omitempty"`
	DetectedAt  time.Time          `json:"detected_at"`
}

// RecommendationCategory buckets actions by horizon.
type RecommendationCategory string

const (
	RecImmediate  RecommendationCategory = "immediate"
	RecShortTerm  RecommendationCategory = "short_term"
	RecMediumTerm RecommendationCategory = "medium_term"
	RecLongTerm   RecommendationCategory = "long_term"
)

// Recommendation is one suggested action attached to an insight bundle.
// Priority 1 is highest.
type Recommendation struct {
	ID        string                 `json:"id"`
	CompanyID string                 `json:"company_id"`
	InsightID string                 `json:"insight_id"` // Risk or opportunity id it answers
	Action    string                 `json:"action"`
	Rationale string                 `json:"rationale"`
	Category  RecommendationCategory `json:"category"`
	Priority  int                    `json:"priority"`
	CreatedAt time.Time              `json:"created_at"`
}

// CompanyProfile describes a monitored company for insight generation.
type CompanyProfile struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Sector        string       `json:"sector"` // One of the sector taxonomy keys
	Scale         CompanyScale `json:"scale"`
	AnnualRevenue float64      `json:"annual_revenue"` // In millions, for narrative framing
	DebtLoad      float64      `json:"debt_load"`      // Debt-to-revenue ratio, scales financial impact
	Districts     []string     `json:"districts"`      // Operating districts
	WeightProfile string       `json:"weight_profile"` // Impact-scoring profile name
	Watchlist     []string     `json:"watchlist"`      // Indicator ids to always include
	CreatedAt     time.Time    `json:"created_at"`
}

// DebtModifier scales financial-category impact by leverage. Unleveraged
// companies sit at 1.0; heavy debt amplifies up to 1.4.
func (p *CompanyProfile) DebtModifier() float64 {
	m := 1.0 + 0.4*p.DebtLoad
	if m > 1.4 {
		m = 1.4
	}
	if m < 1.0 {
		m = 1.0
	}
	return m
}

// PortfolioMetrics is the aggregate health view across one company's insights.
type PortfolioMetrics struct {
	CompanyID         string         `json:"company_id"`
	Timestamp         time.Time      `json:"timestamp"`
	PortfolioRisk     float64        `json:"portfolio_risk_score"` // Severity-weighted mean of final scores
	SeverityBreakdown map[string]int `json:"severity_breakdown"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	TopRisks          []string       `json:"top_risks"`         // Ordered risk ids, max 5
	TopOpportunities  []string       `json:"top_opportunities"` // Ordered opportunity ids, max 5
	ComputedAt        time.Time      `json:"computed_at"`
}

// InsightBundle is the complete per-company output of one insight run. It
// is what the read API serves and what subscribers receive.
type InsightBundle struct {
	CompanyID       string                `json:"company_id"`
	GeneratedAt     time.Time             `json:"generated_at"`
	Risks           []DetectedRisk        `json:"risks"`
	Opportunities   []DetectedOpportunity `json:"opportunities"`
	Recommendations []Recommendation      `json:"recommendations"`
	Portfolio       PortfolioMetrics      `json:"portfolio"`
	NAI             NationalActivityIndex `json:"nai"`
	Degraded        bool                  `json:"degraded,omitempty"` // Partial data, some stage failed
}
