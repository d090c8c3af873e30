package core

import "time"

// ClaimType is the closed set of factual claim shapes the validator extracts.
type ClaimType string

const (
	ClaimNumeric    ClaimType = "numeric"    // Quantity with unit ("fuel price up 20%")
	ClaimEventDate  ClaimType = "event_date" // Something happened or will happen on a date
	ClaimAttributed ClaimType = "attributed" // Statement attributed to a named party
	ClaimStatus     ClaimType = "status"     // Binary state assertion ("port reopened")
)

// Claim is one checkable assertion pulled from an article.
type Claim struct {
	ArticleID string    `json:"article_id"`
	Type      ClaimType `json:"type"`
	Subject   string    `json:"subject"` // Normalized subject key
	Value     string    `json:"value"`   // Normalized claim value
	Snippet   string    `json:"snippet"` // Supporting text, trimmed
}

// ValidationStatus is the outcome of cross-source validation.
type ValidationStatus string

const (
	ValidationConfirmed    ValidationStatus = "confirmed"
	ValidationUnconfirmed  ValidationStatus = "unconfirmed"
	ValidationContradicted ValidationStatus = "contradicted"
)

// CorroborationLevel grades how widely an article's claims are echoed by
// other recent coverage.
type CorroborationLevel string

const (
	CorroborationNone     CorroborationLevel = "none"
	CorroborationWeak     CorroborationLevel = "weak"     // A single matching claim
	CorroborationModerate CorroborationLevel = "moderate" // 2-3 matches across >=2 sources
	CorroborationStrong   CorroborationLevel = "strong"   // >=4 matches across >=3 sources
	CorroborationVerified CorroborationLevel = "verified" // Strong, with an official source among them
)

// Weight maps the level onto [0,1] for the trust formula.
func (c CorroborationLevel) Weight() float64 {
	switch c {
	case CorroborationVerified:
		return 1.0
	case CorroborationStrong:
		return 0.75
	case CorroborationModerate:
		return 0.5
	case CorroborationWeak:
		return 0.25
	default:
		return 0
	}
}

// TrustLevel is the qualitative band over TrustScore.
type TrustLevel string

const (
	TrustVerified   TrustLevel = "verified"
	TrustHigh       TrustLevel = "high"
	TrustModerate   TrustLevel = "moderate"
	TrustLow        TrustLevel = "low"
	TrustUnverified TrustLevel = "unverified"
)

// TrustLevelFor bands a [0,100] trust score.
func TrustLevelFor(score float64) TrustLevel {
	switch {
	case score >= 85:
		return TrustVerified
	case score >= 70:
		return TrustHigh
	case score >= 55:
		return TrustModerate
	case score >= 40:
		return TrustLow
	default:
		return TrustUnverified
	}
}

// CrossValidationResult records how an article's claims fared against the
// rest of recent coverage.
type CrossValidationResult struct {
	ArticleID          string             `json:"article_id"`
	ClusterID          string             `json:"cluster_id,omitempty"`
	Status             ValidationStatus   `json:"status"`
	SourceReputation   float64            `json:"source_reputation"` // [0,1] at check time
	Claims             []Claim            `json:"claims,omitempty"`
	Corroboration      CorroborationLevel `json:"corroboration"`
	ConfirmingCount    int                `json:"confirming_count"` // Distinct agreeing sources
	ContradictingCount int                `json:"contradicting_count"`
	Contradictions     []string           `json:"contradictions,omitempty"` // Human-readable conflict notes
	TrustScore         float64            `json:"trust_score"`              // [0,100]
	TrustLevel         TrustLevel         `json:"trust_level"`
	CheckedAt          time.Time          `json:"checked_at"`
}

// ImpactScore is the multi-factor business impact assessment of an article.
type ImpactScore struct {
	ArticleID    string             `json:"article_id"`
	Profile      string             `json:"profile"`    // Weight profile used
	Overall      float64            `json:"overall"`    // [0,100]
	Confidence   float64            `json:"confidence"` // [0,1] adjustment applied to the weighted sum
	Factors      map[string]float64 `json:"factors"`    // Axis name -> [0,100]
	Sectors      []string           `json:"sectors"`    // Affected sector keys, ranked
	Districts    []string           `json:"districts"`
	EventType    string             `json:"event_type,omitempty"` // Recognized event reshaping sector weights
	CascadeDepth int                `json:"cascade_depth"`        // Longest propagation chain applied
	PriorityRank int                `json:"priority_rank"`        // 1 (critical) .. 5
	ComputedAt   time.Time          `json:"computed_at"`
}

// FastTrack reports whether the article bypasses batched processing.
func (s *ImpactScore) FastTrack() bool { return s.PriorityRank <= 2 }
