// Package core defines the shared data model for the newslens pipeline.
package core

import (
	"time"

	"github.com/google/uuid"
)

// SourceTier groups sources by editorial standing. The tier seeds the
// quantitative reputation score; it never changes after registration.
type SourceTier string

const (
	TierOfficial    SourceTier = "official"
	TierOne         SourceTier = "tier1"
	TierTwo         SourceTier = "tier2"
	TierUnknown     SourceTier = "unknown"
	TierBlacklisted SourceTier = "blacklisted"
)

// BaseScore returns the reputation score a tier starts with.
func (t SourceTier) BaseScore() float64 {
	switch t {
	case TierOfficial:
		return 0.95
	case TierOne:
		return 0.80
	case TierTwo:
		return 0.65
	case TierBlacklisted:
		return 0.0
	default:
		return 0.30
	}
}

// MaxScore returns the ceiling a tier's reputation can be raised to.
func (t SourceTier) MaxScore() float64 {
	switch t {
	case TierOfficial:
		return 1.0
	case TierOne:
		return 0.92
	case TierTwo:
		return 0.80
	case TierBlacklisted:
		return 0.0
	default:
		return 0.60
	}
}

// SourceType selects the cache TTL band and scraping behaviour for a source.
type SourceType string

const (
	SourceTypeNews       SourceType = "news"
	SourceTypeGovernment SourceType = "government"
	SourceTypeAPI        SourceType = "api"
	SourceTypeSocial     SourceType = "social"
	SourceTypeFinancial  SourceType = "financial"
)

// Source is a registered scrape target.
type Source struct {
	ID          string     `json:"id"`          // Stable source identifier (e.g. "ada_derana")
	Name        string     `json:"name"`        // Human-readable name
	URL         string     `json:"url"`         // Landing or feed URL
	FeedURL     string     `json:"feed_url"`    // RSS/Atom feed URL when available
	Type        SourceType `json:"type"`        // Drives cache TTL selection
	Tier        SourceTier `json:"tier"`        // Editorial tier
	Language    string     `json:"language"`    // ISO language code
	Concurrency int        `json:"concurrency"` // Max parallel fetches (default 5)
	Active      bool       `json:"active"`      // Whether the source is polled
	AddedAt     time.Time  `json:"added_at"`    // When the source was registered
}

// RawArticle is the immutable output of L1 scraping. It is owned by L1;
// downstream layers read it but never mutate it.
type RawArticle struct {
	ArticleID       string            `json:"article_id"`       // Stable hash of the canonical URL
	SourceID        string            `json:"source_id"`        // Originating source
	ScrapeTimestamp time.Time         `json:"scrape_timestamp"` // When the scraper fetched it
	Title           string            `json:"title"`            // Headline
	Body            string            `json:"body"`             // Cleaned article text
	Author          string            `json:"author"`           // Byline (may be empty)
	PublishDate     time.Time         `json:"publish_date"`     // Publication date from the source
	URL             string            `json:"url"`              // Canonical URL
	RawHeaders      map[string]string `json:"raw_html_headers"` // Response headers kept for cache revalidation
}

// WordCount returns the number of whitespace-delimited tokens in the body.
func (a *RawArticle) WordCount() int {
	n, inWord := 0, false
	for _, r := range a.Body {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

// AgeAt returns how old the article is relative to now, preferring the
// publish date and falling back to the scrape timestamp.
func (a *RawArticle) AgeAt(now time.Time) time.Duration {
	ts := a.PublishDate
	if ts.IsZero() {
		ts = a.ScrapeTimestamp
	}
	if ts.IsZero() {
		return 0
	}
	return now.Sub(ts)
}

// ArticleIDFor derives the stable article identifier from a canonical URL.
func ArticleIDFor(canonicalURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(canonicalURL)).String()
}

// ReputationPoint is one entry of a source's append-only reputation history.
type ReputationPoint struct {
	Timestamp time.Time `json:"timestamp"` // When the score was recorded
	Score     float64   `json:"score"`     // Reputation at that instant
}

// SourceReputation tracks the evolving standing of a source. Owned by L1;
// mutated only by the validation filter and the learning feedback loop.
type SourceReputation struct {
	SourceID        string            `json:"source_id"`
	Tier            SourceTier        `json:"tier"`
	ReputationScore float64           `json:"reputation_score"` // [0,1]
	QualityScore    float64           `json:"quality_score"`    // [0,1] rolling quality average
	AcceptedCount   int               `json:"accepted_count"`
	RejectedCount   int               `json:"rejected_count"`
	AutoDisabled    bool              `json:"auto_disabled"`
	LastUpdated     time.Time         `json:"last_updated"`
	History         []ReputationPoint `json:"history"` // Ordered oldest-first
}

// TotalObservations is the invariant accepted+rejected sum.
func (r *SourceReputation) TotalObservations() int {
	return r.AcceptedCount + r.RejectedCount
}

// CacheEntry is the revalidation metadata stored alongside cached articles.
type CacheEntry struct {
	SourceID         string    `json:"source_id"`
	URL              string    `json:"url"`
	ETag             string    `json:"etag"`              // From the last 200 response
	LastModified     string    `json:"last_modified"`     // Last-Modified header verbatim
	ContentSignature string    `json:"content_signature"` // MD5 of the normalized content sample
	ArticleCount     int       `json:"article_count"`
	CachedAt         time.Time `json:"cached_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// DuplicateType distinguishes how an article relates to an earlier one.
type DuplicateType string

const (
	DuplicateUnique  DuplicateType = "unique"
	DuplicateNear    DuplicateType = "near_duplicate"
	DuplicateExact   DuplicateType = "exact_duplicate"
	DuplicateRelated DuplicateType = "related"
)

// ClusterMember records one article's membership in a duplicate cluster.
type ClusterMember struct {
	ArticleID   string    `json:"article_id"`
	SourceID    string    `json:"source_id"`
	Similarity  float64   `json:"similarity_to_primary"` // [0,1] against the primary
	Credibility float64   `json:"credibility_score"`     // Source reputation at join time
	WordCount   int       `json:"word_count"`
	ScrapedAt   time.Time `json:"scraped_at"`
	IsPrimary   bool      `json:"is_primary"`
}

// DuplicateCluster groups articles judged to cover one story. Exactly one
// member is primary; the primary is re-elected on every membership change.
type DuplicateCluster struct {
	ClusterID     string          `json:"cluster_id"`
	TopicSummary  string          `json:"topic_summary"`
	PrimaryID     string          `json:"primary_article_id"`
	Members       []ClusterMember `json:"members"`
	UniqueSources int             `json:"unique_sources"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Member returns the member record for an article, if present.
func (c *DuplicateCluster) Member(articleID string) (ClusterMember, bool) {
	for _, m := range c.Members {
		if m.ArticleID == articleID {
			return m, true
		}
	}
	return ClusterMember{}, false
}

// EntityType is the closed ontology for extracted entities.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityMoney        EntityType = "money"
	EntityPercent      EntityType = "percent"
	EntityDate         EntityType = "date"
	EntityEvent        EntityType = "event"
)

// Entity is a ranked extraction from article text.
type Entity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Importance float64    `json:"importance"` // [0,1], drives ranking
}

// PESTELCategory is the closed six-way taxonomy used by L2 and L3.
type PESTELCategory string

const (
	CategoryPolitical     PESTELCategory = "political"
	CategoryEconomic      PESTELCategory = "economic"
	CategorySocial        PESTELCategory = "social"
	CategoryTechnological PESTELCategory = "technological"
	CategoryEnvironmental PESTELCategory = "environmental"
	CategoryLegal         PESTELCategory = "legal"
)

// PESTELCategories lists all categories in canonical order.
func PESTELCategories() []PESTELCategory {
	return []PESTELCategory{
		CategoryPolitical, CategoryEconomic, CategorySocial,
		CategoryTechnological, CategoryEnvironmental, CategoryLegal,
	}
}

// UrgencyLevel bands an article's time criticality.
type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "critical"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyLow      UrgencyLevel = "low"
)

// SentimentLevel is the discrete sentiment classification.
type SentimentLevel string

const (
	SentimentVeryNegative SentimentLevel = "very_negative"
	SentimentNegative     SentimentLevel = "negative"
	SentimentNeutral      SentimentLevel = "neutral"
	SentimentPositive     SentimentLevel = "positive"
	SentimentVeryPositive SentimentLevel = "very_positive"
)

// QualityBand groups the 0-100 quality score.
type QualityBand string

const (
	QualityExcellent QualityBand = "excellent" // >= 80
	QualityGood      QualityBand = "good"      // >= 60
	QualityFair      QualityBand = "fair"      // >= 40
	QualityPoor      QualityBand = "poor"      // < 40
)

// QualityBandFor maps a 0-100 quality score onto its band.
func QualityBandFor(score float64) QualityBand {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityFair
	default:
		return QualityPoor
	}
}

// EnrichedArticle is a RawArticle plus the L2 enrichment layers.
type EnrichedArticle struct {
	RawArticle

	PESTELCategory      PESTELCategory     `json:"pestel_category"`
	CategoryConfidences map[string]float64 `json:"category_confidences"` // indicator label -> confidence
	UrgencyLevel        UrgencyLevel       `json:"urgency_level"`
	BusinessRelevance   float64            `json:"business_relevance"` // [0,1]
	SentimentScore      float64            `json:"sentiment_score"`    // [-1,1]
	SentimentLevel      SentimentLevel     `json:"sentiment_level"`
	Entities            []Entity           `json:"entities"`
	TopicID             string             `json:"topic_id,omitempty"` // Cluster id when deduplicated
	QualityScore        float64            `json:"quality_score"`      // [0,100]
	QualityBand         QualityBand        `json:"quality_band"`
	TrustScore          float64            `json:"trust_score"`        // [0,100] from cross-source validation
	ImpactScore         float64            `json:"impact_score"`       // [0,100] business impact
	PriorityRank        int                `json:"priority_rank"`      // 1 (critical) .. 5
	Metadata            map[string]any     `json:"metadata,omitempty"` // Source-specific annotations
}
