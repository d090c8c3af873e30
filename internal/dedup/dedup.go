// Package dedup classifies incoming articles as unique, related or
// duplicates of recently seen coverage, and maintains the clusters that
// group articles telling one story.
package dedup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/embed"
	"newslens/internal/kv"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

const (
	titleWeight = 0.4
	bodyWeight  = 0.6
	searchTopK  = 10
)

// CheckResult is the dedup verdict for one article.
type CheckResult struct {
	Status           core.DuplicateType `json:"status"`
	Similarity       float64            `json:"similarity_score"`
	MatchedArticleID string             `json:"matched_article_id,omitempty"`
	ClusterID        string             `json:"cluster_id,omitempty"`
}

// CredibilityFunc resolves a source's current reputation for primary
// election. Wired to the validation layer; defaults to a flat 0.5.
type CredibilityFunc func(sourceID string) float64

// Deduplicator runs the duplicate check: URL identity, then combined
// title and body embedding, similarity search and threshold
// classification, with cluster bookkeeping for anything that matches.
type Deduplicator struct {
	embedder embed.Embedder
	local    *embed.Local
	index    *VectorIndex
	clusters *ClusterManager
	cfg      config.DedupConfig
	cred     CredibilityFunc
	reg      *metrics.Registry
	log      zerolog.Logger

	urlMu   sync.Mutex
	urlSeen map[string]urlRecord
}

type urlRecord struct {
	articleID string
	seenAt    time.Time
}

// NewDeduplicator builds the dedup layer. embedder may equal the local
// embedder; store may be nil in tests; cred may be nil.
func NewDeduplicator(embedder embed.Embedder, store kv.Store, cfg config.DedupConfig, cred CredibilityFunc, reg *metrics.Registry) *Deduplicator {
	if cfg.ExactThreshold <= 0 {
		cfg.ExactThreshold = 0.95
	}
	if cfg.NearThreshold <= 0 {
		cfg.NearThreshold = 0.85
	}
	if cfg.RelatedThreshold <= 0 {
		cfg.RelatedThreshold = 0.70
	}
	if cfg.WindowHours <= 0 {
		cfg.WindowHours = 48
	}
	if cred == nil {
		cred = func(string) float64 { return 0.5 }
	}
	local := embed.NewLocal(embedder.Dimensions())
	return &Deduplicator{
		embedder: embedder,
		local:    local,
		index: NewVectorIndex(IndexOptions{
			MaxVectors:   cfg.MaxVectors,
			Window:       time.Duration(cfg.WindowHours) * time.Hour,
			IVFThreshold: cfg.IVFThreshold,
			Probes:       cfg.IVFProbes,
			RetrainAfter: cfg.RetrainEvictions,
		}),
		clusters: NewClusterManager(store),
		cfg:      cfg,
		cred:     cred,
		reg:      reg,
		log:      logger.With("dedup"),
		urlSeen:  make(map[string]urlRecord),
	}
}

// Clusters exposes the cluster manager for the read API.
func (d *Deduplicator) Clusters() *ClusterManager { return d.clusters }

// IndexSize reports the resident vector count.
func (d *Deduplicator) IndexSize() int { return d.index.Len() }

// Check classifies one article against the recent window. It only errors
// on context cancellation; embedder failures degrade to the lexical scan.
func (d *Deduplicator) Check(ctx context.Context, article *core.RawArticle) (CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return CheckResult{}, err
	}

	at := article.ScrapeTimestamp
	if at.IsZero() {
		at = time.Now()
	}

	// A re-scrape of the same canonical URL is an exact duplicate of
	// itself, no embedding needed.
	if res, done := d.checkURL(article, at); done {
		d.record(res)
		return res, nil
	}

	// The lexical vector is always computed; it backs the fallback scan
	// when the active embedder is down.
	localVec := d.localVector(article)
	vector, usingFallback := d.articleVector(ctx, article, localVec)

	var matches []Match
	if d.index.Len() > 0 {
		if usingFallback {
			matches = d.index.SearchLocal(localVec, searchTopK, article.ArticleID)
		} else {
			matches = d.index.Search(vector, searchTopK, article.ArticleID)
		}
	}

	res := d.classify(ctx, article, at, matches)

	d.index.Add(article.ArticleID, article.SourceID, vector, localVec, article.WordCount(), at)
	d.reg.SetIndexSize(d.index.Len())
	d.record(res)
	return res, nil
}

func (d *Deduplicator) checkURL(article *core.RawArticle, at time.Time) (CheckResult, bool) {
	key := canonicalURL(article.URL)
	d.urlMu.Lock()
	defer d.urlMu.Unlock()

	if rec, ok := d.urlSeen[key]; ok && rec.articleID != "" {
		res := CheckResult{
			Status:           core.DuplicateExact,
			Similarity:       1.0,
			MatchedArticleID: rec.articleID,
		}
		if clusterID, ok := d.clusters.ClusterOf(rec.articleID); ok {
			res.ClusterID = clusterID
		}
		return res, true
	}
	d.urlSeen[key] = urlRecord{articleID: article.ArticleID, seenAt: at}
	return CheckResult{}, false
}

func (d *Deduplicator) localVector(article *core.RawArticle) []float64 {
	titleVec, _ := d.local.Embed(context.Background(), article.Title)
	bodyVec, _ := d.local.Embed(context.Background(), article.Body)
	return embed.Combine(titleVec, bodyVec, titleWeight, bodyWeight)
}

// articleVector returns the search-space vector and whether the lexical
// fallback had to stand in for it.
func (d *Deduplicator) articleVector(ctx context.Context, article *core.RawArticle, localVec []float64) ([]float64, bool) {
	if _, isLocal := d.embedder.(*embed.Local); isLocal {
		return localVec, false
	}
	vecs, err := d.embedder.EmbedBatch(ctx, []string{article.Title, article.Body})
	if err != nil {
		d.log.Warn().Err(err).Str("article", article.ArticleID).Msg("embedding failed, using lexical fallback")
		return localVec, true
	}
	return embed.Combine(vecs[0], vecs[1], titleWeight, bodyWeight), false
}

func (d *Deduplicator) classify(ctx context.Context, article *core.RawArticle, at time.Time, matches []Match) CheckResult {
	if len(matches) == 0 {
		return CheckResult{Status: core.DuplicateUnique}
	}

	best := matches[0]
	res := CheckResult{Similarity: best.Score, MatchedArticleID: best.ArticleID}
	switch {
	case best.Score >= d.cfg.ExactThreshold:
		res.Status = core.DuplicateExact
	case best.Score >= d.cfg.NearThreshold:
		res.Status = core.DuplicateNear
	case best.Score >= d.cfg.RelatedThreshold:
		res.Status = core.DuplicateRelated
	default:
		return CheckResult{Status: core.DuplicateUnique}
	}

	member := core.ClusterMember{
		ArticleID:   article.ArticleID,
		SourceID:    article.SourceID,
		Similarity:  best.Score,
		Credibility: d.cred(article.SourceID),
		WordCount:   article.WordCount(),
		ScrapedAt:   at,
	}

	if clusterID, ok := d.clusters.ClusterOf(best.ArticleID); ok {
		d.clusters.Add(ctx, clusterID, member)
		res.ClusterID = clusterID
		return res
	}

	matched := core.ClusterMember{
		ArticleID:   best.ArticleID,
		SourceID:    best.SourceID,
		Similarity:  1.0,
		Credibility: d.cred(best.SourceID),
		WordCount:   best.Words,
		ScrapedAt:   best.AddedAt,
	}
	res.ClusterID = d.clusters.Create(ctx, article.Title, matched, member)
	return res
}

// Sweep evicts aged vectors and URL records. Returns how many vectors
// were dropped.
func (d *Deduplicator) Sweep(now time.Time) int {
	evicted := d.index.Sweep(now)
	d.reg.SetIndexSize(d.index.Len())

	cutoff := now.Add(-time.Duration(d.cfg.WindowHours) * time.Hour)
	d.urlMu.Lock()
	for key, rec := range d.urlSeen {
		if rec.seenAt.Before(cutoff) {
			delete(d.urlSeen, key)
		}
	}
	d.urlMu.Unlock()
	return evicted
}

func (d *Deduplicator) record(res CheckResult) {
	d.reg.DedupOutcome(string(res.Status))
}

// canonicalURL lowercases the scheme and host and strips fragments and
// trailing slashes, so trivially different links hash identically.
func canonicalURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimSuffix(u, "/")
	if i := strings.Index(u, "://"); i >= 0 {
		scheme := strings.ToLower(u[:i])
		rest := u[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			u = scheme + "://" + strings.ToLower(rest[:j]) + rest[j:]
		} else {
			u = scheme + "://" + strings.ToLower(rest)
		}
	}
	return u
}
