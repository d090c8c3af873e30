// Package cache decides whether a source needs scraping at all. Four levels
// of change detection run in order, each cheaper than a full scrape: TTL
// expiry, conditional HEAD, content signature and an RSS-specific snapshot
// for feed URLs.
package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/kv"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

// Decision reasons. The set is closed; metrics label on it.
const (
	ReasonForced         = "forced"
	ReasonNoEntry        = "no_cache_entry"
	ReasonTTLExpired     = "ttl_expired"
	ReasonNotModified304 = "not_modified_304"
	ReasonETagMatch      = "etag_match"
	ReasonHeadersChanged = "validators_changed"
	ReasonSignatureMatch = "signature_match"
	ReasonSignatureDiff  = "signature_changed"
	ReasonRSSUnchanged   = "rss_unchanged"
	ReasonRSSChanged     = "rss_changed"
	ReasonInconclusive   = "revalidation_inconclusive"
	ReasonProbeError     = "revalidation_error"
)

// Decision is the outcome of NeedsScraping. It never carries an error;
// probe failures lower the confidence and default to fetching.
type Decision struct {
	Fetch      bool    `json:"fetch"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// SmartCache coordinates revalidation state in the KV store with cheap
// HTTP probes against the source.
type SmartCache struct {
	store  kv.Store
	client *http.Client
	cfg    config.CacheConfig
	ua     string
	reg    *metrics.Registry
	log    zerolog.Logger
}

// NewSmartCache builds the cache layer. A nil client gets a 10s-timeout
// default.
func NewSmartCache(store kv.Store, client *http.Client, cfg config.CacheConfig, reg *metrics.Registry, userAgent string) *SmartCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SmartCache{
		store:  store,
		client: client,
		cfg:    cfg,
		ua:     userAgent,
		reg:    reg,
		log:    logger.With("cache"),
	}
}

func entryKey(sourceID string) string    { return "cache:entry:" + sourceID }
func articlesKey(sourceID string) string { return "cache:articles:" + sourceID }
func rssKey(sourceID string) string      { return "cache:rss:" + sourceID }
func ttlMulKey(sourceID string) string   { return "cache:ttlmul:" + sourceID }

// NeedsScraping evaluates the four detection levels in order and short
// circuits on the first definitive verdict. A missing entry, a forced call
// or an expired TTL always mean fetch; within the TTL the cheaper network
// probes decide.
func (c *SmartCache) NeedsScraping(ctx context.Context, sourceID, url string, sourceType core.SourceType, force bool) Decision {
	d := c.evaluate(ctx, sourceID, url, sourceType, force)

	decision := "miss"
	if !d.Fetch {
		decision = "hit"
	}
	c.reg.CacheDecision(sourceID, decision, d.Reason)
	c.log.Debug().
		Str("source", sourceID).
		Bool("fetch", d.Fetch).
		Str("reason", d.Reason).
		Float64("confidence", d.Confidence).
		Msg("cache decision")
	return d
}

func (c *SmartCache) evaluate(ctx context.Context, sourceID, url string, sourceType core.SourceType, force bool) Decision {
	if force {
		return Decision{Fetch: true, Reason: ReasonForced, Confidence: 1.0}
	}

	var entry core.CacheEntry
	if err := kv.GetJSON(ctx, c.store, entryKey(sourceID), &entry); err != nil {
		return Decision{Fetch: true, Reason: ReasonNoEntry, Confidence: 1.0}
	}

	// Level 1: TTL expiry trumps every validator.
	if time.Now().After(entry.ExpiresAt) {
		return Decision{Fetch: true, Reason: ReasonTTLExpired, Confidence: 1.0}
	}

	// Level 2: conditional HEAD against stored validators.
	if d, definitive := c.probeHead(ctx, url, entry); definitive {
		return d
	}

	// Level 3/4: signature for pages, snapshot diff for feeds.
	if isFeedURL(url) {
		if d, definitive := c.probeRSS(ctx, sourceID, url); definitive {
			return d
		}
	} else {
		if d, definitive := c.probeSignature(ctx, sourceID, url, entry); definitive {
			return d
		}
	}

	return Decision{Fetch: true, Reason: ReasonInconclusive, Confidence: 0.5}
}

// probeHead runs the conditional HEAD level. definitive is false when the
// server gave nothing to compare against.
func (c *SmartCache) probeHead(ctx context.Context, url string, entry core.CacheEntry) (Decision, bool) {
	if entry.ETag == "" && entry.LastModified == "" {
		return Decision{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return Decision{Fetch: true, Reason: ReasonProbeError, Confidence: 0.5}, true
	}
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}
	if entry.LastModified != "" {
		req.Header.Set("If-Modified-Since", entry.LastModified)
	}
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.client.Do(req)
	if err != nil {
		return Decision{Fetch: true, Reason: ReasonProbeError, Confidence: 0.5}, true
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Decision{Fetch: false, Reason: ReasonNotModified304, Confidence: 1.0}, true
	case resp.StatusCode == http.StatusOK:
		etag := resp.Header.Get("ETag")
		lastMod := resp.Header.Get("Last-Modified")
		if etag != "" && etag == entry.ETag {
			return Decision{Fetch: false, Reason: ReasonETagMatch, Confidence: 0.95}, true
		}
		if etag == "" && lastMod != "" && lastMod == entry.LastModified {
			return Decision{Fetch: false, Reason: ReasonETagMatch, Confidence: 0.9}, true
		}
		if (etag != "" && entry.ETag != "") || (lastMod != "" && entry.LastModified != "") {
			return Decision{Fetch: true, Reason: ReasonHeadersChanged, Confidence: 0.95}, true
		}
		// Server answered but sent no validators; fall through.
		return Decision{}, false
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		return Decision{}, false
	default:
		return Decision{Fetch: true, Reason: ReasonProbeError, Confidence: 0.5}, true
	}
}

// probeSignature downloads a bounded sample and compares the normalized
// MD5 against the stored signature. The freshly computed signature always
// replaces the stored one so drift never accumulates.
func (c *SmartCache) probeSignature(ctx context.Context, sourceID, url string, entry core.CacheEntry) (Decision, bool) {
	sample, err := c.fetchSample(ctx, url)
	if err != nil {
		return Decision{Fetch: true, Reason: ReasonProbeError, Confidence: 0.5}, true
	}

	sig := Signature(sample)
	prev := entry.ContentSignature
	entry.ContentSignature = sig
	if err := kv.SetJSON(ctx, c.store, entryKey(sourceID), entry, c.cfg.ArticleTTL); err != nil {
		c.log.Warn().Err(err).Str("source", sourceID).Msg("storing refreshed signature failed")
	}

	if prev == "" {
		return Decision{}, false
	}
	if sig == prev {
		return Decision{Fetch: false, Reason: ReasonSignatureMatch, Confidence: 0.9}, true
	}
	return Decision{Fetch: true, Reason: ReasonSignatureDiff, Confidence: 0.9}, true
}

// fetchSample issues a Range GET for the first SampleBytes of the page,
// falling back to a truncated full read when the server ignores ranges.
func (c *SmartCache) fetchSample(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	n := c.cfg.SampleBytes
	if n <= 0 {
		n = 8192
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))
	req.Header.Set("User-Agent", c.ua)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("sample fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(n)))
}

// CacheArticles stores the scraped article set and the revalidation
// metadata from the response headers. Validators live longer than the TTL
// so conditional requests keep working after expiry.
func (c *SmartCache) CacheArticles(ctx context.Context, sourceID, url string, sourceType core.SourceType, articles []core.RawArticle, headers map[string]string) error {
	ttl := c.effectiveTTL(ctx, sourceID, sourceType)
	now := time.Now()

	entry := core.CacheEntry{
		SourceID:     sourceID,
		URL:          url,
		ETag:         headers["ETag"],
		LastModified: headers["Last-Modified"],
		ArticleCount: len(articles),
		CachedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}

	if err := kv.SetJSON(ctx, c.store, entryKey(sourceID), entry, c.cfg.ArticleTTL); err != nil {
		return fmt.Errorf("caching entry for %s: %w", sourceID, err)
	}
	if err := kv.SetJSON(ctx, c.store, articlesKey(sourceID), articles, c.cfg.ArticleTTL); err != nil {
		return fmt.Errorf("caching articles for %s: %w", sourceID, err)
	}
	return nil
}

// GetCachedArticles returns the last stored article set for a source.
func (c *SmartCache) GetCachedArticles(ctx context.Context, sourceID string) ([]core.RawArticle, error) {
	var articles []core.RawArticle
	if err := kv.GetJSON(ctx, c.store, articlesKey(sourceID), &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// Invalidate removes cache keys matching the pattern ("*" clears all
// sources) and returns how many keys were dropped.
func (c *SmartCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	keys, err := c.store.Keys(ctx, "cache:*"+pattern+"*")
	if err != nil {
		return 0, fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// SetTTLMultiplier records a learning-layer TTL adjustment for one source.
// The multiplier is clamped to [0.25, 4].
func (c *SmartCache) SetTTLMultiplier(ctx context.Context, sourceID string, mul float64) error {
	if mul < 0.25 {
		mul = 0.25
	}
	if mul > 4 {
		mul = 4
	}
	return c.store.Set(ctx, ttlMulKey(sourceID), strconv.FormatFloat(mul, 'f', 3, 64), 0)
}

func (c *SmartCache) effectiveTTL(ctx context.Context, sourceID string, sourceType core.SourceType) time.Duration {
	base := c.cfg.TTLFor(string(sourceType))
	if base <= 0 {
		base = 15 * time.Minute
	}
	raw, err := c.store.Get(ctx, ttlMulKey(sourceID))
	if err != nil {
		return base
	}
	mul, err := strconv.ParseFloat(raw, 64)
	if err != nil || mul <= 0 {
		return base
	}
	return time.Duration(float64(base) * mul)
}

func isFeedURL(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "/rss") || strings.Contains(u, "/feed") ||
		strings.HasSuffix(u, ".xml") || strings.Contains(u, "format=rss") ||
		strings.Contains(u, "/atom")
}
