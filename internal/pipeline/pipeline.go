// Package pipeline orchestrates one end-to-end run: source polling
// through enrichment, indicator aggregation and insight generation.
// Articles move between layers over bounded channels; a full queue
// blocks the producer rather than dropping work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"newslens/internal/cache"
	"newslens/internal/core"
	"newslens/internal/dedup"
	"newslens/internal/docstore"
	"newslens/internal/enrich"
	"newslens/internal/impact"
	"newslens/internal/indicators"
	"newslens/internal/insights"
	"newslens/internal/learning"
	"newslens/internal/logger"
	"newslens/internal/metrics"
	"newslens/internal/quality"
	"newslens/internal/scrape"
	"newslens/internal/sources"
	"newslens/internal/validate"
)

// ErrRunInProgress rejects overlapping runs; the scheduler serializes
// them instead.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// ValueSink receives indicator values for durable storage.
type ValueSink interface {
	Insert(ctx context.Context, v core.IndicatorValue) error
}

// EventSink receives indicator events for durable storage.
type EventSink interface {
	Insert(ctx context.Context, e core.IndicatorEvent) error
}

// Config bounds the run's concurrency and per-stage deadlines.
type Config struct {
	Workers         int           // Per-layer pool size
	QueueDepth      int           // Bounded channel capacity between layers
	NetworkTimeout  time.Duration // Per-source scrape budget
	LLMTimeout      time.Duration // Per-article enrichment budget
	TrendWindowDays int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = 64
	}
	if c.NetworkTimeout <= 0 {
		c.NetworkTimeout = 10 * time.Second
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 30 * time.Second
	}
	if c.TrendWindowDays <= 0 {
		c.TrendWindowDays = 14
	}
	return c
}

// Deps wires the layer components. Sources, Scraper, Validator, Impact,
// Enricher and Aggregator are required; the rest degrade gracefully when
// absent.
type Deps struct {
	Sources    *sources.Registry
	Scraper    scrape.Scraper
	Cache      *cache.SmartCache
	Dedup      *dedup.Deduplicator
	Validator  *validate.Validator
	Quality    *quality.Scorer
	Impact     *impact.Scorer
	Enricher   *enrich.Enricher
	Aggregator *indicators.Aggregator
	Series     *indicators.SeriesStore
	Generator  *insights.Generator
	Profiles   *insights.ProfileRegistry
	Feedback   *learning.FeedbackLoop
	Ops        *learning.MetricsTracker
	Tuner      *learning.AutoTuner
	Docs       *docstore.Store
	Values     ValueSink
	Events     EventSink
	Metrics    *metrics.Registry
}

// Pipeline is the run orchestrator. One instance serves the whole
// process; Run rejects overlap.
type Pipeline struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	mu       sync.Mutex
	running  bool
	snapshot *indicators.Snapshot
}

// LastSnapshot returns the most recent aggregation result, or nil before
// the first completed run.
func (p *Pipeline) LastSnapshot() *indicators.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// Result summarizes one run.
type Result struct {
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	SourcesPolled int           `json:"sources_polled"`
	SourcesFailed int           `json:"sources_failed"`
	Scraped       int           `json:"scraped"`
	FromCache     int           `json:"from_cache"`
	Duplicates    int           `json:"duplicates"`
	Rejected      int           `json:"rejected"`
	Enriched      int           `json:"enriched"`
	Values        int           `json:"indicator_values"`
	Events        int           `json:"indicator_events"`
	Bundles       int           `json:"bundles"`
	Degraded      bool          `json:"degraded"`
}

// New validates the wiring and builds the orchestrator.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Sources == nil:
		return nil, fmt.Errorf("pipeline: source registry is required")
	case deps.Scraper == nil:
		return nil, fmt.Errorf("pipeline: scraper is required")
	case deps.Validator == nil:
		return nil, fmt.Errorf("pipeline: validator is required")
	case deps.Impact == nil:
		return nil, fmt.Errorf("pipeline: impact scorer is required")
	case deps.Enricher == nil:
		return nil, fmt.Errorf("pipeline: enricher is required")
	case deps.Aggregator == nil:
		return nil, fmt.Errorf("pipeline: aggregator is required")
	}
	if deps.Quality == nil {
		deps.Quality = quality.NewScorer()
	}
	if deps.Series == nil {
		deps.Series = indicators.NewSeriesStore(0)
	}
	return &Pipeline{
		cfg:  cfg.withDefaults(),
		deps: deps,
		log:  logger.With("pipeline"),
	}, nil
}

// workUnit carries one article through the layer boundary with its
// layer-1 verdicts attached.
type workUnit struct {
	article   *core.RawArticle
	clusterID string
	trust     float64
	impact    core.ImpactScore
}

// Run executes one full pass. force bypasses the cache's TTL check.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Result, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrRunInProgress
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	res := &Result{StartedAt: time.Now()}

	normal := make(chan workUnit, p.cfg.QueueDepth)
	fast := make(chan workUnit, p.cfg.QueueDepth)

	var enriched []*core.EnrichedArticle
	var enrichedMu sync.Mutex

	var workers errgroup.Group
	for range p.cfg.Workers {
		workers.Go(func() error {
			p.enrichWorker(ctx, fast, normal, &enriched, &enrichedMu, res)
			return nil
		})
	}

	ingestErr := p.ingest(ctx, force, fast, normal, res)
	close(fast)
	close(normal)
	_ = workers.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Enriched = len(enriched)
	res.Degraded = res.SourcesFailed > 0 || ingestErr != nil

	now := time.Now()
	snapshot := p.aggregate(ctx, enriched, now, res)
	p.mu.Lock()
	p.snapshot = snapshot
	p.mu.Unlock()
	p.generate(ctx, snapshot, now, res)

	res.Duration = time.Since(res.StartedAt)
	p.log.Info().
		Int("sources", res.SourcesPolled).
		Int("failed", res.SourcesFailed).
		Int("scraped", res.Scraped).
		Int("from_cache", res.FromCache).
		Int("duplicates", res.Duplicates).
		Int("rejected", res.Rejected).
		Int("enriched", res.Enriched).
		Int("values", res.Values).
		Int("bundles", res.Bundles).
		Bool("degraded", res.Degraded).
		Dur("elapsed", res.Duration).
		Msg("run complete")
	return res, nil
}

// ingest polls every active source and pushes accepted articles onto
// the enrichment queues. A single source failing never fails the run.
func (p *Pipeline) ingest(ctx context.Context, force bool, fast, normal chan<- workUnit, res *Result) error {
	active := p.deps.Sources.Active()
	res.SourcesPolled = len(active)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, src := range active {
		g.Go(func() error {
			articles, fromCache, err := p.collect(ctx, src, force)
			if err != nil {
				mu.Lock()
				res.SourcesFailed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			if fromCache {
				res.FromCache += len(articles)
			} else {
				res.Scraped += len(articles)
			}
			mu.Unlock()

			for i := range articles {
				unit, verdict := p.admit(ctx, &articles[i])
				mu.Lock()
				switch verdict {
				case admitDuplicate:
					res.Duplicates++
				case admitRejected:
					res.Rejected++
				}
				mu.Unlock()
				if verdict != admitOK {
					continue
				}
				queue := normal
				if unit.impact.FastTrack() {
					queue = fast
				}
				select {
				case queue <- unit:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// collect resolves one source to articles, through the cache when it
// still vouches for the content.
func (p *Pipeline) collect(ctx context.Context, src core.Source, force bool) ([]core.RawArticle, bool, error) {
	probeURL := src.FeedURL
	if probeURL == "" {
		probeURL = src.URL
	}

	if p.deps.Cache != nil {
		decision := p.deps.Cache.NeedsScraping(ctx, src.ID, probeURL, src.Type, force)
		p.recordRevisit(src.ID, decision)
		if !decision.Fetch {
			cached, err := p.deps.Cache.GetCachedArticles(ctx, src.ID)
			if err == nil && len(cached) > 0 {
				return cached, true, nil
			}
			// Entry claimed fresh but the article payload is gone;
			// fall through to a real fetch.
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.NetworkTimeout)
	defer cancel()
	articles, err := p.deps.Scraper.Fetch(fetchCtx, src)
	if p.deps.Ops != nil {
		p.deps.Ops.RecordScrape(src.ID, err == nil)
	}
	if err != nil {
		p.submitFeedback(core.FeedbackSignal{
			Type:        core.FeedbackScrapeFailed,
			Severity:    "warning",
			SourceLayer: "ingest",
			SourceID:    src.ID,
			Details:     map[string]any{"kind": string(scrape.KindOf(err)), "error": err.Error()},
		})
		p.log.Warn().Err(err).Str("source", src.ID).Msg("source fetch failed")
		return nil, false, err
	}

	p.submitFeedback(core.FeedbackSignal{
		Type:        core.FeedbackScrapeSucceeded,
		Severity:    "info",
		SourceLayer: "ingest",
		SourceID:    src.ID,
	})
	if p.deps.Cache != nil && len(articles) > 0 {
		if err := p.deps.Cache.CacheArticles(ctx, src.ID, probeURL, src.Type, articles, articles[0].RawHeaders); err != nil {
			p.log.Warn().Err(err).Str("source", src.ID).Msg("article cache write failed")
		}
	}
	return articles, false, nil
}

// recordRevisit maps definitive revalidation verdicts onto the tuning
// tracker's fresh/stale counters. TTL misses and forced fetches say
// nothing about content churn and are skipped.
func (p *Pipeline) recordRevisit(sourceID string, d cache.Decision) {
	if p.deps.Ops == nil {
		return
	}
	switch d.Reason {
	case cache.ReasonNotModified304, cache.ReasonETagMatch,
		cache.ReasonSignatureMatch, cache.ReasonRSSUnchanged:
		p.deps.Ops.RecordCacheRevisit(sourceID, false)
	case cache.ReasonHeadersChanged, cache.ReasonSignatureDiff,
		cache.ReasonRSSChanged:
		p.deps.Ops.RecordCacheRevisit(sourceID, true)
	}
}

type admitVerdict int

const (
	admitOK admitVerdict = iota
	admitDuplicate
	admitRejected
)

// admit runs the strict per-article layer-1 order: dedup, validation,
// quality gate, impact.
func (p *Pipeline) admit(ctx context.Context, article *core.RawArticle) (workUnit, admitVerdict) {
	var clusterID string
	mentions := 1
	if p.deps.Dedup != nil {
		check, err := p.deps.Dedup.Check(ctx, article)
		if err != nil {
			p.deps.Metrics.StageFailed("dedup")
			p.log.Warn().Err(err).Str("article", article.ArticleID).Msg("dedup check failed, treating as unique")
		} else {
			clusterID = check.ClusterID
			if check.Status == core.DuplicateExact {
				p.submitFeedback(core.FeedbackSignal{
					Type:        core.FeedbackDuplicateFound,
					Severity:    "info",
					SourceLayer: "ingest",
					ArticleID:   article.ArticleID,
					SourceID:    article.SourceID,
					Details:     map[string]any{"matched": check.MatchedArticleID},
				})
				return workUnit{}, admitDuplicate
			}
			if clusterID != "" {
				if cluster, ok := p.deps.Dedup.Clusters().Get(clusterID); ok {
					mentions = len(cluster.Members)
				}
			}
		}
	}

	validation := p.deps.Validator.Validate(article, clusterID)

	assessment := p.deps.Quality.Score(article, validation.TrustScore, time.Now())
	floor := learning.DefaultThresholds().QualityFloor
	if p.deps.Tuner != nil {
		floor = p.deps.Tuner.Thresholds().QualityFloor
	}
	accepted := assessment.Score >= floor
	p.deps.Validator.Tracker().RecordQuality(article.SourceID, assessment.Score, accepted)
	if p.deps.Ops != nil {
		p.deps.Ops.RecordAcceptance(article.SourceID, accepted)
	}
	if !accepted {
		p.submitFeedback(core.FeedbackSignal{
			Type:          core.FeedbackArticleDiscarded,
			Severity:      "info",
			SourceLayer:   "ingest",
			ArticleID:     article.ArticleID,
			SourceID:      article.SourceID,
			QualityRating: assessment.Score,
			Details:       map[string]any{"floor": floor},
		})
		return workUnit{}, admitRejected
	}

	score := p.deps.Impact.Score(impact.Input{Article: article, MentionCount: mentions})
	return workUnit{
		article:   article,
		clusterID: clusterID,
		trust:     validation.TrustScore,
		impact:    score,
	}, admitOK
}

// enrichWorker drains the fast lane before the normal one so priority
// articles never wait behind a bulk batch.
func (p *Pipeline) enrichWorker(ctx context.Context, fast, normal <-chan workUnit, out *[]*core.EnrichedArticle, mu *sync.Mutex, res *Result) {
	for fast != nil || normal != nil {
		select {
		case unit, ok := <-fast:
			if !ok {
				fast = nil
				continue
			}
			p.enrichOne(ctx, unit, out, mu)
			continue
		default:
		}
		select {
		case unit, ok := <-fast:
			if !ok {
				fast = nil
				continue
			}
			p.enrichOne(ctx, unit, out, mu)
		case unit, ok := <-normal:
			if !ok {
				normal = nil
				continue
			}
			p.enrichOne(ctx, unit, out, mu)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) enrichOne(ctx context.Context, unit workUnit, out *[]*core.EnrichedArticle, mu *sync.Mutex) {
	enrichCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	article, err := p.deps.Enricher.Enrich(enrichCtx, unit.article, unit.impact)
	if err != nil {
		p.deps.Metrics.StageFailed("enrich")
		p.submitFeedback(core.FeedbackSignal{
			Type:        core.FeedbackStageFailed,
			Severity:    "warning",
			SourceLayer: "enrich",
			ArticleID:   unit.article.ArticleID,
			SourceID:    unit.article.SourceID,
			Details:     map[string]any{"error": err.Error()},
		})
		return
	}
	article.TopicID = unit.clusterID
	article.TrustScore = unit.trust

	if p.deps.Docs != nil {
		if err := p.deps.Docs.SaveArticle(unit.article); err != nil {
			p.log.Warn().Err(err).Str("article", article.ArticleID).Msg("article doc write failed")
		}
		if err := p.deps.Docs.SaveEnrichment(article); err != nil {
			p.log.Warn().Err(err).Str("article", article.ArticleID).Msg("enrichment doc write failed")
		}
	}

	mu.Lock()
	*out = append(*out, article)
	mu.Unlock()
}

// aggregate runs layer 3: one snapshot, monotonic series appends,
// durable writes and event detection.
func (p *Pipeline) aggregate(ctx context.Context, articles []*core.EnrichedArticle, now time.Time, res *Result) *indicators.Snapshot {
	snapshot := p.deps.Aggregator.Run(articles, now)
	catalog := make(map[string]core.IndicatorDefinition)
	for _, def := range p.deps.Aggregator.Definitions() {
		catalog[def.ID] = def
	}

	for _, value := range snapshot.Values {
		prior := p.deps.Series.Series(value.IndicatorID)
		if !p.deps.Series.Append(value) {
			continue // Stale timestamp, series already moved past it
		}
		res.Values++

		if p.deps.Values != nil {
			if err := p.deps.Values.Insert(ctx, value); err != nil {
				p.deps.Metrics.StageFailed("persist_values")
				p.log.Warn().Err(err).Str("indicator", value.IndicatorID).Msg("value persist failed")
			}
		}

		def, ok := catalog[value.IndicatorID]
		if !ok {
			continue
		}
		var composite *core.CategoryComposite
		if c, ok := snapshot.Composites[def.Category]; ok {
			composite = &c
		}
		for _, event := range indicators.DetectEvents(def, prior, value, composite) {
			res.Events++
			if p.deps.Events != nil {
				if err := p.deps.Events.Insert(ctx, event); err != nil {
					p.deps.Metrics.StageFailed("persist_events")
					p.log.Warn().Err(err).Str("event", event.ID).Msg("event persist failed")
				}
			}
		}
	}
	return snapshot
}

// generate runs layer 4 for every registered company profile.
func (p *Pipeline) generate(ctx context.Context, snapshot *indicators.Snapshot, now time.Time, res *Result) {
	if p.deps.Generator == nil || p.deps.Profiles == nil {
		return
	}

	trends := make(map[string]core.TrendResult)
	for _, value := range snapshot.Values {
		series := p.deps.Series.Series(value.IndicatorID)
		if len(series) >= 3 {
			trends[value.IndicatorID] = indicators.AnalyzeTrend(value.IndicatorID, series, p.cfg.TrendWindowDays, now)
		}
	}
	state := &insights.State{Snapshot: snapshot, Trends: trends}

	for _, profile := range p.deps.Profiles.All() {
		if _, err := p.deps.Generator.Generate(ctx, &profile, state, snapshot.NAI, res.Degraded); err != nil {
			p.deps.Metrics.StageFailed("insights")
			p.log.Error().Err(err).Str("company", profile.ID).Msg("insight generation failed")
			continue
		}
		res.Bundles++
	}
}

func (p *Pipeline) submitFeedback(signal core.FeedbackSignal) {
	if p.deps.Feedback == nil {
		return
	}
	signal.ID = uuid.NewString()
	signal.CreatedAt = time.Now()
	p.deps.Feedback.Submit(signal)
}
