package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/dedup"
	"newslens/internal/embed"
	"newslens/internal/enrich"
	"newslens/internal/impact"
	"newslens/internal/indicators"
	"newslens/internal/insights"
	"newslens/internal/learning"
	"newslens/internal/sources"
	"newslens/internal/validate"
)

// stubScraper returns canned articles or errors per source.
type stubScraper struct {
	articles map[string][]core.RawArticle
	fail     map[string]error
}

func (s *stubScraper) Fetch(_ context.Context, src core.Source) ([]core.RawArticle, error) {
	if err, ok := s.fail[src.ID]; ok {
		return nil, err
	}
	return s.articles[src.ID], nil
}

// blockingScraper parks inside Fetch until released, for overlap tests.
type blockingScraper struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingScraper) Fetch(ctx context.Context, _ core.Source) ([]core.RawArticle, error) {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil, nil
}

func goodArticle(sourceID, url, topic string) core.RawArticle {
	body := fmt.Sprintf(
		"The %s crisis deepened today as officials confirmed widespread disruption across Colombo. "+
			"Businesses reported losses while the government promised urgent relief measures. "+
			"Analysts said the %s situation would pressure inflation and the exchange rate in the coming weeks. "+
			"The central bank is monitoring developments closely and may adjust policy rates. "+
			"Industry groups urged faster customs clearance and emergency imports to stabilise supply. "+
			"Several districts reported long queues as consumers rushed to stock up on essentials.",
		topic, topic)
	return core.RawArticle{
		ArticleID:       core.ArticleIDFor(url),
		SourceID:        sourceID,
		ScrapeTimestamp: time.Now(),
		Title:           fmt.Sprintf("%s crisis deepens as officials confirm disruption", strings.ToUpper(topic[:1])+topic[1:]),
		Body:            body,
		Author:          "News Desk",
		PublishDate:     time.Now().Add(-time.Hour),
		URL:             url,
	}
}

func junkArticle(sourceID, url string) core.RawArticle {
	return core.RawArticle{
		ArticleID:       core.ArticleIDFor(url),
		SourceID:        sourceID,
		ScrapeTimestamp: time.Now(),
		Body:            strings.Repeat("a ", 50),
		PublishDate:     time.Now().Add(-45 * 24 * time.Hour),
		URL:             url,
	}
}

type testEnv struct {
	pipeline *Pipeline
	tracker  *validate.Tracker
	feedback *learning.FeedbackLoop
}

func newTestEnv(t *testing.T, scraper Deps, srcs ...core.Source) *testEnv {
	t.Helper()

	tracker := validate.NewTracker(nil)
	registry := sources.NewRegistry(tracker)
	for _, s := range srcs {
		if err := registry.Add(s); err != nil {
			t.Fatalf("Add(%s): %v", s.ID, err)
		}
	}

	scorer, err := impact.NewScorer("balanced")
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}

	profiles := insights.NewProfileRegistry()
	if err := profiles.Add(core.CompanyProfile{
		ID: "lanka_retail", Name: "Lanka Retail", Sector: "retail",
		Scale: core.ScaleMedium, Districts: []string{"Colombo"},
	}); err != nil {
		t.Fatalf("profile Add: %v", err)
	}

	feedback := learning.NewFeedbackLoop(tracker, learning.ModeActive, 10, 30*24*time.Hour, nil)

	deps := Deps{
		Sources:    registry,
		Scraper:    scraper.Scraper,
		Dedup:      scraper.Dedup,
		Validator:  validate.New(tracker, time.Hour),
		Impact:     scorer,
		Enricher:   enrich.NewEnricher(),
		Aggregator: indicators.NewAggregator(nil, nil),
		Generator:  insights.NewGenerator(),
		Profiles:   profiles,
		Feedback:   feedback,
		Ops:        learning.NewMetricsTracker(),
	}
	p, err := New(Config{Workers: 2, QueueDepth: 8}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{pipeline: p, tracker: tracker, feedback: feedback}
}

func newsSource(id string) core.Source {
	return core.Source{
		ID: id, Name: id, URL: "https://" + id + ".lk",
		Type: core.SourceTypeNews, Tier: core.TierOne,
	}
}

func TestRunEndToEnd(t *testing.T) {
	scraper := &stubScraper{articles: map[string][]core.RawArticle{
		"src_a": {
			goodArticle("src_a", "https://src_a.lk/fuel", "fuel"),
			goodArticle("src_a", "https://src_a.lk/power", "power"),
		},
	}}
	env := newTestEnv(t, Deps{Scraper: scraper}, newsSource("src_a"))

	res, err := env.pipeline.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SourcesPolled != 1 || res.SourcesFailed != 0 {
		t.Fatalf("polled=%d failed=%d, want 1/0", res.SourcesPolled, res.SourcesFailed)
	}
	if res.Scraped != 2 {
		t.Fatalf("Scraped = %d, want 2", res.Scraped)
	}
	if res.Enriched != 2 {
		t.Fatalf("Enriched = %d, want 2", res.Enriched)
	}
	if res.Values < 50 {
		t.Fatalf("Values = %d, want one per active indicator", res.Values)
	}
	if res.Bundles != 1 {
		t.Fatalf("Bundles = %d, want 1", res.Bundles)
	}
	if res.Degraded {
		t.Fatal("run should not be degraded")
	}
}

func TestQualityGateRejects(t *testing.T) {
	scraper := &stubScraper{articles: map[string][]core.RawArticle{
		"src_a": {junkArticle("src_a", "https://src_a.lk/junk")},
	}}
	env := newTestEnv(t, Deps{Scraper: scraper}, newsSource("src_a"))

	res, err := env.pipeline.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Rejected != 1 {
		t.Fatalf("Rejected = %d, want 1", res.Rejected)
	}
	if res.Enriched != 0 {
		t.Fatalf("Enriched = %d, want 0", res.Enriched)
	}

	// The gate outcome must reach the reputation stream.
	snap, ok := env.tracker.Snapshot("src_a")
	if !ok {
		t.Fatal("source has no reputation snapshot")
	}
	if snap.RejectedCount != 1 {
		t.Fatalf("RejectedCount = %d, want 1", snap.RejectedCount)
	}
}

func TestExactDuplicateDropped(t *testing.T) {
	article := goodArticle("src_a", "https://src_a.lk/fuel", "fuel")
	twin := article
	twin.SourceID = "src_b"

	scraper := &stubScraper{articles: map[string][]core.RawArticle{
		"src_a": {article},
		"src_b": {twin},
	}}
	dd := dedup.NewDeduplicator(embed.NewLocal(384), nil, config.DedupConfig{
		ExactThreshold: 0.95, NearThreshold: 0.85, RelatedThreshold: 0.70,
		WindowHours: 48, MaxVectors: 1000, RetrainEvictions: 100,
		IVFThreshold: 100000, IVFProbes: 8,
	}, nil, nil)
	env := newTestEnv(t, Deps{Scraper: scraper, Dedup: dd},
		newsSource("src_a"), newsSource("src_b"))

	res, err := env.pipeline.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Duplicates != 1 {
		t.Fatalf("Duplicates = %d, want 1", res.Duplicates)
	}
	if res.Enriched != 1 {
		t.Fatalf("Enriched = %d, want 1", res.Enriched)
	}
}

func TestSourceFailureDegradesRun(t *testing.T) {
	scraper := &stubScraper{
		articles: map[string][]core.RawArticle{
			"src_a": {goodArticle("src_a", "https://src_a.lk/fuel", "fuel")},
		},
		fail: map[string]error{"src_b": errors.New("connection refused")},
	}
	env := newTestEnv(t, Deps{Scraper: scraper},
		newsSource("src_a"), newsSource("src_b"))

	res, err := env.pipeline.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SourcesFailed != 1 {
		t.Fatalf("SourcesFailed = %d, want 1", res.SourcesFailed)
	}
	if !res.Degraded {
		t.Fatal("run with a failed source must be degraded")
	}
	if res.Bundles != 1 {
		t.Fatalf("Bundles = %d, want 1 (partial data still generates)", res.Bundles)
	}
}

func TestOverlappingRunRejected(t *testing.T) {
	scraper := &blockingScraper{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	env := newTestEnv(t, Deps{Scraper: scraper}, newsSource("src_a"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = env.pipeline.Run(context.Background(), false)
	}()
	<-scraper.started

	if _, err := env.pipeline.Run(context.Background(), false); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("overlapping Run error = %v, want ErrRunInProgress", err)
	}
	close(scraper.release)
	<-done
}

func TestNewRequiresCoreDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatal("New with empty deps must fail")
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.Workers != 5 || c.QueueDepth != 64 {
		t.Fatalf("defaults = %+v", c)
	}
	if c.NetworkTimeout != 10*time.Second || c.LLMTimeout != 30*time.Second {
		t.Fatalf("timeout defaults = %+v", c)
	}
}
