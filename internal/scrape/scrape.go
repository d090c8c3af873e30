// Package scrape fetches articles from registered sources: RSS/Atom
// feeds when available, landing-page HTML otherwise. Every source gets
// its own rate limiter and circuit breaker; transient failures are
// retried with exponential backoff.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/logger"
	"newslens/internal/metrics"
)

// Defaults applied when the config leaves fields zero.
const (
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
	defaultBackoff     = time.Second
	defaultRate        = 1.0 // requests per second per source
	defaultConcurrency = 5
	defaultUserAgent   = "newslens/1.0 (+https://newslens.lk)"

	maxBodyBytes = 4 << 20
	minBodyWords = 30
)

// Scraper is the fetch capability the pipeline consumes.
type Scraper interface {
	Fetch(ctx context.Context, source core.Source) ([]core.RawArticle, error)
}

// HTTPScraper fetches over plain HTTP with per-source pacing.
type HTTPScraper struct {
	client  *http.Client
	cfg     config.SourcesConfig
	metrics *metrics.Registry
	log     zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewHTTPScraper builds a scraper from config. reg may be nil.
func NewHTTPScraper(cfg config.SourcesConfig, reg *metrics.Registry) *HTTPScraper {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPScraper{
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg,
		metrics:  reg,
		log:      logger.With("scrape"),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Fetch pulls the current batch of articles for one source. The
// returned error carries a FetchError kind when the whole source failed;
// individual bad articles are skipped, not fatal.
func (s *HTTPScraper) Fetch(ctx context.Context, source core.Source) ([]core.RawArticle, error) {
	if source.ID == "" || (source.URL == "" && source.FeedURL == "") {
		return nil, fetchErr(KindInvalidInput, source.ID, source.URL, errors.New("source has no URL"))
	}

	out, err := s.breaker(source.ID).Execute(func() (any, error) {
		if source.FeedURL != "" {
			return s.fetchFromFeed(ctx, source)
		}
		return s.fetchFromPage(ctx, source)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fetchErr(KindDependencyUnavailable, source.ID, source.URL, err)
		}
		s.metrics.ScrapeOutcome(source.ID, string(KindOf(err)))
		return nil, err
	}

	articles := out.([]core.RawArticle)
	s.metrics.ScrapeOutcome(source.ID, "ok")
	for range articles {
		s.metrics.ArticleIngested(source.ID)
	}
	s.log.Debug().Str("source", source.ID).Int("articles", len(articles)).Msg("source fetched")
	return articles, nil
}

// fetchFromFeed reads the source's feed and fetches each linked story.
func (s *HTTPScraper) fetchFromFeed(ctx context.Context, source core.Source) ([]core.RawArticle, error) {
	body, _, err := s.get(ctx, source, source.FeedURL)
	if err != nil {
		return nil, err
	}
	items, err := parseFeed(body)
	if err != nil {
		return nil, fetchErr(KindContentInvalid, source.ID, source.FeedURL, err)
	}

	concurrency := source.Concurrency
	if concurrency <= 0 {
		concurrency = s.cfg.DefaultParallel
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]*core.RawArticle, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, item := range items {
		if item.Link == "" {
			continue
		}
		g.Go(func() error {
			article, err := s.fetchArticle(gctx, source, item)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn().Err(err).Str("source", source.ID).Str("url", item.Link).Msg("article skipped")
				s.metrics.ScrapeOutcome(source.ID, string(KindOf(err)))
				return nil
			}
			results[i] = article
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	articles := make([]core.RawArticle, 0, len(results))
	for _, a := range results {
		if a != nil {
			articles = append(articles, *a)
		}
	}
	return articles, nil
}

// fetchArticle fetches and extracts one linked story.
func (s *HTTPScraper) fetchArticle(ctx context.Context, source core.Source, item feedItem) (*core.RawArticle, error) {
	body, headers, err := s.get(ctx, source, item.Link)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fetchErr(KindContentInvalid, source.ID, item.Link, err)
	}

	article := s.buildArticle(source, item.Link, doc, headers)
	if article.Title == "" {
		article.Title = item.Title
	}
	if article.Author == "" {
		article.Author = item.Author
	}
	if article.PublishDate.IsZero() {
		article.PublishDate = item.Published
	}
	if article.Body == "" && item.Summary != "" {
		article.Body = item.Summary
	}
	if article.WordCount() < minBodyWords {
		return nil, fetchErr(KindContentInvalid, source.ID, item.Link, fmt.Errorf("body too short: %d words", article.WordCount()))
	}
	return article, nil
}

// fetchFromPage treats the landing page itself as the article, for
// sources without a feed (gazette pages, statistics releases).
func (s *HTTPScraper) fetchFromPage(ctx context.Context, source core.Source) ([]core.RawArticle, error) {
	body, headers, err := s.get(ctx, source, source.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fetchErr(KindContentInvalid, source.ID, source.URL, err)
	}
	article := s.buildArticle(source, source.URL, doc, headers)
	if article.WordCount() < minBodyWords {
		return nil, fetchErr(KindContentInvalid, source.ID, source.URL, fmt.Errorf("body too short: %d words", article.WordCount()))
	}
	return []core.RawArticle{*article}, nil
}

func (s *HTTPScraper) buildArticle(source core.Source, rawURL string, doc *goquery.Document, headers http.Header) *core.RawArticle {
	canonical := canonicalURL(rawURL)
	kept := map[string]string{}
	for _, h := range []string{"ETag", "Last-Modified", "Content-Type"} {
		if v := headers.Get(h); v != "" {
			kept[h] = v
		}
	}
	return &core.RawArticle{
		ArticleID:       core.ArticleIDFor(canonical),
		SourceID:        source.ID,
		ScrapeTimestamp: time.Now().UTC(),
		Title:           extractTitle(doc),
		Body:            extractBody(doc),
		Author:          extractAuthor(doc),
		URL:             canonical,
		RawHeaders:      kept,
	}
}

// get performs a rate-limited GET with retries on transient failures.
func (s *HTTPScraper) get(ctx context.Context, source core.Source, url string) ([]byte, http.Header, error) {
	if err := s.limiter(source.ID).Wait(ctx); err != nil {
		return nil, nil, fetchErr(KindTransientNetwork, source.ID, url, err)
	}

	retries := s.cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	backoff := s.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := backoff << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, nil, fetchErr(KindTransientNetwork, source.ID, url, ctx.Err())
			}
		}
		body, headers, err := s.doRequest(ctx, source, url)
		if err == nil {
			return body, headers, nil
		}
		lastErr = err
		var fe *FetchError
		if errors.As(err, &fe) && !fe.Retryable() {
			return nil, nil, err
		}
	}
	return nil, nil, lastErr
}

func (s *HTTPScraper) doRequest(ctx context.Context, source core.Source, url string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fetchErr(KindInvalidInput, source.ID, url, err)
	}
	ua := s.cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fetchErr(classifyTransport(err), source.ID, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fetchErr(classifyHTTP(resp.StatusCode), source.ID, url,
			fmt.Errorf("status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fetchErr(KindTransientNetwork, source.ID, url, err)
	}
	if len(body) == 0 {
		return nil, nil, fetchErr(KindContentInvalid, source.ID, url, errors.New("empty response body"))
	}
	return body, resp.Header, nil
}

func (s *HTTPScraper) limiter(sourceID string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[sourceID]
	if !ok {
		rps := s.cfg.RatePerSource
		if rps <= 0 {
			rps = defaultRate
		}
		l = rate.NewLimiter(rate.Limit(rps), 1)
		s.limiters[sourceID] = l
	}
	return l
}

func (s *HTTPScraper) breaker(sourceID string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[sourceID]
	if !ok {
		st := gobreaker.Settings{
			Name:     sourceID,
			Interval: 60 * time.Second,
			Timeout:  60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		b = gobreaker.NewCircuitBreaker(st)
		s.breakers[sourceID] = b
	}
	return b
}
