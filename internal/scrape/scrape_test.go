package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"newslens/internal/config"
	"newslens/internal/core"
)

const storyHTML = `<html><head><title>Fuel shipment arrives at Colombo port</title>
<meta name="author" content="News Desk"></head><body>
<article><p>A fuel shipment of 40,000 metric tonnes arrived at the Colombo port this
morning, the energy ministry said, easing pressure on filling stations across the
western province after two weeks of intermittent shortages and long queues.</p>
<p>Officials said distribution to the southern and central provinces would resume
within forty eight hours once quality certification is complete.</p></article>
</body></html>`

func testConfig() config.SourcesConfig {
	return config.SourcesConfig{
		RequestTimeout: 5 * time.Second,
		MaxRetries:     1,
		RetryBackoff:   time.Millisecond,
		RatePerSource:  1000,
	}
}

func feedXML(link string) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel>
<title>Test Wire</title><lastBuildDate>Mon, 02 Jan 2023 10:00:00 +0000</lastBuildDate>
<item><title>Fuel shipment arrives</title><link>` + link + `</link>
<pubDate>Mon, 02 Jan 2023 09:30:00 +0000</pubDate><guid>g1</guid></item>
</channel></rss>`
}

func TestParseFeedRSS(t *testing.T) {
	items, err := parseFeed([]byte(feedXML("https://example.com/story")))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Link != "https://example.com/story" {
		t.Fatalf("link = %q", items[0].Link)
	}
	if items[0].Published.IsZero() {
		t.Fatal("pubDate not parsed")
	}
}

func TestParseFeedAtom(t *testing.T) {
	atom := `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">
<title>Test</title><entry><title>Entry</title>
<link rel="alternate" href="https://example.com/a"/>
<published>2023-01-02T09:30:00Z</published><id>e1</id></entry></feed>`
	items, err := parseFeed([]byte(atom))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if len(items) != 1 || items[0].Link != "https://example.com/a" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseFeedGarbage(t *testing.T) {
	if _, err := parseFeed([]byte("<html>not a feed</html>")); err == nil {
		t.Fatal("expected parse error for non-feed content")
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://Example.com/news/story/?utm_source=tw&id=9#frag", "https://example.com/news/story?id=9"},
		{"https://example.com/a/", "https://example.com/a"},
		{"https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
	}
	for _, tt := range tests {
		if got := canonicalURL(tt.in); got != tt.want {
			t.Errorf("canonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFetchFromFeed(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/story", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(storyHTML))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedXML(srv.URL + "/story")))
	})

	s := NewHTTPScraper(testConfig(), nil)
	source := core.Source{ID: "wire", URL: srv.URL, FeedURL: srv.URL + "/feed", Type: core.SourceTypeNews}
	articles, err := s.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(articles))
	}
	a := articles[0]
	if a.Title != "Fuel shipment arrives at Colombo port" {
		t.Fatalf("title = %q", a.Title)
	}
	if a.Author != "News Desk" {
		t.Fatalf("author = %q", a.Author)
	}
	if !strings.Contains(a.Body, "40,000 metric tonnes") {
		t.Fatalf("body missing article text: %q", a.Body)
	}
	if a.ArticleID != core.ArticleIDFor(a.URL) {
		t.Fatal("article id not derived from canonical URL")
	}
	if a.PublishDate.IsZero() {
		t.Fatal("publish date not carried from feed item")
	}
}

func TestShortBodySkipped(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/story", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>Stub</title></head><body><p>Too short.</p></body></html>"))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedXML(srv.URL + "/story")))
	})

	s := NewHTTPScraper(testConfig(), nil)
	articles, err := s.Fetch(context.Background(), core.Source{ID: "wire", FeedURL: srv.URL + "/feed"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("short article passed the floor: %d", len(articles))
	}
}

func TestFetchFromPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(storyHTML))
	}))
	defer srv.Close()

	s := NewHTTPScraper(testConfig(), nil)
	articles, err := s.Fetch(context.Background(), core.Source{ID: "gazette", URL: srv.URL, Type: core.SourceTypeGovernment})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(articles))
	}
}

func TestRateLimitedNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewHTTPScraper(testConfig(), nil)
	_, err := s.Fetch(context.Background(), core.Source{ID: "s", URL: srv.URL})
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindRateLimited {
		t.Fatalf("kind = %s, want rate_limited", KindOf(err))
	}
	if hits.Load() != 1 {
		t.Fatalf("429 retried %d times, want a single attempt", hits.Load())
	}
}

func TestTransientRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(storyHTML))
	}))
	defer srv.Close()

	s := NewHTTPScraper(testConfig(), nil)
	articles, err := s.Fetch(context.Background(), core.Source{ID: "s", URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch after retry: %v", err)
	}
	if len(articles) != 1 || hits.Load() != 2 {
		t.Fatalf("articles = %d, hits = %d; want recovery on second attempt", len(articles), hits.Load())
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewHTTPScraper(testConfig(), nil)
	source := core.Source{ID: "flaky", URL: srv.URL}
	for i := 0; i < 3; i++ {
		if _, err := s.Fetch(context.Background(), source); err == nil {
			t.Fatal("expected failure")
		}
	}
	_, err := s.Fetch(context.Background(), source)
	if KindOf(err) != KindDependencyUnavailable {
		t.Fatalf("kind after trip = %s, want dependency_unavailable", KindOf(err))
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fetchErr(KindContentInvalid, "s", "u", cause)
	if !errors.Is(err, cause) {
		t.Fatal("FetchError does not unwrap to its cause")
	}
	var fe *FetchError
	if !errors.As(error(err), &fe) || fe.Kind != KindContentInvalid {
		t.Fatal("errors.As failed to recover the kind")
	}
}
