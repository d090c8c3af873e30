package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newslens/internal/config"
	"newslens/internal/core"
	"newslens/internal/kv"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		TTLNews:       15 * time.Minute,
		TTLGovernment: 2 * time.Hour,
		TTLAPI:        30 * time.Minute,
		TTLSocial:     5 * time.Minute,
		TTLFinancial:  10 * time.Minute,
		SampleBytes:   8192,
		ArticleTTL:    24 * time.Hour,
	}
}

func newTestCache(t *testing.T, cfg config.CacheConfig) (*SmartCache, kv.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := kv.NewRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewSmartCache(store, &http.Client{Timeout: 2 * time.Second}, cfg, nil, "newslens-test/1.0"), store
}

func sampleArticles() []core.RawArticle {
	return []core.RawArticle{
		{
			ArticleID: core.ArticleIDFor("https://example.lk/news/1"),
			SourceID:  "ada_derana",
			Title:     "Fuel shipment arrives at Colombo port",
			Body:      "A long awaited fuel shipment docked this morning easing queues across the capital.",
			URL:       "https://example.lk/news/1",
		},
	}
}

func TestNeedsScrapingNoEntry(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	d := c.NeedsScraping(context.Background(), "ada_derana", "https://example.lk", core.SourceTypeNews, false)

	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonNoEntry, d.Reason)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestNeedsScrapingForced(t *testing.T) {
	c, _ := newTestCache(t, testConfig())

	d := c.NeedsScraping(context.Background(), "ada_derana", "https://example.lk", core.SourceTypeNews, true)

	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonForced, d.Reason)
}

func TestRevalidationNotModified(t *testing.T) {
	const etag = `W/"abc"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("<html>fresh page</html>"))
	}))
	defer srv.Close()

	c, _ := newTestCache(t, testConfig())
	ctx := context.Background()

	err := c.CacheArticles(ctx, "ada_derana", srv.URL, core.SourceTypeNews, sampleArticles(),
		map[string]string{"ETag": etag})
	require.NoError(t, err)

	// Within the TTL the conditional HEAD decides; 304 means serve cached.
	d := c.NeedsScraping(ctx, "ada_derana", srv.URL, core.SourceTypeNews, false)
	assert.False(t, d.Fetch)
	assert.Equal(t, ReasonNotModified304, d.Reason)
	assert.Equal(t, 1.0, d.Confidence)
}

func TestNeedsScrapingTTLExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// TTL expiry must decide without consulting the server.
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.TTLNews = time.Millisecond
	c, _ := newTestCache(t, cfg)
	ctx := context.Background()

	err := c.CacheArticles(ctx, "ada_derana", srv.URL, core.SourceTypeNews, sampleArticles(),
		map[string]string{"ETag": `W/"abc"`})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	d := c.NeedsScraping(ctx, "ada_derana", srv.URL, core.SourceTypeNews, false)
	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonTTLExpired, d.Reason)
}

func TestSignatureDetectsContentChange(t *testing.T) {
	page := "<html><body>President announces new fuel subsidy program</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	c, _ := newTestCache(t, testConfig())
	ctx := context.Background()

	// No validators in the headers, so level 2 is skipped entirely.
	require.NoError(t, c.CacheArticles(ctx, "daily_mirror", srv.URL, core.SourceTypeNews, sampleArticles(), nil))

	// First probe has nothing to compare against; it seeds the signature.
	d := c.NeedsScraping(ctx, "daily_mirror", srv.URL, core.SourceTypeNews, false)
	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonInconclusive, d.Reason)

	// Same content now matches.
	d = c.NeedsScraping(ctx, "daily_mirror", srv.URL, core.SourceTypeNews, false)
	assert.False(t, d.Fetch)
	assert.Equal(t, ReasonSignatureMatch, d.Reason)

	// Substantive change flips the verdict.
	page = "<html><body>Subsidy program suspended after budget review</body></html>"
	d = c.NeedsScraping(ctx, "daily_mirror", srv.URL, core.SourceTypeNews, false)
	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonSignatureDiff, d.Reason)
}

func TestRSSDetector(t *testing.T) {
	feed := func(buildDate, firstGUID string) string {
		return `<?xml version="1.0"?>
<rss version="2.0"><channel>
<lastBuildDate>` + buildDate + `</lastBuildDate>
<item><guid>` + firstGUID + `</guid><link>https://example.lk/a</link></item>
<item><guid>item-2</guid><link>https://example.lk/b</link></item>
</channel></rss>`
	}
	body := feed("Mon, 01 Jan 2026 01:00:00 GMT", "item-1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c, _ := newTestCache(t, testConfig())
	ctx := context.Background()
	feedURL := srv.URL + "/feed.xml"

	require.NoError(t, c.CacheArticles(ctx, "ada_derana", feedURL, core.SourceTypeNews, sampleArticles(), nil))

	// First probe seeds the snapshot.
	d := c.NeedsScraping(ctx, "ada_derana", feedURL, core.SourceTypeNews, false)
	assert.Equal(t, ReasonInconclusive, d.Reason)

	// lastBuildDate bumps on every poll; identical items still count as
	// unchanged.
	body = feed("Mon, 01 Jan 2026 02:00:00 GMT", "item-1")
	d = c.NeedsScraping(ctx, "ada_derana", feedURL, core.SourceTypeNews, false)
	assert.False(t, d.Fetch)
	assert.Equal(t, ReasonRSSUnchanged, d.Reason)

	// A new lead item is a real change.
	body = feed("Mon, 01 Jan 2026 03:00:00 GMT", "item-0")
	d = c.NeedsScraping(ctx, "ada_derana", feedURL, core.SourceTypeNews, false)
	assert.True(t, d.Fetch)
	assert.Equal(t, ReasonRSSChanged, d.Reason)
}

func TestCacheArticlesRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, testConfig())
	ctx := context.Background()
	articles := sampleArticles()

	require.NoError(t, c.CacheArticles(ctx, "ada_derana", "https://example.lk", core.SourceTypeNews, articles, nil))

	got, err := c.GetCachedArticles(ctx, "ada_derana")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, articles[0].ArticleID, got[0].ArticleID)
	assert.Equal(t, articles[0].Title, got[0].Title)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(t, testConfig())
	ctx := context.Background()

	require.NoError(t, c.CacheArticles(ctx, "ada_derana", "https://example.lk", core.SourceTypeNews, sampleArticles(), nil))
	require.NoError(t, c.CacheArticles(ctx, "daily_mirror", "https://mirror.lk", core.SourceTypeNews, sampleArticles(), nil))

	n, err := c.Invalidate(ctx, "ada_derana")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // entry + articles

	_, err = c.GetCachedArticles(ctx, "ada_derana")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// Other sources untouched.
	_, err = c.GetCachedArticles(ctx, "daily_mirror")
	assert.NoError(t, err)
}

func TestSignatureIgnoresVolatileFragments(t *testing.T) {
	a := []byte(`<html><!-- served at 2026-01-02 10:15:00 --><body>
		Fuel prices revised upward <script>var t=1736000000;</script>
		<a href="/x?sessionid=deadbeefcafe1234">more</a></body></html>`)
	b := []byte(`<html><!-- served at 2026-01-03 08:00:12 --><body>
		Fuel prices revised upward <script>var t=1736099999;</script>
		<a href="/x?sessionid=0123456789abcdef">more</a></body></html>`)

	assert.Equal(t, Signature(a), Signature(b))
}

func TestSignatureChangesWithContent(t *testing.T) {
	a := []byte(`<html><body>Fuel prices revised upward</body></html>`)
	b := []byte(`<html><body>Fuel prices revised downward</body></html>`)

	assert.NotEqual(t, Signature(a), Signature(b))
}

func TestTTLMultiplierExtendsExpiry(t *testing.T) {
	c, store := newTestCache(t, testConfig())
	ctx := context.Background()

	require.NoError(t, c.SetTTLMultiplier(ctx, "ada_derana", 2.0))
	require.NoError(t, c.CacheArticles(ctx, "ada_derana", "https://example.lk", core.SourceTypeNews, sampleArticles(), nil))

	var entry core.CacheEntry
	require.NoError(t, kv.GetJSON(ctx, store, "cache:entry:ada_derana", &entry))

	ttl := entry.ExpiresAt.Sub(entry.CachedAt)
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 1.0)
}
