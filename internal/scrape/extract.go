package scrape

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelector lists elements stripped before text extraction.
const boilerplateSelector = "script, style, nav, footer, header, aside, form, iframe, noscript, " +
	".sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner, .related-articles"

// mainContentSelectors are tried in order; the first that yields text wins.
var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content",
	".article-body", ".news-content", "[role='main']", ".content", "#content",
}

// trackingParams are stripped when canonicalising URLs so the same story
// reached through different campaigns hashes to one article id.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "fbclid": true, "gclid": true,
	"ref": true, "source": true,
}

// canonicalURL normalises a URL for identity: lowercased host, no
// fragment, no tracking parameters, no trailing slash.
func canonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	// Rebuild the query in sorted key order for stability.
	if len(q) == 0 {
		u.RawQuery = ""
	} else {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			for _, v := range q[k] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// extractTitle pulls the best available title from a parsed document:
// <title>, then og:title, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractAuthor reads the byline from common meta tags.
func extractAuthor(doc *goquery.Document) string {
	for _, sel := range []string{"meta[name='author']", "meta[property='article:author']"} {
		if v, ok := doc.Find(sel).Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(doc.Find(".author, .byline").First().Text())
}

// extractBody strips boilerplate and returns the main article text with
// paragraph breaks preserved.
func extractBody(doc *goquery.Document) string {
	doc.Find(boilerplateSelector).Remove()

	var b strings.Builder
	collect := func(s *goquery.Selection) {
		s.Find("p, h2, h3, li, blockquote").Each(func(_ int, item *goquery.Selection) {
			text := strings.TrimSpace(item.Text())
			if text == "" {
				return
			}
			b.WriteString(text)
			b.WriteString("\n\n")
		})
	}
	for _, sel := range mainContentSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) { collect(s) })
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		collect(doc.Find("body"))
	}
	return strings.TrimSpace(b.String())
}
