package scrape

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// rssDoc is the subset of RSS 2.0 the scraper reads.
type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Author      string `xml:"author"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// atomDoc is the subset of Atom the scraper reads.
type atomDoc struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Link      []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Author    atomPerson `xml:"author"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	ID        string     `xml:"id"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

// feedItem is a format-neutral feed entry.
type feedItem struct {
	Title     string
	Link      string
	Summary   string
	Author    string
	GUID      string
	Published time.Time
}

// parseFeed decodes RSS 2.0 or Atom from raw bytes.
func parseFeed(data []byte) ([]feedItem, error) {
	var rss rssDoc
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&rss); err == nil && len(rss.Channel.Items) > 0 {
		items := make([]feedItem, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			items = append(items, feedItem{
				Title:     strings.TrimSpace(it.Title),
				Link:      strings.TrimSpace(it.Link),
				Summary:   strings.TrimSpace(it.Description),
				Author:    strings.TrimSpace(it.Author),
				GUID:      it.GUID,
				Published: parseFeedDate(it.PubDate),
			})
		}
		return items, nil
	}

	var atom atomDoc
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&atom); err == nil && len(atom.Entries) > 0 {
		items := make([]feedItem, 0, len(atom.Entries))
		for _, e := range atom.Entries {
			link := ""
			for _, l := range e.Link {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			published := e.Published
			if published == "" {
				published = e.Updated
			}
			items = append(items, feedItem{
				Title:     strings.TrimSpace(e.Title),
				Link:      strings.TrimSpace(link),
				Summary:   strings.TrimSpace(e.Summary),
				Author:    strings.TrimSpace(e.Author.Name),
				GUID:      e.ID,
				Published: parseFeedDate(published),
			})
		}
		return items, nil
	}

	return nil, fmt.Errorf("not parseable as RSS or Atom")
}

// feedDateFormats covers the date shapes seen in the wild across RSS
// and Atom feeds.
var feedDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseFeedDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, format := range feedDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
