// Package sources maintains the registry of scrape targets: seed
// catalog, optional YAML overrides, and the reputation-aware active
// view the scheduler polls.
package sources

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"newslens/internal/core"
	"newslens/internal/logger"
	"newslens/internal/validate"
)

// Registry holds registered sources. All reads return copies; the
// registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]core.Source
	tracker *validate.Tracker
	log     zerolog.Logger
}

// NewRegistry builds an empty registry. tracker may be nil; without it
// the auto-disable filter is a no-op.
func NewRegistry(tracker *validate.Tracker) *Registry {
	return &Registry{
		sources: make(map[string]core.Source),
		tracker: tracker,
		log:     logger.With("sources"),
	}
}

// DefaultSources is the seed catalog of Sri Lankan outlets and official
// publishers used when no sources file is configured.
func DefaultSources() []core.Source {
	return []core.Source{
		{ID: "ada_derana", Name: "Ada Derana", URL: "https://www.adaderana.lk", FeedURL: "https://www.adaderana.lk/rss.php", Type: core.SourceTypeNews, Tier: core.TierOne, Language: "en"},
		{ID: "daily_mirror", Name: "Daily Mirror", URL: "https://www.dailymirror.lk", FeedURL: "https://www.dailymirror.lk/rss", Type: core.SourceTypeNews, Tier: core.TierOne, Language: "en"},
		{ID: "economynext", Name: "EconomyNext", URL: "https://economynext.com", FeedURL: "https://economynext.com/feed", Type: core.SourceTypeFinancial, Tier: core.TierOne, Language: "en"},
		{ID: "newsfirst", Name: "News First", URL: "https://www.newsfirst.lk", FeedURL: "https://www.newsfirst.lk/feed", Type: core.SourceTypeNews, Tier: core.TierTwo, Language: "en"},
		{ID: "cbsl", Name: "Central Bank of Sri Lanka", URL: "https://www.cbsl.gov.lk/en/news", Type: core.SourceTypeGovernment, Tier: core.TierOfficial, Language: "en"},
		{ID: "gov_news", Name: "Government News Portal", URL: "https://www.news.lk", FeedURL: "https://www.news.lk/news?format=feed", Type: core.SourceTypeGovernment, Tier: core.TierOfficial, Language: "en"},
		{ID: "cse", Name: "Colombo Stock Exchange", URL: "https://www.cse.lk/pages/news/news.component.html", Type: core.SourceTypeFinancial, Tier: core.TierOfficial, Language: "en"},
	}
}

// Seed registers a batch, skipping entries already present so learned
// state survives restarts.
func (r *Registry) Seed(list []core.Source) {
	for _, s := range list {
		if _, err := r.Get(s.ID); err == nil {
			continue
		}
		if err := r.Add(s); err != nil {
			r.log.Warn().Err(err).Str("source", s.ID).Msg("seed entry rejected")
		}
	}
}

// LoadFile merges a sources YAML file into the registry. The file holds
// a top-level `sources:` list mirroring the core.Source fields.
func (r *Registry) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}
	var doc struct {
		Sources []core.Source `mapstructure:"sources"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}
	for _, s := range doc.Sources {
		if err := r.Add(s); err != nil {
			return fmt.Errorf("source %q: %w", s.ID, err)
		}
	}
	r.log.Info().Str("path", path).Int("sources", len(doc.Sources)).Msg("sources file loaded")
	return nil
}

// Add registers or replaces a source and seeds its reputation tier.
func (r *Registry) Add(s core.Source) error {
	if s.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if s.URL == "" && s.FeedURL == "" {
		return fmt.Errorf("source %q has no URL", s.ID)
	}
	if s.Tier == "" {
		s.Tier = core.TierUnknown
	}
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now().UTC()
	}
	s.Active = true

	r.mu.Lock()
	r.sources[s.ID] = s
	r.mu.Unlock()
	if r.tracker != nil {
		r.tracker.Register(s.ID, s.Tier)
	}
	return nil
}

// Remove drops a source from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sources, id)
	r.mu.Unlock()
}

// SetActive toggles manual polling for a source.
func (r *Registry) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sources[id]
	if !ok {
		return fmt.Errorf("unknown source %q", id)
	}
	s.Active = active
	r.sources[id] = s
	return nil
}

// Get returns one source by id.
func (r *Registry) Get(id string) (core.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	if !ok {
		return core.Source{}, fmt.Errorf("unknown source %q", id)
	}
	return s, nil
}

// All returns every registered source sorted by id.
func (r *Registry) All() []core.Source {
	r.mu.RLock()
	out := make([]core.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Active returns the sources the scheduler should poll: manually active
// and not auto-disabled by the reputation tracker.
func (r *Registry) Active() []core.Source {
	all := r.All()
	out := all[:0]
	for _, s := range all {
		if !s.Active {
			continue
		}
		if r.tracker != nil && r.tracker.Disabled(s.ID) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ByType returns active sources of one type.
func (r *Registry) ByType(t core.SourceType) []core.Source {
	var out []core.Source
	for _, s := range r.Active() {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}
