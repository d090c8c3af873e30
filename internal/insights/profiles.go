package insights

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"newslens/internal/core"
	"newslens/internal/logger"
)

// ProfileRegistry holds the monitored company profiles. Profiles are
// seeded from config and mutable at runtime through the API.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[string]core.CompanyProfile
	log      zerolog.Logger
}

// NewProfileRegistry builds an empty registry.
func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{
		profiles: make(map[string]core.CompanyProfile),
		log:      logger.With("profiles"),
	}
}

// LoadFile merges a profiles YAML file. The file holds a top-level
// `companies:` list mirroring the core.CompanyProfile fields.
func (r *ProfileRegistry) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read profiles file: %w", err)
	}
	var doc struct {
		Companies []core.CompanyProfile `mapstructure:"companies"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return fmt.Errorf("parse profiles file: %w", err)
	}
	for _, p := range doc.Companies {
		if err := r.Add(p); err != nil {
			return fmt.Errorf("company %q: %w", p.ID, err)
		}
	}
	r.log.Info().Str("path", path).Int("companies", len(doc.Companies)).Msg("company profiles loaded")
	return nil
}

// Add registers or replaces one profile.
func (r *ProfileRegistry) Add(p core.CompanyProfile) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("profile needs id and name")
	}
	if p.Scale == "" {
		p.Scale = core.ScaleMedium
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return nil
}

// Remove drops one profile.
func (r *ProfileRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.profiles, id)
	r.mu.Unlock()
}

// Get returns one profile.
func (r *ProfileRegistry) Get(id string) (core.CompanyProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return core.CompanyProfile{}, fmt.Errorf("unknown company %q", id)
	}
	return p, nil
}

// All returns every profile sorted by id.
func (r *ProfileRegistry) All() []core.CompanyProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.CompanyProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
