package sources

import (
	"testing"

	"newslens/internal/core"
	"newslens/internal/validate"
)

func TestAddValidation(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Add(core.Source{Name: "no id", URL: "https://x"}); err == nil {
		t.Fatal("accepted source without id")
	}
	if err := r.Add(core.Source{ID: "x"}); err == nil {
		t.Fatal("accepted source without any URL")
	}
	if err := r.Add(core.Source{ID: "x", URL: "https://x"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s, err := r.Get("x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Tier != core.TierUnknown {
		t.Fatalf("tier defaulted to %q, want unknown", s.Tier)
	}
	if !s.Active || s.AddedAt.IsZero() {
		t.Fatal("Add did not initialise active flag and timestamp")
	}
}

func TestSeedDoesNotOverwrite(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.Add(core.Source{ID: "ada_derana", URL: "https://mirror.local", Tier: core.TierTwo}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	r.Seed(DefaultSources())

	s, _ := r.Get("ada_derana")
	if s.URL != "https://mirror.local" {
		t.Fatal("seed overwrote an existing source")
	}
	if len(r.All()) != len(DefaultSources()) {
		t.Fatalf("registry size = %d, want %d", len(r.All()), len(DefaultSources()))
	}
}

func TestAddSeedsReputationTier(t *testing.T) {
	tracker := validate.NewTracker(nil)
	r := NewRegistry(tracker)
	r.Seed(DefaultSources())
	if got := tracker.TierOf("cbsl"); got != core.TierOfficial {
		t.Fatalf("cbsl tier = %q, want official", got)
	}
}

func TestActiveFiltersDisabled(t *testing.T) {
	tracker := validate.NewTracker(nil)
	r := NewRegistry(tracker)
	r.Seed(DefaultSources())

	if err := r.SetActive("newsfirst", false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	// Drive one source below the auto-disable line.
	for i := 0; i < 25; i++ {
		tracker.RecordQuality("daily_mirror", 10, false)
	}

	for _, s := range r.Active() {
		if s.ID == "newsfirst" {
			t.Fatal("manually deactivated source still polled")
		}
		if s.ID == "daily_mirror" {
			t.Fatal("auto-disabled source still polled")
		}
	}
}

func TestByType(t *testing.T) {
	r := NewRegistry(nil)
	r.Seed(DefaultSources())
	for _, s := range r.ByType(core.SourceTypeGovernment) {
		if s.Type != core.SourceTypeGovernment {
			t.Fatalf("ByType returned %q source %s", s.Type, s.ID)
		}
	}
	if len(r.ByType(core.SourceTypeGovernment)) == 0 {
		t.Fatal("no government sources in seed catalog")
	}
}
