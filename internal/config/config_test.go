package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// No config file anywhere near the test's working directory.
	cfg, err := Load(filepath.Join(t.TempDir(), "newslens.yaml"))
	if err == nil {
		t.Fatalf("expected error for explicit missing file")
	}

	cfg, err = loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "newslens" {
		t.Errorf("app name = %q, want newslens", cfg.App.Name)
	}
	if cfg.Sources.DefaultParallel != 5 {
		t.Errorf("default_parallel = %d, want 5", cfg.Sources.DefaultParallel)
	}
	if cfg.Cache.TTLNews != 15*time.Minute {
		t.Errorf("ttl_news = %v, want 15m", cfg.Cache.TTLNews)
	}
	if cfg.Dedup.NearThreshold != 0.85 {
		t.Errorf("near_threshold = %v, want 0.85", cfg.Dedup.NearThreshold)
	}
	if cfg.Learning.Mode != "shadow" {
		t.Errorf("learning mode = %q, want shadow", cfg.Learning.Mode)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8080" {
		t.Errorf("server addr = %q, want 0.0.0.0:8080", got)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	yaml := `
sources:
  default_parallel: 12
learning:
  mode: active
server:
  port: 9090
`
	cfg, err := loadFromDir(t, yaml)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sources.DefaultParallel != 12 {
		t.Errorf("default_parallel = %d, want 12", cfg.Sources.DefaultParallel)
	}
	if cfg.Learning.Mode != "active" {
		t.Errorf("learning mode = %q, want active", cfg.Learning.Mode)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	// Untouched sections keep defaults.
	if cfg.Dedup.ExactThreshold != 0.95 {
		t.Errorf("exact_threshold = %v, want 0.95", cfg.Dedup.ExactThreshold)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unordered dedup thresholds", func(c *Config) { c.Dedup.NearThreshold = 0.99 }},
		{"zero embedding dims", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"unknown learning mode", func(c *Config) { c.Learning.Mode = "turbo" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := loadFromDir(t, "")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted invalid config")
			}
		})
	}
}

// loadFromDir runs Load against a temp dir so ambient config files and a
// stray .env cannot leak into the test.
func loadFromDir(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "newslens.yaml")
	if yaml == "" {
		yaml = "{}\n"
	}
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return Load(path)
}
