// Package config loads runtime configuration from file, environment and
// defaults, in that order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration tree. Every field has a default so the
// pipeline runs with an empty config file.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Learning  LearningConfig  `mapstructure:"learning"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig holds top-level application settings.
type AppConfig struct {
	Name          string `mapstructure:"name"`
	Environment   string `mapstructure:"environment"` // dev | staging | prod
	DataDir       string `mapstructure:"data_dir"`
	CompaniesPath string `mapstructure:"companies_path"` // Optional company profiles YAML
}

// SourcesConfig controls scraping behaviour shared across sources.
type SourcesConfig struct {
	ConfigPath      string        `mapstructure:"config_path"` // Optional sources YAML
	DefaultParallel int           `mapstructure:"default_parallel"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	RatePerSource   float64       `mapstructure:"rate_per_source"` // Requests per second
	UserAgent       string        `mapstructure:"user_agent"`
}

// CacheConfig sets the per-source-type TTL bands and revalidation knobs.
type CacheConfig struct {
	TTLNews       time.Duration `mapstructure:"ttl_news"`
	TTLGovernment time.Duration `mapstructure:"ttl_government"`
	TTLAPI        time.Duration `mapstructure:"ttl_api"`
	TTLSocial     time.Duration `mapstructure:"ttl_social"`
	TTLFinancial  time.Duration `mapstructure:"ttl_financial"`
	SampleBytes   int           `mapstructure:"sample_bytes"` // Content-signature sample size
	ArticleTTL    time.Duration `mapstructure:"article_ttl"`  // Cached scraped articles
}

// TTLFor returns the cache TTL configured for a source type string.
func (c CacheConfig) TTLFor(sourceType string) time.Duration {
	switch sourceType {
	case "government":
		return c.TTLGovernment
	case "api":
		return c.TTLAPI
	case "social":
		return c.TTLSocial
	case "financial":
		return c.TTLFinancial
	default:
		return c.TTLNews
	}
}

// DedupConfig holds the semantic duplicate-detection thresholds.
type DedupConfig struct {
	ExactThreshold   float64       `mapstructure:"exact_threshold"`
	NearThreshold    float64       `mapstructure:"near_threshold"`
	RelatedThreshold float64       `mapstructure:"related_threshold"`
	WindowHours      int           `mapstructure:"window_hours"`
	MaxVectors       int           `mapstructure:"max_vectors"`
	RetrainEvictions int           `mapstructure:"retrain_evictions"`
	IVFThreshold     int           `mapstructure:"ivf_threshold"` // Switch to IVF above this many vectors
	IVFProbes        int           `mapstructure:"ivf_probes"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
}

// ScoringConfig holds validation and impact scoring knobs.
type ScoringConfig struct {
	AutoDisableBelow  float64 `mapstructure:"auto_disable_below"` // Reputation floor before a source is paused
	AutoDisableMinObs int     `mapstructure:"auto_disable_min_obs"`
	DefaultProfile    string  `mapstructure:"default_profile"` // Impact weight profile
	MinArticleWords   int     `mapstructure:"min_article_words"`
}

// LearningConfig controls the adaptive feedback loop.
type LearningConfig struct {
	Mode       string        `mapstructure:"mode"` // off | shadow | active
	BufferSize int           `mapstructure:"buffer_size"`
	MaxStepPct float64       `mapstructure:"max_step_pct"` // Cap on one adjustment, fraction
	Retention  time.Duration `mapstructure:"retention"`
	HourlySpec string        `mapstructure:"hourly_spec"` // Cron spec for the fast cycle
	DailySpec  string        `mapstructure:"daily_spec"`
	WeeklySpec string        `mapstructure:"weekly_spec"`
}

// LLMConfig configures the language-model reasoning backend.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // anthropic | none
	Model       string        `mapstructure:"model"`
	APIKeys     []string      `mapstructure:"api_keys"` // Rotated by the key manager
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RatePerMin  int           `mapstructure:"rate_per_min"` // Per key
	CooldownFor time.Duration `mapstructure:"cooldown_for"` // After a 429
}

// EmbeddingConfig configures the embedding backend used for deduplication.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // gemini | local
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// StorageConfig wires the three stores.
type StorageConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPassword string `mapstructure:"redis_password"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	BadgerPath    string `mapstructure:"badger_path"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"` // Pretty console writer instead of JSON
}

// Load reads configuration from newslens.yaml (searched in ., ./config and
// $HOME/.newslens), layered with NEWSLENS_-prefixed environment variables.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional; ignore absence.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("newslens")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.newslens")
	}

	v.SetEnvPrefix("NEWSLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Dedup.ExactThreshold < c.Dedup.NearThreshold ||
		c.Dedup.NearThreshold < c.Dedup.RelatedThreshold {
		return fmt.Errorf("dedup thresholds must be ordered exact >= near >= related, got %.2f/%.2f/%.2f",
			c.Dedup.ExactThreshold, c.Dedup.NearThreshold, c.Dedup.RelatedThreshold)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Learning.Mode {
	case "off", "shadow", "active":
	default:
		return fmt.Errorf("unknown learning mode %q", c.Learning.Mode)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "newslens")
	v.SetDefault("app.environment", "dev")
	v.SetDefault("app.data_dir", "./data")
	v.SetDefault("app.companies_path", "")

	v.SetDefault("sources.default_parallel", 5)
	v.SetDefault("sources.request_timeout", 30*time.Second)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.retry_backoff", time.Second)
	v.SetDefault("sources.rate_per_source", 1.0)
	v.SetDefault("sources.user_agent", "newslens/1.0 (+https://github.com/newslens)")

	v.SetDefault("cache.ttl_news", 15*time.Minute)
	v.SetDefault("cache.ttl_government", 2*time.Hour)
	v.SetDefault("cache.ttl_api", 30*time.Minute)
	v.SetDefault("cache.ttl_social", 5*time.Minute)
	v.SetDefault("cache.ttl_financial", 10*time.Minute)
	v.SetDefault("cache.sample_bytes", 8192)
	v.SetDefault("cache.article_ttl", 24*time.Hour)

	v.SetDefault("dedup.exact_threshold", 0.95)
	v.SetDefault("dedup.near_threshold", 0.85)
	v.SetDefault("dedup.related_threshold", 0.70)
	v.SetDefault("dedup.window_hours", 48)
	v.SetDefault("dedup.max_vectors", 50000)
	v.SetDefault("dedup.retrain_evictions", 100)
	v.SetDefault("dedup.ivf_threshold", 100000)
	v.SetDefault("dedup.ivf_probes", 8)
	v.SetDefault("dedup.sweep_interval", 10*time.Minute)

	v.SetDefault("scoring.auto_disable_below", 0.40)
	v.SetDefault("scoring.auto_disable_min_obs", 20)
	v.SetDefault("scoring.default_profile", "balanced")
	v.SetDefault("scoring.min_article_words", 30)

	v.SetDefault("learning.mode", "shadow")
	v.SetDefault("learning.buffer_size", 10)
	v.SetDefault("learning.max_step_pct", 0.02)
	v.SetDefault("learning.retention", 30*24*time.Hour)
	v.SetDefault("learning.hourly_spec", "0 * * * *")
	v.SetDefault("learning.daily_spec", "30 2 * * *")
	v.SetDefault("learning.weekly_spec", "0 3 * * 0")

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.rate_per_min", 50)
	v.SetDefault("llm.cooldown_for", 5*time.Minute)

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.model", "gemini-embedding-001")
	v.SetDefault("embedding.dimensions", 384)

	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.badger_path", "./data/docs")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
}
