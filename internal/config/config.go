// Package config loads tool configuration from the environment, with an
// optional YAML file for overriding the tunable heuristics.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration parameters.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080" yaml:"http_port"`

	// ContactEmail joins the providers' polite pools when set.
	ContactEmail string `envconfig:"CONTACT_EMAIL" yaml:"contact_email"`

	CrossrefBaseURL string `envconfig:"CROSSREF_BASE_URL" default:"https://api.crossref.org" yaml:"crossref_base_url"`
	OpenAlexBaseURL string `envconfig:"OPENALEX_BASE_URL" default:"https://api.openalex.org" yaml:"openalex_base_url"`

	// GrobidBaseURL enables the optional structuring oracle.
	GrobidBaseURL string `envconfig:"GROBID_API_URL" yaml:"grobid_api_url"`

	// Web-search fallback credentials; both must be set to enable it.
	GoogleAPIKey         string `envconfig:"GOOGLE_API_KEY" yaml:"google_api_key"`
	GoogleSearchEngineID string `envconfig:"GOOGLE_SEARCH_ENGINE_ID" yaml:"google_search_engine_id"`

	// Confidence thresholds. Two deployment variants exist (lenient
	// 0.4/0.8 and strict 0.6/0.6); the defaults here are the lenient
	// pair and either value may be overridden.
	AcceptThreshold   float64 `envconfig:"ACCEPT_THRESHOLD" default:"0.4" yaml:"accept_threshold"`
	FallbackThreshold float64 `envconfig:"FALLBACK_THRESHOLD" default:"0.8" yaml:"fallback_threshold"`

	BatchSize    int `envconfig:"BATCH_SIZE" default:"3" yaml:"batch_size"`
	BatchDelayMS int `envconfig:"BATCH_DELAY_MS" default:"600" yaml:"batch_delay_ms"`

	CrossrefConcurrency int `envconfig:"CROSSREF_CONCURRENCY" default:"5" yaml:"crossref_concurrency"`
	OpenAlexConcurrency int `envconfig:"OPENALEX_CONCURRENCY" default:"1" yaml:"openalex_concurrency"`

	// Two-column detection: "floor" (absolute fragment count) or
	// "share" (proportional density).
	ColumnMode         string  `envconfig:"COLUMN_MODE" default:"floor" yaml:"column_mode"`
	MinColumnFragments int     `envconfig:"MIN_COLUMN_FRAGMENTS" default:"10" yaml:"min_column_fragments"`
	MinColumnShare     float64 `envconfig:"MIN_COLUMN_SHARE" default:"0.25" yaml:"min_column_share"`

	// CachePath enables the SQLite provider-response cache when set.
	CachePath string `envconfig:"CACHE_PATH" yaml:"cache_path"`
}

// BatchDelay returns the inter-batch delay as a duration.
func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMS) * time.Millisecond
}

// Load reads configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &c, nil
}

// LoadWithFile reads environment configuration, then overlays values
// from a YAML file. File values win over environment values.
func LoadWithFile(path string) (*Config, error) {
	c, err := Load()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return c, nil
}
