package ratelimit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Path pattern: "*" matches one segment, a trailing "/" matches any suffix
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool          `env:"ENABLED" envDefault:"true"`
	DefaultLimit    int           `env:"DEFAULT_LIMIT" envDefault:"600"`
	DefaultWindow   time.Duration `env:"DEFAULT_WINDOW" envDefault:"1m"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	Whitelist       []string      `env:"WHITELIST" envSeparator:","`
	Blacklist       []string      `env:"BLACKLIST" envSeparator:","`
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "RATE_LIMIT_"}); err != nil {
		return nil, fmt.Errorf("parse rate limit config: %w", err)
	}
	if cfg.DefaultLimit < 0 || (cfg.Enabled && cfg.DefaultWindow <= 0) {
		return nil, fmt.Errorf("rate limit config: limit must be >= 0 and window positive")
	}
	cfg.EndpointConfigs = DefaultEndpointConfigs()
	return &cfg, nil
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: model calls (strictest limits)
		{Path: "/jobs/*/tailoring", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/jobs/*/cover-letter", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Tier 2: bulk and money-moving writes
		{Path: "/jobs/bulk/", Method: "POST", Limit: 20, Window: time.Minute, Burst: 5},
		{Path: "/tasks/*/submit", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/credits/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		// Tier 3: single-job writes
		{Path: "/jobs", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/jobs/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/jobs/", Method: "PATCH", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/tasks/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},

		// Tier 4: polling reads use the default limit; health check is unlimited in the matcher
	}
}
