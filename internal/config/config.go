// Package config loads service configuration from the environment, optionally overlaid by a
// JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/jonathan/applydesk/internal/polling"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the full service configuration. Every field has an environment variable; the JSON
// file may override a subset.
type Config struct {
	Port        int      `env:"PORT" envDefault:"8080"`
	Store       string   `env:"STORE" envDefault:"postgres"`
	DatabaseURL string   `env:"DATABASE_URL"`
	RedisURL    string   `env:"REDIS_URL"`
	APIKey      string   `env:"GEMINI_API_KEY"`
	Model       string   `env:"GEMINI_MODEL"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	BulkWorkers int      `env:"BULK_WORKERS" envDefault:"8"`

	JWT       JWTConfig       `envPrefix:"JWT_"`
	Tailoring TailoringConfig `envPrefix:"TAILOR_"`
	Polling   PollingConfig   `envPrefix:"POLL_"`
}

// TailoringConfig controls the tailoring pipeline.
type TailoringConfig struct {
	DefaultMode    string        `env:"MODE_DEFAULT" envDefault:"queued"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	Workers        int           `env:"WORKERS" envDefault:"2"`
	PollInterval   time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	StatusCacheTTL time.Duration `env:"STATUS_CACHE_TTL" envDefault:"10m"`
	StaleAfter     time.Duration `env:"STALE_AFTER" envDefault:"5m"`
	ReapInterval   time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
}

// PollingConfig is the client backoff schedule for status polling.
type PollingConfig struct {
	Initial   time.Duration `env:"INITIAL" envDefault:"1s"`
	Increment time.Duration `env:"INCREMENT" envDefault:"1s"`
	Cap       time.Duration `env:"CAP" envDefault:"5s"`
}

// Backoff returns the schedule as a polling.Backoff.
func (p PollingConfig) Backoff() polling.Backoff {
	return polling.Backoff{Initial: p.Initial, Increment: p.Increment, Cap: p.Cap}
}

// Load reads .env if present, parses the environment and applies the JSON file at path when
// path is not empty. The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = file.MergeInto(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has usable values. Secrets needed by only some
// commands are checked where they are used.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config error: 'store' must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.BulkWorkers < 1 {
		return fmt.Errorf("config error: 'bulk_workers' must be at least 1")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	t := c.Tailoring
	if t.DefaultMode != "queued" && t.DefaultMode != "direct" {
		return fmt.Errorf("config error: 'tailor_mode_default' must be queued or direct, got %q", t.DefaultMode)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("config error: 'tailor_timeout' must be positive")
	}
	if t.Workers < 1 {
		return fmt.Errorf("config error: 'tailor_workers' must be at least 1")
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("config error: 'tailor_poll_interval' must be positive")
	}
	if t.StaleAfter <= t.Timeout {
		return fmt.Errorf("config error: 'tailor_stale_after' must be longer than 'tailor_timeout'")
	}
	if t.ReapInterval <= 0 {
		return fmt.Errorf("config error: 'tailor_reap_interval' must be positive")
	}

	p := c.Polling
	if p.Initial <= 0 || p.Increment < 0 || p.Cap < p.Initial {
		return fmt.Errorf("config error: polling backoff needs initial > 0, increment >= 0 and cap >= initial")
	}
	return nil
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config error: invalid log level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger: JSON to stdout at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// File is the JSON config file. Absent fields leave the environment's value in place.
type File struct {
	Port        int      `json:"port,omitempty"`
	Store       string   `json:"store,omitempty"`
	DatabaseURL string   `json:"database_url,omitempty"`
	RedisURL    string   `json:"redis_url,omitempty"`
	APIKey      string   `json:"api_key,omitempty"`
	Model       string   `json:"model,omitempty"`
	LogLevel    string   `json:"log_level,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty"`
	BulkWorkers int      `json:"bulk_workers,omitempty"`

	TailorModeDefault  string `json:"tailor_mode_default,omitempty"`
	TailorTimeout      string `json:"tailor_timeout,omitempty"`
	TailorWorkers      int    `json:"tailor_workers,omitempty"`
	TailorPollInterval string `json:"tailor_poll_interval,omitempty"`

	PollInitial   string `json:"poll_initial,omitempty"`
	PollIncrement string `json:"poll_increment,omitempty"`
	PollCap       string `json:"poll_cap,omitempty"`
}

// LoadFile loads a JSON config file. Duration strings are checked here so a bad file fails
// before anything starts.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	for name, v := range map[string]string{
		"tailor_timeout":       f.TailorTimeout,
		"tailor_poll_interval": f.TailorPollInterval,
		"poll_initial":         f.PollInitial,
		"poll_increment":       f.PollIncrement,
		"poll_cap":             f.PollCap,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("config error: '%s' is not a duration: %q", name, v)
		}
	}
	return &f, nil
}

// MergeInto returns base with every field set in the file replaced.
func (f *File) MergeInto(base Config) Config {
	result := base

	// String fields: file wins when set
	if f.Store != "" {
		result.Store = f.Store
	}
	if f.DatabaseURL != "" {
		result.DatabaseURL = f.DatabaseURL
	}
	if f.RedisURL != "" {
		result.RedisURL = f.RedisURL
	}
	if f.APIKey != "" {
		result.APIKey = f.APIKey
	}
	if f.Model != "" {
		result.Model = f.Model
	}
	if f.LogLevel != "" {
		result.LogLevel = f.LogLevel
	}
	if f.TailorModeDefault != "" {
		result.Tailoring.DefaultMode = f.TailorModeDefault
	}
	if len(f.CORSOrigins) > 0 {
		result.CORSOrigins = f.CORSOrigins
	}

	// Int fields: file wins when non-zero
	if f.Port != 0 {
		result.Port = f.Port
	}
	if f.BulkWorkers != 0 {
		result.BulkWorkers = f.BulkWorkers
	}
	if f.TailorWorkers != 0 {
		result.Tailoring.Workers = f.TailorWorkers
	}

	// Durations were validated by LoadFile
	mergeDuration(&result.Tailoring.Timeout, f.TailorTimeout)
	mergeDuration(&result.Tailoring.PollInterval, f.TailorPollInterval)
	mergeDuration(&result.Polling.Initial, f.PollInitial)
	mergeDuration(&result.Polling.Increment, f.PollIncrement)
	mergeDuration(&result.Polling.Cap, f.PollCap)

	return result
}

func mergeDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
