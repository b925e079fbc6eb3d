package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validConfig() Config {
	return Config{
		Port:        8080,
		Store:       StoreMemory,
		LogLevel:    "info",
		BulkWorkers: 8,
		Tailoring: TailoringConfig{
			DefaultMode:  "queued",
			Timeout:      time.Minute,
			Workers:      2,
			PollInterval: 2 * time.Second,
			StaleAfter:   2 * time.Minute,
			ReapInterval: time.Minute,
		},
		Polling: PollingConfig{Initial: time.Second, Increment: time.Second, Cap: 5 * time.Second},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "queued", cfg.Tailoring.DefaultMode)
	assert.Equal(t, 60*time.Second, cfg.Tailoring.Timeout)
	assert.Equal(t, 2, cfg.Tailoring.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Tailoring.StaleAfter)
	assert.Equal(t, time.Minute, cfg.Tailoring.ReapInterval)
	assert.Equal(t, PollingConfig{Initial: time.Second, Increment: time.Second, Cap: 5 * time.Second}, cfg.Polling)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 24, cfg.JWT.ExpirationHours)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/applydesk")
	t.Setenv("TAILOR_MODE_DEFAULT", "direct")
	t.Setenv("TAILOR_TIMEOUT", "5s")
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("POLL_CAP", "10s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("JWT_EXPIRATION_HOURS", "12")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/applydesk", cfg.DatabaseURL)
	assert.Equal(t, "direct", cfg.Tailoring.DefaultMode)
	assert.Equal(t, 5*time.Second, cfg.Tailoring.Timeout)
	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, 10*time.Second, cfg.Polling.Cap)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration())
	assert.NoError(t, cfg.JWT.Validate())
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_FileOverlay(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://env/applydesk")
	path := writeConfig(t, `{
		"store": "memory",
		"port": 9090,
		"tailor_timeout": "30s",
		"poll_cap": "8s",
		"model": "gemini-file-model",
		"cors_origins": ["https://app.example"]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Tailoring.Timeout)
	assert.Equal(t, 8*time.Second, cfg.Polling.Cap)
	assert.Equal(t, "gemini-file-model", cfg.Model)
	assert.Equal(t, time.Second, cfg.Polling.Initial, "unset fields keep the environment value")
	assert.Equal(t, "postgres://env/applydesk", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSOrigins)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile("")
	assert.ErrorContains(t, err, "config path is empty")

	_, err = LoadFile("/nonexistent/path/config.json")
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadFile(writeConfig(t, `{ invalid json }`))
	assert.ErrorContains(t, err, "failed to parse config JSON")

	_, err = LoadFile(writeConfig(t, `{"tailor_timeout": "soon"}`))
	assert.ErrorContains(t, err, "tailor_timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port range", func(c *Config) { c.Port = 70000 }, "port"},
		{"unknown store", func(c *Config) { c.Store = "sqlite" }, "store"},
		{"bulk workers", func(c *Config) { c.BulkWorkers = 0 }, "bulk_workers"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"tailor mode", func(c *Config) { c.Tailoring.DefaultMode = "later" }, "tailor_mode_default"},
		{"tailor timeout", func(c *Config) { c.Tailoring.Timeout = 0 }, "tailor_timeout"},
		{"tailor workers", func(c *Config) { c.Tailoring.Workers = 0 }, "tailor_workers"},
		{"poll interval", func(c *Config) { c.Tailoring.PollInterval = 0 }, "tailor_poll_interval"},
		{"stale after within timeout", func(c *Config) { c.Tailoring.StaleAfter = c.Tailoring.Timeout }, "tailor_stale_after"},
		{"reap interval", func(c *Config) { c.Tailoring.ReapInterval = 0 }, "tailor_reap_interval"},
		{"poll cap below initial", func(c *Config) { c.Polling.Cap = 500 * time.Millisecond }, "polling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestPollingConfig_Backoff(t *testing.T) {
	b := validConfig().Polling.Backoff()
	require.NoError(t, b.Validate())
	assert.Equal(t, 3*time.Second, b.Delay(2))
	assert.Equal(t, 5*time.Second, b.Delay(10))
}
