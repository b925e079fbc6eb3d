package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"github.com/jonathan/applydesk/internal/client"
	"github.com/jonathan/applydesk/internal/config"
	"github.com/jonathan/applydesk/internal/observability"
	"github.com/spf13/cobra"
)

// remoteConfig configures commands that talk to a running server.
type remoteConfig struct {
	APIURL  string               `env:"APPLYDESK_API_URL" envDefault:"http://localhost:8080"`
	Token   string               `env:"APPLYDESK_TOKEN"`
	Polling config.PollingConfig `envPrefix:"POLL_"`
}

var (
	remoteAPIURL string
	remoteToken  string
	remotePretty bool
)

func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&remoteAPIURL, "api", "", "API base URL (overrides APPLYDESK_API_URL)")
	cmd.Flags().StringVar(&remoteToken, "token", "", "Bearer token (overrides APPLYDESK_TOKEN)")
	cmd.Flags().BoolVar(&remotePretty, "pretty", false, "Print a human-readable summary instead of JSON")
}

func loadRemoteConfig() (*remoteConfig, error) {
	var cfg remoteConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse client config: %w", err)
	}
	if remoteAPIURL != "" {
		cfg.APIURL = remoteAPIURL
	}
	if remoteToken != "" {
		cfg.Token = remoteToken
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("a token is required: set APPLYDESK_TOKEN or pass --token")
	}
	if err := cfg.Polling.Backoff().Validate(); err != nil {
		return nil, fmt.Errorf("config error: polling backoff: %w", err)
	}
	return &cfg, nil
}

func (c *remoteConfig) client() *client.Client {
	return client.New(c.APIURL, c.Token, nil)
}

// printResult writes v as indented JSON, or through pretty when --pretty is set.
func printResult[T any](w io.Writer, v *T, pretty func(*observability.Printer, *T)) error {
	if remotePretty {
		pretty(observability.NewPrinter(w), v)
		return nil
	}
	return printJSON(w, v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
