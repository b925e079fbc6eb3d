package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/applydesk/internal/cache"
	"github.com/jonathan/applydesk/internal/claims"
	"github.com/jonathan/applydesk/internal/config"
	"github.com/jonathan/applydesk/internal/credits"
	"github.com/jonathan/applydesk/internal/db"
	"github.com/jonathan/applydesk/internal/jobs"
	"github.com/jonathan/applydesk/internal/llm"
	"github.com/jonathan/applydesk/internal/store"
	"github.com/jonathan/applydesk/internal/store/memstore"
	"github.com/jonathan/applydesk/internal/submission"
	"github.com/jonathan/applydesk/internal/tailoring"
	"github.com/jonathan/applydesk/internal/types"
)

// app holds the wired services for one process.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     store.Store
	db        *db.DB // nil for the memory store
	jobs      *jobs.Service
	claims    *claims.Service
	credits   *credits.Ledger
	gate      *submission.Gate
	tailoring *tailoring.Service
	closers   []func()
}

// newApp connects the store, status cache and LLM client and builds every service.
// The caller must Close the app.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	switch cfg.Store {
	case config.StoreMemory:
		a.store = memstore.New()
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		database, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.db = database
		a.store = database
		a.closers = append(a.closers, database.Close)
	}

	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}
	llmCfg := llm.DefaultConfig()
	if cfg.Model != "" {
		llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.Model)
	}
	llmClient, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.closers = append(a.closers, func() { _ = llmClient.Close() })

	tailorOpts := tailoring.Options{
		Store:       a.store,
		Tailorer:    &tailoring.LLMTailorer{Client: llmClient, Tier: llm.TierStandard},
		Logger:      logger,
		Timeout:     cfg.Tailoring.Timeout,
		StaleAfter:  cfg.Tailoring.StaleAfter,
		DefaultMode: types.TailorMode(cfg.Tailoring.DefaultMode),
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		tailorOpts.Cache = cache.NewStatusCache(rdb, cfg.Tailoring.StatusCacheTTL)
	}

	if a.jobs, err = jobs.NewService(jobs.Options{Store: a.store, Logger: logger, BulkWorkers: cfg.BulkWorkers}); err != nil {
		return nil, err
	}
	if a.claims, err = claims.NewService(claims.Options{Store: a.store, Logger: logger}); err != nil {
		return nil, err
	}
	if a.credits, err = credits.NewLedger(credits.Options{Store: a.store, Logger: logger}); err != nil {
		return nil, err
	}
	if a.gate, err = submission.NewGate(submission.Options{Store: a.store, Logger: logger}); err != nil {
		return nil, err
	}
	if a.tailoring, err = tailoring.NewService(tailorOpts); err != nil {
		return nil, err
	}
	return a, nil
}

// newWorker builds the queued tailoring worker from configuration.
func (a *app) newWorker() *tailoring.Worker {
	return a.tailoring.NewWorker(tailoring.WorkerOptions{
		Concurrency:  a.cfg.Tailoring.Workers,
		PollInterval: a.cfg.Tailoring.PollInterval,
		ReapInterval: a.cfg.Tailoring.ReapInterval,
		Logger:       a.logger,
	})
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// loadConfig loads configuration and the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}
