package tailoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency  = 2
	defaultPollInterval = 2 * time.Second
	defaultReapInterval = time.Minute
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Concurrency  int           // Optional: parallel runs, defaults to 2
	PollInterval time.Duration // Optional: idle wait between scans, defaults to 2s
	ReapInterval time.Duration // Optional: wait between stale-run sweeps, defaults to 1m
	Logger       *slog.Logger  // Optional: structured logger
}

// Worker drains queued tailoring runs. Pending records live in the store, so any number of
// workers in any number of processes may run against it.
type Worker struct {
	svc          *Service
	concurrency  int
	pollInterval time.Duration
	reapInterval time.Duration
	logger       *slog.Logger
}

// NewWorker creates a worker for the service's queue.
func (s *Service) NewWorker(opts WorkerOptions) *Worker {
	w := &Worker{
		svc:          s,
		concurrency:  opts.Concurrency,
		pollInterval: opts.PollInterval,
		reapInterval: opts.ReapInterval,
		logger:       opts.Logger,
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultConcurrency
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.reapInterval <= 0 {
		w.reapInterval = defaultReapInterval
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "tailoring_worker")
	return w
}

// Run processes runs until ctx is cancelled. A run in flight when ctx ends is allowed to
// finish so its record never stays in processing. Runs left in processing by a worker that died
// are failed by a periodic sweep.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "worker started", "concurrency", w.concurrency, "poll_interval", w.pollInterval, "reap_interval", w.reapInterval)
	g, ctx := errgroup.WithContext(ctx)
	for i := range w.concurrency {
		g.Go(func() error {
			return w.loop(ctx, i)
		})
	}
	g.Go(func() error {
		return w.reapLoop(ctx)
	})
	err := g.Wait()
	w.logger.InfoContext(context.WithoutCancel(ctx), "worker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context, id int) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.svc.wake:
		case <-timer.C:
		}

		for {
			worked, err := w.svc.ProcessNext(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.ErrorContext(ctx, "tailoring run failed", "worker", id, "error", err)
				break
			}
			if !worked {
				break
			}
		}
		timer.Reset(w.pollInterval)
	}
}

func (w *Worker) reapLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.reapInterval)
	defer ticker.Stop()
	for {
		if _, err := w.svc.ReapStale(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.ErrorContext(ctx, "stale run sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
