package main

import (
	"fmt"

	"github.com/jonathan/applydesk/internal/config"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued tailoring runs",
	Long:  "Run tailoring workers against the shared database until interrupted. Any number of workers may run side by side.",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("a standalone worker needs the postgres store, the memory store is private to one process")
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.newWorker().Run(ctx)
}
