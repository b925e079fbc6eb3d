package main

import (
	"fmt"

	"github.com/jonathan/applydesk/internal/server"
	"github.com/jonathan/applydesk/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort    int
	serveWorker  bool
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the job, task, tailoring and credit endpoints.
Queued tailoring runs are processed in-process unless --worker=false.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveWorker, "worker", true, "Run the tailoring worker in this process")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.JWT.Validate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate && a.db != nil {
		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
	}

	jwtService, err := server.NewJWTService(&cfg.JWT)
	if err != nil {
		return err
	}
	rlConfig, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(rlConfig)

	srv, err := server.New(server.Config{Port: cfg.Port, CORSOrigins: cfg.CORSOrigins}, server.Deps{
		Jobs:       a.jobs,
		Claims:     a.claims,
		Credits:    a.credits,
		Submission: a.gate,
		Tailoring:  a.tailoring,
		Tokens:     jwtService.AsTokenValidator(),
		Limiter:    limiter,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if serveWorker {
		g.Go(func() error { return a.newWorker().Run(gctx) })
	}
	return g.Wait()
}
