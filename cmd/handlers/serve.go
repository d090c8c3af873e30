package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newslens/internal/indicators"
	"newslens/internal/scheduler"
	"newslens/internal/server"
)

const shutdownGrace = 15 * time.Second

// NewServeCmd creates the long-running service command: scheduled
// pipeline runs, the learning loop and the HTTP read API.
func NewServeCmd() *cobra.Command {
	var (
		runSpec   string
		sweepSpec string
		skipFirst bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP read API",
		Long: `Starts the full service: cron-scheduled pipeline runs, the
adaptive learning cycles and the read API.

Examples:
  # Defaults: runs every 15m, API on the configured port
  newslens serve

  # Hourly runs
  newslens serve --run-spec "@every 1h"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), runSpec, sweepSpec, skipFirst)
		},
	}

	cmd.Flags().StringVar(&runSpec, "run-spec", "", "Cron spec for pipeline runs (default @every 15m)")
	cmd.Flags().StringVar(&sweepSpec, "sweep-spec", "", "Cron spec for window sweeps (default @every 10m)")
	cmd.Flags().BoolVar(&skipFirst, "skip-initial-run", false, "Do not run the pipeline immediately on startup")
	return cmd
}

func runServe(ctx context.Context, runSpec, sweepSpec string, skipFirst bool) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.learning.Initialize(ctx); err != nil {
		return err
	}

	sched := scheduler.New()
	if err := sched.SchedulePipeline(runSpec, a.pipeline); err != nil {
		return err
	}
	if err := sched.ScheduleSweeps(sweepSpec, a.dedup, a.validator); err != nil {
		return err
	}
	sched.Start()
	defer sched.Close()

	if !skipFirst {
		go func() {
			if err := sched.Trigger(context.Background(), "pipeline_run"); err != nil {
				a.log.Error().Err(err).Msg("initial run failed")
			}
		}()
	}

	srv := server.New(a.cfg.Server, server.Deps{
		Pipeline:  a.pipeline,
		Generator: a.insights,
		Profiles:  a.profiles,
		Series:    a.series,
		Catalog:   indicators.Catalog(),
		Sources:   a.sources,
		Tracker:   a.tracker,
		Dedup:     a.dedup,
		Metrics:   a.metrics,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		a.log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
