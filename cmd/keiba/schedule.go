package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/keiba-predictor/internal/health"
	"github.com/yourusername/keiba-predictor/internal/metrics"
	"github.com/yourusername/keiba-predictor/internal/scheduler"
)

var (
	healthAddr string
	runNow     bool
)

func init() {
	scheduleCmd.Flags().StringVar(&healthAddr, "health-addr", "", "Serve /health, /ready and /metrics on this address (e.g. :9090)")
	scheduleCmd.Flags().BoolVar(&runNow, "run-now", false, "Retrain once before waiting for the first scheduled run")
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Retrain periodically until interrupted",
	Long: `Retrains on schedule.retrain_cron over the trailing schedule.lookback_days
until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSchedule(ctx)
	},
}

func runSchedule(ctx context.Context) error {
	pipeline, _, err := setupPipeline(ctx)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(pipeline, logger)
	if _, err := sched.ScheduleRetrain(cfg.Schedule.RetrainCron, cfg.Schedule.LookbackDays); err != nil {
		return err
	}

	if healthAddr != "" {
		hcfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Addr:        healthAddr,
			Logger:      logger,
			Model:       pipeline,
		}
		if db != nil {
			hcfg.DB = db
		}
		if cfg.Metrics.Enabled {
			hcfg.Metrics = metrics.Handler()
		}
		server := health.NewServer(hcfg)
		if err := server.Start(ctx); err != nil {
			return err
		}
		server.SetReady(true)
	}

	if runNow {
		if err := sched.RunRetrain(ctx, cfg.Schedule.LookbackDays); err != nil {
			logger.WithError(err).Warn("Initial retraining failed, waiting for the schedule")
		}
	}

	if err := sched.Start(); err != nil {
		return err
	}
	if next := sched.GetNextRun(); !next.IsZero() {
		logger.WithField("next_run", next.Format(time.RFC3339)).Info("Waiting for scheduled retraining")
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}
