package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/segyhp/microloan-ledger/internal/app"
	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/job"
	"github.com/segyhp/microloan-ledger/internal/logging"

	"github.com/robfig/cron/v3"
)

func main() {
	once := flag.Bool("once", false, "run the overdue sweep once and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logging)
	logger.Info("Starting ledger scheduler...")

	deps, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize dependencies", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Close()

	sweep := job.NewOverdueSweepJob(deps.Ledger, cfg.GetJobTimeout(), logger)

	if *once {
		if _, err := sweep.Run(context.Background()); err != nil {
			logger.Error("Overdue sweep failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	// Overlapping runs are skipped rather than queued.
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	jobID, err := c.AddFunc(cfg.Scheduler.SweepSpec, func() {
		if _, err := sweep.Run(context.Background()); err != nil {
			logger.Error("Overdue sweep finished with error", slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Error("Failed to schedule overdue sweep", slog.String("schedule", cfg.Scheduler.SweepSpec), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Scheduled overdue sweep",
		slog.String("schedule", cfg.Scheduler.SweepSpec),
		slog.String("timezone", cfg.GetLocation().String()),
		slog.Int("job_id", int(jobID)),
	)

	c.Start()
	logger.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
