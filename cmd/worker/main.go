package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/warmup-engine/internal/bootstrap"
	"github.com/ignite/warmup-engine/internal/config"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
	"github.com/ignite/warmup-engine/internal/storage"
	"github.com/ignite/warmup-engine/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv(bootstrap.ConfigPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	bootstrap.ConfigureLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := bootstrap.OpenRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	svcs, err := bootstrap.NewServices(cfg, db, rdb)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	ticker := worker.NewRampTicker(svcs.Warmup, cfg.Warmup.TickInterval(), cfg.Warmup.InitialDelay(), cfg.Warmup.Concurrency)

	retention := worker.NewRetentionWorker(db, worker.RetentionPolicy{
		EventDays:   cfg.Warmup.EventRetentionDays,
		RampLogDays: cfg.Warmup.RampLogRetentionDays,
	})
	if cfg.Archive.Enabled() {
		archive, err := storage.NewEventArchive(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.Region, cfg.Archive.Profile)
		if err != nil {
			logger.Error("failed to initialize event archive", "error", err)
			os.Exit(1)
		}
		retention.SetArchiver(archive)
		logger.Info("archiving expired delivery events", "bucket", cfg.Archive.Bucket, "prefix", cfg.Archive.Prefix)
	}

	// --once runs a single catch-up pass and exits, for cron-style schedulers.
	if len(os.Args) > 1 && os.Args[1] == "--once" {
		sum, err := ticker.RunOnce(ctx)
		if err != nil {
			logger.Error("ramp pass failed", "error", err)
			os.Exit(1)
		}
		logger.Info("ramp pass complete",
			"accounts", sum.Accounts, "advanced", sum.Advanced, "ticks", sum.Ticks,
			"skipped", sum.Skipped, "failed", sum.Failed)
		retention.RunOnce(ctx)
		return
	}

	ticker.Start()
	go retention.Start(ctx)
	logger.Info("warmup worker running",
		"interval", cfg.Warmup.TickInterval().String(),
		"concurrency", cfg.Warmup.Concurrency,
		"timezone", svcs.Location.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	ticker.Stop()
	logger.Info("worker stopped")
}
