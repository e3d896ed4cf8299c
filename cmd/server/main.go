package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/warmup-engine/internal/api"
	"github.com/ignite/warmup-engine/internal/bootstrap"
	"github.com/ignite/warmup-engine/internal/config"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
	"github.com/ignite/warmup-engine/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %w", addr, err)
	}
	return ln.Close()
}

func main() {
	cfg, err := config.LoadFromEnv(bootstrap.ConfigPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	bootstrap.ConfigureLogger(cfg.Log)
	logger.Info("starting warmup api server", "addr", cfg.Server.Addr(), "timezone", cfg.Warmup.Timezone)

	if err := checkPortAvailable(cfg.Server.Addr()); err != nil {
		logger.Error("pre-flight check failed", "error", err)
		os.Exit(1)
	}

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

	router := api.SetupRoutes(cfg.CORS, api.NewHealthChecker(db, rdb),
		api.NewWarmupHandlers(svcs.Warmup),
		api.NewAnalyticsHandlers(svcs.Analytics, svcs.Delivery),
	)
	server := api.NewServer(cfg.Server, router)

	// Production runs the ticker in cmd/worker.
	var ticker *worker.RampTicker
	if cfg.Warmup.TickerInServer {
		ticker = worker.NewRampTicker(svcs.Warmup, cfg.Warmup.TickInterval(), cfg.Warmup.InitialDelay(), cfg.Warmup.Concurrency)
		ticker.Start()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")

	if ticker != nil {
		ticker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
