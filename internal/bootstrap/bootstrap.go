// Package bootstrap wires configuration into the database, Redis, and the
// warmup and deliverability services shared by the server and worker
// binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/warmup-engine/internal/config"
	"github.com/ignite/warmup-engine/internal/pkg/distlock"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
	"github.com/ignite/warmup-engine/internal/repository/postgres"
	"github.com/ignite/warmup-engine/internal/service/deliverability"
	"github.com/ignite/warmup-engine/internal/service/warmup"
	"github.com/ignite/warmup-engine/internal/storage"
)

// ConfigPath returns CONFIG_PATH or the default config/config.yaml.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/config.yaml"
}

// ConfigureLogger applies the log section to the package logger.
func ConfigureLogger(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.Redact())
}

// OpenDB opens and pings the Postgres pool.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required (set DATABASE_URL)")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// OpenRedis connects to Redis when configured. It returns nil when Redis is
// not configured or unreachable; callers then fall back to Postgres advisory
// locks and an in-process report cache.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		logger.Info("redis not configured, using postgres advisory locks")
		return nil
	}

	var client *redis.Client
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, falling back to postgres advisory locks", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

// Services are the wired application services.
type Services struct {
	Warmup    *warmup.Service
	Analytics *deliverability.Service
	Delivery  *postgres.DeliveryRepo
	Location  *time.Location
}

// NewServices builds the services on top of db and an optional Redis client.
// Config saves and ramp ticks invalidate the cached analytics report.
func NewServices(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*Services, error) {
	loc, err := cfg.Warmup.Location()
	if err != nil {
		return nil, err
	}

	delivery := postgres.NewDeliveryRepo(db)
	analytics := deliverability.NewService(delivery, storage.NewReportCache(rdb, cfg.Warmup.CacheTTL()), loc)

	locks := distlock.NewFactory(rdb, db, cfg.Warmup.LockTTL())
	warmupSvc := warmup.NewService(postgres.NewWarmupRepo(db), locks,
		warmup.WithLocation(loc),
		warmup.WithChangeHook(analytics.Invalidate),
	)

	return &Services{
		Warmup:    warmupSvc,
		Analytics: analytics,
		Delivery:  delivery,
		Location:  loc,
	}, nil
}
