package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://warmup@localhost/warmup?sslmode=disable"
  max_open_conns: 40

redis:
  url: "redis://localhost:6379/0"

warmup:
  tick_interval_seconds: 600
  timezone: "America/New_York"
  lock_ttl_seconds: 45
  concurrency: 4
  cache_ttl_seconds: 120

log:
  level: "debug"
  redact_pii: false

cors:
  allowed_origins: ["https://app.example.com"]
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://warmup@localhost/warmup?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Redis.Enabled())

	assert.Equal(t, 10*time.Minute, cfg.Warmup.TickInterval())
	assert.Equal(t, 45*time.Second, cfg.Warmup.LockTTL())
	assert.Equal(t, 4, cfg.Warmup.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Warmup.CacheTTL())

	loc, err := cfg.Warmup.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Redact())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 15*time.Minute, cfg.Warmup.TickInterval())
	assert.Equal(t, 30*time.Second, cfg.Warmup.InitialDelay())
	assert.Equal(t, "UTC", cfg.Warmup.Timezone)
	assert.Equal(t, 8, cfg.Warmup.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Warmup.CacheTTL())
	assert.Equal(t, 30, cfg.Warmup.EventRetentionDays)
	assert.Equal(t, 365, cfg.Warmup.RampLogRetentionDays)
	assert.False(t, cfg.Archive.Enabled())
	assert.Equal(t, "warmup", cfg.Archive.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Redact())
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	configPath := writeConfig(t, `
database:
  url: "postgres://file"
warmup:
  timezone: "UTC"
`)

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("WARMUP_TIMEZONE", "Europe/Berlin")
	t.Setenv("WARMUP_CONCURRENCY", "16")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ARCHIVE_BUCKET", "warmup-archive")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, "redis://env:6379", cfg.Redis.URL)
	assert.Equal(t, "Europe/Berlin", cfg.Warmup.Timezone)
	assert.Equal(t, 16, cfg.Warmup.Concurrency)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Archive.Enabled())
	assert.Equal(t, "warmup-archive", cfg.Archive.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Archive.Region)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLocationInvalid(t *testing.T) {
	_, err := WarmupConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

func TestGetHost(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")
	assert.Equal(t, "127.0.0.1:8081", ServerConfig{Host: "127.0.0.1", Port: 8081}.Addr())

	t.Setenv("SERVER_HOST", "10.0.0.5")
	assert.Equal(t, "10.0.0.5", ServerConfig{Host: "127.0.0.1"}.GetHost())
}
