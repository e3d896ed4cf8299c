package bootstrap

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warmup-engine/internal/config"
)

func TestConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config/config.yaml", ConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/warmup.yaml")
	assert.Equal(t, "/etc/warmup.yaml", ConfigPath())
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, OpenRedis(ctx, config.RedisConfig{}))

	mr := miniredis.RunT(t)
	client := OpenRedis(ctx, config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NotNil(t, client)
	client.Close()

	// Bare host:port is accepted too.
	client = OpenRedis(ctx, config.RedisConfig{URL: mr.Addr()})
	require.NotNil(t, client)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, OpenRedis(ctx, config.RedisConfig{URL: "redis://" + addr}))
}

func TestOpenDB_RequiresURL(t *testing.T) {
	_, err := OpenDB(context.Background(), config.DatabaseConfig{})
	assert.Error(t, err)
}

func TestNewServices(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := &config.Config{Warmup: config.WarmupConfig{Timezone: "America/Chicago", LockTTLSeconds: 30, CacheTTLSeconds: 60}}
	svcs, err := NewServices(cfg, db, nil)
	require.NoError(t, err)
	assert.NotNil(t, svcs.Warmup)
	assert.NotNil(t, svcs.Analytics)
	assert.NotNil(t, svcs.Delivery)
	assert.Equal(t, "America/Chicago", svcs.Location.String())
	assert.Equal(t, svcs.Location, svcs.Warmup.Location())

	cfg.Warmup.Timezone = "Nowhere/Invalid"
	_, err = NewServices(cfg, db, nil)
	assert.Error(t, err)
}
