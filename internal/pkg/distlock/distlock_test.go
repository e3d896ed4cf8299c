package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_AcquireRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "warmup:acct-1", time.Minute)
	b := NewRedisLock(client, "warmup:acct-1", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:warmup:acct-1"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held lock")

	// b does not own the lock, so its release is a no-op.
	require.NoError(t, b.Release(ctx))
	assert.True(t, mr.Exists("lock:warmup:acct-1"))

	require.NoError(t, a.Release(ctx))
	assert.False(t, mr.Exists("lock:warmup:acct-1"))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_TTLExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "warmup:acct-2", 5*time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	b := NewRedisLock(client, "warmup:acct-2", 5*time.Second)
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")
}

func TestRedisLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "warmup:acct-3", 5*time.Second)
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Extend(ctx, time.Minute))
	assert.Greater(t, mr.TTL("lock:warmup:acct-3"), 30*time.Second)

	other := NewRedisLock(client, "warmup:acct-3", time.Minute)
	assert.Error(t, other.Extend(ctx, time.Minute))
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "warmup:acct-4")

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(l.lockID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_NotAcquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPGAdvisoryLock(db, "warmup:acct-5")
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// Nothing held, so no unlock query is expected.
	require.NoError(t, l.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_DeterministicID(t *testing.T) {
	a := NewPGAdvisoryLock(nil, "warmup:acct-6")
	b := NewPGAdvisoryLock(nil, "warmup:acct-6")
	c := NewPGAdvisoryLock(nil, "warmup:acct-7")
	assert.Equal(t, a.lockID, b.lockID)
	assert.NotEqual(t, a.lockID, c.lockID)
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	a := NewLocalLock("local:acct-8")
	b := NewLocalLock("local:acct-8")
	other := NewLocalLock("local:acct-9")

	ok, _ := a.Acquire(ctx)
	assert.True(t, ok)
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok)
	ok, _ = other.Acquire(ctx)
	assert.True(t, ok, "different keys are independent")

	require.NoError(t, b.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok, "release by a non-owner must not free the key")

	require.NoError(t, a.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.True(t, ok)

	require.NoError(t, b.Release(ctx))
	require.NoError(t, other.Release(ctx))
}

func TestNewFactory_Backends(t *testing.T) {
	client, _ := setupTestRedis(t)
	_, isRedis := NewFactory(client, nil, time.Minute)("k").(*RedisLock)
	assert.True(t, isRedis)

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, isPG := NewFactory(nil, db, time.Minute)("k").(*PGAdvisoryLock)
	assert.True(t, isPG)

	_, isLocal := NewFactory(nil, nil, time.Minute)("k").(*LocalLock)
	assert.True(t, isLocal)
}

func TestAcquireWithRetry(t *testing.T) {
	ctx := context.Background()
	holder := NewLocalLock("retry:acct")
	ok, _ := holder.Acquire(ctx)
	require.True(t, ok)

	waiter := NewLocalLock("retry:acct")
	ok, err := AcquireWithRetry(ctx, waiter, 3, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	go func() {
		time.Sleep(5 * time.Millisecond)
		holder.Release(ctx)
	}()
	ok, err = AcquireWithRetry(ctx, waiter, 200, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, waiter.Release(ctx))
}
