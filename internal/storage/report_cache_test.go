package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warmup-engine/internal/domain"
)

func sampleReport(accountID string) *domain.AnalyticsReport {
	day := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	return &domain.AnalyticsReport{
		AccountID: accountID,
		Source:    domain.SourceEvents,
		Series: domain.DailySeries{
			{DateKey: "05 Jan", Date: day, Sent: 2, Replied: 1},
		},
		Totals:    domain.AggregateTotals{TotalSent: 2, TotalReplied: 1},
		Breakdown: domain.Breakdown{InboxPercent: 100, ReplyRatePercent: 50},
	}
}

func TestReportCache_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewReportCache(client, time.Minute)

	_, ok := c.Get(ctx, "acct-1")
	assert.False(t, ok)

	c.Set(ctx, sampleReport("acct-1"))
	assert.True(t, mr.Exists("warmup:report:acct-1"))

	got, ok := c.Get(ctx, "acct-1")
	require.True(t, ok)
	require.Len(t, got.Series, 1)
	assert.Equal(t, "05 Jan", got.Series[0].DateKey)
	assert.True(t, got.Series[0].Date.Equal(time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 50, got.Breakdown.ReplyRatePercent)

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "acct-1")
	assert.False(t, ok, "entry should expire with the TTL")

	c.Set(ctx, sampleReport("acct-1"))
	c.Invalidate(ctx, "acct-1")
	_, ok = c.Get(ctx, "acct-1")
	assert.False(t, ok)
}

func TestReportCache_RedisDownIsAMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	c := NewReportCache(client, time.Minute)
	mr.Close()

	ctx := context.Background()
	c.Set(ctx, sampleReport("acct-1"))
	_, ok := c.Get(ctx, "acct-1")
	assert.False(t, ok)
}

func TestReportCache_Memory(t *testing.T) {
	ctx := context.Background()
	c := NewReportCache(nil, time.Minute)
	now := time.Date(2024, time.January, 5, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, sampleReport("acct-1"))
	c.Set(ctx, &domain.AnalyticsReport{}) // no account, ignored

	got, ok := c.Get(ctx, "acct-1")
	require.True(t, ok)
	got.Series[0].Sent = 99

	again, ok := c.Get(ctx, "acct-1")
	require.True(t, ok)
	assert.Equal(t, 2, again.Series[0].Sent, "callers must not mutate cached entries")

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "acct-1")
	assert.False(t, ok)

	now = now.Add(-2 * time.Minute)
	c.Invalidate(ctx, "acct-1")
	_, ok = c.Get(ctx, "acct-1")
	assert.False(t, ok)
}
