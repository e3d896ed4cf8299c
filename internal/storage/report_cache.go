package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
)

// ReportCache keeps computed analytics reports for a short TTL. Redis is used
// when a client is configured so every API replica sees the same entries;
// otherwise entries live in process memory.
type ReportCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration

	mu     sync.RWMutex
	memory map[string]cachedReport
	now    func() time.Time
}

type cachedReport struct {
	report    domain.AnalyticsReport
	expiresAt time.Time
}

// NewReportCache creates a cache. client may be nil.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCache{
		redis:  client,
		prefix: "warmup:report:",
		ttl:    ttl,
		memory: make(map[string]cachedReport),
		now:    time.Now,
	}
}

// Get returns a cached report. Redis errors are logged and treated as a miss.
func (c *ReportCache) Get(ctx context.Context, accountID string) (*domain.AnalyticsReport, bool) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.prefix+accountID).Bytes()
		if err != nil {
			if err != redis.Nil {
				logger.Warn("report cache get failed", "account_id", accountID, "error", err)
			}
			return nil, false
		}
		var r domain.AnalyticsReport
		if err := json.Unmarshal(data, &r); err != nil {
			logger.Warn("report cache entry corrupt", "account_id", accountID, "error", err)
			return nil, false
		}
		return &r, true
	}

	c.mu.RLock()
	entry, ok := c.memory[accountID]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	r := entry.report
	r.Series = append(domain.DailySeries(nil), entry.report.Series...)
	return &r, true
}

// Set stores a report under its AccountID.
func (c *ReportCache) Set(ctx context.Context, report *domain.AnalyticsReport) {
	if report == nil || report.AccountID == "" {
		return
	}
	if c.redis != nil {
		data, err := json.Marshal(report)
		if err != nil {
			return
		}
		if err := c.redis.Set(ctx, c.prefix+report.AccountID, data, c.ttl).Err(); err != nil {
			logger.Warn("report cache set failed", "account_id", report.AccountID, "error", err)
		}
		return
	}

	r := *report
	r.Series = append(domain.DailySeries(nil), report.Series...)
	c.mu.Lock()
	c.memory[report.AccountID] = cachedReport{report: r, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the cached report for an account.
func (c *ReportCache) Invalidate(ctx context.Context, accountID string) {
	if c.redis != nil {
		if err := c.redis.Del(ctx, c.prefix+accountID).Err(); err != nil {
			logger.Warn("report cache invalidate failed", "account_id", accountID, "error", err)
		}
		return
	}
	c.mu.Lock()
	delete(c.memory, accountID)
	c.mu.Unlock()
}
