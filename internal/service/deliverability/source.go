package deliverability

import (
	"context"
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
)

// EventSource is the mail-transport side of the aggregator: it supplies the
// per-message events and the aggregate counters for a mailbox.
type EventSource interface {
	// Events returns events received since the given time, in any order.
	Events(ctx context.Context, accountID string, since time.Time) ([]domain.DeliveryEvent, error)

	// Totals returns the account-level counters. A mailbox with no traffic
	// returns zero totals, not an error.
	Totals(ctx context.Context, accountID string) (domain.AggregateTotals, error)
}

// Cache stores computed reports for a short time. Implementations must treat
// a miss and a backend error alike from the caller's point of view.
type Cache interface {
	Get(ctx context.Context, accountID string) (*domain.AnalyticsReport, bool)
	Set(ctx context.Context, report *domain.AnalyticsReport)
	Invalidate(ctx context.Context, accountID string)
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.AnalyticsReport, bool) { return nil, false }
func (noCache) Set(context.Context, *domain.AnalyticsReport) {}
func (noCache) Invalidate(context.Context, string) {}
