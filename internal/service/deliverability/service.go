package deliverability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
)

// lookback is how far back events are fetched. A few days beyond the series
// window keeps late-arriving events for the oldest bucket.
const lookback = 10 * 24 * time.Hour

// Service builds analytics reports from an EventSource.
type Service struct {
	source     EventSource
	cache      Cache
	bucketizer *Bucketizer
	now        func() time.Time
	log        *logger.Scoped
}

// NewService creates a deliverability service. cache may be nil.
func NewService(source EventSource, cache Cache, loc *time.Location) *Service {
	if cache == nil {
		cache = noCache{}
	}
	return &Service{
		source:     source,
		cache:      cache,
		bucketizer: NewBucketizer(loc),
		now:        time.Now,
		log:        logger.With("component", "deliverability"),
	}
}

// SetClock overrides time.Now for the service and its bucketizer.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.bucketizer.Now = now
}

// Report returns the dashboard report for one mailbox, served from cache
// when fresh.
func (s *Service) Report(ctx context.Context, accountID string) (*domain.AnalyticsReport, error) {
	if r, ok := s.cache.Get(ctx, accountID); ok {
		return r, nil
	}

	events, err := s.source.Events(ctx, accountID, s.now().Add(-lookback))
	if err != nil {
		return nil, fmt.Errorf("load delivery events: %w", err)
	}
	totals, err := s.source.Totals(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load delivery totals: %w", err)
	}

	report, err := s.Build(events, totals)
	if err != nil {
		return nil, err
	}
	report.AccountID = accountID
	s.cache.Set(ctx, report)
	return report, nil
}

// Invalidate drops any cached report for the account.
func (s *Service) Invalidate(ctx context.Context, accountID string) {
	s.cache.Invalidate(ctx, accountID)
}

// Build assembles a report from a snapshot of events and totals without
// touching the source or cache. Events win when at least one of them lands
// in a bucket; otherwise the series is synthesized from totals. Neither
// yields a report with Source "none" and an empty series.
func (s *Service) Build(events []domain.DeliveryEvent, totals domain.AggregateTotals) (*domain.AnalyticsReport, error) {
	report := &domain.AnalyticsReport{
		Source:      domain.SourceNone,
		Series:      domain.DailySeries{},
		GeneratedAt: s.now().UTC(),
	}

	if len(events) > 0 {
		series, skipped := s.bucketizer.Bucketize(events)
		report.SkippedEvents = skipped
		if skipped > 0 {
			s.log.Warn("skipped delivery events", "count", skipped, "reason", ErrUnparsableEvent)
		}
		if len(series) > 0 {
			report.Source = domain.SourceEvents
			report.Series = series
		}
	}

	if report.Source == domain.SourceNone {
		series, err := Synthesize(totals, s.now(), s.bucketizer.Location)
		switch {
		case err == nil:
			report.Source = domain.SourceSynthesized
			report.Series = series
		case errors.Is(err, ErrNoData):
		default:
			return nil, err
		}
	}

	// Totals left empty by the transport side fall back to the series sums.
	if totals.Empty() && report.Source == domain.SourceEvents {
		totals.TotalSent, totals.TotalReplied, totals.TotalSavedFromSpam = report.Series.Totals()
	}
	report.Totals = totals
	report.Breakdown = ComputeBreakdown(totals)
	return report, nil
}
