package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/warmup-engine/internal/pkg/logger"
	"github.com/ignite/warmup-engine/internal/service/warmup"
)

// RampAdvancer is the part of the warmup service the ticker drives.
type RampAdvancer interface {
	ListRamping(ctx context.Context) ([]string, error)
	CatchUp(ctx context.Context, accountID string) (int, error)
}

// TickSummary reports one pass over the ramping accounts.
type TickSummary struct {
	Accounts int
	Advanced int
	Ticks    int
	Skipped  int
	Failed   int
}

// RampTicker periodically applies the ramp ticks every ramping account is
// owed. Each account catches up day by day, so a ticker that was down for a
// while replays the missed days in order.
type RampTicker struct {
	svc          RampAdvancer
	interval     time.Duration
	initialDelay time.Duration
	concurrency  int
	passTimeout  time.Duration
	log          *logger.Scoped

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
}

// NewRampTicker creates a ticker. interval controls how often it checks;
// anything up to an hour keeps day boundaries close to midnight.
func NewRampTicker(svc RampAdvancer, interval, initialDelay time.Duration, concurrency int) *RampTicker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RampTicker{
		svc:          svc,
		interval:     interval,
		initialDelay: initialDelay,
		concurrency:  concurrency,
		passTimeout:  5 * time.Minute,
		log:          logger.With("component", "ramp_ticker"),
	}
}

// Start begins the ticker loop.
func (t *RampTicker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		t.log.Info("starting ramp ticker", "interval", t.interval.String(), "concurrency", t.concurrency)

		select {
		case <-time.After(t.initialDelay):
		case <-ctx.Done():
			return
		}
		t.pass(ctx)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.pass(ctx)
			case <-ctx.Done():
				t.log.Info("ramp ticker stopped")
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for an in-flight pass to finish.
func (t *RampTicker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (t *RampTicker) pass(ctx context.Context) {
	if !t.running.CompareAndSwap(false, true) {
		t.log.Warn("previous pass still running, skipping")
		return
	}
	defer t.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, t.passTimeout)
	defer cancel()

	sum, err := t.RunOnce(ctx)
	if err != nil {
		t.log.Error("ramp pass failed", "error", err)
		return
	}
	if sum.Ticks > 0 || sum.Failed > 0 {
		t.log.Info("ramp pass complete",
			"accounts", sum.Accounts, "advanced", sum.Advanced, "ticks", sum.Ticks,
			"skipped", sum.Skipped, "failed", sum.Failed)
	}
}

// RunOnce catches up every ramping account once. Per-account failures are
// logged and counted; they never stop the other accounts.
func (t *RampTicker) RunOnce(ctx context.Context) (TickSummary, error) {
	ids, err := t.svc.ListRamping(ctx)
	if err != nil {
		return TickSummary{}, err
	}

	var advanced, ticks, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			n, err := t.svc.CatchUp(gctx, id)
			switch {
			case err == nil:
				if n > 0 {
					advanced.Add(1)
					ticks.Add(int64(n))
				}
			case errors.Is(err, warmup.ErrLocked), errors.Is(err, warmup.ErrConflict):
				// another writer holds the account; the next pass retries
				skipped.Add(1)
				t.log.Debug("account busy", "account_id", id, "error", err)
			default:
				failed.Add(1)
				t.log.Error("catch-up failed", "account_id", id, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TickSummary{}, err
	}

	return TickSummary{
		Accounts: len(ids),
		Advanced: int(advanced.Load()),
		Ticks:    int(ticks.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
	}, nil
}
