package warmup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/distlock"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
)

const (
	defaultLockAttempts = 10
	defaultLockWait     = 100 * time.Millisecond
)

// ChangeHook is notified after a config write commits. The analytics cache
// uses it to drop stale reports.
type ChangeHook func(ctx context.Context, accountID string)

// Service serializes the two writers of a WarmupConfig, settings saves and
// ramp ticks, behind a per-account lock plus a version compare-and-swap.
// It is safe for concurrent use; different accounts never contend.
type Service struct {
	repo     Repository
	locks    distlock.Factory
	loc      *time.Location
	now      func() time.Time
	onChange []ChangeHook
	log      *logger.Scoped

	lockAttempts int
	lockWait     time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLockRetry sets how often and how long a writer polls a busy account
// lock before giving up with ErrLocked.
func WithLockRetry(attempts int, wait time.Duration) Option {
	return func(s *Service) {
		s.lockAttempts = attempts
		s.lockWait = wait
	}
}

// WithChangeHook registers a hook run after every committed write.
func WithChangeHook(h ChangeHook) Option {
	return func(s *Service) { s.onChange = append(s.onChange, h) }
}

// NewService creates a warmup service backed by the given repository and
// lock factory.
func NewService(repo Repository, locks distlock.Factory, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		locks: locks,
		loc:   time.UTC,
		now:   time.Now,
		log:   logger.With("component", "warmup_service"),

		lockAttempts: defaultLockAttempts,
		lockWait:     defaultLockWait,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Location returns the time zone calendar days are counted in.
func (s *Service) Location() *time.Location { return s.loc }

// Get returns the stored config for an account.
func (s *Service) Get(ctx context.Context, accountID string) (*domain.WarmupConfig, error) {
	return s.repo.Get(ctx, accountID)
}

// State returns the ramp state and dashboard stage for an account.
func (s *Service) State(ctx context.Context, accountID string) (domain.RampState, string, error) {
	cfg, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return domain.RampState{}, "", err
	}
	st := StateFor(*cfg)
	return st, Stage(st, *cfg), nil
}

// History returns recent ramp ticks for an account, newest first.
func (s *Service) History(ctx context.Context, accountID string, limit int) ([]domain.RampLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	return s.repo.RampHistory(ctx, accountID, limit)
}

// ListRamping returns the accounts the ramp ticker should visit.
func (s *Service) ListRamping(ctx context.Context) ([]string, error) {
	return s.repo.ListRamping(ctx)
}

// SaveConfig applies a settings update. The first save for an account is
// applied on top of DefaultConfig. Rejections come back as ErrInvalidConfig
// carrying every failing field.
func (s *Service) SaveConfig(ctx context.Context, accountID string, update ConfigUpdate) (*domain.WarmupConfig, error) {
	var saved *domain.WarmupConfig
	err := s.withLock(ctx, accountID, func() error {
		prior, err := s.repo.Get(ctx, accountID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("load warmup config: %w", err)
		}

		base := DefaultConfig(accountID)
		if prior != nil {
			base = *prior
		}
		candidate := update.Apply(base)
		candidate.AccountID = accountID

		cfg, err := Validate(candidate, prior)
		if err != nil {
			return err
		}
		if cfg.StartDate.IsZero() {
			cfg.StartDate = s.now()
		}
		if prior != nil && !prior.Ramping() && cfg.Ramping() {
			// Ramp restarted: count ticks from today, not from the days it was off.
			today := DayStart(s.now(), s.loc)
			cfg.LastRampAt = &today
		}

		var expected int64
		if prior != nil {
			expected = prior.Version
		}
		if err := s.repo.Save(ctx, &cfg, expected); err != nil {
			return fmt.Errorf("save warmup config: %w", err)
		}
		saved = &cfg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("warmup config saved",
		"account_id", accountID,
		"enabled", saved.Enabled,
		"ramping", saved.Ramping(),
		"current_cap", saved.CurrentCap,
		"version", saved.Version)
	s.notify(ctx, accountID)
	return saved, nil
}

// Tick applies one ramp tick for the calendar day of tickAt. A day that is
// not after the last applied tick (or the start date) is ignored, so a
// retried or duplicated tick never advances the cap twice. With WeekdaysOnly,
// Saturdays and Sundays are ignored too. A day after today is rejected with
// ErrFutureTick. Disabled and steady configs are left untouched.
func (s *Service) Tick(ctx context.Context, accountID string, tickAt time.Time) (domain.RampState, error) {
	var result domain.RampState
	changed := false

	day := DayStart(tickAt, s.loc)
	if day.After(DayStart(s.now(), s.loc)) {
		return domain.RampState{}, fmt.Errorf("%w: %s", ErrFutureTick, day.Format("2006-01-02"))
	}

	err := s.withLock(ctx, accountID, func() error {
		cfg, err := s.repo.Get(ctx, accountID)
		if err != nil {
			return err
		}

		state := StateFor(*cfg)
		result = state
		baseline := LastTickBaseline(cfg.LastRampAt, cfg.StartDate)
		if !day.After(DayStart(baseline, s.loc)) {
			return nil
		}
		if cfg.WeekdaysOnly && isWeekend(day) {
			return nil
		}

		next, err := AdvanceOneTick(state, *cfg)
		if err != nil {
			return err
		}
		if next == state {
			return nil
		}

		expected := cfg.Version
		prevCap := cfg.CurrentCap
		cfg.CurrentCap = next.CurrentCap
		cfg.LastRampAt = &day

		entry := domain.RampLogEntry{
			AccountID:   accountID,
			TickDate:    day,
			PreviousCap: prevCap,
			NewCap:      next.CurrentCap,
			Phase:       next.Phase,
		}
		if err := s.repo.RecordTick(ctx, cfg, expected, entry); err != nil {
			return fmt.Errorf("record ramp tick: %w", err)
		}
		result = next
		changed = true
		return nil
	})
	if err != nil {
		return domain.RampState{}, err
	}

	if changed {
		s.log.Info("ramp advanced",
			"account_id", accountID,
			"phase", result.Phase,
			"current_cap", result.CurrentCap)
		s.notify(ctx, accountID)
	}
	return result, nil
}

// CatchUp applies every tick owed to an account up to now, one per elapsed
// day and in order, stopping once the ramp leaves the Ramping phase.
// It returns the number of ticks that moved the cap.
func (s *Service) CatchUp(ctx context.Context, accountID string) (int, error) {
	cfg, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if StateFor(*cfg).Phase != domain.PhaseRamping {
		return 0, nil
	}

	baseline := LastTickBaseline(cfg.LastRampAt, cfg.StartDate)
	applied := 0
	for _, day := range DueTicks(baseline, s.now(), s.loc, cfg.WeekdaysOnly) {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		before := cfg.CurrentCap
		st, err := s.Tick(ctx, accountID, day)
		if err != nil {
			return applied, err
		}
		if st.CurrentCap != before {
			applied++
			cfg.CurrentCap = st.CurrentCap
		}
		if st.Phase != domain.PhaseRamping {
			break
		}
	}
	return applied, nil
}

func (s *Service) withLock(ctx context.Context, accountID string, fn func() error) error {
	lock := s.locks("warmup:account:" + accountID)
	ok, err := distlock.AcquireWithRetry(ctx, lock, s.lockAttempts, s.lockWait)
	if err != nil {
		return fmt.Errorf("lock warmup config: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		// Release on a fresh context so a cancelled request still unlocks.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(relCtx); err != nil {
			s.log.Warn("lock release failed", "account_id", accountID, "error", err)
		}
	}()
	return fn()
}

func (s *Service) notify(ctx context.Context, accountID string) {
	for _, h := range s.onChange {
		h(ctx, accountID)
	}
}
