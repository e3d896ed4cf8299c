package warmup

import (
	"errors"

	"github.com/ignite/warmup-engine/internal/domain"
)

// Validate checks a candidate config against the warmup rules and returns the
// normalized config to persist. prior is the currently stored config, or nil
// when warmup is being configured for the first time.
//
// CurrentCap, Version and LastRampAt are never taken from the candidate.
// LastRampAt survives only while ramping stays on. The cap rules:
//   - first activation starts at RandomRange.Min when ramping, else MaxPerDay
//   - an update with ramping off forces MaxPerDay
//   - an update that turns ramping on starts over at RandomRange.Min
//   - an update that keeps ramping carries the prior cap, re-clamped into
//     [RandomRange.Min, MaxPerDay]
func Validate(candidate domain.WarmupConfig, prior *domain.WarmupConfig) (domain.WarmupConfig, error) {
	if err := checkRules(candidate); err != nil {
		return domain.WarmupConfig{}, err
	}

	cfg := candidate
	cfg.CurrentCap = initialCap(cfg, prior)
	cfg.Version = 0
	cfg.LastRampAt = nil
	if prior != nil {
		cfg.Version = prior.Version
		if prior.Ramping() && cfg.Ramping() {
			cfg.LastRampAt = prior.LastRampAt
		}
		if cfg.StartDate.IsZero() {
			cfg.StartDate = prior.StartDate
		}
	}
	return cfg, nil
}

func initialCap(cfg domain.WarmupConfig, prior *domain.WarmupConfig) int {
	if !cfg.Ramping() {
		return cfg.MaxPerDay
	}
	if prior == nil || !prior.Ramping() {
		return cfg.RandomRange.Min
	}
	return clamp(prior.CurrentCap, cfg.RandomRange.Min, cfg.MaxPerDay)
}

// checkRules returns every rule the config violates, joined.
func checkRules(c domain.WarmupConfig) error {
	var errs []error

	if c.AccountID == "" {
		errs = append(errs, invalid("account_id", "is required"))
	}
	if c.MaxPerDay < domain.MinPerDay || c.MaxPerDay > domain.MaxPerDayLimit {
		errs = append(errs, invalid("max_per_day", "must be between %d and %d", domain.MinPerDay, domain.MaxPerDayLimit))
	}
	if c.DailyRampupEnabled && (c.RampupIncrement < domain.MinRampupIncrement || c.RampupIncrement > domain.MaxRampupIncrement) {
		errs = append(errs, invalid("rampup_increment", "must be between %d and %d", domain.MinRampupIncrement, domain.MaxRampupIncrement))
	}

	r := c.RandomRange
	switch {
	case r.Min < 1:
		errs = append(errs, invalid("random_range.min", "must be at least 1"))
	case r.Min >= r.Max:
		errs = append(errs, invalid("random_range", "min (%d) must be less than max (%d)", r.Min, r.Max))
	}
	if r.Max > c.MaxPerDay {
		errs = append(errs, invalid("random_range.max", "must not exceed max_per_day (%d)", c.MaxPerDay))
	}

	if c.ReplyRatePercent < domain.MinReplyRatePercent || c.ReplyRatePercent > domain.MaxReplyRatePercent {
		errs = append(errs, invalid("reply_rate_percent", "must be between %d and %d", domain.MinReplyRatePercent, domain.MaxReplyRatePercent))
	}
	if c.DailyReplyTarget < domain.MinDailyReplyTarget || c.DailyReplyTarget > domain.MaxDailyReplyTarget {
		errs = append(errs, invalid("daily_reply_target", "must be between %d and %d", domain.MinDailyReplyTarget, domain.MaxDailyReplyTarget))
	}

	if !domain.ValidTagSegment(c.IdentifierTag.Tag1) {
		errs = append(errs, invalid("identifier_tag.tag1", "must be %d-%d alphanumeric characters", domain.MinTagSegmentLen, domain.MaxTagSegmentLen))
	}
	if !domain.ValidTagSegment(c.IdentifierTag.Tag2) {
		errs = append(errs, invalid("identifier_tag.tag2", "must be %d-%d alphanumeric characters", domain.MinTagSegmentLen, domain.MaxTagSegmentLen))
	}

	return errors.Join(errs...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
