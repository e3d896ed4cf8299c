package warmup

import (
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
)

// ConfigUpdate is a partial settings payload. Nil fields keep the value of the
// base config they are applied to.
type ConfigUpdate struct {
	Enabled              *bool                 `json:"enabled,omitempty"`
	MaxPerDay            *int                  `json:"max_per_day,omitempty"`
	DailyRampupEnabled   *bool                 `json:"daily_rampup_enabled,omitempty"`
	RampupIncrement      *int                  `json:"rampup_increment,omitempty"`
	RandomRange          *domain.RandomRange   `json:"random_range,omitempty"`
	ReplyRatePercent     *int                  `json:"reply_rate_percent,omitempty"`
	DailyReplyTarget     *int                  `json:"daily_reply_target,omitempty"`
	IdentifierTag        *domain.IdentifierTag `json:"identifier_tag,omitempty"`
	AutoAdjust           *bool                 `json:"auto_adjust,omitempty"`
	CustomDomainTracking *bool                 `json:"custom_domain_tracking,omitempty"`
	WeekdaysOnly         *bool                 `json:"weekdays_only,omitempty"`
	StartDate            *time.Time            `json:"start_date,omitempty"`
}

// DefaultConfig is the base a first-time update is applied to.
func DefaultConfig(accountID string) domain.WarmupConfig {
	return domain.WarmupConfig{
		AccountID:          accountID,
		Enabled:            true,
		MaxPerDay:          40,
		DailyRampupEnabled: true,
		RampupIncrement:    2,
		RandomRange:        domain.RandomRange{Min: 10, Max: 40},
		ReplyRatePercent:   30,
		DailyReplyTarget:   10,
	}
}

// Apply overlays the non-nil fields of u onto base.
func (u ConfigUpdate) Apply(base domain.WarmupConfig) domain.WarmupConfig {
	out := base
	if u.Enabled != nil {
		out.Enabled = *u.Enabled
	}
	if u.MaxPerDay != nil {
		out.MaxPerDay = *u.MaxPerDay
	}
	if u.DailyRampupEnabled != nil {
		out.DailyRampupEnabled = *u.DailyRampupEnabled
	}
	if u.RampupIncrement != nil {
		out.RampupIncrement = *u.RampupIncrement
	}
	if u.RandomRange != nil {
		out.RandomRange = *u.RandomRange
	}
	if u.ReplyRatePercent != nil {
		out.ReplyRatePercent = *u.ReplyRatePercent
	}
	if u.DailyReplyTarget != nil {
		out.DailyReplyTarget = *u.DailyReplyTarget
	}
	if u.IdentifierTag != nil {
		out.IdentifierTag = *u.IdentifierTag
	}
	if u.AutoAdjust != nil {
		out.AutoAdjust = *u.AutoAdjust
	}
	if u.CustomDomainTracking != nil {
		out.CustomDomainTracking = *u.CustomDomainTracking
	}
	if u.WeekdaysOnly != nil {
		out.WeekdaysOnly = *u.WeekdaysOnly
	}
	if u.StartDate != nil {
		out.StartDate = *u.StartDate
	}
	return out
}
