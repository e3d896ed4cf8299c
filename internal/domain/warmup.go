package domain

import (
	"strings"
	"time"
)

// Bounds on warmup configuration fields.
const (
	MinPerDay           = 1
	MaxPerDayLimit      = 50
	MinRampupIncrement  = 1
	MaxRampupIncrement  = 100
	MinReplyRatePercent = 1
	MaxReplyRatePercent = 100
	MinDailyReplyTarget = 1
	MaxDailyReplyTarget = 50
	MinTagSegmentLen    = 2
	MaxTagSegmentLen    = 20
)

// RandomRange bounds the randomized number of warmup sends picked per day.
type RandomRange struct {
	Min int `json:"min" db:"random_min"`
	Max int `json:"max" db:"random_max"`
}

// IdentifierTag is the two-segment marker embedded in warmup mail so the
// mail-filtering side can hide warmup traffic from the real inbox view.
type IdentifierTag struct {
	Tag1 string `json:"tag1" db:"tag1"`
	Tag2 string `json:"tag2" db:"tag2"`
}

// String returns the combined "tag1-tag2" form.
func (t IdentifierTag) String() string {
	return BuildIdentifierTag(t.Tag1, t.Tag2)
}

// BuildIdentifierTag joins the two segments with a single dash.
func BuildIdentifierTag(tag1, tag2 string) string {
	return tag1 + "-" + tag2
}

// ParseIdentifierTag splits a combined tag on the first dash.
// ok is false when the input carries no dash at all.
func ParseIdentifierTag(combined string) (tag IdentifierTag, ok bool) {
	tag1, tag2, found := strings.Cut(combined, "-")
	if !found {
		return IdentifierTag{}, false
	}
	return IdentifierTag{Tag1: tag1, Tag2: tag2}, true
}

// ValidTagSegment reports whether s is ASCII alphanumeric with a length in
// [MinTagSegmentLen, MaxTagSegmentLen].
func ValidTagSegment(s string) bool {
	if len(s) < MinTagSegmentLen || len(s) > MaxTagSegmentLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// WarmupConfig is the per-mailbox warmup policy. It is owned by the account
// and only mutated through the warmup service (settings save or ramp tick).
type WarmupConfig struct {
	AccountID            string        `json:"account_id" db:"account_id"`
	Enabled              bool          `json:"enabled" db:"enabled"`
	MaxPerDay            int           `json:"max_per_day" db:"max_per_day"`
	DailyRampupEnabled   bool          `json:"daily_rampup_enabled" db:"daily_rampup_enabled"`
	RampupIncrement      int           `json:"rampup_increment" db:"rampup_increment"`
	RandomRange          RandomRange   `json:"random_range"`
	ReplyRatePercent     int           `json:"reply_rate_percent" db:"reply_rate_percent"`
	DailyReplyTarget     int           `json:"daily_reply_target" db:"daily_reply_target"`
	IdentifierTag        IdentifierTag `json:"identifier_tag"`
	AutoAdjust           bool          `json:"auto_adjust" db:"auto_adjust"`
	CustomDomainTracking bool          `json:"custom_domain_tracking" db:"custom_domain_tracking"`
	WeekdaysOnly         bool          `json:"weekdays_only" db:"weekdays_only"`
	StartDate            time.Time     `json:"start_date" db:"start_date"`

	// CurrentCap is the live enforced daily cap.
	CurrentCap int `json:"current_cap" db:"current_cap"`

	// Version increments on every persisted write; repositories use it for
	// compare-and-swap so a settings save and a ramp tick cannot interleave.
	Version    int64      `json:"version" db:"version"`
	LastRampAt *time.Time `json:"last_ramp_at,omitempty" db:"last_ramp_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// Ramping reports whether the config is enabled with daily ramp-up on.
func (c WarmupConfig) Ramping() bool {
	return c.Enabled && c.DailyRampupEnabled
}

// RampPhase is the ramp scheduler state.
type RampPhase string

const (
	PhaseDisabled RampPhase = "disabled"
	PhaseRamping  RampPhase = "ramping"
	PhaseSteady   RampPhase = "steady"
)

// RampState is the scheduler's view of a mailbox: the phase and the cap it
// enforces. CurrentCap is zero when disabled.
type RampState struct {
	Phase      RampPhase `json:"phase"`
	CurrentCap int       `json:"current_cap"`
}

// RampLogEntry records a single ramp tick, one row per account per tick.
type RampLogEntry struct {
	AccountID   string    `json:"account_id" db:"account_id"`
	TickDate    time.Time `json:"tick_date" db:"tick_date"`
	PreviousCap int       `json:"previous_cap" db:"previous_cap"`
	NewCap      int       `json:"new_cap" db:"new_cap"`
	Phase       RampPhase `json:"phase" db:"phase"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
