package warmup

import (
	"fmt"

	"github.com/ignite/warmup-engine/internal/domain"
)

// StateFor derives the ramp state a stored config is in.
func StateFor(cfg domain.WarmupConfig) domain.RampState {
	switch {
	case !cfg.Enabled:
		return domain.RampState{Phase: domain.PhaseDisabled}
	case !cfg.DailyRampupEnabled || cfg.CurrentCap >= cfg.MaxPerDay:
		return domain.RampState{Phase: domain.PhaseSteady, CurrentCap: cfg.MaxPerDay}
	default:
		return domain.RampState{Phase: domain.PhaseRamping, CurrentCap: cfg.CurrentCap}
	}
}

// Activate is the transition out of Disabled: Steady(MaxPerDay) without
// ramp-up, Ramping(RandomRange.Min) with it. Any other input state is
// returned unchanged.
func Activate(state domain.RampState, cfg domain.WarmupConfig) domain.RampState {
	if state.Phase != domain.PhaseDisabled || !cfg.Enabled {
		return state
	}
	if !cfg.DailyRampupEnabled {
		return domain.RampState{Phase: domain.PhaseSteady, CurrentCap: cfg.MaxPerDay}
	}
	return domain.RampState{Phase: domain.PhaseRamping, CurrentCap: cfg.RandomRange.Min}
}

// AdvanceOneTick applies exactly one elapsed scheduling period. Only Ramping
// moves: the cap grows by RampupIncrement, clamped to MaxPerDay, and reaching
// MaxPerDay ends the ramp in Steady. Disabled and Steady come back unchanged.
// A config that breaks the validation rules is rejected, never clamped.
func AdvanceOneTick(state domain.RampState, cfg domain.WarmupConfig) (domain.RampState, error) {
	if err := checkRules(cfg); err != nil {
		return state, fmt.Errorf("advance ramp for %s: %w", cfg.AccountID, err)
	}
	if state.Phase != domain.PhaseRamping {
		return state, nil
	}

	next := state.CurrentCap + cfg.RampupIncrement
	if next >= cfg.MaxPerDay {
		return domain.RampState{Phase: domain.PhaseSteady, CurrentCap: cfg.MaxPerDay}, nil
	}
	return domain.RampState{Phase: domain.PhaseRamping, CurrentCap: next}, nil
}

// TicksToSteady is how many ticks a ramp starting at RandomRange.Min needs to
// reach MaxPerDay.
func TicksToSteady(cfg domain.WarmupConfig) int {
	if !cfg.Ramping() || cfg.RampupIncrement <= 0 {
		return 0
	}
	gap := cfg.MaxPerDay - cfg.RandomRange.Min
	if gap <= 0 {
		return 0
	}
	return (gap + cfg.RampupIncrement - 1) / cfg.RampupIncrement
}

// Stage labels ramp progress for dashboards.
func Stage(state domain.RampState, cfg domain.WarmupConfig) string {
	switch state.Phase {
	case domain.PhaseDisabled:
		return "disabled"
	case domain.PhaseSteady:
		return "established"
	}

	span := cfg.MaxPerDay - cfg.RandomRange.Min
	if span <= 0 || state.CurrentCap <= cfg.RandomRange.Min {
		return "day1"
	}
	progress := float64(state.CurrentCap-cfg.RandomRange.Min) / float64(span)
	switch {
	case progress < 0.25:
		return "early"
	case progress < 0.5:
		return "building"
	default:
		return "ramping"
	}
}
