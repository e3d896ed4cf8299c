package warmup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warmup-engine/internal/domain"
)

func TestStateFor(t *testing.T) {
	c := validConfig()
	c.CurrentCap = 6
	assert.Equal(t, domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 6}, StateFor(c))

	c.CurrentCap = 50
	assert.Equal(t, domain.RampState{Phase: domain.PhaseSteady, CurrentCap: 50}, StateFor(c))

	c.DailyRampupEnabled = false
	c.CurrentCap = 50
	assert.Equal(t, domain.PhaseSteady, StateFor(c).Phase)

	c.Enabled = false
	assert.Equal(t, domain.RampState{Phase: domain.PhaseDisabled}, StateFor(c))
}

func TestActivate(t *testing.T) {
	disabled := domain.RampState{Phase: domain.PhaseDisabled}

	c := validConfig()
	c.RandomRange = domain.RandomRange{Min: 4, Max: 20}
	assert.Equal(t, domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 4}, Activate(disabled, c))

	c.DailyRampupEnabled = false
	assert.Equal(t, domain.RampState{Phase: domain.PhaseSteady, CurrentCap: 50}, Activate(disabled, c))

	c.Enabled = false
	assert.Equal(t, disabled, Activate(disabled, c))

	ramping := domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 9}
	assert.Equal(t, ramping, Activate(ramping, validConfig()))
}

func TestAdvanceOneTick_RampToSteady(t *testing.T) {
	c := validConfig() // max 50, range (1,50), increment 5
	state := Activate(domain.RampState{Phase: domain.PhaseDisabled}, c)
	require.Equal(t, 1, state.CurrentCap)

	want := []int{6, 11, 16, 21, 26, 31, 36, 41, 46, 50}
	for i, wantCap := range want {
		next, err := AdvanceOneTick(state, c)
		require.NoError(t, err)
		assert.Equal(t, wantCap, next.CurrentCap, "tick %d", i+1)
		if i < len(want)-1 {
			assert.Equal(t, domain.PhaseRamping, next.Phase, "tick %d", i+1)
		} else {
			assert.Equal(t, domain.PhaseSteady, next.Phase, "tick %d reaches the ceiling", i+1)
		}
		state = next
	}

	// Steady is terminal.
	again, err := AdvanceOneTick(state, c)
	require.NoError(t, err)
	assert.Equal(t, state, again)
}

func TestAdvanceOneTick_ReachesMaxInCeilTicks(t *testing.T) {
	for max := 2; max <= 50; max++ {
		for min := 1; min < max; min += 3 {
			for _, inc := range []int{1, 2, 3, 7, 13, 49, 100} {
				c := validConfig()
				c.MaxPerDay = max
				c.RandomRange = domain.RandomRange{Min: min, Max: max}
				c.RampupIncrement = inc

				want := (max - min + inc - 1) / inc
				require.Equal(t, want, TicksToSteady(c))

				state := domain.RampState{Phase: domain.PhaseRamping, CurrentCap: min}
				ticks := 0
				for state.Phase == domain.PhaseRamping {
					next, err := AdvanceOneTick(state, c)
					require.NoError(t, err)
					require.GreaterOrEqual(t, next.CurrentCap, state.CurrentCap, "cap must not decrease")
					require.LessOrEqual(t, next.CurrentCap, max, "cap must not exceed max")
					state = next
					ticks++
				}
				require.Equal(t, want, ticks, "max=%d min=%d inc=%d", max, min, inc)
				require.Equal(t, max, state.CurrentCap)
			}
		}
	}
}

func TestAdvanceOneTick_NoOpStates(t *testing.T) {
	c := validConfig()
	for _, st := range []domain.RampState{
		{Phase: domain.PhaseDisabled},
		{Phase: domain.PhaseSteady, CurrentCap: 50},
	} {
		next, err := AdvanceOneTick(st, c)
		require.NoError(t, err)
		assert.Equal(t, st, next)
	}
}

func TestAdvanceOneTick_RejectsInvalidConfig(t *testing.T) {
	c := validConfig()
	c.RandomRange = domain.RandomRange{Min: 40, Max: 10}

	state := domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 5}
	next, err := AdvanceOneTick(state, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Equal(t, state, next, "rejected tick must not move the cap")
}

func TestStage(t *testing.T) {
	c := validConfig()
	c.RandomRange = domain.RandomRange{Min: 10, Max: 50}
	tests := []struct {
		state domain.RampState
		want  string
	}{
		{domain.RampState{Phase: domain.PhaseDisabled}, "disabled"},
		{domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 10}, "day1"},
		{domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 15}, "early"},
		{domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 25}, "building"},
		{domain.RampState{Phase: domain.PhaseRamping, CurrentCap: 45}, "ramping"},
		{domain.RampState{Phase: domain.PhaseSteady, CurrentCap: 50}, "established"},
	}
	for _, tt := range tests {
		if got := Stage(tt.state, c); got != tt.want {
			t.Errorf("Stage(%+v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}
