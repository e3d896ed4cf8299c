package deliverability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/warmup-engine/internal/domain"
)

func TestComputeBreakdown(t *testing.T) {
	b := ComputeBreakdown(domain.AggregateTotals{
		TotalSent:          200,
		TotalReplied:       50,
		TotalInSpam:        10,
		TotalSavedFromSpam: 7,
	})
	assert.Equal(t, domain.Breakdown{
		InboxPercent:         95,
		SpamPercent:          5,
		ReplyRatePercent:     25,
		SavedFromSpamPercent: 70,
	}, b)
}

func TestComputeBreakdown_Zeroes(t *testing.T) {
	assert.Equal(t, domain.Breakdown{}, ComputeBreakdown(domain.AggregateTotals{}))

	// Nothing in spam: saved share has no denominator.
	b := ComputeBreakdown(domain.AggregateTotals{TotalSent: 3, TotalSavedFromSpam: 2})
	assert.Equal(t, 100, b.InboxPercent)
	assert.Equal(t, 0, b.SavedFromSpamPercent)
}

func TestComputeBreakdown_SpamCappedAtSent(t *testing.T) {
	b := ComputeBreakdown(domain.AggregateTotals{TotalSent: 10, TotalInSpam: 12})
	assert.Equal(t, 0, b.InboxPercent)
	assert.Equal(t, 100, b.SpamPercent)
}
