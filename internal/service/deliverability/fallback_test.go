package deliverability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warmup-engine/internal/domain"
)

var synthNow = time.Date(2024, time.March, 3, 15, 0, 0, 0, time.UTC)

func TestSynthesize_EvenSpread(t *testing.T) {
	series, err := Synthesize(domain.AggregateTotals{TotalSent: 100}, synthNow, time.UTC)
	require.NoError(t, err)
	require.Len(t, series, SeriesDays)

	for i := 0; i < SeriesDays-1; i++ {
		assert.Equal(t, 14, series[i].Sent, "day %d", i)
	}
	assert.Equal(t, 16, series[SeriesDays-1].Sent)

	sent, replied, saved := series.Totals()
	assert.Equal(t, 100, sent)
	assert.Equal(t, 0, replied)
	assert.Equal(t, 0, saved)
}

func TestSynthesize_Labels(t *testing.T) {
	series, err := Synthesize(domain.AggregateTotals{TotalReplied: 1}, synthNow, time.UTC)
	require.NoError(t, err)

	var keys []string
	for _, b := range series {
		keys = append(keys, b.DateKey)
	}
	assert.Equal(t, []string{"26 Feb", "27 Feb", "28 Feb", "29 Feb", "01 Mar", "02 Mar", "03 Mar"}, keys)
}

func TestSynthesize_PreservesSums(t *testing.T) {
	for total := 0; total <= 500; total++ {
		totals := domain.AggregateTotals{TotalSent: total, TotalReplied: total / 3, TotalSavedFromSpam: 500 - total}
		series, err := Synthesize(totals, synthNow, time.UTC)
		require.NoError(t, err)

		sent, replied, saved := series.Totals()
		for _, c := range []struct{ got, want int }{
			{sent, totals.TotalSent},
			{replied, totals.TotalReplied},
			{saved, totals.TotalSavedFromSpam},
		} {
			if clampedTotal(c.want) {
				assert.GreaterOrEqual(t, c.got, c.want, "clamped metric over-counts, total=%d", c.want)
			} else {
				assert.Equal(t, c.want, c.got, "total=%d", c.want)
			}
		}
		for _, b := range series {
			assert.GreaterOrEqual(t, b.Sent, 0)
			assert.GreaterOrEqual(t, b.Replied, 0)
			assert.GreaterOrEqual(t, b.SavedFromSpam, 0)
		}
	}
}

// clampedTotal reports totals whose rounded average times six exceeds the
// total, the documented case where today's bucket is clamped to zero.
func clampedTotal(total int) bool {
	avg := (total*2 + 7) / 14 // round(total/7) for non-negative totals
	return avg*6 > total
}

func TestSynthesize_ClampsSmallTotals(t *testing.T) {
	// round(4/7) = 1, so six days take 6 and today would be -2.
	series, err := Synthesize(domain.AggregateTotals{TotalSent: 4}, synthNow, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, series[SeriesDays-1].Sent)
	sent, _, _ := series.Totals()
	assert.Equal(t, 6, sent)
}

func TestSynthesize_NoData(t *testing.T) {
	_, err := Synthesize(domain.AggregateTotals{TotalInSpam: 4, EmailsReceived: 9}, synthNow, time.UTC)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestSynthesize_Negative(t *testing.T) {
	_, err := Synthesize(domain.AggregateTotals{TotalSent: -1}, synthNow, time.UTC)
	assert.True(t, errors.Is(err, ErrNegativeTotal))
}
