package deliverability

import (
	"math"
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
)

// Synthesize spreads aggregate totals over today and the six days before it.
// Each of the six older days gets round(total/7); today gets the remainder so
// every metric sums to its total exactly. On tiny totals where the average
// rounds up (e.g. 4 -> 1 per day) the remainder would go negative; it is
// clamped to zero and the series then over-counts that metric.
//
// All-zero totals yield ErrNoData.
func Synthesize(totals domain.AggregateTotals, now time.Time, loc *time.Location) (domain.DailySeries, error) {
	if err := CheckTotals(totals); err != nil {
		return nil, err
	}
	if totals.Empty() {
		return nil, ErrNoData
	}
	if loc == nil {
		loc = time.UTC
	}

	sent := spread(totals.TotalSent)
	replied := spread(totals.TotalReplied)
	saved := spread(totals.TotalSavedFromSpam)

	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	series := make(domain.DailySeries, SeriesDays)
	for i := 0; i < SeriesDays; i++ {
		day := today.AddDate(0, 0, i-(SeriesDays-1))
		series[i] = domain.DailyBucket{
			DateKey:       day.Format(DateKeyLayout),
			Date:          day,
			Sent:          sent[i],
			Replied:       replied[i],
			SavedFromSpam: saved[i],
		}
	}
	return series, nil
}

// CheckTotals rejects totals with any negative counter.
func CheckTotals(t domain.AggregateTotals) error {
	if t.TotalSent < 0 || t.TotalReplied < 0 || t.TotalSavedFromSpam < 0 ||
		t.TotalInSpam < 0 || t.TotalMovedFromSpam < 0 || t.EmailsReceived < 0 {
		return ErrNegativeTotal
	}
	return nil
}

func spread(total int) [SeriesDays]int {
	var out [SeriesDays]int
	avg := int(math.Round(float64(total) / SeriesDays))
	for i := 0; i < SeriesDays-1; i++ {
		out[i] = avg
	}
	last := total - avg*(SeriesDays-1)
	if last < 0 {
		last = 0
	}
	out[SeriesDays-1] = last
	return out
}
