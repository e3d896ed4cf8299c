package warmup

import "time"

// maxCatchUpTicks bounds one catch-up pass; anything beyond is picked up on
// the next pass, still in order.
const maxCatchUpTicks = 120

// DayStart truncates t to midnight of its calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DueTicks returns the calendar days, oldest first, owed a ramp tick: every
// day after last up to and including the day of now. With weekdaysOnly,
// Saturdays and Sundays are not counted as elapsed periods.
func DueTicks(last, now time.Time, loc *time.Location, weekdaysOnly bool) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	today := DayStart(now, loc)
	var out []time.Time
	for d := DayStart(last, loc).AddDate(0, 0, 1); !d.After(today); d = d.AddDate(0, 0, 1) {
		if weekdaysOnly && isWeekend(d) {
			continue
		}
		out = append(out, d)
		if len(out) == maxCatchUpTicks {
			break
		}
	}
	return out
}

// LastTickBaseline is the day the next tick counts from: the last applied
// tick, or the warmup start date before any tick ran.
func LastTickBaseline(lastRampAt *time.Time, startDate time.Time) time.Time {
	if lastRampAt != nil {
		return *lastRampAt
	}
	return startDate
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
