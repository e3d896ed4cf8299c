package deliverability

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/warmup-engine/internal/domain"
)

// SeriesDays is the number of calendar days a series covers.
const SeriesDays = 7

// DateKeyLayout renders a bucket key as day-of-month plus short month, "05 Jan".
const DateKeyLayout = "02 Jan"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp accepts the timestamp shapes upstream producers send: RFC3339,
// ISO date-times without zone, bare dates, RFC1123, and unix seconds (10
// digits) or milliseconds (13 digits). Zone-less values are read in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparsableEvent)
	}
	if isDigits(s) && (len(s) == 10 || len(s) == 13) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableEvent, raw)
		}
		if len(s) == 13 {
			return time.UnixMilli(n).In(loc), nil
		}
		return time.Unix(n, 0).In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableEvent, raw)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Bucketizer groups delivery events into local calendar-day buckets.
type Bucketizer struct {
	Location *time.Location
	Now      func() time.Time
}

// NewBucketizer returns a bucketizer for the given zone (UTC when nil).
func NewBucketizer(loc *time.Location) *Bucketizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Bucketizer{Location: loc, Now: time.Now}
}

// Bucketize returns the most recent SeriesDays days present in events,
// ascending, without zero padding, and the number of events skipped for an
// unparsable timestamp. An event with no timestamp at all counts for today.
func (b *Bucketizer) Bucketize(events []domain.DeliveryEvent) (domain.DailySeries, int) {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	buckets := make(map[time.Time]*domain.DailyBucket)
	skipped := 0
	for _, ev := range events {
		var ts time.Time
		if ev.Timestamp == nil {
			ts = now().In(loc)
		} else {
			t, err := ParseTimestamp(*ev.Timestamp, loc)
			if err != nil {
				skipped++
				continue
			}
			ts = t.In(loc)
		}

		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		bk, ok := buckets[day]
		if !ok {
			bk = &domain.DailyBucket{DateKey: day.Format(DateKeyLayout), Date: day}
			buckets[day] = bk
		}
		if countsAsSent(ev) {
			bk.Sent++
		}
		if countsAsReplied(ev) {
			bk.Replied++
		}
		if countsAsSavedFromSpam(ev) {
			bk.SavedFromSpam++
		}
	}

	series := make(domain.DailySeries, 0, len(buckets))
	for _, bk := range buckets {
		series = append(series, *bk)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	if len(series) > SeriesDays {
		series = series[len(series)-SeriesDays:]
	}
	return series, skipped
}

// Producers disagree on which field carries a signal, so any one suffices.

func countsAsSent(ev domain.DeliveryEvent) bool {
	return ev.SentFlag || ev.StatusLabel == domain.LabelSent || ev.TypeLabel == domain.LabelSent
}

func countsAsReplied(ev domain.DeliveryEvent) bool {
	return ev.RepliedFlag || ev.StatusLabel == domain.LabelReplied || ev.HasReplyFlag
}

func countsAsSavedFromSpam(ev domain.DeliveryEvent) bool {
	return ev.SavedFromSpamFlag || ev.StatusLabel == domain.LabelSaved || ev.FromSpamFlag
}
