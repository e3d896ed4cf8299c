package domain

import "time"

// Status and type labels that upstream producers put on delivery events.
const (
	LabelSent    = "sent"
	LabelReplied = "replied"
	LabelSaved   = "saved"
)

// DeliveryEvent is one per-message signal from the mail-transport side.
// Every field is optional and producers disagree on which ones they fill,
// so counting code ORs the overlapping signals together.
type DeliveryEvent struct {
	// Timestamp is the raw timestamp as sent by the producer. nil means the
	// producer omitted it; a non-nil value that fails to parse is skipped.
	Timestamp         *string `json:"timestamp,omitempty"`
	SentFlag          bool    `json:"sent,omitempty"`
	StatusLabel       string  `json:"status,omitempty"`
	TypeLabel         string  `json:"type,omitempty"`
	RepliedFlag       bool    `json:"replied,omitempty"`
	HasReplyFlag      bool    `json:"has_reply,omitempty"`
	SavedFromSpamFlag bool    `json:"saved_from_spam,omitempty"`
	FromSpamFlag      bool    `json:"from_spam,omitempty"`
}

// DailyBucket aggregates one calendar day of warmup traffic.
type DailyBucket struct {
	DateKey       string    `json:"date"`
	Date          time.Time `json:"day"`
	Sent          int       `json:"sent"`
	Replied       int       `json:"replied"`
	SavedFromSpam int       `json:"saved_from_spam"`
}

// DailySeries is at most seven buckets in ascending calendar order.
type DailySeries []DailyBucket

// Totals sums each metric across the series.
func (s DailySeries) Totals() (sent, replied, saved int) {
	for _, b := range s {
		sent += b.Sent
		replied += b.Replied
		saved += b.SavedFromSpam
	}
	return sent, replied, saved
}

// AggregateTotals are the account-level counters the transport side reports
// when per-message detail is unavailable.
type AggregateTotals struct {
	TotalSent          int `json:"total_sent" db:"total_sent"`
	TotalReplied       int `json:"total_replied" db:"total_replied"`
	TotalSavedFromSpam int `json:"total_saved_from_spam" db:"total_saved_from_spam"`
	TotalInSpam        int `json:"total_in_spam" db:"total_in_spam"`
	TotalMovedFromSpam int `json:"total_moved_from_spam" db:"total_moved_from_spam"`
	EmailsReceived     int `json:"emails_received" db:"emails_received"`
}

// Empty reports whether the three series metrics are all zero.
func (t AggregateTotals) Empty() bool {
	return t.TotalSent == 0 && t.TotalReplied == 0 && t.TotalSavedFromSpam == 0
}

// Breakdown holds the display percentages derived from a series or totals.
type Breakdown struct {
	InboxPercent         int `json:"inbox_percent"`
	SpamPercent          int `json:"spam_percent"`
	ReplyRatePercent     int `json:"reply_rate_percent"`
	SavedFromSpamPercent int `json:"saved_from_spam_percent"`
}

// SeriesSource says where a series came from.
type SeriesSource string

const (
	SourceEvents      SeriesSource = "events"
	SourceSynthesized SeriesSource = "synthesized"
	SourceNone        SeriesSource = "none"
)

// AnalyticsReport is what the dashboard renders for one mailbox.
type AnalyticsReport struct {
	AccountID     string          `json:"account_id,omitempty"`
	Source        SeriesSource    `json:"source"`
	Series        DailySeries     `json:"series"`
	Totals        AggregateTotals `json:"totals"`
	Breakdown     Breakdown       `json:"breakdown"`
	SkippedEvents int             `json:"skipped_events"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ArchivedEvent is a stored delivery event as written to cold storage when
// it ages out of the analytics window.
type ArchivedEvent struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	ReceivedAt time.Time `json:"received_at"`
	DeliveryEvent
}
