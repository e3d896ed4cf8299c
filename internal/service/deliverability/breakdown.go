package deliverability

import "github.com/ignite/warmup-engine/internal/domain"

// ComputeBreakdown derives the display percentages from aggregate totals.
// Inbox and spam are shares of sent mail, reply rate is replies per send, and
// saved-from-spam is a share of the mail that landed in spam.
func ComputeBreakdown(t domain.AggregateTotals) domain.Breakdown {
	inSpam := t.TotalInSpam
	if inSpam > t.TotalSent {
		inSpam = t.TotalSent
	}
	return domain.Breakdown{
		InboxPercent:         Percentage(t.TotalSent-inSpam, t.TotalSent),
		SpamPercent:          Percentage(inSpam, t.TotalSent),
		ReplyRatePercent:     Percentage(t.TotalReplied, t.TotalSent),
		SavedFromSpamPercent: Percentage(t.TotalSavedFromSpam, t.TotalInSpam),
	}
}
