package deliverability

import "errors"

// Sentinel errors for the deliverability service layer.
var (
	// ErrNoData means there were neither events nor non-zero totals. It is a
	// defined empty result, not a failure.
	ErrNoData = errors.New("no deliverability data")

	// ErrUnparsableEvent marks an event whose timestamp could not be parsed.
	// Such events are skipped and counted; they never abort a batch.
	ErrUnparsableEvent = errors.New("unparsable event timestamp")

	ErrNegativeTotal = errors.New("aggregate totals must be non-negative")
)
