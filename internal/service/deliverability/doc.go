// Package deliverability turns warmup delivery signals into the 7-day series
// and percentage breakdown shown on the warmup dashboard.
//
// Per-message events are bucketed by local calendar day. When no usable
// events exist, a series is synthesized from aggregate totals such that each
// metric still sums to its total. Every displayed percentage goes through
// Percentage so all views round the same way.
package deliverability
