// Package warmup implements the mailbox warmup policy: configuration
// validation, the daily ramp-up state machine, and the serialized write path
// that applies settings saves and ramp ticks to a stored config.
//
// Validate, StateFor, Activate and AdvanceOneTick are pure functions over
// domain values. Service wraps them with persistence through the Repository
// interface and per-account locking; it never imports net/http.
package warmup
