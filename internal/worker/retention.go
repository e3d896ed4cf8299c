package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/pkg/logger"
)

const (
	// DefaultRetentionInterval is how often the retention cycle runs.
	DefaultRetentionInterval = 6 * time.Hour

	// retentionBatchSize caps the rows removed by one DELETE.
	retentionBatchSize = 10000
)

// RetentionPolicy says how long warmup data is kept.
type RetentionPolicy struct {
	EventDays   int
	RampLogDays int
}

// EventArchiver stores expired delivery events before they are deleted.
type EventArchiver interface {
	Archive(ctx context.Context, events []domain.ArchivedEvent) (string, error)
}

// RetentionWorker periodically removes delivery events that have aged out of
// the analytics window and old ramp log rows.
//
// Deletes run in batches of retentionBatchSize rows.
type RetentionWorker struct {
	db         *sql.DB
	policy     RetentionPolicy
	interval   time.Duration
	batchPause time.Duration
	archive    EventArchiver
	log        *logger.Scoped
}

// NewRetentionWorker creates a retention worker. Non-positive policy values
// fall back to 30 days of events and 365 days of ramp log.
func NewRetentionWorker(db *sql.DB, policy RetentionPolicy) *RetentionWorker {
	if policy.EventDays <= 0 {
		policy.EventDays = 30
	}
	if policy.RampLogDays <= 0 {
		policy.RampLogDays = 365
	}
	return &RetentionWorker{
		db:         db,
		policy:     policy,
		interval:   DefaultRetentionInterval,
		batchPause: 100 * time.Millisecond,
		log:        logger.With("component", "retention"),
	}
}

// SetArchiver makes the worker upload expired delivery events before
// deleting them. A failed upload leaves the batch in place for the next cycle.
func (rw *RetentionWorker) SetArchiver(a EventArchiver) {
	rw.archive = a
}

// Start runs the retention loop. It blocks until ctx is cancelled.
func (rw *RetentionWorker) Start(ctx context.Context) {
	rw.log.Info("starting retention worker",
		"interval", rw.interval.String(),
		"event_days", rw.policy.EventDays,
		"ramp_log_days", rw.policy.RampLogDays)

	rw.RunOnce(ctx)

	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.log.Info("retention worker stopped")
			return
		case <-ticker.C:
			rw.RunOnce(ctx)
		}
	}
}

// RunOnce runs one retention cycle and returns the rows removed per table.
func (rw *RetentionWorker) RunOnce(ctx context.Context) map[string]int64 {
	start := time.Now()
	events := rw.pruneEvents(ctx)
	rampLog := rw.batchDelete(ctx, "warmup_ramp_log", fmt.Sprintf(`
		DELETE FROM warmup_ramp_log
		WHERE id IN (
			SELECT id FROM warmup_ramp_log
			WHERE created_at < NOW() - INTERVAL '%d days'
			LIMIT $1
		)
	`, rw.policy.RampLogDays))

	removed := map[string]int64{
		"warmup_delivery_events": events,
		"warmup_ramp_log":        rampLog,
	}

	for table, n := range removed {
		if n > 0 {
			rw.log.Info("removed expired rows", "table", table, "rows", n)
		}
	}
	rw.log.Debug("retention cycle complete", "duration_ms", time.Since(start).Milliseconds())
	return removed
}

func (rw *RetentionWorker) pruneEvents(ctx context.Context) int64 {
	if rw.archive != nil {
		return rw.archiveAndDelete(ctx)
	}
	return rw.batchDelete(ctx, "warmup_delivery_events", fmt.Sprintf(`
		DELETE FROM warmup_delivery_events
		WHERE id IN (
			SELECT id FROM warmup_delivery_events
			WHERE received_at < NOW() - INTERVAL '%d days'
			LIMIT $1
		)
	`, rw.policy.EventDays))
}

// archiveAndDelete deletes expired events batch by batch, uploading each
// batch before its transaction commits.
func (rw *RetentionWorker) archiveAndDelete(ctx context.Context) int64 {
	query := fmt.Sprintf(`
		DELETE FROM warmup_delivery_events
		WHERE id IN (
			SELECT id FROM warmup_delivery_events
			WHERE received_at < NOW() - INTERVAL '%d days'
			LIMIT $1
		)
		RETURNING id, account_id, raw_timestamp, sent, COALESCE(status,''), COALESCE(type,''),
		          replied, has_reply, saved_from_spam, from_spam, received_at
	`, rw.policy.EventDays)

	var total int64
	for ctx.Err() == nil {
		n, err := rw.archiveBatch(ctx, query)
		if err != nil {
			if isUndefinedTable(err) {
				rw.log.Warn("table does not exist, skipping", "table", "warmup_delivery_events")
			} else {
				rw.log.Error("archive batch failed", "table", "warmup_delivery_events", "error", err)
			}
			return total
		}
		total += n
		if n < retentionBatchSize {
			return total
		}

		select {
		case <-ctx.Done():
		case <-time.After(rw.batchPause):
		}
	}
	return total
}

func (rw *RetentionWorker) archiveBatch(ctx context.Context, query string) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := rw.db.BeginTx(queryCtx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive batch: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(queryCtx, query, retentionBatchSize)
	if err != nil {
		return 0, err
	}
	var batch []domain.ArchivedEvent
	for rows.Next() {
		var e domain.ArchivedEvent
		var raw sql.NullString
		if err := rows.Scan(&e.ID, &e.AccountID, &raw, &e.SentFlag, &e.StatusLabel, &e.TypeLabel,
			&e.RepliedFlag, &e.HasReplyFlag, &e.SavedFromSpamFlag, &e.FromSpamFlag, &e.ReceivedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired event: %w", err)
		}
		if raw.Valid {
			s := raw.String
			e.Timestamp = &s
		}
		batch = append(batch, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	key, err := rw.archive.Archive(queryCtx, batch)
	if err != nil {
		return 0, fmt.Errorf("archive %d events: %w", len(batch), err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive batch: %w", err)
	}
	rw.log.Debug("archived expired events", "rows", len(batch), "key", key)
	return int64(len(batch)), nil
}

// batchDelete runs query with retentionBatchSize as $1 until no rows are
// affected and returns the cumulative count. A missing table (migrations not
// run yet) is logged once and skipped.
func (rw *RetentionWorker) batchDelete(ctx context.Context, table, query string) int64 {
	var total int64
	for {
		if ctx.Err() != nil {
			return total
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := rw.db.ExecContext(queryCtx, query, retentionBatchSize)
		cancel()
		if err != nil {
			if isUndefinedTable(err) {
				rw.log.Warn("table does not exist, skipping", "table", table)
			} else {
				rw.log.Error("retention delete failed", "table", table, "error", err)
			}
			return total
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			return total
		}
		total += affected
		if affected < retentionBatchSize {
			return total
		}

		select {
		case <-ctx.Done():
			return total
		case <-time.After(rw.batchPause):
		}
	}
}

// isUndefinedTable reports a Postgres "relation does not exist" error.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
