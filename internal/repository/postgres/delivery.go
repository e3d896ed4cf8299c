package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/warmup-engine/internal/domain"
)

// DeliveryRepo stores the warmup delivery signals reported by the mail
// transport and serves them to the deliverability aggregator.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a Postgres-backed delivery event store.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

// Events returns events received since the given time. The producer's raw
// timestamp is returned untouched; parsing is the aggregator's job.
func (r *DeliveryRepo) Events(ctx context.Context, accountID string, since time.Time) ([]domain.DeliveryEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT raw_timestamp, sent, COALESCE(status,''), COALESCE(type,''),
		       replied, has_reply, saved_from_spam, from_spam
		FROM warmup_delivery_events
		WHERE account_id = $1 AND received_at >= $2
		ORDER BY received_at
	`, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("list delivery events: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliveryEvent
	for rows.Next() {
		var e domain.DeliveryEvent
		var raw sql.NullString
		if err := rows.Scan(&raw, &e.SentFlag, &e.StatusLabel, &e.TypeLabel,
			&e.RepliedFlag, &e.HasReplyFlag, &e.SavedFromSpamFlag, &e.FromSpamFlag); err != nil {
			return nil, fmt.Errorf("scan delivery event: %w", err)
		}
		if raw.Valid {
			s := raw.String
			e.Timestamp = &s
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RecordEvents appends a batch of events in one transaction.
func (r *DeliveryRepo) RecordEvents(ctx context.Context, accountID string, events []domain.DeliveryEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record events: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO warmup_delivery_events
			(id, account_id, raw_timestamp, sent, status, type, replied, has_reply, saved_from_spam, from_spam, received_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, $8, $9, $10, NOW())
	`)
	if err != nil {
		return fmt.Errorf("prepare record events: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), accountID, e.Timestamp, e.SentFlag, e.StatusLabel, e.TypeLabel,
			e.RepliedFlag, e.HasReplyFlag, e.SavedFromSpamFlag, e.FromSpamFlag,
		); err != nil {
			return fmt.Errorf("insert delivery event: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record events: %w", err)
	}
	return nil
}

// Totals returns the aggregate counters for an account; zero when none were
// reported yet.
func (r *DeliveryRepo) Totals(ctx context.Context, accountID string) (domain.AggregateTotals, error) {
	var t domain.AggregateTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT total_sent, total_replied, total_saved_from_spam,
		       total_in_spam, total_moved_from_spam, emails_received
		FROM warmup_account_stats
		WHERE account_id = $1
	`, accountID).Scan(
		&t.TotalSent, &t.TotalReplied, &t.TotalSavedFromSpam,
		&t.TotalInSpam, &t.TotalMovedFromSpam, &t.EmailsReceived,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AggregateTotals{}, nil
	}
	if err != nil {
		return domain.AggregateTotals{}, fmt.Errorf("get delivery totals: %w", err)
	}
	return t, nil
}

// UpsertTotals replaces the aggregate counters for an account.
func (r *DeliveryRepo) UpsertTotals(ctx context.Context, accountID string, t domain.AggregateTotals) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO warmup_account_stats
			(account_id, total_sent, total_replied, total_saved_from_spam,
			 total_in_spam, total_moved_from_spam, emails_received, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			total_sent = $2, total_replied = $3, total_saved_from_spam = $4,
			total_in_spam = $5, total_moved_from_spam = $6, emails_received = $7,
			updated_at = NOW()
	`, accountID, t.TotalSent, t.TotalReplied, t.TotalSavedFromSpam,
		t.TotalInSpam, t.TotalMovedFromSpam, t.EmailsReceived)
	if err != nil {
		return fmt.Errorf("upsert delivery totals: %w", err)
	}
	return nil
}
