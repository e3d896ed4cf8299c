package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/warmup-engine/internal/domain"
	"github.com/ignite/warmup-engine/internal/service/warmup"
)

// WarmupRepo implements warmup.Repository against PostgreSQL.
type WarmupRepo struct{ db *sql.DB }

// NewWarmupRepo creates a Postgres-backed warmup config repository.
func NewWarmupRepo(db *sql.DB) *WarmupRepo { return &WarmupRepo{db: db} }

const warmupColumns = `account_id, enabled, max_per_day, daily_rampup_enabled, rampup_increment,
		       random_min, random_max, reply_rate_percent, daily_reply_target, tag1, tag2,
		       auto_adjust, custom_domain_tracking, weekdays_only, start_date,
		       current_cap, version, last_ramp_at, updated_at`

func (r *WarmupRepo) Get(ctx context.Context, accountID string) (*domain.WarmupConfig, error) {
	c := &domain.WarmupConfig{}
	var lastRamp sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT `+warmupColumns+`
		FROM warmup_configs
		WHERE account_id = $1
	`, accountID).Scan(
		&c.AccountID, &c.Enabled, &c.MaxPerDay, &c.DailyRampupEnabled, &c.RampupIncrement,
		&c.RandomRange.Min, &c.RandomRange.Max, &c.ReplyRatePercent, &c.DailyReplyTarget,
		&c.IdentifierTag.Tag1, &c.IdentifierTag.Tag2,
		&c.AutoAdjust, &c.CustomDomainTracking, &c.WeekdaysOnly, &c.StartDate,
		&c.CurrentCap, &c.Version, &lastRamp, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, warmup.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get warmup config: %w", err)
	}
	if lastRamp.Valid {
		t := lastRamp.Time
		c.LastRampAt = &t
	}
	return c, nil
}

func (r *WarmupRepo) Save(ctx context.Context, cfg *domain.WarmupConfig, expectedVersion int64) error {
	return save(ctx, r.db, cfg, expectedVersion)
}

func (r *WarmupRepo) RecordTick(ctx context.Context, cfg *domain.WarmupConfig, expectedVersion int64, e domain.RampLogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ramp tick: %w", err)
	}
	defer tx.Rollback()

	if err := save(ctx, tx, cfg, expectedVersion); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO warmup_ramp_log (id, account_id, tick_date, previous_cap, new_cap, phase, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, uuid.New().String(), e.AccountID, e.TickDate, e.PreviousCap, e.NewCap, string(e.Phase)); err != nil {
		return fmt.Errorf("insert ramp log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ramp tick: %w", err)
	}
	return nil
}

func (r *WarmupRepo) ListRamping(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id
		FROM warmup_configs
		WHERE enabled = true AND daily_rampup_enabled = true AND current_cap < max_per_day
		ORDER BY account_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list ramping accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ramping account: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *WarmupRepo) RampHistory(ctx context.Context, accountID string, limit int) ([]domain.RampLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT account_id, tick_date, previous_cap, new_cap, phase, created_at
		FROM warmup_ramp_log
		WHERE account_id = $1
		ORDER BY tick_date DESC, created_at DESC
		LIMIT $2
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("ramp history: %w", err)
	}
	defer rows.Close()

	var out []domain.RampLogEntry
	for rows.Next() {
		var e domain.RampLogEntry
		var phase string
		if err := rows.Scan(&e.AccountID, &e.TickDate, &e.PreviousCap, &e.NewCap, &phase, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ramp log: %w", err)
		}
		e.Phase = domain.RampPhase(phase)
		out = append(out, e)
	}
	return out, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// save inserts (expectedVersion 0) or compare-and-swaps the config row.
func save(ctx context.Context, q queryRower, cfg *domain.WarmupConfig, expectedVersion int64) error {
	args := []interface{}{
		cfg.AccountID, cfg.Enabled, cfg.MaxPerDay, cfg.DailyRampupEnabled, cfg.RampupIncrement,
		cfg.RandomRange.Min, cfg.RandomRange.Max, cfg.ReplyRatePercent, cfg.DailyReplyTarget,
		cfg.IdentifierTag.Tag1, cfg.IdentifierTag.Tag2,
		cfg.AutoAdjust, cfg.CustomDomainTracking, cfg.WeekdaysOnly, cfg.StartDate,
		cfg.CurrentCap, cfg.LastRampAt,
	}

	var row *sql.Row
	if expectedVersion == 0 {
		row = q.QueryRowContext(ctx, `
			INSERT INTO warmup_configs (`+warmupColumns+`, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, NOW(), NOW())
			ON CONFLICT (account_id) DO NOTHING
			RETURNING version, updated_at
		`, args...)
	} else {
		row = q.QueryRowContext(ctx, `
			UPDATE warmup_configs SET
				enabled = $2, max_per_day = $3, daily_rampup_enabled = $4, rampup_increment = $5,
				random_min = $6, random_max = $7, reply_rate_percent = $8, daily_reply_target = $9,
				tag1 = $10, tag2 = $11, auto_adjust = $12, custom_domain_tracking = $13,
				weekdays_only = $14, start_date = $15, current_cap = $16, last_ramp_at = $17,
				version = version + 1, updated_at = NOW()
			WHERE account_id = $1 AND version = $18
			RETURNING version, updated_at
		`, append(args, expectedVersion)...)
	}

	err := row.Scan(&cfg.Version, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return warmup.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("save warmup config: %w", err)
	}
	return nil
}
