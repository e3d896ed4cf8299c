package warmup

import (
	"context"

	"github.com/ignite/warmup-engine/internal/domain"
)

// Repository defines the data access contract for warmup configs.
type Repository interface {
	// Get returns the stored config. Returns ErrNotFound if none exists.
	Get(ctx context.Context, accountID string) (*domain.WarmupConfig, error)

	// Save writes cfg if the stored version still equals expectedVersion
	// (0 means "no row yet"). On success cfg.Version and cfg.UpdatedAt are
	// set to the stored values. Returns ErrConflict when the version moved.
	Save(ctx context.Context, cfg *domain.WarmupConfig, expectedVersion int64) error

	// RecordTick is Save plus an appended ramp log entry, atomically.
	RecordTick(ctx context.Context, cfg *domain.WarmupConfig, expectedVersion int64, entry domain.RampLogEntry) error

	// ListRamping returns the IDs of accounts with warmup and ramp-up enabled
	// whose cap has not reached the daily maximum.
	ListRamping(ctx context.Context) ([]string, error)

	// RampHistory returns the most recent ramp log entries, newest first.
	RampHistory(ctx context.Context, accountID string, limit int) ([]domain.RampLogEntry, error)
}
