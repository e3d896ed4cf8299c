package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/warmup-engine/internal/domain"
)

func TestRetentionWorker_RunOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rw := NewRetentionWorker(db, RetentionPolicy{EventDays: 14})
	rw.batchPause = time.Millisecond

	// Events: one full batch, then a partial one ends the loop.
	mock.ExpectExec(`DELETE FROM warmup_delivery_events (.+) INTERVAL '14 days'`).
		WithArgs(retentionBatchSize).
		WillReturnResult(sqlmock.NewResult(0, retentionBatchSize))
	mock.ExpectExec(`DELETE FROM warmup_delivery_events`).
		WithArgs(retentionBatchSize).
		WillReturnResult(sqlmock.NewResult(0, 25))
	mock.ExpectExec(`DELETE FROM warmup_ramp_log (.+) INTERVAL '365 days'`).
		WithArgs(retentionBatchSize).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed := rw.RunOnce(context.Background())
	assert.Equal(t, int64(retentionBatchSize+25), removed["warmup_delivery_events"])
	assert.Equal(t, int64(0), removed["warmup_ramp_log"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionWorker_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rw := NewRetentionWorker(db, RetentionPolicy{})
	mock.ExpectExec(`DELETE FROM warmup_delivery_events`).
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "warmup_delivery_events" does not exist`})
	mock.ExpectExec(`DELETE FROM warmup_ramp_log`).
		WillReturnError(errors.New("connection reset"))

	removed := rw.RunOnce(context.Background())
	assert.Zero(t, removed["warmup_delivery_events"])
	assert.Zero(t, removed["warmup_ramp_log"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, isUndefinedTable(&pq.Error{Code: "42P01"}))
	assert.False(t, isUndefinedTable(&pq.Error{Code: "23505"}))
	assert.False(t, isUndefinedTable(errors.New("relation does not exist")))
}

type fakeArchiver struct {
	batches [][]domain.ArchivedEvent
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, events []domain.ArchivedEvent) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.batches = append(f.batches, events)
	return "archive/key.ndjson", nil
}

var expiredCols = []string{"id", "account_id", "raw_timestamp", "sent", "status", "type",
	"replied", "has_reply", "saved_from_spam", "from_spam", "received_at"}

func TestRetentionWorker_ArchivesBeforeDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	archive := &fakeArchiver{}
	rw := NewRetentionWorker(db, RetentionPolicy{EventDays: 30, RampLogDays: 90})
	rw.SetArchiver(archive)

	received := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM warmup_delivery_events (.+) RETURNING`).
		WithArgs(retentionBatchSize).
		WillReturnRows(sqlmock.NewRows(expiredCols).
			AddRow("e1", "acct-1", "2024-01-02T10:00:00Z", true, "", "", false, false, false, false, received).
			AddRow("e2", "acct-2", nil, false, "replied", "", false, false, false, false, received))
	mock.ExpectCommit()
	mock.ExpectExec(`DELETE FROM warmup_ramp_log (.+) INTERVAL '90 days'`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed := rw.RunOnce(context.Background())
	assert.Equal(t, int64(2), removed["warmup_delivery_events"])
	assert.Equal(t, int64(3), removed["warmup_ramp_log"])

	require.Len(t, archive.batches, 1)
	batch := archive.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "e1", batch[0].ID)
	require.NotNil(t, batch[0].Timestamp)
	assert.Equal(t, "2024-01-02T10:00:00Z", *batch[0].Timestamp)
	assert.True(t, batch[0].SentFlag)
	assert.Nil(t, batch[1].Timestamp)
	assert.Equal(t, "replied", batch[1].StatusLabel)
	assert.Equal(t, received, batch[1].ReceivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetentionWorker_ArchiveFailureKeepsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rw := NewRetentionWorker(db, RetentionPolicy{})
	rw.SetArchiver(&fakeArchiver{err: errors.New("bucket unavailable")})

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM warmup_delivery_events (.+) RETURNING`).
		WillReturnRows(sqlmock.NewRows(expiredCols).
			AddRow("e1", "acct-1", nil, true, "", "", false, false, false, false, time.Now()))
	mock.ExpectRollback()
	mock.ExpectExec(`DELETE FROM warmup_ramp_log`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed := rw.RunOnce(context.Background())
	assert.Zero(t, removed["warmup_delivery_events"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
