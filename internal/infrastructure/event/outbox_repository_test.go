package event

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var outboxColumns = []string{
	"id", "event_id", "event_type", "aggregate_id", "aggregate_type", "event_family",
	"payload", "status", "retry_count", "max_retries", "last_error",
	"next_retry_at", "processed_at", "created_at", "updated_at",
}

func newOutboxRepo(t *testing.T) (*GormOutboxRepository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormOutboxRepository(db), mock
}

// deadRow is a dead DailyClosed entry as stored
func deadRow(rows *sqlmock.Rows, id uuid.UUID, lastError string) *sqlmock.Rows {
	at := time.Date(2024, 5, 10, 18, 30, 0, 0, time.UTC)
	return rows.AddRow(
		id, uuid.New(), "DailyClosed", uuid.New(), "DailyClosing", "closing",
		[]byte(`{"business_date":"2024-05-10"}`), "DEAD", 5, 5, lastError,
		nil, nil, at, at,
	)
}

// ==================== Writes ====================

func TestGormOutboxRepository_Save(t *testing.T) {
	repo, mock := newOutboxRepo(t)
	payment := recordedPayment(t)
	entry := shared.NewOutboxEntry(payment, []byte(`{}`))
	entry.Family = "payment"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "outbox_events" ("id","event_id","event_type","aggregate_id","aggregate_type","event_family"`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(entry.CreatedAt, entry.UpdatedAt))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, repo.Save(context.Background()))
}

func TestGormOutboxRepository_Update(t *testing.T) {
	repo, mock := newOutboxRepo(t)
	entry := shared.NewOutboxEntry(recordedPayment(t), []byte(`{}`))
	entry.MarkDead("unregistered event type: PaymentRecorded")
	before := entry.UpdatedAt

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events"`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), entry))
	assert.False(t, entry.UpdatedAt.Before(before))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	repo, mock := newOutboxRepo(t)
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "outbox_events" WHERE status = $1 AND processed_at < $2`)).
		WithArgs(shared.OutboxStatusSent, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==================== Relay reads ====================

func TestGormOutboxRepository_FindPending(t *testing.T) {
	repo, mock := newOutboxRepo(t)
	id := uuid.New()
	at := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 ORDER BY created_at ASC LIMIT $2`)).
		WithArgs(shared.OutboxStatusPending, 50).
		WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
			id, uuid.New(), "PaymentRecorded", uuid.New(), "Payment", "payment",
			[]byte(`{}`), "PENDING", 0, 5, "", nil, nil, at, at,
		))

	entries, err := repo.FindPending(context.Background(), 50)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "payment", entries[0].Family)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	repo, mock := newOutboxRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 AND next_retry_at <= $2 ORDER BY next_retry_at ASC LIMIT $3`)).
		WithArgs(shared.OutboxStatusFailed, now, 50).
		WillReturnRows(sqlmock.NewRows(outboxColumns))

	entries, err := repo.FindRetryable(context.Background(), now, 50)

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_MarkProcessing(t *testing.T) {
	t.Run("claims what is still pending", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		won, lost := uuid.New(), uuid.New()
		at := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE id IN ($1,$2) AND status IN ($3,$4) FOR UPDATE SKIP LOCKED`)).
			WithArgs(won, lost, shared.OutboxStatusPending, shared.OutboxStatusFailed).
			WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
				won, uuid.New(), "DailyClosed", uuid.New(), "DailyClosing", "closing",
				[]byte(`{}`), "FAILED", 1, 5, "bucket unavailable", at, nil, at, at,
			))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "outbox_events" SET "status"=$1,"updated_at"=$2 WHERE id IN ($3)`)).
			WithArgs(shared.OutboxStatusProcessing, sqlmock.AnyArg(), won).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		claimed, err := repo.MarkProcessing(context.Background(), []uuid.UUID{won, lost})

		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, won, claimed[0].ID)
		assert.Equal(t, shared.OutboxStatusProcessing, claimed[0].Status)
		assert.Equal(t, 1, claimed[0].RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing left to claim", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events"`)).WillReturnRows(sqlmock.NewRows(outboxColumns))
		mock.ExpectCommit()

		claimed, err := repo.MarkProcessing(context.Background(), []uuid.UUID{id})

		require.NoError(t, err)
		assert.Empty(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no ids", func(t *testing.T) {
		repo, _ := newOutboxRepo(t)
		claimed, err := repo.MarkProcessing(context.Background(), nil)
		assert.NoError(t, err)
		assert.Nil(t, claimed)
	})
}

// ==================== Dead letters ====================

func TestGormOutboxRepository_FindDead(t *testing.T) {
	t.Run("one family, second page", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "outbox_events" WHERE status = $1 AND event_family = $2`)).
			WithArgs(shared.OutboxStatusDead, "closing").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE status = $1 AND event_family = $2 ORDER BY updated_at DESC LIMIT $3 OFFSET $4`)).
			WithArgs(shared.OutboxStatusDead, "closing", 10, 10).
			WillReturnRows(deadRow(sqlmock.NewRows(outboxColumns), id, "snapshot bucket unavailable"))

		entries, total, err := repo.FindDead(context.Background(), shared.DeadLetterQuery{Family: "closing", Page: 2, PageSize: 10})

		require.NoError(t, err)
		assert.Equal(t, int64(11), total)
		require.Len(t, entries, 1)
		assert.Equal(t, id, entries[0].ID)
		assert.True(t, entries[0].IsDead())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty queue skips the page query", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "outbox_events" WHERE status = $1`)).
			WithArgs(shared.OutboxStatusDead).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		entries, total, err := repo.FindDead(context.Background(), shared.DeadLetterQuery{Page: 1, PageSize: 20})

		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, entries)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormOutboxRepository_FindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE id = $1`)).
			WillReturnRows(deadRow(sqlmock.NewRows(outboxColumns), id, "boom"))

		entry, err := repo.FindByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, "closing", entry.Family)
		assert.Equal(t, "boom", entry.LastError)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events" WHERE id = $1`)).
			WillReturnRows(sqlmock.NewRows(outboxColumns))

		_, err := repo.FindByID(context.Background(), uuid.New())

		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "outbox_events"`)).WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(context.Background(), uuid.New())

		require.Error(t, err)
		assert.False(t, shared.IsNotFound(err))
	})
}

func TestGormOutboxRepository_Counts(t *testing.T) {
	repo, mock := newOutboxRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status AS group_key, COUNT(*) AS count FROM "outbox_events" GROUP BY`)).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "count"}).
			AddRow("SENT", 40).
			AddRow("DEAD", 3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_family AS group_key, COUNT(*) AS count FROM "outbox_events" WHERE status = $1 GROUP BY`)).
		WithArgs(shared.OutboxStatusDead).
		WillReturnRows(sqlmock.NewRows([]string{"group_key", "count"}).
			AddRow("closing", 2).
			AddRow("payment", 1))

	byStatus, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[shared.OutboxStatus]int64{shared.OutboxStatusSent: 40, shared.OutboxStatusDead: 3}, byStatus)

	byFamily, err := repo.CountDeadByFamily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"closing": 2, "payment": 1}, byFamily)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_WithTx(t *testing.T) {
	repo, _ := newOutboxRepo(t)
	assert.NotSame(t, repo, repo.WithTx(repo.db))
}
