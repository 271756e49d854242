package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows(id string, startAt, endAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "schedule_id", "start_at", "end_at", "capacity", "status", "created_at", "updated_at"}).
		AddRow(id, "sched-1", startAt, endAt, 15, "scheduled", time.Now(), time.Now())
}

func TestSessionRepositoryInsertIfAbsentCreates(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	startAt := time.Date(2025, 9, 24, 19, 30, 0, 0, time.UTC)
	endAt := startAt.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_sessions")).
		WithArgs(sqlmock.AnyArg(), "sched-1", startAt, endAt, 15, models.SessionScheduled, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sessionRows("session-1", startAt, endAt))

	session, created, err := repo.InsertIfAbsent(context.Background(), models.ClassSession{
		ScheduleID: "sched-1",
		StartAt:    startAt,
		EndAt:      endAt,
		Capacity:   15,
		Status:     models.SessionScheduled,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "session-1", session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryInsertIfAbsentReturnsExistingOnConflict(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	startAt := time.Date(2025, 9, 24, 19, 30, 0, 0, time.UTC)
	endAt := startAt.Add(time.Hour)

	// ON CONFLICT DO NOTHING returns no row when the key already exists.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO class_sessions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, start_at, end_at, capacity, status, created_at, updated_at FROM class_sessions WHERE schedule_id = $1 AND start_at = $2")).
		WithArgs("sched-1", startAt).
		WillReturnRows(sessionRows("session-existing", startAt, endAt))

	session, created, err := repo.InsertIfAbsent(context.Background(), models.ClassSession{
		ScheduleID: "sched-1",
		StartAt:    startAt,
		EndAt:      endAt,
		Capacity:   15,
		Status:     models.SessionScheduled,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "session-existing", session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET status = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(models.SessionCancelled, sqlmock.AnyArg(), "session-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "session-1", models.SessionCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByWindow(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)
	startAt := time.Date(2025, 9, 24, 19, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions WHERE 1=1 AND schedule_id = $1 AND start_at >= $2 AND start_at < $3 ORDER BY start_at ASC LIMIT 50 OFFSET 0")).
		WithArgs("sched-1", from, to).
		WillReturnRows(sessionRows("session-1", startAt, startAt.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions WHERE 1=1 AND schedule_id = $1 AND start_at >= $2 AND start_at < $3")).
		WithArgs("sched-1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{ScheduleID: "sched-1", From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListUnpaginatedOmitsLimit(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)
	startAt := time.Date(2025, 9, 24, 19, 30, 0, 0, time.UTC)

	// The anchored pattern fails if a LIMIT clause trails the ORDER BY, so
	// an unpaginated listing can never clamp the window to a page.
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_sessions WHERE 1=1 AND start_at >= $1 AND start_at < $2 ORDER BY start_at ASC") + "$").
		WithArgs(from, to).
		WillReturnRows(sessionRows("session-1", startAt, startAt.Add(time.Hour)).
			AddRow("session-2", "sched-2", startAt.Add(2*time.Hour), startAt.Add(3*time.Hour), 10, "scheduled", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_sessions WHERE 1=1 AND start_at >= $1 AND start_at < $2")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	sessions, total, err := repo.List(context.Background(), models.SessionFilter{From: &from, To: &to, Unpaginated: true})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
