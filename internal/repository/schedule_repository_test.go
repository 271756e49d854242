package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/pkg/database"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WithArgs(sqlmock.AnyArg(), "room-1", "type-1", 2, "16:30", 15, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := models.ClassSchedule{
		RoomID:      "room-1",
		ClassTypeID: "type-1",
		Weekday:     2,
		StartTime:   "16:30",
		Capacity:    15,
		Active:      true,
	}
	require.NoError(t, repo.Create(context.Background(), &schedule))
	assert.NotEmpty(t, schedule.ID, "create assigns an id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "class_schedules_slot_key"})

	err := repo.Create(context.Background(), &models.ClassSchedule{RoomID: "room-1", Weekday: 2, StartTime: "16:30", Capacity: 15})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err, "class_schedules_slot_key"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "room_id", "class_type_id", "weekday", "start_time", "capacity", "active", "created_at", "updated_at"}).
		AddRow("sched-1", "room-1", "type-1", 2, "16:30", 15, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_id, class_type_id, weekday, start_time, capacity, active, created_at, updated_at FROM class_schedules WHERE 1=1 AND room_id = $1 AND weekday = $2 ORDER BY weekday ASC, start_time ASC LIMIT 20 OFFSET 0")).
		WithArgs("room-1", 2).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_schedules WHERE 1=1 AND room_id = $1 AND weekday = $2")).
		WithArgs("room-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	weekday := 2
	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{RoomID: "room-1", Weekday: &weekday})
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateCapacityUsesTx(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_schedules SET capacity = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(8, sqlmock.AnyArg(), "sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateCapacity(context.Background(), tx, "sched-1", 8))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
