package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

type sessionRepoStub struct {
	existing      *models.ClassSession
	inserted      *models.ClassSession
	sessions      map[string]models.ClassSession
	statusUpdates []string
}

func (m *sessionRepoStub) InsertIfAbsent(ctx context.Context, session models.ClassSession) (*models.ClassSession, bool, error) {
	if m.existing != nil {
		return m.existing, false, nil
	}
	if session.ID == "" {
		session.ID = "session-1"
	}
	m.inserted = &session
	return &session, true, nil
}

func (m *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *sessionRepoStub) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error) {
	return nil, 0, nil
}

func (m *sessionRepoStub) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	m.statusUpdates = append(m.statusUpdates, id)
	if s, ok := m.sessions[id]; ok {
		s.Status = status
		m.sessions[id] = s
	}
	return nil
}

func (m *sessionRepoStub) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type scheduleReaderStub struct {
	schedules map[string]models.ClassSchedule
}

func (m *scheduleReaderStub) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if s, ok := m.schedules[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type classTypeReaderStub struct {
	classTypes map[string]models.ClassType
}

func (m *classTypeReaderStub) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	if ct, ok := m.classTypes[id]; ok {
		return &ct, nil
	}
	return nil, sql.ErrNoRows
}

func newSessionServiceForTest(repo *sessionRepoStub, schedules *scheduleReaderStub, classTypes *classTypeReaderStub) *SessionService {
	return NewSessionService(repo, schedules, classTypes, nil, "America/Argentina/Buenos_Aires", nil, nil)
}

func TestSessionServiceMaterializeCreatesSession(t *testing.T) {
	repo := &sessionRepoStub{}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", ClassTypeID: "type-1", Weekday: 2, StartTime: "16:30", Capacity: 18, Active: true},
	}}
	classTypes := &classTypeReaderStub{classTypes: map[string]models.ClassType{
		"type-1": {ID: "type-1", DurationMin: 45, DefaultCapacity: 18},
	}}
	svc := newSessionServiceForTest(repo, schedules, classTypes)

	// 2025-09-22 is a Monday; the next Wednesday occurrence is the 24th.
	session, created, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "2025-09-22"})
	require.NoError(t, err)
	assert.True(t, created)

	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	require.NoError(t, err)
	expected := time.Date(2025, 9, 24, 16, 30, 0, 0, loc)
	assert.True(t, expected.Equal(session.StartAt), "got %s", session.StartAt)
	assert.True(t, expected.Add(45*time.Minute).Equal(session.EndAt))
	assert.Equal(t, 18, session.Capacity)
	assert.Equal(t, models.SessionScheduled, session.Status)
}

func TestSessionServiceMaterializeSameDayStaysPut(t *testing.T) {
	repo := &sessionRepoStub{}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", ClassTypeID: "type-1", Weekday: 2, StartTime: "09:00", Capacity: 10, Active: true},
	}}
	svc := newSessionServiceForTest(repo, schedules, &classTypeReaderStub{})

	// 2025-09-24 is itself a Wednesday.
	session, created, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "2025-09-24", Timezone: "UTC"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, time.Date(2025, 9, 24, 9, 0, 0, 0, time.UTC), session.StartAt.UTC())
	// Class type lookup failed, so the default duration applies.
	assert.Equal(t, time.Hour, session.EndAt.Sub(session.StartAt))
}

func TestSessionServiceMaterializeSkipsToFollowingWeek(t *testing.T) {
	repo := &sessionRepoStub{}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Weekday: 2, StartTime: "16:30", Capacity: 15, Active: true},
	}}
	svc := newSessionServiceForTest(repo, schedules, &classTypeReaderStub{})

	// 2025-09-25 is a Thursday, one day past the Wednesday slot. Alignment
	// never looks backward, so the session lands the following Wednesday.
	session, created, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "2025-09-25", Timezone: "UTC"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, time.Date(2025, 10, 1, 16, 30, 0, 0, time.UTC), session.StartAt.UTC())
}

func TestSessionServiceMaterializeIsIdempotent(t *testing.T) {
	loc := time.UTC
	existing := &models.ClassSession{
		ID:         "session-1",
		ScheduleID: "sched-1",
		StartAt:    time.Date(2025, 9, 24, 9, 0, 0, 0, loc),
		EndAt:      time.Date(2025, 9, 24, 10, 0, 0, 0, loc),
		Capacity:   12,
		Status:     models.SessionScheduled,
	}
	repo := &sessionRepoStub{existing: existing}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		// Capacity changed since the session was created. The snapshot wins.
		"sched-1": {ID: "sched-1", Weekday: 2, StartTime: "09:00", Capacity: 30, Active: true},
	}}
	svc := newSessionServiceForTest(repo, schedules, &classTypeReaderStub{})

	session, created, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "2025-09-24", Timezone: "UTC"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, 12, session.Capacity)
}

func TestSessionServiceMaterializeDefaultsToToday(t *testing.T) {
	repo := &sessionRepoStub{}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Weekday: 0, StartTime: "07:15", Capacity: 8, Active: true},
	}}
	svc := newSessionServiceForTest(repo, schedules, &classTypeReaderStub{})
	svc.now = func() time.Time {
		// A Friday. The next Monday occurrence is three days out.
		return time.Date(2025, 9, 26, 12, 0, 0, 0, time.UTC)
	}

	session, created, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{Timezone: "UTC"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, time.Date(2025, 9, 29, 7, 15, 0, 0, time.UTC), session.StartAt.UTC())
}

func TestSessionServiceMaterializeInactiveSchedule(t *testing.T) {
	repo := &sessionRepoStub{}
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Weekday: 1, StartTime: "10:00", Capacity: 10, Active: false},
	}}
	svc := newSessionServiceForTest(repo, schedules, &classTypeReaderStub{})

	_, _, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "2025-09-24"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveSchedule.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.inserted)
}

func TestSessionServiceMaterializeUnknownSchedule(t *testing.T) {
	svc := newSessionServiceForTest(&sessionRepoStub{}, &scheduleReaderStub{}, &classTypeReaderStub{})

	_, _, err := svc.Materialize(context.Background(), "missing", MaterializeRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceMaterializeInvalidTimezone(t *testing.T) {
	schedules := &scheduleReaderStub{schedules: map[string]models.ClassSchedule{
		"sched-1": {ID: "sched-1", Weekday: 1, StartTime: "10:00", Capacity: 10, Active: true},
	}}
	svc := newSessionServiceForTest(&sessionRepoStub{}, schedules, &classTypeReaderStub{})

	_, _, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{Timezone: "Mars/Olympus"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTimezone.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceMaterializeInvalidTargetDate(t *testing.T) {
	svc := newSessionServiceForTest(&sessionRepoStub{}, &scheduleReaderStub{}, &classTypeReaderStub{})

	_, _, err := svc.Materialize(context.Background(), "sched-1", MaterializeRequest{TargetDate: "24-09-2025"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCancelIsIdempotent(t *testing.T) {
	repo := &sessionRepoStub{sessions: map[string]models.ClassSession{
		"session-1": {ID: "session-1", Status: models.SessionScheduled},
	}}
	svc := newSessionServiceForTest(repo, &scheduleReaderStub{}, &classTypeReaderStub{})

	session, err := svc.Cancel(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, session.Status)
	assert.Len(t, repo.statusUpdates, 1)

	session, err = svc.Cancel(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, session.Status)
	assert.Len(t, repo.statusUpdates, 1, "second cancel must not hit storage")
}

func TestAlignForwardNeverMovesBackwards(t *testing.T) {
	// 2025-09-22 through 28 covers Monday..Sunday.
	for day := 22; day <= 28; day++ {
		target := time.Date(2025, 9, day, 0, 0, 0, 0, time.UTC)
		for weekday := 0; weekday <= 6; weekday++ {
			aligned := alignForward(target, weekday)
			assert.Equal(t, weekday, models.MondayZeroWeekday(aligned))
			assert.False(t, aligned.Before(target))
			assert.Less(t, int(aligned.Sub(target).Hours()), 7*24)
		}
	}
}

func TestMondayZeroWeekday(t *testing.T) {
	assert.Equal(t, 0, models.MondayZeroWeekday(time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, models.MondayZeroWeekday(time.Date(2025, 9, 28, 0, 0, 0, 0, time.UTC)))
}
