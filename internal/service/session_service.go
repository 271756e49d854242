package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

type sessionRepository interface {
	InsertIfAbsent(ctx context.Context, session models.ClassSession) (*models.ClassSession, bool, error)
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
	Delete(ctx context.Context, id string) error
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
}

type materializationObserver interface {
	ObserveMaterialization(outcome string)
}

// MaterializeRequest describes payload for materializing one occurrence of a
// schedule. Both fields are optional: target_date defaults to today in the
// resolved timezone, timezone to the service default.
type MaterializeRequest struct {
	TargetDate string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	Timezone   string `json:"timezone"`
}

// SessionService materializes dated sessions from weekly templates and
// manages their lifecycle.
type SessionService struct {
	repo       sessionRepository
	schedules  scheduleReader
	classTypes classTypeReader
	metrics    materializationObserver
	validator  *validator.Validate
	logger     *zap.Logger

	defaultTZ string
	now       func() time.Time
}

// NewSessionService instantiates SessionService. metrics may be nil.
func NewSessionService(repo sessionRepository, schedules scheduleReader, classTypes classTypeReader, metrics materializationObserver, defaultTZ string, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTZ == "" {
		defaultTZ = "UTC"
	}
	return &SessionService{
		repo:       repo,
		schedules:  schedules,
		classTypes: classTypes,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		defaultTZ:  defaultTZ,
		now:        time.Now,
	}
}

// Materialize turns one occurrence of a weekly template into a persisted,
// dated session. The occurrence is the first one on-or-after the target date
// (forward-only alignment), and the write is an atomic insert-or-fetch keyed
// on (schedule_id, start_at), so concurrent callers converge on one row.
func (s *SessionService) Materialize(ctx context.Context, scheduleID string, req MaterializeRequest) (*models.ClassSession, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid materialization payload")
	}

	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if !schedule.Active {
		s.observe("rejected")
		return nil, false, appErrors.Clone(appErrors.ErrInactiveSchedule, "")
	}

	loc, err := s.resolveLocation(req.Timezone)
	if err != nil {
		return nil, false, err
	}

	target, err := s.resolveTargetDate(req.TargetDate, loc)
	if err != nil {
		return nil, false, err
	}

	startAt, err := occurrenceStart(schedule, target, loc)
	if err != nil {
		return nil, false, err
	}

	duration := time.Duration(models.DefaultDurationMinutes) * time.Minute
	if classType, err := s.classTypes.FindByID(ctx, schedule.ClassTypeID); err == nil {
		duration = classType.Duration()
	}
	endAt := startAt.Add(duration)

	if schedule.Capacity <= 0 {
		s.observe("rejected")
		return nil, false, appErrors.Clone(appErrors.ErrZeroCapacity, "schedule capacity snapshot is zero")
	}
	if !endAt.After(startAt) {
		s.observe("rejected")
		return nil, false, appErrors.Clone(appErrors.ErrInvalidInterval, "")
	}

	session, created, err := s.repo.InsertIfAbsent(ctx, models.ClassSession{
		ScheduleID: schedule.ID,
		StartAt:    startAt,
		EndAt:      endAt,
		Capacity:   schedule.Capacity,
		Status:     models.SessionScheduled,
	})
	if err != nil {
		s.observe("error")
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to materialize session")
	}

	if created {
		s.observe("created")
		s.logger.Info("session materialized",
			zap.String("schedule_id", schedule.ID),
			zap.Time("start_at", startAt),
			zap.Int("capacity", session.Capacity),
		)
	} else {
		s.observe("existing")
	}
	return session, created, nil
}

// MaterializeNext materializes the next occurrence of a schedule from the
// current date in the default timezone. Used by the background planner.
func (s *SessionService) MaterializeNext(ctx context.Context, scheduleID string) (*models.ClassSession, bool, error) {
	return s.Materialize(ctx, scheduleID, MaterializeRequest{})
}

// Get loads a single session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// List returns sessions with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Cancel transitions a session to cancelled. Cancelling an already-cancelled
// session is an idempotent no-op: the session is returned unchanged. The
// transition is one-way; nothing moves out of cancelled.
func (s *SessionService) Cancel(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCancelled {
		return session, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, models.SessionCancelled); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel session")
	}
	session.Status = models.SessionCancelled
	return session, nil
}

// Delete removes a session. Sessions are leaves, so no references block this.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

func (s *SessionService) resolveLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimezone.Code, appErrors.ErrInvalidTimezone.Status, appErrors.ErrInvalidTimezone.Message)
	}
	return loc, nil
}

func (s *SessionService) resolveTargetDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		now := s.now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "target_date must be YYYY-MM-DD")
	}
	return parsed, nil
}

func (s *SessionService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveMaterialization(outcome)
	}
}

// alignForward advances target to the next date whose Monday-zero weekday
// matches, staying put when it already does. Plain modulo arithmetic, no
// calendar library date-diffing.
func alignForward(target time.Time, weekday int) time.Time {
	delta := (weekday - models.MondayZeroWeekday(target) + 7) % 7
	return target.AddDate(0, 0, delta)
}

// occurrenceStart combines the aligned date with the template's wall-clock
// start time in the given timezone.
func occurrenceStart(schedule *models.ClassSchedule, target time.Time, loc *time.Location) (time.Time, error) {
	if schedule.Weekday < models.WeekdayMonday || schedule.Weekday > models.WeekdaySunday {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidWeekday, "")
	}
	wallClock, err := time.Parse("15:04", schedule.StartTime)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidTime.Code, appErrors.ErrInvalidTime.Status, appErrors.ErrInvalidTime.Message)
	}

	aligned := alignForward(target, schedule.Weekday)
	return time.Date(aligned.Year(), aligned.Month(), aligned.Day(), wallClock.Hour(), wallClock.Minute(), 0, 0, loc), nil
}
