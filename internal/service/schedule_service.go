package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

const timetableCachePrefix = "timetable:schedules:"

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSchedule, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type classTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassType, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string)
}

// CreateScheduleRequest describes payload for creating a weekly schedule.
// Capacity is always derived and absent on purpose.
type CreateScheduleRequest struct {
	RoomID      string `json:"room_id" validate:"required"`
	ClassTypeID string `json:"class_type_id" validate:"required"`
	Weekday     *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
}

// UpdateScheduleRequest replaces the mutable fields of a schedule.
type UpdateScheduleRequest struct {
	RoomID      string `json:"room_id" validate:"required"`
	ClassTypeID string `json:"class_type_id" validate:"required"`
	Weekday     *int   `json:"weekday" validate:"required,min=0,max=6"`
	StartTime   string `json:"start_time" validate:"required"`
}

type cachedScheduleList struct {
	Schedules  []models.ClassSchedule `json:"schedules"`
	Pagination models.Pagination      `json:"pagination"`
}

// ScheduleService keeps weekly templates consistent: every write path
// recomputes the derived capacity from the referenced room and class type.
type ScheduleService struct {
	repo       scheduleRepository
	rooms      roomReader
	classTypes classTypeReader
	cache      timetableCache
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService instantiates ScheduleService. cache may be nil when the
// timetable cache is disabled.
func NewScheduleService(repo scheduleRepository, rooms roomReader, classTypes classTypeReader, cache timetableCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ScheduleService{repo: repo, rooms: rooms, classTypes: classTypes, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns schedules with pagination metadata, serving from the
// timetable cache when possible.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSchedule, *models.Pagination, error) {
	key := timetableCacheKey(filter)
	if s.cache != nil {
		var cached cachedScheduleList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			pagination := cached.Pagination
			return cached.Schedules, &pagination, nil
		}
	}

	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedScheduleList{Schedules: schedules, Pagination: *pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.Error(err))
		}
	}
	return schedules, pagination, nil
}

// Get loads a single schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create inserts a new weekly template with capacity derived from its room
// and class type. Duplicate (room, weekday, start_time) tuples are rejected
// by the storage constraint.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	startTime, err := normalizeStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}

	room, classType, err := s.loadRefs(ctx, req.RoomID, req.ClassTypeID)
	if err != nil {
		return nil, err
	}

	capacity, err := EffectiveCapacity(room, classType)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrZeroCapacity, fmt.Sprintf("room %s and class type %s resolve to zero capacity", room.Name, classType.Name))
	}

	schedule := models.ClassSchedule{
		RoomID:      room.ID,
		ClassTypeID: classType.ID,
		Weekday:     *req.Weekday,
		StartTime:   startTime,
		Capacity:    capacity,
		Active:      true,
	}

	if err := s.repo.Create(ctx, &schedule); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateSchedule.Code, appErrors.ErrDuplicateSchedule.Status, appErrors.ErrDuplicateSchedule.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.invalidateTimetable(ctx)
	return &schedule, nil
}

// Update replaces the mutable fields of a schedule and recomputes its
// derived capacity against the (possibly new) room and class type.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	startTime, err := normalizeStartTime(req.StartTime)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	room, classType, err := s.loadRefs(ctx, req.RoomID, req.ClassTypeID)
	if err != nil {
		return nil, err
	}

	capacity, err := EffectiveCapacity(room, classType)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrZeroCapacity, fmt.Sprintf("room %s and class type %s resolve to zero capacity", room.Name, classType.Name))
	}

	updated := models.ClassSchedule{
		ID:          existing.ID,
		RoomID:      room.ID,
		ClassTypeID: classType.ID,
		Weekday:     *req.Weekday,
		StartTime:   startTime,
		Capacity:    capacity,
		Active:      existing.Active,
		CreatedAt:   existing.CreatedAt,
	}

	if err := s.repo.Update(ctx, nil, &updated); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateSchedule.Code, appErrors.ErrDuplicateSchedule.Status, appErrors.ErrDuplicateSchedule.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.invalidateTimetable(ctx)
	return &updated, nil
}

// Activate resumes materialization for a paused template.
func (s *ScheduleService) Activate(ctx context.Context, id string) (*models.ClassSchedule, error) {
	return s.setActive(ctx, id, true)
}

// Deactivate pauses a template. Already-materialized sessions are untouched.
func (s *ScheduleService) Deactivate(ctx context.Context, id string) (*models.ClassSchedule, error) {
	return s.setActive(ctx, id, false)
}

func (s *ScheduleService) setActive(ctx context.Context, id string, active bool) (*models.ClassSchedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Active == active {
		return schedule, nil
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle schedule")
	}
	schedule.Active = active
	s.invalidateTimetable(ctx)
	return schedule, nil
}

// Delete removes a schedule. Templates with materialized sessions are
// protected, not cascaded.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrReferenceInUse, "schedule has materialized sessions and cannot be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidateTimetable(ctx)
	return nil
}

func (s *ScheduleService) loadRefs(ctx context.Context, roomID, classTypeID string) (*models.Room, *models.ClassType, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	classType, err := s.classTypes.FindByID(ctx, classTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class type not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class type")
	}
	return room, classType, nil
}

func (s *ScheduleService) invalidateTimetable(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, timetableCachePrefix)
	}
}

// normalizeStartTime validates an HH:MM wall-clock string and returns it
// zero-padded so lexical ordering matches chronological ordering.
func normalizeStartTime(raw string) (string, error) {
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInvalidTime.Code, appErrors.ErrInvalidTime.Status, appErrors.ErrInvalidTime.Message)
	}
	return parsed.Format("15:04"), nil
}

func timetableCacheKey(filter models.ScheduleFilter) string {
	weekday := "any"
	if filter.Weekday != nil {
		weekday = fmt.Sprintf("%d", *filter.Weekday)
	}
	active := "any"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("%sroom=%s:type=%s:weekday=%s:active=%s:page=%d:size=%d",
		timetableCachePrefix, filter.RoomID, filter.ClassTypeID, weekday, active, filter.Page, filter.PageSize)
}
