package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	"github.com/noah-isme/gym-scheduling-api/pkg/database"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

type classTypeRepository interface {
	List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassType, error)
	Create(ctx context.Context, classType *models.ClassType) error
	Update(ctx context.Context, exec sqlx.ExtContext, classType *models.ClassType) error
	Delete(ctx context.Context, id string) error
}

type classTypeScheduleCapacities interface {
	CapacityContextByClassType(ctx context.Context, exec sqlx.ExtContext, classTypeID string, defaultCapacity int) ([]models.ScheduleCapacityContext, error)
	UpdateCapacity(ctx context.Context, exec sqlx.ExtContext, id string, capacity int) error
}

// CreateClassTypeRequest describes payload for creating a class type. The
// duration is fixed at 60 minutes and not part of the payload.
type CreateClassTypeRequest struct {
	Name            string `json:"name" validate:"required,max=80"`
	DefaultCapacity int    `json:"default_capacity" validate:"required,gt=0"`
}

// UpdateClassTypeRequest updates an existing class type.
type UpdateClassTypeRequest struct {
	Name            string `json:"name" validate:"required,max=80"`
	DefaultCapacity int    `json:"default_capacity" validate:"required,gt=0"`
}

// ClassTypeService manages class types. Default-capacity edits cascade into
// dependent templates exactly like room capacity edits.
type ClassTypeService struct {
	repo      classTypeRepository
	schedules classTypeScheduleCapacities
	cache     timetableCache
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassTypeService instantiates ClassTypeService.
func NewClassTypeService(repo classTypeRepository, schedules classTypeScheduleCapacities, cache timetableCache, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ClassTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassTypeService{repo: repo, schedules: schedules, cache: cache, tx: tx, validator: validate, logger: logger}
}

// List returns class types with pagination metadata.
func (s *ClassTypeService) List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, *models.Pagination, error) {
	types, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class types")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return types, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single class type.
func (s *ClassTypeService) Get(ctx context.Context, id string) (*models.ClassType, error) {
	classType, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class type")
	}
	return classType, nil
}

// Create inserts a new class type with the fixed 60-minute duration.
func (s *ClassTypeService) Create(ctx context.Context, req CreateClassTypeRequest) (*models.ClassType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class type payload")
	}

	classType := models.ClassType{
		Name:            req.Name,
		DurationMin:     models.DefaultDurationMinutes,
		DefaultCapacity: req.DefaultCapacity,
	}
	if err := s.repo.Create(ctx, &classType); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class type name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class type")
	}
	return &classType, nil
}

// Update modifies a class type. Duration stays immutable; default-capacity
// changes recompute every dependent template's capacity transactionally.
func (s *ClassTypeService) Update(ctx context.Context, id string, req UpdateClassTypeRequest) (*models.ClassType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class type payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := models.ClassType{
		ID:              existing.ID,
		Name:            req.Name,
		DurationMin:     existing.DurationMin,
		DefaultCapacity: req.DefaultCapacity,
		CreatedAt:       existing.CreatedAt,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin class type update")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.Update(ctx, tx, &updated); err != nil {
		if database.IsUniqueViolation(err, "") {
			err = appErrors.Clone(appErrors.ErrConflict, "class type name already exists")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class type")
		return nil, err
	}

	if err = s.recomputeSchedules(ctx, tx, existing.ID, req.DefaultCapacity); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit class type update")
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, timetableCachePrefix)
	}
	return &updated, nil
}

func (s *ClassTypeService) recomputeSchedules(ctx context.Context, tx *sqlx.Tx, classTypeID string, defaultCapacity int) error {
	contexts, err := s.schedules.CapacityContextByClassType(ctx, tx, classTypeID, defaultCapacity)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dependent schedules")
	}
	for _, c := range contexts {
		capacity := c.RoomCapacity
		if c.DefaultCapacity < capacity {
			capacity = c.DefaultCapacity
		}
		if capacity <= 0 {
			return appErrors.Clone(appErrors.ErrZeroCapacity, fmt.Sprintf("schedule %s would resolve to zero capacity", c.ScheduleID))
		}
		if err := s.schedules.UpdateCapacity(ctx, tx, c.ScheduleID, capacity); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute schedule capacity")
		}
	}
	return nil
}

// Delete removes a class type. Class types referenced by templates are
// protected.
func (s *ClassTypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrReferenceInUse, "class type is referenced by schedules and cannot be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class type")
	}
	return nil
}
