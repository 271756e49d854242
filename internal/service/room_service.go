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

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, exec sqlx.ExtContext, room *models.Room) error
	Delete(ctx context.Context, id string) error
}

type roomScheduleCapacities interface {
	CapacityContextByRoom(ctx context.Context, exec sqlx.ExtContext, roomID string, roomCapacity int) ([]models.ScheduleCapacityContext, error)
	UpdateCapacity(ctx context.Context, exec sqlx.ExtContext, id string, capacity int) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CreateRoomRequest describes payload for creating a room.
type CreateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

// UpdateRoomRequest updates an existing room.
type UpdateRoomRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}

// RoomService manages rooms. Capacity edits cascade into every dependent
// template's derived capacity inside one transaction.
type RoomService struct {
	repo      roomRepository
	schedules roomScheduleCapacities
	cache     timetableCache
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomService instantiates RoomService.
func NewRoomService(repo roomRepository, schedules roomScheduleCapacities, cache timetableCache, tx txProvider, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{repo: repo, schedules: schedules, cache: cache, tx: tx, validator: validate, logger: logger}
}

// List returns rooms with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create inserts a new room.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := models.Room{Name: req.Name, Capacity: req.Capacity}
	if err := s.repo.Create(ctx, &room); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return &room, nil
}

// Update modifies a room. When capacity changes, every template in the room
// gets its derived capacity recomputed in the same transaction; any template
// that would land on zero aborts the whole update.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := models.Room{ID: existing.ID, Name: req.Name, Capacity: req.Capacity, CreatedAt: existing.CreatedAt}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin room update")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.Update(ctx, tx, &updated); err != nil {
		if database.IsUniqueViolation(err, "") {
			err = appErrors.Clone(appErrors.ErrConflict, "room name already exists")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
		return nil, err
	}

	if err = s.recomputeSchedules(ctx, tx, existing.ID, req.Capacity); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit room update")
		return nil, err
	}

	if s.cache != nil {
		s.cache.InvalidatePrefix(ctx, timetableCachePrefix)
	}
	return &updated, nil
}

func (s *RoomService) recomputeSchedules(ctx context.Context, tx *sqlx.Tx, roomID string, roomCapacity int) error {
	contexts, err := s.schedules.CapacityContextByRoom(ctx, tx, roomID, roomCapacity)
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

// Delete removes a room. Rooms referenced by templates are protected.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if database.IsForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrReferenceInUse, "room is referenced by schedules and cannot be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}
