package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
)

const scheduleColumns = "id, room_id, class_type_id, weekday, start_time, capacity, active, created_at, updated_at"

// ScheduleRepository provides persistence for weekly class schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns schedules with optional filtering, ordered by weekday and
// start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ClassSchedule, int, error) {
	base := "FROM class_schedules WHERE 1=1"
	var args []interface{}

	if filter.RoomID != "" {
		base += fmt.Sprintf(" AND room_id = $%d", len(args)+1)
		args = append(args, filter.RoomID)
	}
	if filter.ClassTypeID != "" {
		base += fmt.Sprintf(" AND class_type_id = $%d", len(args)+1)
		args = append(args, filter.ClassTypeID)
	}
	if filter.Weekday != nil {
		base += fmt.Sprintf(" AND weekday = $%d", len(args)+1)
		args = append(args, *filter.Weekday)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY weekday ASC, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// ListActive returns every active schedule, for the background materializer.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]models.ClassSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM class_schedules WHERE active = TRUE ORDER BY weekday ASC, start_time ASC", scheduleColumns)
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	query := fmt.Sprintf("SELECT %s FROM class_schedules WHERE id = $1", scheduleColumns)
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create stores a new schedule. A unique-constraint violation on
// (room_id, weekday, start_time) bubbles up untouched for the service layer
// to classify.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO class_schedules (id, room_id, class_type_id, weekday, start_time, capacity, active, created_at, updated_at) VALUES (:id, :room_id, :class_type_id, :weekday, :start_time, :capacity, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// Update modifies a schedule record.
func (r *ScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.ClassSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET room_id = :room_id, class_type_id = :class_type_id, weekday = :weekday, start_time = :start_time, capacity = :capacity, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// UpdateCapacity rewrites the derived capacity of a single schedule.
func (r *ScheduleRepository) UpdateCapacity(ctx context.Context, exec sqlx.ExtContext, id string, capacity int) error {
	const query = `UPDATE class_schedules SET capacity = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, capacity, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule capacity: %w", err)
	}
	return nil
}

// SetActive toggles a schedule's active flag.
func (r *ScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE class_schedules SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set schedule active: %w", err)
	}
	return nil
}

// CapacityContextByRoom returns, for every schedule in the room, the inputs
// needed to recompute its derived capacity. Rows are locked for the duration
// of the surrounding transaction.
func (r *ScheduleRepository) CapacityContextByRoom(ctx context.Context, exec sqlx.ExtContext, roomID string, roomCapacity int) ([]models.ScheduleCapacityContext, error) {
	const query = `SELECT s.id AS schedule_id, $2::int AS room_capacity, ct.default_capacity AS default_capacity
FROM class_schedules s
JOIN class_types ct ON ct.id = s.class_type_id
WHERE s.room_id = $1
FOR UPDATE OF s`
	var rows []models.ScheduleCapacityContext
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, roomID, roomCapacity); err != nil {
		return nil, fmt.Errorf("capacity context by room: %w", err)
	}
	return rows, nil
}

// CapacityContextByClassType mirrors CapacityContextByRoom for class-type
// default-capacity edits.
func (r *ScheduleRepository) CapacityContextByClassType(ctx context.Context, exec sqlx.ExtContext, classTypeID string, defaultCapacity int) ([]models.ScheduleCapacityContext, error) {
	const query = `SELECT s.id AS schedule_id, rm.capacity AS room_capacity, $2::int AS default_capacity
FROM class_schedules s
JOIN rooms rm ON rm.id = s.room_id
WHERE s.class_type_id = $1
FOR UPDATE OF s`
	var rows []models.ScheduleCapacityContext
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, classTypeID, defaultCapacity); err != nil {
		return nil, fmt.Errorf("capacity context by class type: %w", err)
	}
	return rows, nil
}

// Delete removes a schedule by id. Sessions referencing it surface as a
// foreign-key violation.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
