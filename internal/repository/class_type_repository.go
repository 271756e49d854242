package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
)

// ClassTypeRepository provides persistence for class types.
type ClassTypeRepository struct {
	db *sqlx.DB
}

// NewClassTypeRepository creates a new class type repository.
func NewClassTypeRepository(db *sqlx.DB) *ClassTypeRepository {
	return &ClassTypeRepository{db: db}
}

func (r *ClassTypeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns class types with optional name search and pagination.
func (r *ClassTypeRepository) List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, int, error) {
	base := "FROM class_types WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND name ILIKE $%d", len(args)+1)
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT id, name, duration_min, default_capacity, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base, size, offset)
	var types []models.ClassType
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class types: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class types: %w", err)
	}

	return types, total, nil
}

// FindByID loads a class type by id.
func (r *ClassTypeRepository) FindByID(ctx context.Context, id string) (*models.ClassType, error) {
	const query = `SELECT id, name, duration_min, default_capacity, created_at, updated_at FROM class_types WHERE id = $1`
	var classType models.ClassType
	if err := r.db.GetContext(ctx, &classType, query, id); err != nil {
		return nil, err
	}
	return &classType, nil
}

// Create stores a new class type. Duration is fixed at creation.
func (r *ClassTypeRepository) Create(ctx context.Context, classType *models.ClassType) error {
	if classType.ID == "" {
		classType.ID = uuid.NewString()
	}
	if classType.DurationMin <= 0 {
		classType.DurationMin = models.DefaultDurationMinutes
	}
	now := time.Now().UTC()
	if classType.CreatedAt.IsZero() {
		classType.CreatedAt = now
	}
	classType.UpdatedAt = now

	const query = `INSERT INTO class_types (id, name, duration_min, default_capacity, created_at, updated_at) VALUES (:id, :name, :duration_min, :default_capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classType); err != nil {
		return fmt.Errorf("create class type: %w", err)
	}
	return nil
}

// Update modifies name and default capacity. duration_min is immutable
// after creation and absent from the statement.
func (r *ClassTypeRepository) Update(ctx context.Context, exec sqlx.ExtContext, classType *models.ClassType) error {
	classType.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_types SET name = :name, default_capacity = :default_capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, classType); err != nil {
		return fmt.Errorf("update class type: %w", err)
	}
	return nil
}

// Delete removes a class type by id.
func (r *ClassTypeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_types WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class type: %w", err)
	}
	return nil
}
