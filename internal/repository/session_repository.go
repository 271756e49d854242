package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
)

const sessionColumns = "id, schedule_id, start_at, end_at, capacity, status, created_at, updated_at"

// SessionRepository provides persistence for materialized class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// InsertIfAbsent atomically inserts the session keyed on
// (schedule_id, start_at) or returns the existing row. The unique constraint
// is the only concurrency mechanism: losers of a race see no returned row
// and re-fetch the winner's insert by key.
func (r *SessionRepository) InsertIfAbsent(ctx context.Context, session models.ClassSession) (*models.ClassSession, bool, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO class_sessions (id, schedule_id, start_at, end_at, capacity, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (schedule_id, start_at) DO NOTHING
RETURNING %s`, sessionColumns)

	var inserted models.ClassSession
	err := r.db.QueryRowxContext(ctx, query,
		session.ID,
		session.ScheduleID,
		session.StartAt,
		session.EndAt,
		session.Capacity,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	).StructScan(&inserted)
	if err == nil {
		return &inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert session: %w", err)
	}

	existing, err := r.FindByKey(ctx, session.ScheduleID, session.StartAt)
	if err != nil {
		return nil, false, fmt.Errorf("fetch session after conflict: %w", err)
	}
	return existing, false, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions WHERE id = $1", sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByKey loads a session by its materialization key.
func (r *SessionRepository) FindByKey(ctx context.Context, scheduleID string, startAt time.Time) (*models.ClassSession, error) {
	query := fmt.Sprintf("SELECT %s FROM class_sessions WHERE schedule_id = $1 AND start_at = $2", sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, scheduleID, startAt); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions filtered by schedule, range and status, ordered by
// start instant.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.ClassSession, int, error) {
	base := "FROM class_sessions WHERE 1=1"
	var args []interface{}

	if filter.ScheduleID != "" {
		base += fmt.Sprintf(" AND schedule_id = $%d", len(args)+1)
		args = append(args, filter.ScheduleID)
	}
	if filter.From != nil {
		base += fmt.Sprintf(" AND start_at >= $%d", len(args)+1)
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		base += fmt.Sprintf(" AND start_at < $%d", len(args)+1)
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_at ASC", sessionColumns, base)
	if !filter.Unpaginated {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size <= 0 || size > 200 {
			size = 50
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// UpdateStatus rewrites the lifecycle status of a session.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE class_sessions SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// Delete removes a session by id. Sessions are leaves, so deletion is free.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
