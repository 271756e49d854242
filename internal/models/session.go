package models

import "time"

// SessionStatus is the lifecycle state of a materialized session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCancelled SessionStatus = "cancelled"
)

// ClassSession is one dated occurrence of a ClassSchedule. Capacity is a
// snapshot taken from the template at creation and never recomputed.
type ClassSession struct {
	ID         string        `db:"id" json:"id"`
	ScheduleID string        `db:"schedule_id" json:"schedule_id"`
	StartAt    time.Time     `db:"start_at" json:"start_at"`
	EndAt      time.Time     `db:"end_at" json:"end_at"`
	Capacity   int           `db:"capacity" json:"capacity"`
	Status     SessionStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionFilter describes query params for listing sessions. Unpaginated
// disables LIMIT/OFFSET so exports see the whole window.
type SessionFilter struct {
	ScheduleID  string
	From        *time.Time
	To          *time.Time
	Status      SessionStatus
	Page        int
	PageSize    int
	Unpaginated bool
}
