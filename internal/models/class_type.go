package models

import "time"

// DefaultDurationMinutes is the fixed length of every class. The column
// exists for visibility but is not editable after creation.
const DefaultDurationMinutes = 60

// ClassType describes a kind of class (spinning, pilates, ...) with its
// default capacity ceiling.
type ClassType struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	DurationMin     int       `db:"duration_min" json:"duration_min"`
	DefaultCapacity int       `db:"default_capacity" json:"default_capacity"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Duration returns the class length as a time.Duration.
func (c ClassType) Duration() time.Duration {
	minutes := c.DurationMin
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ClassTypeFilter describes query params for listing class types.
type ClassTypeFilter struct {
	Search   string
	Page     int
	PageSize int
}
