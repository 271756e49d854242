package models

import "time"

// Weekday bounds. 0 is Monday through 6 Sunday, matching the timetable the
// front end renders.
const (
	WeekdayMonday = 0
	WeekdaySunday = 6
)

// MondayZeroWeekday converts Go's Sunday-zero weekday to the Monday-zero
// convention used across the schedule tables.
func MondayZeroWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ClassSchedule is a weekly recurring template: a class type in a room on a
// fixed weekday and start time. Capacity is derived from the room and class
// type on every write, never set by callers.
type ClassSchedule struct {
	ID          string    `db:"id" json:"id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	ClassTypeID string    `db:"class_type_id" json:"class_type_id"`
	Weekday     int       `db:"weekday" json:"weekday"`
	StartTime   string    `db:"start_time" json:"start_time"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleCapacityContext carries the inputs needed to recompute one
// template's derived capacity after a room or class-type edit.
type ScheduleCapacityContext struct {
	ScheduleID      string `db:"schedule_id"`
	RoomCapacity    int    `db:"room_capacity"`
	DefaultCapacity int    `db:"default_capacity"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	RoomID      string
	ClassTypeID string
	Weekday     *int
	Active      *bool
	Page        int
	PageSize    int
}
