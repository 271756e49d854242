package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound          = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict          = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation        = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal          = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrZeroCapacity      = New("ZERO_CAPACITY", http.StatusBadRequest, "effective capacity cannot be zero")
	ErrInvalidWeekday    = New("INVALID_WEEKDAY", http.StatusBadRequest, "weekday must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidTime       = New("INVALID_TIME", http.StatusBadRequest, "start time must be HH:MM")
	ErrInvalidTimezone   = New("INVALID_TIMEZONE", http.StatusBadRequest, "unknown timezone")
	ErrInvalidInterval   = New("INVALID_INTERVAL", http.StatusBadRequest, "session end must be after its start")
	ErrDuplicateSchedule = New("DUPLICATE_SCHEDULE", http.StatusConflict, "a schedule already exists for this room, weekday and start time")
	ErrReferenceInUse    = New("REFERENCE_IN_USE", http.StatusConflict, "resource is referenced and cannot be deleted")
	ErrInactiveSchedule  = New("INACTIVE_SCHEDULE", http.StatusConflict, "inactive schedules do not materialize sessions")
	ErrAlreadyCancelled  = New("ALREADY_CANCELLED", http.StatusConflict, "session is already cancelled")
	ErrCacheMiss         = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
