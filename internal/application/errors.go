package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/persistence"
)

var (
	// ErrNotFound is returned when a referenced student, tutor, or
	// session does not exist.
	ErrNotFound = errors.New("application: not found")
)

// ValidationError captures field level validation issues that callers
// can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictError reports that a requested slot overlaps an existing
// active booking of the same tutor. For a recurring batch, Date names
// the first offending instance.
type ConflictError struct {
	TutorID       string
	Date          time.Time
	WithSessionID string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("tutor %s already has a booking on %s", e.TutorID, e.Date.UTC().Format("2006-01-02"))
}

// mapRepoError translates persistence errors into the caller facing
// taxonomy at the service boundary.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	var overlap *persistence.OverlapError
	if errors.As(err, &overlap) {
		return &ConflictError{
			TutorID:       overlap.TutorID,
			Date:          overlap.Date,
			WithSessionID: overlap.BlockingSessionID,
		}
	}
	if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}

// ErrorKind maps errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return "conflict"
	}
	var tErr *lifecycle.InvalidTransitionError
	if errors.As(err, &tErr) {
		return "invalid_transition"
	}

	return "unexpected"
}
