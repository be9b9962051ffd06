package persistence

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConflict is returned when a write would produce two active
	// overlapping sessions for the same tutor.
	ErrConflict = errors.New("persistence: booking conflict")
	// ErrConstraintViolation is returned when a check constraint fails.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)

// OverlapError reports the first booking collision found while
// persisting a session or a recurring batch. It unwraps to ErrConflict.
type OverlapError struct {
	TutorID           string
	Date              time.Time
	BlockingSessionID string
}

// Error implements the error interface.
func (e *OverlapError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("persistence: tutor %s already booked on %s (session %s)",
		e.TutorID, e.Date.UTC().Format("2006-01-02"), e.BlockingSessionID)
}

// Unwrap lets callers match the error with errors.Is(err, ErrConflict).
func (e *OverlapError) Unwrap() error { return ErrConflict }
