// Package lifecycle defines the session status enumeration and the
// closed transition table that governs it. Adding a state means
// updating one table, not hunting down scattered conditionals.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status is a session lifecycle state. The string values are the wire
// representation.
type Status string

const (
	// StatusScheduled is the initial state of every session.
	StatusScheduled Status = "Scheduled"
	// StatusInProgress marks a session that has started.
	StatusInProgress Status = "In Progress"
	// StatusPaused marks a started session that is on hold.
	StatusPaused Status = "Paused"
	// StatusCompleted is terminal; completed sessions feed payment
	// aggregation.
	StatusCompleted Status = "Completed"
	// StatusCancelled is terminal; cancelled sessions never conflict
	// and never accrue payment.
	StatusCancelled Status = "Cancelled"
)

// ErrUnknownStatus indicates a value outside the status enumeration.
var ErrUnknownStatus = errors.New("lifecycle: unknown status")

// transitions is the single source of truth for legal status changes.
var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusPaused},
	StatusPaused:     {StatusInProgress, StatusCompleted},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

// InvalidTransitionError reports an illegal status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// Parse validates a wire value against the enumeration.
func Parse(value string) (Status, error) {
	status := Status(value)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, value)
	}
	return status, nil
}

// Known reports whether the value belongs to the enumeration.
func Known(status Status) bool {
	_, ok := transitions[status]
	return ok
}

// Terminal reports whether no further transition may leave the status.
func Terminal(status Status) bool {
	allowed, ok := transitions[status]
	return ok && len(allowed) == 0
}

// CanTransition reports whether from → to is a legal change.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Validate returns *InvalidTransitionError when from → to is illegal,
// including every transition attempted out of a terminal state.
func Validate(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
