// Package scheduler holds the pure booking-conflict predicate used by
// the session engine. It has no persistence or clock dependencies and
// is safe to call repeatedly.
package scheduler

import (
	"time"

	"github.com/example/tutoring-agency/internal/timeslot"
)

// Booking is the projection of a session the detector compares against.
type Booking struct {
	SessionID string
	TutorID   string
	Date      time.Time
	Interval  timeslot.Interval
	Cancelled bool
}

// FindConflict returns the first existing booking that collides with
// the candidate, or nil when the slot is free.
//
// Two bookings conflict when they belong to the same tutor, fall on the
// same calendar date, and their intervals overlap under the half-open
// test: back-to-back bookings never conflict. Cancelled bookings are
// skipped, as is the booking identified by excludeSessionID (used when
// a session is rescheduled against itself).
func FindConflict(existing []Booking, candidate Booking, excludeSessionID string) *Booking {
	for i := range existing {
		other := &existing[i]
		if other.Cancelled {
			continue
		}
		if excludeSessionID != "" && other.SessionID == excludeSessionID {
			continue
		}
		if other.TutorID != candidate.TutorID {
			continue
		}
		if !timeslot.SameDay(other.Date, candidate.Date) {
			continue
		}
		if other.Interval.Overlaps(candidate.Interval) {
			return other
		}
	}
	return nil
}

// HasConflict reports whether any existing active booking collides with
// the candidate.
func HasConflict(existing []Booking, candidate Booking, excludeSessionID string) bool {
	return FindConflict(existing, candidate, excludeSessionID) != nil
}
