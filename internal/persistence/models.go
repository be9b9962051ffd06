package persistence

import "time"

// Session is a stored tutoring session. Dates are midnight UTC; the
// interval is stored as minutes from midnight. Duration is never
// stored: it is derived from the interval on read.
type Session struct {
	ID          string
	StudentID   string
	TutorID     string
	Subject     string
	Date        time.Time
	StartMinute int
	EndMinute   int
	Status      string
	Notes       *string

	IsRecurring         bool
	RecurrenceFrequency *string
	RecurrenceEndDate   *time.Time
	RecurrenceWeekdays  []time.Weekday

	CancellationReason *string
	CancelledAt        *time.Time
	CancelledBy        *string

	CompletedAt *time.Time
	Rating      *int
	Feedback    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tutor is the rate snapshot and identity the payment engine reads.
// The hourly rate is the tutor's current rate; no history is kept.
type Tutor struct {
	ID         string
	Name       string
	Email      string
	HourlyRate float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Student is the external-entity reference target for session bookings.
type Student struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
