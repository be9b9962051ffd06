package application

import (
	"time"

	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/recurrence"
	"github.com/example/tutoring-agency/internal/timeslot"
)

// Session is one scheduled tutoring occurrence between a student and a
// tutor. Student and tutor records are owned by external entity stores;
// the session holds them by reference only.
type Session struct {
	ID        string
	StudentID string
	TutorID   string
	Subject   string
	Date      time.Time
	Interval  timeslot.Interval
	Status    lifecycle.Status
	Notes     string

	IsRecurring bool
	Pattern     *recurrence.Pattern

	Cancellation *Cancellation

	CompletedAt *time.Time
	Rating      *int
	Feedback    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationHours is the session length derived from its interval. The
// value is recomputed on every call so it can never drift from the
// interval after a reschedule.
func (s Session) DurationHours() float64 {
	return s.Interval.DurationHours()
}

// Active reports whether the session participates in conflict
// detection, i.e. it is not cancelled.
func (s Session) Active() bool {
	return s.Status != lifecycle.StatusCancelled
}

// Cancellation records why, when, and by whom a session was cancelled.
// It is present exactly when the session status is Cancelled.
type Cancellation struct {
	Reason string
	At     time.Time
	By     string
}

// SessionInput captures caller provided fields for a new session. Date
// and time values arrive in wire form and are validated on creation.
type SessionInput struct {
	StudentID string
	TutorID   string
	Subject   string
	Date      string
	StartTime string
	EndTime   string
	Notes     string
}

// RecurrenceInput captures the caller provided recurrence rule.
type RecurrenceInput struct {
	Frequency  string
	EndDate    string
	DaysOfWeek []int
}

// StatusChange wraps a requested lifecycle transition. Reason is
// required when the target status is Cancelled; rating and feedback are
// only accepted when the target status is Completed.
type StatusChange struct {
	SessionID string
	Target    lifecycle.Status
	Actor     string
	Reason    string
	Rating    *int
	Feedback  string
}

// RescheduleInput carries the new slot for an existing session. Empty
// fields keep the current value.
type RescheduleInput struct {
	SessionID string
	Date      string
	StartTime string
	EndTime   string
}

// SessionQuery filters session listings. Date bounds are inclusive.
type SessionQuery struct {
	TutorID   string
	StudentID string
	Status    lifecycle.Status
	DateFrom  string
	DateTo    string
}

// DateRange is an inclusive calendar-date range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// PaymentQuery selects the completed sessions to aggregate. TutorID is
// optional; when present the result contains exactly one entry for that
// tutor, zero-valued if nothing matched.
type PaymentQuery struct {
	Range   DateRange
	TutorID string
}

// TutorPayment is the per-tutor aggregate of completed sessions over a
// date range. Sessions are ordered chronologically (date, then start
// time). TotalPayment is hours times the tutor's current hourly rate;
// it is kept at full precision and rounded only at the wire boundary.
type TutorPayment struct {
	Tutor        Tutor
	TotalHours   float64
	TotalPayment float64
	Sessions     []Session
}

// Tutor is the rate snapshot read at aggregation time.
type Tutor struct {
	ID         string
	Name       string
	Email      string
	HourlyRate float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Student is the reference record session bookings point at.
type Student struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
