package persistence

import (
	"context"
	"time"
)

// SessionFilter narrows session queries. Date bounds are inclusive
// calendar dates; empty string fields are ignored.
type SessionFilter struct {
	TutorID   string
	StudentID string
	Status    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// SessionScheduleChange carries the fields a reschedule may replace.
type SessionScheduleChange struct {
	Date        time.Time
	StartMinute int
	EndMinute   int
}

// SessionRepository stores tutoring sessions.
//
// CreateSession, CreateSessions, and UpdateSessionSchedule must run
// their overlap scan and the write inside one transaction so that
// concurrent writers cannot both pass the check: a collision surfaces
// as *OverlapError and leaves previously committed state untouched.
// CreateSessions is all-or-nothing across the batch.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	CreateSessions(ctx context.Context, sessions []Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSessionSchedule(ctx context.Context, id string, change SessionScheduleChange) error
	UpdateSessionState(ctx context.Context, session Session) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}

// TutorRepository stores tutor identity and the current hourly rate.
type TutorRepository interface {
	CreateTutor(ctx context.Context, tutor Tutor) error
	GetTutor(ctx context.Context, id string) (Tutor, error)
	UpdateHourlyRate(ctx context.Context, id string, rate float64) error
	ListTutors(ctx context.Context) ([]Tutor, error)
}

// StudentRepository stores student reference records.
type StudentRepository interface {
	CreateStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
}
