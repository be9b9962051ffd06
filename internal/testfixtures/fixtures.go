// Package testfixtures provides deterministic builders, clocks, and a
// SQLite harness for tests across the agency packages.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/tutoring-agency/internal/application"
	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/persistence"
	"github.com/example/tutoring-agency/internal/timeslot"
)

var (
	studentCounter uint64
	tutorCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the canonical session date used by fixtures, a
// Monday at midnight UTC.
func ReferenceDate() time.Time {
	return time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
}

// ---------------------------- Student fixtures ----------------------------

// StudentFixture is a deterministic student record for application or
// persistence tests.
type StudentFixture struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StudentOption configures the generated student fixture.
type StudentOption func(*StudentFixture)

// NewStudentFixture returns a deterministic student fixture with optional overrides.
func NewStudentFixture(opts ...StudentOption) StudentFixture {
	idx := atomic.AddUint64(&studentCounter, 1)
	id := fmt.Sprintf("student-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := StudentFixture{
		ID:        id,
		Name:      fmt.Sprintf("Student %03d", idx),
		Email:     fmt.Sprintf("%s@example.com", id),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStudentID overrides the generated student ID.
func WithStudentID(id string) StudentOption {
	return func(f *StudentFixture) {
		f.ID = id
	}
}

// Record materialises the fixture as a persistence row.
func (f StudentFixture) Record() persistence.Student {
	return persistence.Student{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Model materialises the fixture as an application model.
func (f StudentFixture) Model() application.Student {
	return application.Student{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Tutor fixtures -----------------------------

// TutorFixture is a deterministic tutor record with an hourly rate.
type TutorFixture struct {
	ID         string
	Name       string
	Email      string
	HourlyRate float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TutorOption configures the generated tutor fixture.
type TutorOption func(*TutorFixture)

// NewTutorFixture returns a deterministic tutor fixture with optional overrides.
func NewTutorFixture(opts ...TutorOption) TutorFixture {
	idx := atomic.AddUint64(&tutorCounter, 1)
	id := fmt.Sprintf("tutor-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := TutorFixture{
		ID:         id,
		Name:       fmt.Sprintf("Tutor %03d", idx),
		Email:      fmt.Sprintf("%s@example.com", id),
		HourlyRate: 20,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTutorID overrides the generated tutor ID.
func WithTutorID(id string) TutorOption {
	return func(f *TutorFixture) {
		f.ID = id
	}
}

// WithHourlyRate overrides the generated hourly rate.
func WithHourlyRate(rate float64) TutorOption {
	return func(f *TutorFixture) {
		f.HourlyRate = rate
	}
}

// Record materialises the fixture as a persistence row.
func (f TutorFixture) Record() persistence.Tutor {
	return persistence.Tutor{
		ID:         f.ID,
		Name:       f.Name,
		Email:      f.Email,
		HourlyRate: f.HourlyRate,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Model materialises the fixture as an application model.
func (f TutorFixture) Model() application.Tutor {
	return application.Tutor{
		ID:         f.ID,
		Name:       f.Name,
		Email:      f.Email,
		HourlyRate: f.HourlyRate,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture is a deterministic session record. The defaults book a
// one hour slot on the reference date, shifted by a day per fixture so
// consecutive fixtures never collide.
type SessionFixture struct {
	ID        string
	StudentID string
	TutorID   string
	Subject   string
	Date      time.Time
	StartTime string
	EndTime   string
	Status    lifecycle.Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		StudentID: "student-001",
		TutorID:   "tutor-001",
		Subject:   "Mathematics",
		Date:      ReferenceDate().AddDate(0, 0, int(idx)),
		StartTime: "10:00",
		EndTime:   "11:00",
		Status:    lifecycle.StatusScheduled,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithParticipants overrides the student and tutor references.
func WithParticipants(studentID, tutorID string) SessionOption {
	return func(f *SessionFixture) {
		f.StudentID = studentID
		f.TutorID = tutorID
	}
}

// WithSlot overrides the date and time slot.
func WithSlot(date time.Time, startTime, endTime string) SessionOption {
	return func(f *SessionFixture) {
		f.Date = date
		f.StartTime = startTime
		f.EndTime = endTime
	}
}

// WithStatus overrides the lifecycle status.
func WithStatus(status lifecycle.Status) SessionOption {
	return func(f *SessionFixture) {
		f.Status = status
	}
}

// Interval parses the fixture time slot. Fixture times are always
// well-formed, so parse failures panic rather than returning an error.
func (f SessionFixture) Interval() timeslot.Interval {
	interval, err := timeslot.ParseInterval(f.StartTime, f.EndTime)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: invalid fixture slot %s-%s: %v", f.StartTime, f.EndTime, err))
	}
	return interval
}

// Record materialises the fixture as a persistence row.
func (f SessionFixture) Record() persistence.Session {
	interval := f.Interval()
	return persistence.Session{
		ID:          f.ID,
		StudentID:   f.StudentID,
		TutorID:     f.TutorID,
		Subject:     f.Subject,
		Date:        timeslot.NormalizeDate(f.Date),
		StartMinute: interval.StartMinute,
		EndMinute:   interval.EndMinute,
		Status:      string(f.Status),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Model materialises the fixture as an application model.
func (f SessionFixture) Model() application.Session {
	return application.Session{
		ID:        f.ID,
		StudentID: f.StudentID,
		TutorID:   f.TutorID,
		Subject:   f.Subject,
		Date:      timeslot.NormalizeDate(f.Date),
		Interval:  f.Interval(),
		Status:    f.Status,
		Notes:     f.Notes,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input materialises the fixture as the caller facing creation input.
func (f SessionFixture) Input() application.SessionInput {
	return application.SessionInput{
		StudentID: f.StudentID,
		TutorID:   f.TutorID,
		Subject:   f.Subject,
		Date:      timeslot.FormatDate(f.Date),
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Notes:     f.Notes,
	}
}
