package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/recurrence"
	"github.com/example/tutoring-agency/internal/timeslot"
)

// SessionRepository captures the persistence interactions needed by the
// session service. Creation and rescheduling are conflict-checked
// atomically by the implementation; a collision surfaces as an error
// that unwraps to persistence.ErrConflict.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	CreateSessions(ctx context.Context, sessions []Session) ([]Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSessionSchedule(ctx context.Context, id string, date time.Time, interval timeslot.Interval) (Session, error)
	UpdateSessionState(ctx context.Context, session Session) (Session, error)
	ListSessions(ctx context.Context, filter SessionListFilter) ([]Session, error)
}

// SessionListFilter narrows queries issued to the session repository.
type SessionListFilter struct {
	TutorID   string
	StudentID string
	Status    lifecycle.Status
	DateFrom  *time.Time
	DateTo    *time.Time
}

// StudentDirectory exposes student reference lookups.
type StudentDirectory interface {
	StudentExists(ctx context.Context, id string) (bool, error)
}

// TutorDirectory exposes tutor reference and rate lookups.
type TutorDirectory interface {
	GetTutor(ctx context.Context, id string) (Tutor, error)
}

// SessionService orchestrates validation, conflict handling, and
// lifecycle transitions for tutoring sessions.
type SessionService struct {
	sessions    SessionRepository
	students    StudentDirectory
	tutors      TutorDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, students StudentDirectory, tutors TutorDirectory, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, students, tutors, idGenerator, now, nil)
}

// NewSessionServiceWithLogger wires dependencies plus a base logger.
func NewSessionServiceWithLogger(sessions SessionRepository, students StudentDirectory, tutors TutorDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		students:    students,
		tutors:      tutors,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateSession validates a single booking, verifies its references,
// and persists it. The conflict check and the insert happen atomically
// in the repository; an overlap fails the call with *ConflictError.
func (s *SessionService) CreateSession(ctx context.Context, input SessionInput) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	vErr := &ValidationError{}
	date, interval := validateSessionCore(input, vErr)
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	if err := s.ensureReferencesExist(ctx, input.StudentID, input.TutorID); err != nil {
		return Session{}, err
	}

	now := s.now()
	session := Session{
		ID:        s.idGenerator(),
		StudentID: input.StudentID,
		TutorID:   input.TutorID,
		Subject:   strings.TrimSpace(input.Subject),
		Date:      date,
		Interval:  interval,
		Status:    lifecycle.StatusScheduled,
		Notes:     strings.TrimSpace(input.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	persisted, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "session", "create").InfoContext(ctx, "session created",
		"session_id", persisted.ID, "tutor_id", persisted.TutorID, "date", timeslot.FormatDate(persisted.Date))
	return persisted, nil
}

// CreateRecurringSeries expands the template over the recurrence rule
// and persists every instance as one all-or-nothing batch: if any
// generated instance would conflict, nothing is persisted and the
// returned *ConflictError names the first offending date.
func (s *SessionService) CreateRecurringSeries(ctx context.Context, input SessionInput, rule RecurrenceInput) ([]Session, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	vErr := &ValidationError{}
	seriesStart, interval := validateSessionCore(input, vErr)
	pattern := validateRecurrenceRule(rule, seriesStart, vErr)
	if vErr.HasErrors() {
		return nil, vErr
	}

	dates, err := recurrence.Expand(seriesStart, pattern)
	if err != nil {
		vErr.Add("recurrence", err.Error())
		return nil, vErr
	}
	if len(dates) == 0 {
		vErr.Add("recurrence", "pattern produces no sessions")
		return nil, vErr
	}

	if err := s.ensureReferencesExist(ctx, input.StudentID, input.TutorID); err != nil {
		return nil, err
	}

	now := s.now()
	sessions := make([]Session, 0, len(dates))
	for _, date := range dates {
		patternCopy := pattern
		sessions = append(sessions, Session{
			ID:          s.idGenerator(),
			StudentID:   input.StudentID,
			TutorID:     input.TutorID,
			Subject:     strings.TrimSpace(input.Subject),
			Date:        date,
			Interval:    interval,
			Status:      lifecycle.StatusScheduled,
			Notes:       strings.TrimSpace(input.Notes),
			IsRecurring: true,
			Pattern:     &patternCopy,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	persisted, err := s.sessions.CreateSessions(ctx, sessions)
	if err != nil {
		return nil, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "session", "create_series").InfoContext(ctx, "recurring series created",
		"tutor_id", input.TutorID, "instances", len(persisted))
	return persisted, nil
}

// UpdateSessionStatus applies a lifecycle transition and its side
// effects: entering Cancelled requires and stores the cancellation
// record, entering Completed stamps the completion time and accepts an
// optional rating and feedback. All other fields are untouched.
func (s *SessionService) UpdateSessionStatus(ctx context.Context, change StatusChange) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, change.SessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	if !lifecycle.Known(change.Target) {
		vErr := &ValidationError{}
		vErr.Add("status", fmt.Sprintf("unknown status %q", string(change.Target)))
		return Session{}, vErr
	}
	if err := lifecycle.Validate(session.Status, change.Target); err != nil {
		return Session{}, err
	}

	switch change.Target {
	case lifecycle.StatusCancelled:
		reason := strings.TrimSpace(change.Reason)
		if reason == "" {
			vErr := &ValidationError{}
			vErr.Add("reason", "cancellation reason is required")
			return Session{}, vErr
		}
		session.Cancellation = &Cancellation{
			Reason: reason,
			At:     s.now(),
			By:     change.Actor,
		}
	case lifecycle.StatusCompleted:
		completedAt := s.now()
		session.CompletedAt = &completedAt
		if change.Rating != nil {
			if *change.Rating < 1 || *change.Rating > 5 {
				vErr := &ValidationError{}
				vErr.Add("rating", "rating must be between 1 and 5")
				return Session{}, vErr
			}
			rating := *change.Rating
			session.Rating = &rating
		}
		if feedback := strings.TrimSpace(change.Feedback); feedback != "" {
			session.Feedback = feedback
		}
	}
	session.Status = change.Target
	session.UpdatedAt = s.now()

	persisted, err := s.sessions.UpdateSessionState(ctx, session)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "session", "update_status").InfoContext(ctx, "session status updated",
		"session_id", persisted.ID, "status", string(persisted.Status))
	return persisted, nil
}

// CancelSession is shorthand for a transition into Cancelled.
func (s *SessionService) CancelSession(ctx context.Context, sessionID, actor, reason string) (Session, error) {
	return s.UpdateSessionStatus(ctx, StatusChange{
		SessionID: sessionID,
		Target:    lifecycle.StatusCancelled,
		Actor:     actor,
		Reason:    reason,
	})
}

// RescheduleSession moves a session to a new date and/or interval,
// re-running conflict detection with the session itself excluded.
// Fields left empty keep their current values.
func (s *SessionService) RescheduleSession(ctx context.Context, input RescheduleInput) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	vErr := &ValidationError{}
	if lifecycle.Terminal(session.Status) {
		vErr.Add("status", fmt.Sprintf("a %s session cannot be rescheduled", strings.ToLower(string(session.Status))))
		return Session{}, vErr
	}

	date := session.Date
	if strings.TrimSpace(input.Date) != "" {
		parsed, err := timeslot.ParseDate(strings.TrimSpace(input.Date))
		if err != nil {
			vErr.Add("date", "date must be YYYY-MM-DD")
		} else {
			date = parsed
		}
	}

	start := session.Interval.Start()
	end := session.Interval.End()
	if strings.TrimSpace(input.StartTime) != "" {
		start = strings.TrimSpace(input.StartTime)
	}
	if strings.TrimSpace(input.EndTime) != "" {
		end = strings.TrimSpace(input.EndTime)
	}
	interval, err := timeslot.ParseInterval(start, end)
	if err != nil {
		vErr.Add("time", err.Error())
	}
	if vErr.HasErrors() {
		return Session{}, vErr
	}

	persisted, err := s.sessions.UpdateSessionSchedule(ctx, session.ID, date, interval)
	if err != nil {
		return Session{}, mapRepoError(err)
	}

	serviceLogger(ctx, s.logger, "session", "reschedule").InfoContext(ctx, "session rescheduled",
		"session_id", persisted.ID, "date", timeslot.FormatDate(persisted.Date))
	return persisted, nil
}

// GetSession retrieves one session by ID.
func (s *SessionService) GetSession(ctx context.Context, id string) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("session repository not configured")
	}
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	return session, nil
}

// ListSessions enumerates sessions matching the query, ordered by date
// then start time.
func (s *SessionService) ListSessions(ctx context.Context, query SessionQuery) ([]Session, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	vErr := &ValidationError{}
	filter := SessionListFilter{
		TutorID:   strings.TrimSpace(query.TutorID),
		StudentID: strings.TrimSpace(query.StudentID),
	}
	if query.Status != "" {
		if !lifecycle.Known(query.Status) {
			vErr.Add("status", fmt.Sprintf("unknown status %q", string(query.Status)))
		} else {
			filter.Status = query.Status
		}
	}
	if strings.TrimSpace(query.DateFrom) != "" {
		from, err := timeslot.ParseDate(strings.TrimSpace(query.DateFrom))
		if err != nil {
			vErr.Add("start_date", "date must be YYYY-MM-DD")
		} else {
			filter.DateFrom = &from
		}
	}
	if strings.TrimSpace(query.DateTo) != "" {
		to, err := timeslot.ParseDate(strings.TrimSpace(query.DateTo))
		if err != nil {
			vErr.Add("end_date", "date must be YYYY-MM-DD")
		} else {
			filter.DateTo = &to
		}
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		vErr.Add("date_range", "end date must not precede start date")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	sessions, err := s.sessions.ListSessions(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return sessions, nil
}

func (s *SessionService) ensureReferencesExist(ctx context.Context, studentID, tutorID string) error {
	if s.students != nil {
		exists, err := s.students.StudentExists(ctx, studentID)
		if err != nil {
			return mapRepoError(err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	if s.tutors != nil {
		if _, err := s.tutors.GetTutor(ctx, tutorID); err != nil {
			return mapRepoError(err)
		}
	}
	return nil
}

// validateSessionCore checks required fields and wire formats, and
// returns the parsed date and interval when valid.
func validateSessionCore(input SessionInput, vErr *ValidationError) (time.Time, timeslot.Interval) {
	if strings.TrimSpace(input.StudentID) == "" {
		vErr.Add("student", "student is required")
	}
	if strings.TrimSpace(input.TutorID) == "" {
		vErr.Add("tutor", "tutor is required")
	}
	if strings.TrimSpace(input.Subject) == "" {
		vErr.Add("subject", "subject is required")
	}

	var date time.Time
	if strings.TrimSpace(input.Date) == "" {
		vErr.Add("date", "date is required")
	} else {
		parsed, err := timeslot.ParseDate(strings.TrimSpace(input.Date))
		if err != nil {
			vErr.Add("date", "date must be YYYY-MM-DD")
		} else {
			date = parsed
		}
	}

	var interval timeslot.Interval
	switch {
	case strings.TrimSpace(input.StartTime) == "":
		vErr.Add("start_time", "start time is required")
	case strings.TrimSpace(input.EndTime) == "":
		vErr.Add("end_time", "end time is required")
	default:
		parsed, err := timeslot.ParseInterval(strings.TrimSpace(input.StartTime), strings.TrimSpace(input.EndTime))
		if err != nil {
			vErr.Add("time", err.Error())
		} else {
			interval = parsed
		}
	}

	return date, interval
}

func validateRecurrenceRule(rule RecurrenceInput, seriesStart time.Time, vErr *ValidationError) recurrence.Pattern {
	var pattern recurrence.Pattern

	frequency, err := recurrence.ParseFrequency(strings.TrimSpace(rule.Frequency))
	if err != nil {
		vErr.Add("frequency", "frequency must be weekly or biweekly")
	}
	pattern.Frequency = frequency

	if strings.TrimSpace(rule.EndDate) == "" {
		vErr.Add("recurrence_end_date", "recurrence end date is required")
	} else {
		endDate, err := timeslot.ParseDate(strings.TrimSpace(rule.EndDate))
		if err != nil {
			vErr.Add("recurrence_end_date", "date must be YYYY-MM-DD")
		} else {
			pattern.EndDate = endDate
		}
	}

	if len(rule.DaysOfWeek) == 0 {
		vErr.Add("days_of_week", "at least one weekday is required")
	}
	for _, day := range rule.DaysOfWeek {
		if day < 0 || day > 6 {
			vErr.Add("days_of_week", "weekdays must be between 0 (Sunday) and 6 (Saturday)")
			break
		}
		pattern.Weekdays = append(pattern.Weekdays, time.Weekday(day))
	}

	if !seriesStart.IsZero() && !pattern.EndDate.IsZero() && pattern.EndDate.Before(seriesStart) {
		vErr.Add("recurrence_end_date", "recurrence end date must not precede the first session date")
	}

	return pattern
}
