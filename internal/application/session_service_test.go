package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/persistence"
	"github.com/example/tutoring-agency/internal/timeslot"
)

var testClock = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testClock }

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

type sessionRepoStub struct {
	created []Session

	createErr  error
	batchErr   error
	getSession Session
	getErr     error

	updatedState    Session
	updateStateErr  error
	scheduleChanged struct {
		ID       string
		Date     time.Time
		Interval timeslot.Interval
	}
	scheduleErr error

	list    []Session
	listErr error

	lastFilter SessionListFilter
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	if r.createErr != nil {
		return Session{}, r.createErr
	}
	r.created = append(r.created, session)
	return session, nil
}

func (r *sessionRepoStub) CreateSessions(ctx context.Context, sessions []Session) ([]Session, error) {
	if r.batchErr != nil {
		return nil, r.batchErr
	}
	r.created = append(r.created, sessions...)
	return sessions, nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, id string) (Session, error) {
	if r.getErr != nil {
		return Session{}, r.getErr
	}
	if r.getSession.ID == "" {
		return Session{}, persistence.ErrNotFound
	}
	return r.getSession, nil
}

func (r *sessionRepoStub) UpdateSessionSchedule(ctx context.Context, id string, date time.Time, interval timeslot.Interval) (Session, error) {
	if r.scheduleErr != nil {
		return Session{}, r.scheduleErr
	}
	r.scheduleChanged.ID = id
	r.scheduleChanged.Date = date
	r.scheduleChanged.Interval = interval
	updated := r.getSession
	updated.Date = date
	updated.Interval = interval
	return updated, nil
}

func (r *sessionRepoStub) UpdateSessionState(ctx context.Context, session Session) (Session, error) {
	if r.updateStateErr != nil {
		return Session{}, r.updateStateErr
	}
	r.updatedState = session
	return session, nil
}

func (r *sessionRepoStub) ListSessions(ctx context.Context, filter SessionListFilter) ([]Session, error) {
	r.lastFilter = filter
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.list, nil
}

type studentDirStub struct {
	known map[string]bool
	err   error
}

func (d *studentDirStub) StudentExists(ctx context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.known[id], nil
}

type tutorDirStub struct {
	tutors map[string]Tutor
	err    error
}

func (d *tutorDirStub) GetTutor(ctx context.Context, id string) (Tutor, error) {
	if d.err != nil {
		return Tutor{}, d.err
	}
	tutor, ok := d.tutors[id]
	if !ok {
		return Tutor{}, persistence.ErrNotFound
	}
	return tutor, nil
}

func newTestDirectories() (*studentDirStub, *tutorDirStub) {
	return &studentDirStub{known: map[string]bool{"student-1": true}},
		&tutorDirStub{tutors: map[string]Tutor{"tutor-1": {ID: "tutor-1", Name: "Tutor One", HourlyRate: 20}}}
}

func validInput() SessionInput {
	return SessionInput{
		StudentID: "student-1",
		TutorID:   "tutor-1",
		Subject:   "Mathematics",
		Date:      "2024-03-04",
		StartTime: "10:00",
		EndTime:   "11:00",
	}
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Run("persists a valid booking", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		session, err := svc.CreateSession(context.Background(), validInput())
		if err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		if session.ID != "session-1" {
			t.Fatalf("expected generated ID session-1, got %q", session.ID)
		}
		if session.Status != lifecycle.StatusScheduled {
			t.Fatalf("expected new session to be Scheduled, got %s", session.Status)
		}
		if session.DurationHours() != 1 {
			t.Fatalf("expected 1 hour duration, got %v", session.DurationHours())
		}
		if !session.CreatedAt.Equal(testClock) || !session.UpdatedAt.Equal(testClock) {
			t.Fatalf("expected timestamps from the injected clock")
		}
		if len(repo.created) != 1 {
			t.Fatalf("expected one persisted session, got %d", len(repo.created))
		}
	})

	t.Run("collects field errors", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		_, err := svc.CreateSession(context.Background(), SessionInput{
			Date:      "04-03-2024",
			StartTime: "10:00",
			EndTime:   "9:00",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"student", "tutor", "subject", "date", "time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %q, got %v", field, vErr.FieldErrors)
			}
		}
		if len(repo.created) != 0 {
			t.Fatalf("invalid input must not reach the repository")
		}
	})

	t.Run("rejects an end at or before the start", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		input := validInput()
		input.StartTime = "11:00"
		input.EndTime = "10:00"

		var vErr *ValidationError
		if _, err := svc.CreateSession(context.Background(), input); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects an unknown student", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		input := validInput()
		input.StudentID = "missing"

		if _, err := svc.CreateSession(context.Background(), input); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects an unknown tutor", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		input := validInput()
		input.TutorID = "missing"

		if _, err := svc.CreateSession(context.Background(), input); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("maps a storage overlap to a conflict", func(t *testing.T) {
		date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
		repo := &sessionRepoStub{createErr: &persistence.OverlapError{
			TutorID:           "tutor-1",
			Date:              date,
			BlockingSessionID: "existing-9",
		}}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		_, err := svc.CreateSession(context.Background(), validInput())

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if conflict.WithSessionID != "existing-9" {
			t.Fatalf("expected conflict to name the blocking session, got %+v", conflict)
		}
	})
}

func TestSessionService_CreateRecurringSeries(t *testing.T) {
	weeklyRule := RecurrenceInput{
		Frequency:  "weekly",
		EndDate:    "2024-03-17",
		DaysOfWeek: []int{1, 3},
	}

	t.Run("expands and persists every instance", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		sessions, err := svc.CreateRecurringSeries(context.Background(), validInput(), weeklyRule)
		if err != nil {
			t.Fatalf("CreateRecurringSeries returned error: %v", err)
		}
		if len(sessions) != 4 {
			t.Fatalf("expected 4 instances, got %d", len(sessions))
		}

		seen := make(map[string]bool, len(sessions))
		for _, session := range sessions {
			if seen[session.ID] {
				t.Fatalf("duplicate instance ID %q", session.ID)
			}
			seen[session.ID] = true
			if !session.IsRecurring || session.Pattern == nil {
				t.Fatalf("expected instance %s to carry the recurrence pattern", session.ID)
			}
			if session.Subject != "Mathematics" || session.Interval.Start() != "10:00" {
				t.Fatalf("expected instances to share template attributes")
			}
		}
		if len(repo.created) != 4 {
			t.Fatalf("expected 4 persisted rows, got %d", len(repo.created))
		}
	})

	t.Run("a conflicting instance aborts the whole series", func(t *testing.T) {
		date := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
		repo := &sessionRepoStub{batchErr: &persistence.OverlapError{
			TutorID:           "tutor-1",
			Date:              date,
			BlockingSessionID: "existing-4",
		}}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		_, err := svc.CreateRecurringSeries(context.Background(), validInput(), weeklyRule)

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !conflict.Date.Equal(date) {
			t.Fatalf("expected conflict to name the offending date, got %v", conflict.Date)
		}
		if len(repo.created) != 0 {
			t.Fatalf("expected nothing persisted after a conflict")
		}
	})

	t.Run("rejects an invalid rule", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("session"), fixedNow)

		cases := []struct {
			name string
			rule RecurrenceInput
		}{
			{"bad frequency", RecurrenceInput{Frequency: "monthly", EndDate: "2024-03-17", DaysOfWeek: []int{1}}},
			{"missing end date", RecurrenceInput{Frequency: "weekly", DaysOfWeek: []int{1}}},
			{"end before start", RecurrenceInput{Frequency: "weekly", EndDate: "2024-03-01", DaysOfWeek: []int{1}}},
			{"no weekdays", RecurrenceInput{Frequency: "weekly", EndDate: "2024-03-17"}},
			{"weekday out of range", RecurrenceInput{Frequency: "weekly", EndDate: "2024-03-17", DaysOfWeek: []int{7}}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.CreateRecurringSeries(context.Background(), validInput(), tc.rule)
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			})
		}
		if len(repo.created) != 0 {
			t.Fatalf("invalid rules must not reach the repository")
		}
	})
}

func scheduledSession() Session {
	interval, _ := timeslot.ParseInterval("10:00", "11:00")
	return Session{
		ID:        "session-1",
		StudentID: "student-1",
		TutorID:   "tutor-1",
		Subject:   "Mathematics",
		Date:      time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC),
		Interval:  interval,
		Status:    lifecycle.StatusScheduled,
	}
}

func TestSessionService_UpdateSessionStatus(t *testing.T) {
	t.Run("applies a legal transition", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		session, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "session-1",
			Target:    lifecycle.StatusInProgress,
		})
		if err != nil {
			t.Fatalf("UpdateSessionStatus returned error: %v", err)
		}
		if session.Status != lifecycle.StatusInProgress {
			t.Fatalf("expected In Progress, got %s", session.Status)
		}
		if !session.UpdatedAt.Equal(testClock) {
			t.Fatalf("expected UpdatedAt from the injected clock")
		}
	})

	t.Run("rejects an illegal transition", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "session-1",
			Target:    lifecycle.StatusCompleted,
		})

		var invalid *lifecycle.InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if invalid.From != lifecycle.StatusScheduled || invalid.To != lifecycle.StatusCompleted {
			t.Fatalf("error names wrong states: %v", invalid)
		}
	})

	t.Run("rejects an unknown target status", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "session-1",
			Target:    lifecycle.Status("Done"),
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("cancellation requires a reason", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "session-1",
			Target:    lifecycle.StatusCancelled,
			Reason:    "   ",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["reason"]; !ok {
			t.Fatalf("expected reason field error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("cancellation stamps the reason, time, and actor", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		session, err := svc.CancelSession(context.Background(), "session-1", "front-desk", "student unavailable")
		if err != nil {
			t.Fatalf("CancelSession returned error: %v", err)
		}
		if session.Status != lifecycle.StatusCancelled {
			t.Fatalf("expected Cancelled, got %s", session.Status)
		}
		if session.Cancellation == nil {
			t.Fatalf("expected a cancellation record")
		}
		if session.Cancellation.Reason != "student unavailable" {
			t.Fatalf("unexpected reason %q", session.Cancellation.Reason)
		}
		if session.Cancellation.By != "front-desk" {
			t.Fatalf("unexpected actor %q", session.Cancellation.By)
		}
		if !session.Cancellation.At.Equal(testClock) {
			t.Fatalf("expected cancellation time from the injected clock")
		}
	})

	t.Run("completion stamps the time and accepts a rating", func(t *testing.T) {
		inProgress := scheduledSession()
		inProgress.Status = lifecycle.StatusInProgress
		repo := &sessionRepoStub{getSession: inProgress}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		rating := 5
		session, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "session-1",
			Target:    lifecycle.StatusCompleted,
			Rating:    &rating,
			Feedback:  "great progress",
		})
		if err != nil {
			t.Fatalf("UpdateSessionStatus returned error: %v", err)
		}
		if session.CompletedAt == nil || !session.CompletedAt.Equal(testClock) {
			t.Fatalf("expected completion time from the injected clock")
		}
		if session.Rating == nil || *session.Rating != 5 {
			t.Fatalf("expected rating 5, got %v", session.Rating)
		}
		if session.Feedback != "great progress" {
			t.Fatalf("unexpected feedback %q", session.Feedback)
		}
	})

	t.Run("rejects a rating out of range", func(t *testing.T) {
		inProgress := scheduledSession()
		inProgress.Status = lifecycle.StatusInProgress
		repo := &sessionRepoStub{getSession: inProgress}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		for _, rating := range []int{0, 6, -1} {
			r := rating
			_, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
				SessionID: "session-1",
				Target:    lifecycle.StatusCompleted,
				Rating:    &r,
			})
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError for rating %d, got %v", rating, err)
			}
		}
	})

	t.Run("missing session yields not found", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.UpdateSessionStatus(context.Background(), StatusChange{
			SessionID: "missing",
			Target:    lifecycle.StatusInProgress,
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessionService_RescheduleSession(t *testing.T) {
	t.Run("moves the session to the new slot", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		session, err := svc.RescheduleSession(context.Background(), RescheduleInput{
			SessionID: "session-1",
			Date:      "2024-03-05",
			StartTime: "14:00",
			EndTime:   "15:30",
		})
		if err != nil {
			t.Fatalf("RescheduleSession returned error: %v", err)
		}
		if session.Interval.Start() != "14:00" || session.Interval.End() != "15:30" {
			t.Fatalf("unexpected interval %s", session.Interval)
		}
		if repo.scheduleChanged.ID != "session-1" {
			t.Fatalf("expected repository to receive the schedule change")
		}
	})

	t.Run("fields left empty keep the current slot", func(t *testing.T) {
		repo := &sessionRepoStub{getSession: scheduledSession()}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		session, err := svc.RescheduleSession(context.Background(), RescheduleInput{
			SessionID: "session-1",
			StartTime: "12:00",
			EndTime:   "13:00",
		})
		if err != nil {
			t.Fatalf("RescheduleSession returned error: %v", err)
		}
		if !session.Date.Equal(scheduledSession().Date) {
			t.Fatalf("expected the date to be unchanged, got %v", session.Date)
		}
	})

	t.Run("terminal sessions cannot be rescheduled", func(t *testing.T) {
		done := scheduledSession()
		done.Status = lifecycle.StatusCompleted
		repo := &sessionRepoStub{getSession: done}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.RescheduleSession(context.Background(), RescheduleInput{
			SessionID: "session-1",
			Date:      "2024-03-05",
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("a conflicting target slot fails with a conflict", func(t *testing.T) {
		repo := &sessionRepoStub{
			getSession: scheduledSession(),
			scheduleErr: &persistence.OverlapError{
				TutorID:           "tutor-1",
				Date:              time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
				BlockingSessionID: "other",
			},
		}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.RescheduleSession(context.Background(), RescheduleInput{
			SessionID: "session-1",
			Date:      "2024-03-05",
		})

		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
	})
}

func TestSessionService_ListSessions(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		repo := &sessionRepoStub{list: []Session{scheduledSession()}}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		sessions, err := svc.ListSessions(context.Background(), SessionQuery{
			TutorID:  "tutor-1",
			Status:   lifecycle.StatusScheduled,
			DateFrom: "2024-03-01",
			DateTo:   "2024-03-31",
		})
		if err != nil {
			t.Fatalf("ListSessions returned error: %v", err)
		}
		if len(sessions) != 1 {
			t.Fatalf("expected one session, got %d", len(sessions))
		}
		if repo.lastFilter.TutorID != "tutor-1" || repo.lastFilter.Status != lifecycle.StatusScheduled {
			t.Fatalf("unexpected filter %+v", repo.lastFilter)
		}
		if repo.lastFilter.DateFrom == nil || repo.lastFilter.DateTo == nil {
			t.Fatalf("expected date bounds to be forwarded")
		}
	})

	t.Run("rejects an unknown status filter", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.ListSessions(context.Background(), SessionQuery{Status: lifecycle.Status("Active")})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		repo := &sessionRepoStub{}
		students, tutors := newTestDirectories()
		svc := NewSessionService(repo, students, tutors, sequentialIDs("id"), fixedNow)

		_, err := svc.ListSessions(context.Background(), SessionQuery{
			DateFrom: "2024-03-31",
			DateTo:   "2024-03-01",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
