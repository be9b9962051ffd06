package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/tutoring-agency/internal/application"
	"github.com/example/tutoring-agency/internal/config"
	httptransport "github.com/example/tutoring-agency/internal/http"
	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/logging"
	"github.com/example/tutoring-agency/internal/persistence"
	"github.com/example/tutoring-agency/internal/persistence/sqlite"
	"github.com/example/tutoring-agency/internal/recurrence"
	"github.com/example/tutoring-agency/internal/timeslot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	tutorStore := newTutorStoreAdapter(sqlite.NewTutorRepository(pool))
	studentDirectory := newStudentDirectoryAdapter(sqlite.NewStudentRepository(pool))

	sessionService := application.NewSessionServiceWithLogger(sessionRepo, studentDirectory, tutorStore, idGenerator, now, logger)
	paymentService := application.NewPaymentServiceWithLogger(sessionRepo, tutorStore, logger)
	tutorService := application.NewTutorServiceWithLogger(tutorStore, logger)

	sessionHandler := httptransport.NewSessionHandler(sessionService, logger)
	paymentHandler := httptransport.NewPaymentHandler(paymentService, tutorService, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions: sessionHandler,
		Payments: paymentHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("agency API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.CreateSession(ctx, toPersistenceSession(session)); err != nil {
		return application.Session{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored)
}

func (a *sessionRepositoryAdapter) CreateSessions(ctx context.Context, sessions []application.Session) ([]application.Session, error) {
	rows := make([]persistence.Session, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, toPersistenceSession(session))
	}
	if err := a.repo.CreateSessions(ctx, rows); err != nil {
		return nil, err
	}
	persisted := make([]application.Session, 0, len(sessions))
	for _, session := range sessions {
		stored, err := a.repo.GetSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		converted, err := toApplicationSession(stored)
		if err != nil {
			return nil, err
		}
		persisted = append(persisted, converted)
	}
	return persisted, nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored)
}

func (a *sessionRepositoryAdapter) UpdateSessionSchedule(ctx context.Context, id string, date time.Time, interval timeslot.Interval) (application.Session, error) {
	change := persistence.SessionScheduleChange{
		Date:        timeslot.NormalizeDate(date),
		StartMinute: interval.StartMinute,
		EndMinute:   interval.EndMinute,
	}
	if err := a.repo.UpdateSessionSchedule(ctx, id, change); err != nil {
		return application.Session{}, err
	}
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored)
}

func (a *sessionRepositoryAdapter) UpdateSessionState(ctx context.Context, session application.Session) (application.Session, error) {
	if err := a.repo.UpdateSessionState(ctx, toPersistenceSession(session)); err != nil {
		return application.Session{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored)
}

func (a *sessionRepositoryAdapter) ListSessions(ctx context.Context, filter application.SessionListFilter) ([]application.Session, error) {
	rows, err := a.repo.ListSessions(ctx, persistence.SessionFilter{
		TutorID:   filter.TutorID,
		StudentID: filter.StudentID,
		Status:    string(filter.Status),
		DateFrom:  filter.DateFrom,
		DateTo:    filter.DateTo,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sessions := make([]application.Session, 0, len(rows))
	for _, row := range rows {
		converted, err := toApplicationSession(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, converted)
	}
	return sessions, nil
}

type tutorStoreAdapter struct {
	repo persistence.TutorRepository
}

func newTutorStoreAdapter(repo persistence.TutorRepository) *tutorStoreAdapter {
	return &tutorStoreAdapter{repo: repo}
}

func (a *tutorStoreAdapter) GetTutor(ctx context.Context, id string) (application.Tutor, error) {
	stored, err := a.repo.GetTutor(ctx, id)
	if err != nil {
		return application.Tutor{}, err
	}
	return toApplicationTutor(stored), nil
}

func (a *tutorStoreAdapter) UpdateHourlyRate(ctx context.Context, id string, rate float64) (application.Tutor, error) {
	if err := a.repo.UpdateHourlyRate(ctx, id, rate); err != nil {
		return application.Tutor{}, err
	}
	stored, err := a.repo.GetTutor(ctx, id)
	if err != nil {
		return application.Tutor{}, err
	}
	return toApplicationTutor(stored), nil
}

func (a *tutorStoreAdapter) ListTutors(ctx context.Context) ([]application.Tutor, error) {
	rows, err := a.repo.ListTutors(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tutors := make([]application.Tutor, 0, len(rows))
	for _, row := range rows {
		tutors = append(tutors, toApplicationTutor(row))
	}
	return tutors, nil
}

type studentDirectoryAdapter struct {
	repo persistence.StudentRepository
}

func newStudentDirectoryAdapter(repo persistence.StudentRepository) *studentDirectoryAdapter {
	return &studentDirectoryAdapter{repo: repo}
}

func (a *studentDirectoryAdapter) StudentExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.repo.GetStudent(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func toPersistenceSession(session application.Session) persistence.Session {
	row := persistence.Session{
		ID:          session.ID,
		StudentID:   session.StudentID,
		TutorID:     session.TutorID,
		Subject:     session.Subject,
		Date:        timeslot.NormalizeDate(session.Date),
		StartMinute: session.Interval.StartMinute,
		EndMinute:   session.Interval.EndMinute,
		Status:      string(session.Status),
		Notes:       optionalString(session.Notes),
		IsRecurring: session.IsRecurring,
		CompletedAt: session.CompletedAt,
		Rating:      session.Rating,
		Feedback:    optionalString(session.Feedback),
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
	if session.Pattern != nil {
		frequency := session.Pattern.Frequency.String()
		endDate := timeslot.NormalizeDate(session.Pattern.EndDate)
		row.RecurrenceFrequency = &frequency
		row.RecurrenceEndDate = &endDate
		row.RecurrenceWeekdays = append([]time.Weekday(nil), session.Pattern.Weekdays...)
	}
	if session.Cancellation != nil {
		reason := session.Cancellation.Reason
		at := session.Cancellation.At
		row.CancellationReason = &reason
		row.CancelledAt = &at
		row.CancelledBy = optionalString(session.Cancellation.By)
	}
	return row
}

func toApplicationSession(row persistence.Session) (application.Session, error) {
	interval, err := timeslot.NewInterval(row.StartMinute, row.EndMinute)
	if err != nil {
		return application.Session{}, err
	}

	session := application.Session{
		ID:          row.ID,
		StudentID:   row.StudentID,
		TutorID:     row.TutorID,
		Subject:     row.Subject,
		Date:        row.Date,
		Interval:    interval,
		Status:      lifecycle.Status(row.Status),
		Notes:       stringValue(row.Notes),
		IsRecurring: row.IsRecurring,
		CompletedAt: row.CompletedAt,
		Rating:      row.Rating,
		Feedback:    stringValue(row.Feedback),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	if row.RecurrenceFrequency != nil && row.RecurrenceEndDate != nil {
		frequency, err := recurrence.ParseFrequency(*row.RecurrenceFrequency)
		if err != nil {
			return application.Session{}, err
		}
		session.Pattern = &recurrence.Pattern{
			Frequency: frequency,
			EndDate:   *row.RecurrenceEndDate,
			Weekdays:  append([]time.Weekday(nil), row.RecurrenceWeekdays...),
		}
	}

	if row.CancellationReason != nil {
		cancellation := application.Cancellation{Reason: *row.CancellationReason}
		if row.CancelledAt != nil {
			cancellation.At = *row.CancelledAt
		}
		cancellation.By = stringValue(row.CancelledBy)
		session.Cancellation = &cancellation
	}

	return session, nil
}

func toApplicationTutor(row persistence.Tutor) application.Tutor {
	return application.Tutor{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		HourlyRate: row.HourlyRate,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
