package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/example/tutoring-agency/internal/lifecycle"
)

// PaymentService computes tutor compensation from completed sessions.
// Amounts always reflect the tutor's current hourly rate, so a rate
// change reprices past periods on the next calculation.
type PaymentService struct {
	sessions SessionRepository
	tutors   TutorDirectory
	logger   *slog.Logger
}

// NewPaymentService wires dependencies for payment calculations.
func NewPaymentService(sessions SessionRepository, tutors TutorDirectory) *PaymentService {
	return NewPaymentServiceWithLogger(sessions, tutors, nil)
}

// NewPaymentServiceWithLogger wires dependencies plus a base logger.
func NewPaymentServiceWithLogger(sessions SessionRepository, tutors TutorDirectory, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		sessions: sessions,
		tutors:   tutors,
		logger:   defaultLogger(logger),
	}
}

// CalculatePayments aggregates completed sessions within the inclusive
// date range into one payment record per tutor, keyed by tutor ID.
// Tutors with no completed sessions in the range are omitted, unless
// the query names a specific tutor, in which case that tutor gets an
// explicit zero record.
func (s *PaymentService) CalculatePayments(ctx context.Context, query PaymentQuery) (map[string]TutorPayment, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	if err := validateRange(query.Range); err != nil {
		return nil, err
	}

	tutorID := strings.TrimSpace(query.TutorID)
	var queried *Tutor
	if tutorID != "" && s.tutors != nil {
		tutor, err := s.tutors.GetTutor(ctx, tutorID)
		if err != nil {
			return nil, mapRepoError(err)
		}
		queried = &tutor
	}

	from := query.Range.From
	to := query.Range.To
	sessions, err := s.sessions.ListSessions(ctx, SessionListFilter{
		TutorID:  tutorID,
		Status:   lifecycle.StatusCompleted,
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	grouped := make(map[string][]Session)
	for _, session := range sessions {
		grouped[session.TutorID] = append(grouped[session.TutorID], session)
	}

	payments := make(map[string]TutorPayment, len(grouped))
	for id, tutorSessions := range grouped {
		tutor, err := s.resolveTutor(ctx, id, queried)
		if err != nil {
			return nil, err
		}
		payments[id] = buildPayment(tutor, tutorSessions)
	}

	if queried != nil {
		if _, ok := payments[queried.ID]; !ok {
			payments[queried.ID] = buildPayment(*queried, nil)
		}
	}

	serviceLogger(ctx, s.logger, "payment", "calculate").InfoContext(ctx, "payments calculated",
		"tutors", len(payments), "sessions", len(sessions))
	return payments, nil
}

// TutorHistory returns the payment record for a single tutor over the
// inclusive date range. A tutor with no completed sessions gets a zero
// record rather than an error.
func (s *PaymentService) TutorHistory(ctx context.Context, tutorID string, dateRange DateRange) (TutorPayment, error) {
	payments, err := s.CalculatePayments(ctx, PaymentQuery{Range: dateRange, TutorID: tutorID})
	if err != nil {
		return TutorPayment{}, err
	}
	payment, ok := payments[strings.TrimSpace(tutorID)]
	if !ok {
		return TutorPayment{}, ErrNotFound
	}
	return payment, nil
}

func (s *PaymentService) resolveTutor(ctx context.Context, id string, queried *Tutor) (Tutor, error) {
	if queried != nil && queried.ID == id {
		return *queried, nil
	}
	if s.tutors == nil {
		return Tutor{ID: id}, nil
	}
	tutor, err := s.tutors.GetTutor(ctx, id)
	if err != nil {
		return Tutor{}, mapRepoError(err)
	}
	return tutor, nil
}

// buildPayment totals duration and amount for one tutor. Sessions are
// kept in chronological order.
func buildPayment(tutor Tutor, sessions []Session) TutorPayment {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].Interval.StartMinute < sessions[j].Interval.StartMinute
	})

	payment := TutorPayment{
		Tutor:    tutor,
		Sessions: sessions,
	}
	for _, session := range sessions {
		payment.TotalHours += session.DurationHours()
	}
	payment.TotalPayment = payment.TotalHours * tutor.HourlyRate
	return payment
}

func validateRange(dateRange DateRange) error {
	vErr := &ValidationError{}
	if dateRange.From.IsZero() {
		vErr.Add("start_date", "start date is required")
	}
	if dateRange.To.IsZero() {
		vErr.Add("end_date", "end date is required")
	}
	if !dateRange.From.IsZero() && !dateRange.To.IsZero() && dateRange.To.Before(dateRange.From) {
		vErr.Add("date_range", "end date must not precede start date")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}
