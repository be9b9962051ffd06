package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TutorStore extends the directory with rate administration.
type TutorStore interface {
	GetTutor(ctx context.Context, id string) (Tutor, error)
	UpdateHourlyRate(ctx context.Context, id string, rate float64) (Tutor, error)
	ListTutors(ctx context.Context) ([]Tutor, error)
}

// TutorService handles tutor lookups and rate changes.
type TutorService struct {
	tutors TutorStore
	logger *slog.Logger
}

// NewTutorService wires dependencies for tutor operations.
func NewTutorService(tutors TutorStore) *TutorService {
	return NewTutorServiceWithLogger(tutors, nil)
}

// NewTutorServiceWithLogger wires dependencies plus a base logger.
func NewTutorServiceWithLogger(tutors TutorStore, logger *slog.Logger) *TutorService {
	return &TutorService{tutors: tutors, logger: defaultLogger(logger)}
}

// GetTutor retrieves one tutor by ID.
func (s *TutorService) GetTutor(ctx context.Context, id string) (Tutor, error) {
	if s == nil || s.tutors == nil {
		return Tutor{}, fmt.Errorf("tutor store not configured")
	}
	tutor, err := s.tutors.GetTutor(ctx, strings.TrimSpace(id))
	if err != nil {
		return Tutor{}, mapRepoError(err)
	}
	return tutor, nil
}

// ListTutors enumerates all tutors.
func (s *TutorService) ListTutors(ctx context.Context) ([]Tutor, error) {
	if s == nil || s.tutors == nil {
		return nil, fmt.Errorf("tutor store not configured")
	}
	tutors, err := s.tutors.ListTutors(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return tutors, nil
}

// UpdateHourlyRate changes a tutor's rate. The new rate applies to all
// subsequent payment calculations, including ones covering past dates.
func (s *TutorService) UpdateHourlyRate(ctx context.Context, id string, rate float64) (Tutor, error) {
	if s == nil || s.tutors == nil {
		return Tutor{}, fmt.Errorf("tutor store not configured")
	}
	if rate < 0 {
		vErr := &ValidationError{}
		vErr.Add("hourly_rate", "hourly rate must not be negative")
		return Tutor{}, vErr
	}
	tutor, err := s.tutors.UpdateHourlyRate(ctx, strings.TrimSpace(id), rate)
	if err != nil {
		return Tutor{}, mapRepoError(err)
	}
	serviceLogger(ctx, s.logger, "tutor", "update_rate").InfoContext(ctx, "hourly rate updated",
		"tutor_id", tutor.ID, "hourly_rate", tutor.HourlyRate)
	return tutor, nil
}
