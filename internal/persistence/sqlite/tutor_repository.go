package sqlite

import (
	"context"
	"time"

	"github.com/example/tutoring-agency/internal/persistence"
)

// TutorRepository implements persistence.TutorRepository.
type TutorRepository struct {
	pool  *Pool
	retry retryConfig
}

// NewTutorRepository creates a tutor repository on the pool.
func NewTutorRepository(pool *Pool) *TutorRepository {
	return &TutorRepository{pool: pool, retry: defaultRetry}
}

// CreateTutor inserts a tutor record.
func (r *TutorRepository) CreateTutor(ctx context.Context, tutor persistence.Tutor) error {
	if tutor.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.db.ExecContext(ctx,
			`INSERT INTO tutors (id, name, email, hourly_rate, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			tutor.ID,
			tutor.Name,
			tutor.Email,
			tutor.HourlyRate,
			tutor.CreatedAt.UTC().Format(time.RFC3339),
			tutor.UpdatedAt.UTC().Format(time.RFC3339),
		)
		return mapError(err)
	})
}

// GetTutor retrieves a tutor by ID.
func (r *TutorRepository) GetTutor(ctx context.Context, id string) (persistence.Tutor, error) {
	if id == "" {
		return persistence.Tutor{}, persistence.ErrNotFound
	}
	var (
		tutor                persistence.Tutor
		createdAt, updatedAt string
	)
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT id, name, email, hourly_rate, created_at, updated_at FROM tutors WHERE id = ?`, id).
		Scan(&tutor.ID, &tutor.Name, &tutor.Email, &tutor.HourlyRate, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Tutor{}, mapError(err)
	}
	tutor.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	tutor.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return tutor, nil
}

// UpdateHourlyRate replaces the tutor's current rate. Past aggregates
// computed from the old rate are not revised; future aggregations read
// the new value.
func (r *TutorRepository) UpdateHourlyRate(ctx context.Context, id string, rate float64) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.db.ExecContext(ctx,
			`UPDATE tutors SET hourly_rate = ?, updated_at = ? WHERE id = ?`,
			rate,
			time.Now().UTC().Format(time.RFC3339),
			id,
		)
		if err != nil {
			return mapError(err)
		}
		return requireRowAffected(result)
	})
}

// ListTutors returns all tutors ordered by name then ID.
func (r *TutorRepository) ListTutors(ctx context.Context) ([]persistence.Tutor, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, name, email, hourly_rate, created_at, updated_at FROM tutors ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tutors []persistence.Tutor
	for rows.Next() {
		var (
			tutor                persistence.Tutor
			createdAt, updatedAt string
		)
		if err := rows.Scan(&tutor.ID, &tutor.Name, &tutor.Email, &tutor.HourlyRate, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		tutor.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		tutor.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		tutors = append(tutors, tutor)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return tutors, nil
}
