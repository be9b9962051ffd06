package sqlite

import (
	"context"
	"time"

	"github.com/example/tutoring-agency/internal/persistence"
)

// StudentRepository implements persistence.StudentRepository.
type StudentRepository struct {
	pool  *Pool
	retry retryConfig
}

// NewStudentRepository creates a student repository on the pool.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool, retry: defaultRetry}
}

// CreateStudent inserts a student record.
func (r *StudentRepository) CreateStudent(ctx context.Context, student persistence.Student) error {
	if student.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return withRetry(ctx, r.retry, func() error {
		_, err := r.pool.db.ExecContext(ctx,
			`INSERT INTO students (id, name, email, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			student.ID,
			student.Name,
			student.Email,
			student.CreatedAt.UTC().Format(time.RFC3339),
			student.UpdatedAt.UTC().Format(time.RFC3339),
		)
		return mapError(err)
	})
}

// GetStudent retrieves a student by ID.
func (r *StudentRepository) GetStudent(ctx context.Context, id string) (persistence.Student, error) {
	if id == "" {
		return persistence.Student{}, persistence.ErrNotFound
	}
	var (
		student              persistence.Student
		createdAt, updatedAt string
	)
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at, updated_at FROM students WHERE id = ?`, id).
		Scan(&student.ID, &student.Name, &student.Email, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Student{}, mapError(err)
	}
	student.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	student.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return student, nil
}

// ListStudents returns all students ordered by name then ID.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]persistence.Student, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT id, name, email, created_at, updated_at FROM students ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var students []persistence.Student
	for rows.Next() {
		var (
			student              persistence.Student
			createdAt, updatedAt string
		)
		if err := rows.Scan(&student.ID, &student.Name, &student.Email, &createdAt, &updatedAt); err != nil {
			return nil, mapError(err)
		}
		student.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		student.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return students, nil
}
