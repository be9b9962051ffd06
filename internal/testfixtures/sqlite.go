package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/tutoring-agency/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool     *sqlite.Pool
	Sessions *sqlite.SessionRepository
	Tutors   *sqlite.TutorRepository
	Students *sqlite.StudentRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file
// that is migrated automatically. Callers may optionally invoke Close,
// but the helper also registers cleanup with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "agency.db")

	pool, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:     pool,
		Sessions: sqlite.NewSessionRepository(pool),
		Tutors:   sqlite.NewTutorRepository(pool),
		Students: sqlite.NewStudentRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedParticipants inserts the supplied student and tutor fixtures so
// session rows can reference them.
func (h *SQLiteHarness) SeedParticipants(tb testing.TB, student StudentFixture, tutor TutorFixture) {
	tb.Helper()
	ctx := context.Background()
	if err := h.Students.CreateStudent(ctx, student.Record()); err != nil {
		tb.Fatalf("failed to seed student %s: %v", student.ID, err)
	}
	if err := h.Tutors.CreateTutor(ctx, tutor.Record()); err != nil {
		tb.Fatalf("failed to seed tutor %s: %v", tutor.ID, err)
	}
}
