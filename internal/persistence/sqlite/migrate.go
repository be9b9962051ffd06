package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each entry runs at most once. New
// schema changes append a version rather than editing an old one.
var migrations = []struct {
	version int
	stmts   []string
}{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS students (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL UNIQUE,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tutors (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				email       TEXT NOT NULL UNIQUE,
				hourly_rate REAL NOT NULL CHECK (hourly_rate >= 0),
				created_at  TEXT NOT NULL,
				updated_at  TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id                   TEXT PRIMARY KEY,
				student_id           TEXT NOT NULL REFERENCES students(id),
				tutor_id             TEXT NOT NULL REFERENCES tutors(id),
				subject              TEXT NOT NULL,
				date                 TEXT NOT NULL,
				start_minute         INTEGER NOT NULL CHECK (start_minute >= 0 AND start_minute < 1440),
				end_minute           INTEGER NOT NULL CHECK (end_minute > start_minute AND end_minute <= 1440),
				status               TEXT NOT NULL,
				notes                TEXT,
				is_recurring         INTEGER NOT NULL DEFAULT 0,
				recurrence_frequency TEXT,
				recurrence_end_date  TEXT,
				recurrence_weekdays  TEXT,
				cancellation_reason  TEXT,
				cancelled_at         TEXT,
				cancelled_by         TEXT,
				completed_at         TEXT,
				rating               INTEGER CHECK (rating IS NULL OR (rating >= 1 AND rating <= 5)),
				feedback             TEXT,
				created_at           TEXT NOT NULL,
				updated_at           TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_tutor_date ON sessions (tutor_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_status_date ON sessions (status, date)`,
		},
	},
}

// Migrate brings the schema up to the latest version. It is idempotent
// and safe to run on every startup.
func (p *Pool) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, migration := range migrations {
		applied, err := p.migrationApplied(ctx, migration.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		err = p.WithTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range migration.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", migration.version, err)
				}
			}
			_, err := tx.Exec(
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
				migration.version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}
