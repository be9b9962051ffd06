// Package sqlite implements the persistence repositories on
// modernc.org/sqlite. The pool keeps a single open connection so the
// conflict scan and the write it guards execute as one critical
// section; SQLITE_BUSY retries cover readers of file-backed databases.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/tutoring-agency/internal/persistence"
	_ "modernc.org/sqlite"
)

// Pool manages the SQLite connection and transaction helpers.
type Pool struct {
	db *sql.DB
}

// Open creates a Pool for the given DSN and configures the pragmas the
// repositories rely on (foreign keys, busy timeout).
func Open(dsn string) (*Pool, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer connection serializes every check-then-act write.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	return &Pool{db: db}, nil
}

// DB exposes the underlying handle for migrations and tests.
func (p *Pool) DB() *sql.DB { return p.db }

// Close releases the connection.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Ping verifies the connection.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// TxFunc runs inside a transaction.
type TxFunc func(tx *sql.Tx) error

// WithTx executes fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func (p *Pool) WithTx(ctx context.Context, fn TxFunc) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database is busy")
}

// retryConfig bounds the busy-retry loop used around write transactions.
type retryConfig struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
}

var defaultRetry = retryConfig{
	maxAttempts:  4,
	initialDelay: 50 * time.Millisecond,
	maxDelay:     time.Second,
}

// withRetry re-runs fn while it fails with a transient busy error,
// backing off exponentially between attempts.
func withRetry(ctx context.Context, cfg retryConfig, fn func() error) error {
	delay := cfg.initialDelay
	var err error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}
		}
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", cfg.maxAttempts, err)
}
