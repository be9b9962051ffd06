package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/example/tutoring-agency/internal/lifecycle"
	"github.com/example/tutoring-agency/internal/persistence"
	"github.com/example/tutoring-agency/internal/scheduler"
	"github.com/example/tutoring-agency/internal/timeslot"
)

const dateLayout = "2006-01-02"

// SessionRepository implements persistence.SessionRepository.
type SessionRepository struct {
	pool  *Pool
	retry retryConfig
}

// NewSessionRepository creates a session repository on the pool.
func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool, retry: defaultRetry}
}

const sessionColumns = `id, student_id, tutor_id, subject, date, start_minute, end_minute,
	status, notes, is_recurring, recurrence_frequency, recurrence_end_date, recurrence_weekdays,
	cancellation_reason, cancelled_at, cancelled_by, completed_at, rating, feedback,
	created_at, updated_at`

// CreateSession inserts one session. The overlap scan and the insert
// share a transaction: under concurrent writers at most one session can
// claim a tutor's slot, the rest fail with *persistence.OverlapError.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTx(ctx, func(tx *sql.Tx) error {
			if err := r.ensureSlotFree(tx, session, ""); err != nil {
				return err
			}
			return r.insertSession(tx, session)
		})
	})
}

// CreateSessions inserts a recurring batch as one transaction. Each
// instance is checked against committed sessions and against instances
// inserted earlier in the batch; the first collision aborts everything.
func (r *SessionRepository) CreateSessions(ctx context.Context, sessions []persistence.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTx(ctx, func(tx *sql.Tx) error {
			for _, session := range sessions {
				if session.ID == "" {
					return persistence.ErrConstraintViolation
				}
				if err := r.ensureSlotFree(tx, session, ""); err != nil {
					return err
				}
				if err := r.insertSession(tx, session); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return session, nil
}

// UpdateSessionSchedule moves a session to a new date/interval after
// re-checking conflicts with the session itself excluded.
func (r *SessionRepository) UpdateSessionSchedule(ctx context.Context, id string, change persistence.SessionScheduleChange) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTx(ctx, func(tx *sql.Tx) error {
			var tutorID string
			err := tx.QueryRow(`SELECT tutor_id FROM sessions WHERE id = ?`, id).Scan(&tutorID)
			if err != nil {
				return mapError(err)
			}

			candidate := persistence.Session{
				TutorID:     tutorID,
				Date:        change.Date,
				StartMinute: change.StartMinute,
				EndMinute:   change.EndMinute,
			}
			if err := r.ensureSlotFree(tx, candidate, id); err != nil {
				return err
			}

			result, err := tx.Exec(
				`UPDATE sessions SET date = ?, start_minute = ?, end_minute = ?, updated_at = ? WHERE id = ?`,
				change.Date.UTC().Format(dateLayout),
				change.StartMinute,
				change.EndMinute,
				time.Now().UTC().Format(time.RFC3339),
				id,
			)
			if err != nil {
				return mapError(err)
			}
			return requireRowAffected(result)
		})
	})
}

// UpdateSessionState persists the lifecycle fields of a session:
// status, cancellation metadata, completion timestamp, rating, and
// feedback. Scheduling fields are untouched.
func (r *SessionRepository) UpdateSessionState(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}
	return withRetry(ctx, r.retry, func() error {
		result, err := r.pool.db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, cancellation_reason = ?, cancelled_at = ?, cancelled_by = ?,
				completed_at = ?, rating = ?, feedback = ?, updated_at = ?
			WHERE id = ?`,
			session.Status,
			nullString(session.CancellationReason),
			nullTime(session.CancelledAt),
			nullString(session.CancelledBy),
			nullTime(session.CompletedAt),
			nullInt(session.Rating),
			nullString(session.Feedback),
			time.Now().UTC().Format(time.RFC3339),
			session.ID,
		)
		if err != nil {
			return mapError(err)
		}
		return requireRowAffected(result)
	})
}

// ListSessions returns sessions matching the filter ordered by date,
// then start time, then ID.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query, args := buildSessionListQuery(filter)

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, mapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return sessions, nil
}

// ensureSlotFree fails with *persistence.OverlapError when an active
// session of the same tutor collides with the candidate on its date.
// The tutor's bookings for that day are read inside the transaction
// that performs the guarded write, so the check and the write are one
// atomic unit.
func (r *SessionRepository) ensureSlotFree(tx *sql.Tx, candidate persistence.Session, excludeID string) error {
	rows, err := tx.Query(
		`SELECT id, start_minute, end_minute FROM sessions
		WHERE tutor_id = ? AND date = ? AND status != ?`,
		candidate.TutorID,
		candidate.Date.UTC().Format(dateLayout),
		string(lifecycle.StatusCancelled),
	)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	day := candidate.Date.UTC()
	var existing []scheduler.Booking
	for rows.Next() {
		var (
			id         string
			start, end int
		)
		if err := rows.Scan(&id, &start, &end); err != nil {
			return mapError(err)
		}
		existing = append(existing, scheduler.Booking{
			SessionID: id,
			TutorID:   candidate.TutorID,
			Date:      day,
			Interval:  timeslot.Interval{StartMinute: start, EndMinute: end},
		})
	}
	if err := rows.Err(); err != nil {
		return mapError(err)
	}

	blocking := scheduler.FindConflict(existing, scheduler.Booking{
		SessionID: candidate.ID,
		TutorID:   candidate.TutorID,
		Date:      day,
		Interval:  timeslot.Interval{StartMinute: candidate.StartMinute, EndMinute: candidate.EndMinute},
	}, excludeID)
	if blocking == nil {
		return nil
	}
	return &persistence.OverlapError{
		TutorID:           candidate.TutorID,
		Date:              candidate.Date,
		BlockingSessionID: blocking.SessionID,
	}
}

func (r *SessionRepository) insertSession(tx *sql.Tx, session persistence.Session) error {
	_, err := tx.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.StudentID,
		session.TutorID,
		session.Subject,
		session.Date.UTC().Format(dateLayout),
		session.StartMinute,
		session.EndMinute,
		session.Status,
		nullString(session.Notes),
		boolToInt(session.IsRecurring),
		nullString(session.RecurrenceFrequency),
		nullDate(session.RecurrenceEndDate),
		encodeWeekdays(session.RecurrenceWeekdays),
		nullString(session.CancellationReason),
		nullTime(session.CancelledAt),
		nullString(session.CancelledBy),
		nullTime(session.CompletedAt),
		nullInt(session.Rating),
		nullString(session.Feedback),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func buildSessionListQuery(filter persistence.SessionFilter) (string, []any) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`

	var conditions []string
	var args []any

	if filter.TutorID != "" {
		conditions = append(conditions, "tutor_id = ?")
		args = append(args, filter.TutorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.DateFrom.UTC().Format(dateLayout))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.DateTo.UTC().Format(dateLayout))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_minute ASC, id ASC"

	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                                     persistence.Session
		dateStr, createdAtStr, updatedAtStr         string
		isRecurring                                 int
		notes, frequency, weekdays                  sql.NullString
		recurrenceEnd                               sql.NullString
		cancelReason, cancelledBy, feedback         sql.NullString
		cancelledAt, completedAt                    sql.NullString
		rating                                      sql.NullInt64
	)

	err := row.Scan(
		&session.ID,
		&session.StudentID,
		&session.TutorID,
		&session.Subject,
		&dateStr,
		&session.StartMinute,
		&session.EndMinute,
		&session.Status,
		&notes,
		&isRecurring,
		&frequency,
		&recurrenceEnd,
		&weekdays,
		&cancelReason,
		&cancelledAt,
		&cancelledBy,
		&completedAt,
		&rating,
		&feedback,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Session{}, err
	}

	if session.Date, err = time.ParseInLocation(dateLayout, dateStr, time.UTC); err != nil {
		return persistence.Session{}, fmt.Errorf("parse date: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Session{}, fmt.Errorf("parse updated_at: %w", err)
	}

	session.IsRecurring = isRecurring != 0
	session.Notes = fromNullString(notes)
	session.RecurrenceFrequency = fromNullString(frequency)
	session.CancellationReason = fromNullString(cancelReason)
	session.CancelledBy = fromNullString(cancelledBy)
	session.Feedback = fromNullString(feedback)

	if recurrenceEnd.Valid {
		end, err := time.ParseInLocation(dateLayout, recurrenceEnd.String, time.UTC)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("parse recurrence_end_date: %w", err)
		}
		session.RecurrenceEndDate = &end
	}
	if weekdays.Valid {
		decoded, err := decodeWeekdays(weekdays.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RecurrenceWeekdays = decoded
	}
	if cancelledAt.Valid {
		at, err := time.Parse(time.RFC3339, cancelledAt.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("parse cancelled_at: %w", err)
		}
		session.CancelledAt = &at
	}
	if completedAt.Valid {
		at, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return persistence.Session{}, fmt.Errorf("parse completed_at: %w", err)
		}
		session.CompletedAt = &at
	}
	if rating.Valid {
		value := int(rating.Int64)
		session.Rating = &value
	}

	return session, nil
}

// encodeWeekdays stores the weekday set as a comma separated list of
// time.Weekday numbers, e.g. "1,3".
func encodeWeekdays(days []time.Weekday) sql.NullString {
	if len(days) == 0 {
		return sql.NullString{}
	}
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(int(day)))
	}
	return sql.NullString{String: strings.Join(parts, ","), Valid: true}
}

func decodeWeekdays(value string) ([]time.Weekday, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse recurrence_weekdays: %w", err)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	clone := value.String
	return &clone
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}

func nullDate(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(dateLayout), Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
