package attendance

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateDay is returned when a record for the same student and day
// already exists. The unique index on (student_id, day) raises this for the
// loser of a racing write; callers treat it as a benign skip.
var ErrDuplicateDay = errors.New("attendance already recorded for this day")

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByStudentAndDay returns the record inside the day window, nil when none.
func (r *Repository) FindByStudentAndDay(ctx context.Context, studentID string, w DayWindow) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, day, status, recorded_at
		FROM attendance
		WHERE student_id = $1 AND day >= $2::date AND day < $3::date
	`, studentID, w.Start.Format(dayLayout), w.End.Format(dayLayout))
	var rec Record
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.Day, &rec.Status, &rec.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. A uniqueness violation on (student_id, day)
// maps to ErrDuplicateDay.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, day, status)
		VALUES ($1, $2, $3::date, $4)
		RETURNING recorded_at
	`, rec.ID, rec.StudentID, rec.Day.Format(dayLayout), rec.Status)
	if err := row.Scan(&rec.RecordedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateDay
		}
		return Record{}, err
	}
	return rec, nil
}

// DeleteAllForStudent removes every record referencing the student and
// returns the count. Used by the roster delete cascade.
func (r *Repository) DeleteAllForStudent(ctx context.Context, studentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE student_id = $1`, studentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByDay returns records for the day window with student details joined.
// Records whose student has been removed still appear, with empty details.
func (r *Repository) ListByDay(ctx context.Context, w DayWindow) ([]RecordWithStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, a.day, a.status, a.recorded_at,
		       COALESCE(s.name, ''), COALESCE(s.roll_no, '')
		FROM attendance a
		LEFT JOIN students s ON s.id = a.student_id
		WHERE a.day >= $1::date AND a.day < $2::date
		ORDER BY s.roll_no
	`, w.Start.Format(dayLayout), w.End.Format(dayLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithStudents(rows)
}

// ListAllWithStudents returns every record that still resolves to a student,
// oldest first. Orphaned rows are excluded; the export report has no name or
// roll to print for them.
func (r *Repository) ListAllWithStudents(ctx context.Context) ([]RecordWithStudent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.student_id, a.day, a.status, a.recorded_at, s.name, s.roll_no
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		ORDER BY a.day, s.roll_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWithStudents(rows)
}

func scanWithStudents(rows *sql.Rows) ([]RecordWithStudent, error) {
	var res []RecordWithStudent
	for rows.Next() {
		var rec RecordWithStudent
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Day, &rec.Status, &rec.RecordedAt, &rec.StudentName, &rec.RollNo); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
