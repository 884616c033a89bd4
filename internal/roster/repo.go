package roster

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Student is a roster entry. GuardianPhone is the target for absence
// notifications and may be stored with or without an international prefix.
type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RollNo        string    `json:"rollNo"`
	GuardianPhone string    `json:"parentMobile"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ErrRollTaken is returned when a roll number is already assigned.
var ErrRollTaken = errors.New("roll number already taken")

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new student, assigning an id.
func (r *Repository) Create(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, roll_no, guardian_phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, st.ID, st.Name, st.RollNo, st.GuardianPhone)
	if err := row.Scan(&st.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Student{}, ErrRollTaken
		}
		return Student{}, err
	}
	return st, nil
}

// GetByID returns a student or nil when unknown.
func (r *Repository) GetByID(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, roll_no, guardian_phone, created_at
		FROM students WHERE id = $1
	`, id)
	var st Student
	if err := row.Scan(&st.ID, &st.Name, &st.RollNo, &st.GuardianPhone, &st.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// List returns all students ordered by roll number.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, roll_no, guardian_phone, created_at
		FROM students ORDER BY roll_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.RollNo, &st.GuardianPhone, &st.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

// Delete removes a student row and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
