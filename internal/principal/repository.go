package principal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"tutorhub/internal/core"
	"tutorhub/internal/store"
)

// Repository reads principals from Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db.Client, timeout: db.Timeout}
}

const (
	studentColumns = `id, username, password_hash, name, batch_id, class, phone_number, date_of_admission, created_at`
	teacherColumns = `id, username, password_hash, name, subjects, batches, created_at`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*Student, error) {
	var (
		s     Student
		batch string
		doa   sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Username, &s.PasswordHash, &s.Name, &batch, &s.Class, &s.PhoneNumber, &doa, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Batch = BatchID(batch)
	if doa.Valid {
		s.DateOfAdmission = &doa.Time
	}
	return &s, nil
}

func scanTeacher(row rowScanner) (*Teacher, error) {
	var (
		t        Teacher
		subjects []string
		batches  []string
	)
	m := pgtype.NewMap()
	if err := row.Scan(&t.ID, &t.Username, &t.PasswordHash, &t.Name, m.SQLScanner(&subjects), m.SQLScanner(&batches), &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Subjects = subjects
	t.Batches = make([]BatchID, 0, len(batches))
	for _, b := range batches {
		t.Batches = append(t.Batches, BatchID(b))
	}
	return &t, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return store.Classify(err)
}

// StudentByUsername returns the student with the given username.
func (r *Repository) StudentByUsername(ctx context.Context, username string) (*Student, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()
	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE username = $1`, username))
	if err != nil {
		return nil, notFound(err, "student")
	}
	return s, nil
}

// TeacherByUsername returns the teacher with the given username.
func (r *Repository) TeacherByUsername(ctx context.Context, username string) (*Teacher, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()
	t, err := scanTeacher(r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE username = $1`, username))
	if err != nil {
		return nil, notFound(err, "teacher")
	}
	return t, nil
}

// Student returns a student by id.
func (r *Repository) Student(ctx context.Context, id string) (*Student, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()
	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id::text = $1`, id))
	if err != nil {
		return nil, notFound(err, "student")
	}
	return s, nil
}

// Teacher returns a teacher by id.
func (r *Repository) Teacher(ctx context.Context, id string) (*Teacher, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()
	t, err := scanTeacher(r.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id::text = $1`, id))
	if err != nil {
		return nil, notFound(err, "teacher")
	}
	return t, nil
}

// StudentsInBatch returns the students enrolled in batch ordered by name.
func (r *Repository) StudentsInBatch(ctx context.Context, batch BatchID) ([]Student, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE batch_id = $1
		ORDER BY name, username
	`, string(batch))
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		students = append(students, *s)
	}
	return students, store.Classify(rows.Err())
}
