package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"tutorhub/internal/principal"
	"tutorhub/internal/store"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db.Client, timeout: db.Timeout}
}

const recordColumns = `student_id, batch_id, date, status, recorded_by, updated_at`

// ReplaceDay deletes then inserts the day's records of the touched students in one transaction.
// The upsert keeps the (student, batch, date) key unique when two writers race on it.
func (r *Repository) ReplaceDay(ctx context.Context, batch principal.BatchID, date time.Time, records []Record) (int, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, store.Classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.StudentID)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attendance_records
		WHERE batch_id = $1 AND date = $2 AND student_id::text = ANY($3)
	`, string(batch), date, ids); err != nil {
		return 0, store.Classify(err)
	}

	written := 0
	for _, rec := range records {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO attendance_records (student_id, batch_id, date, status, recorded_by, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (student_id, batch_id, date) DO UPDATE SET
				status = EXCLUDED.status,
				recorded_by = EXCLUDED.recorded_by,
				updated_at = EXCLUDED.updated_at
		`, rec.StudentID, string(rec.BatchID), rec.Date, string(rec.Status), rec.RecordedBy, rec.UpdatedAt)
		if err != nil {
			return 0, store.Classify(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		written += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, store.Classify(err)
	}
	return written, nil
}

// ListByDate returns the records of the batches on date.
func (r *Repository) ListByDate(ctx context.Context, batches []principal.BatchID, date time.Time) ([]Record, error) {
	return r.query(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE batch_id = ANY($1) AND date = $2
		ORDER BY batch_id, student_id
	`, batchStrings(batches), date)
}

// ListByRange returns the records of the batches with from <= date < to.
func (r *Repository) ListByRange(ctx context.Context, batches []principal.BatchID, from, to time.Time) ([]Record, error) {
	return r.query(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE batch_id = ANY($1) AND date >= $2 AND date < $3
		ORDER BY date DESC, batch_id, student_id
	`, batchStrings(batches), from, to)
}

// ListByStudent returns the student's records; zero bounds are open.
func (r *Repository) ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE student_id::text = $1`
	args := []any{studentID}
	if !from.IsZero() {
		args = append(args, from)
		query += " AND date >= $" + itoa(len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += " AND date < $" + itoa(len(args))
	}
	query += " ORDER BY date DESC, batch_id"
	return r.query(ctx, query, args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var (
			rec           Record
			batch, status string
		)
		if err := rows.Scan(&rec.StudentID, &batch, &rec.Date, &status, &rec.RecordedBy, &rec.UpdatedAt); err != nil {
			return nil, store.Classify(err)
		}
		rec.BatchID = principal.BatchID(batch)
		rec.Status = Status(status)
		res = append(res, rec)
	}
	return res, store.Classify(rows.Err())
}

func batchStrings(batches []principal.BatchID) []string {
	out := make([]string, 0, len(batches))
	for _, b := range batches {
		out = append(out, string(b))
	}
	return out
}

func itoa(i int) string { return strconv.Itoa(i) }
