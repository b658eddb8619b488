package scores

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"tutorhub/internal/principal"
	"tutorhub/internal/store"
)

// Repository persists test scores in Postgres.
type Repository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRepository creates a repo.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db.Client, timeout: db.Timeout}
}

// Insert writes recs in one transaction.
func (r *Repository) Insert(ctx context.Context, recs []Record) error {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Classify(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO test_scores (id, student_id, test_name, subject, batch_id, score, max_score, date, recorded_by, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
	`)
	if err != nil {
		return store.Classify(err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.StudentID, rec.TestName, rec.Subject, string(rec.BatchID),
			rec.Score, rec.MaxScore, rec.Date, rec.RecordedBy, rec.Remarks, rec.CreatedAt); err != nil {
			return store.Classify(err)
		}
	}
	return store.Classify(tx.Commit())
}

// Find returns records matching f, newest test date first.
func (r *Repository) Find(ctx context.Context, f Filter) ([]Record, error) {
	ctx, cancel := store.Bound(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id::text, student_id::text, test_name, subject, batch_id, score, max_score, date,
			recorded_by::text, COALESCE(remarks, ''), created_at
		FROM test_scores WHERE TRUE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if len(f.BatchIDs) > 0 {
		batches := make([]string, 0, len(f.BatchIDs))
		for _, b := range f.BatchIDs {
			batches = append(batches, string(b))
		}
		query += " AND batch_id = ANY(" + arg(batches) + ")"
	}
	if f.Subject != "" {
		query += " AND subject = " + arg(f.Subject)
	}
	if f.TestName != "" {
		query += " AND test_name = " + arg(f.TestName)
	}
	if f.StudentID != "" {
		query += " AND student_id::text = " + arg(f.StudentID)
	}
	query += " ORDER BY date DESC, created_at DESC, student_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var (
			rec   Record
			batch string
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.TestName, &rec.Subject, &batch, &rec.Score, &rec.MaxScore,
			&rec.Date, &rec.RecordedBy, &rec.Remarks, &rec.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		rec.BatchID = principal.BatchID(batch)
		res = append(res, rec)
	}
	return res, store.Classify(rows.Err())
}
