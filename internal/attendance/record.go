package attendance

import (
	"context"
	"strings"
	"time"

	"tutorhub/internal/principal"
)

// Status is the recorded presence of a student on a day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"

	// StatusUnmarked is synthesized for students without a record. It is never stored.
	StatusUnmarked Status = "unmarked"
)

// ParseStatus accepts the storable statuses only.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPresent, StatusAbsent, StatusLate:
		return st, true
	}
	return "", false
}

// Record is the single attendance mark of a student in a batch on a day.
type Record struct {
	StudentID  string            `json:"studentId"`
	BatchID    principal.BatchID `json:"batchId"`
	Date       time.Time         `json:"date"`
	Status     Status            `json:"status"`
	RecordedBy string            `json:"recordedBy"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Store persists attendance records keyed by (student, batch, date).
type Store interface {
	// ReplaceDay atomically deletes the records of the given students for batch and date and
	// inserts records in their place. It returns the number of rows written.
	ReplaceDay(ctx context.Context, batch principal.BatchID, date time.Time, records []Record) (int, error)
	ListByDate(ctx context.Context, batches []principal.BatchID, date time.Time) ([]Record, error)
	// ListByRange returns records with from <= date < to, newest first.
	ListByRange(ctx context.Context, batches []principal.BatchID, from, to time.Time) ([]Record, error)
	// ListByStudent returns the student's records, newest first. Zero bounds are open.
	ListByStudent(ctx context.Context, studentID string, from, to time.Time) ([]Record, error)
}

// Roster answers enrollment questions.
type Roster interface {
	StudentsInBatch(ctx context.Context, batch principal.BatchID) ([]principal.Student, error)
}
