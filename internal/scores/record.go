// Package scores records test scores and derives per-student statistics.
package scores

import (
	"context"
	"time"

	"tutorhub/internal/principal"
)

// Record is one score of a student for a test in a subject.
type Record struct {
	ID         string            `json:"id"`
	StudentID  string            `json:"studentId"`
	TestName   string            `json:"testName"`
	Subject    string            `json:"subject"`
	BatchID    principal.BatchID `json:"batchId"`
	Score      float64           `json:"score"`
	MaxScore   float64           `json:"maxScore"`
	Date       time.Time         `json:"date"`
	RecordedBy string            `json:"recordedBy"`
	Remarks    string            `json:"remarks,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Percent is the score as a percentage of the maximum.
func (r Record) Percent() float64 {
	return r.Score / r.MaxScore * 100
}

// Filter narrows Find. Empty fields do not filter; set fields are combined with AND.
type Filter struct {
	BatchIDs  []principal.BatchID
	Subject   string
	TestName  string
	StudentID string
}

// Store persists score records.
type Store interface {
	// Insert writes all records or none.
	Insert(ctx context.Context, recs []Record) error
	// Find returns matching records, newest first.
	Find(ctx context.Context, f Filter) ([]Record, error)
}

// Roster answers enrollment questions.
type Roster interface {
	Student(ctx context.Context, id string) (*principal.Student, error)
	StudentsInBatch(ctx context.Context, batch principal.BatchID) ([]principal.Student, error)
}
