package scores

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"tutorhub/internal/core"
	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
	"tutorhub/internal/store"
)

// DefaultPassMark is the percentage at or above which a test counts as passed.
const DefaultPassMark = 40.0

// NewRecord is the input of AddScore. An empty BatchID is taken from the student's enrollment.
type NewRecord struct {
	StudentID string
	TestName  string
	Subject   string
	BatchID   principal.BatchID
	Score     float64
	MaxScore  float64
	Date      string
	Remarks   string
}

// TestMeta describes the test shared by every entry of AddBatch.
type TestMeta struct {
	TestName string
	Subject  string
	BatchID  principal.BatchID
	MaxScore float64
	Date     string
}

// BatchEntry is one student's score in AddBatch. A nil Score means absent or unparsable.
type BatchEntry struct {
	StudentID string
	Score     *float64
	Remarks   string
}

// BatchResult reports AddBatch. Skipped lists the student ids of entries not written.
type BatchResult struct {
	Written int      `json:"written"`
	Skipped []string `json:"skipped"`
}

// Summary holds statistics over per-record percentages.
type Summary struct {
	Average    float64 `json:"averageScore"`
	Highest    float64 `json:"highestScore"`
	Lowest     float64 `json:"lowestScore"`
	TotalTests int     `json:"totalTests"`
	PassRate   float64 `json:"passRate"`
}

// Ledger validates and stores test scores.
type Ledger struct {
	store    Store
	roster   Roster
	timeout  time.Duration
	passMark float64
	now      func() time.Time
}

// NewLedger creates a ledger. A passMark outside (0, 100] falls back to DefaultPassMark.
func NewLedger(s Store, roster Roster, timeout time.Duration, passMark float64) *Ledger {
	if passMark <= 0 || passMark > 100 {
		passMark = DefaultPassMark
	}
	return &Ledger{store: s, roster: roster, timeout: timeout, passMark: passMark, now: time.Now}
}

// AddScore validates and inserts one record. Duplicate (student, test, subject) tuples are not
// detected.
func (l *Ledger) AddScore(ctx context.Context, teacherID string, in NewRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var fields []core.FieldError
	add := func(field, msg string) { fields = append(fields, core.FieldError{Field: field, Error: msg}) }

	in.StudentID = strings.TrimSpace(in.StudentID)
	in.TestName = strings.TrimSpace(in.TestName)
	in.Subject = strings.TrimSpace(in.Subject)
	if teacherID == "" {
		add("teacherId", "required")
	}
	if in.StudentID == "" {
		add("studentId", "required")
	}
	if in.TestName == "" {
		add("testName", "required")
	}
	if in.Subject == "" {
		add("subject", "required")
	}
	if msg := checkBounds(in.Score, in.MaxScore); msg != "" {
		field := "score"
		if !(in.MaxScore > 0) {
			field = "maxScore"
		}
		add(field, msg)
	}
	day, err := core.ParseDate("date", in.Date)
	if err != nil {
		add("date", "must be a date formatted as YYYY-MM-DD")
	}
	if len(fields) > 0 {
		return "", core.NewValidationError(errors.New("invalid test score"), fields...)
	}

	st, err := l.student(ctx, in.StudentID)
	if err != nil {
		return "", err
	}
	batch := in.BatchID
	if batch == "" {
		batch = st.Batch
	}
	if err := checkBatch(batch); err != nil {
		return "", err
	}
	if st.Batch != batch {
		return "", core.Invalid("studentId", "student is not enrolled in batch "+string(batch))
	}

	rec := Record{
		ID:         uuid.NewString(),
		StudentID:  in.StudentID,
		TestName:   in.TestName,
		Subject:    in.Subject,
		BatchID:    batch,
		Score:      in.Score,
		MaxScore:   in.MaxScore,
		Date:       day,
		RecordedBy: teacherID,
		Remarks:    strings.TrimSpace(in.Remarks),
		CreatedAt:  l.now().UTC(),
	}
	if err := l.insert(ctx, []Record{rec}); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// AddBatch inserts one record per structurally valid entry. Entries with a missing or out of
// range score or a student outside the batch are skipped.
func (l *Ledger) AddBatch(ctx context.Context, teacherID string, meta TestMeta, entries []BatchEntry) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}
	meta.TestName = strings.TrimSpace(meta.TestName)
	meta.Subject = strings.TrimSpace(meta.Subject)

	var fields []core.FieldError
	if teacherID == "" {
		fields = append(fields, core.FieldError{Field: "teacherId", Error: "required"})
	}
	if meta.TestName == "" {
		fields = append(fields, core.FieldError{Field: "testName", Error: "required"})
	}
	if meta.Subject == "" {
		fields = append(fields, core.FieldError{Field: "subject", Error: "required"})
	}
	if !(meta.MaxScore > 0) {
		fields = append(fields, core.FieldError{Field: "maxScore", Error: "must be greater than 0"})
	}
	day, err := core.ParseDate("date", meta.Date)
	if err != nil {
		fields = append(fields, core.FieldError{Field: "date", Error: "must be a date formatted as YYYY-MM-DD"})
	}
	if len(fields) > 0 {
		return BatchResult{}, core.NewValidationError(errors.New("invalid test"), fields...)
	}
	if err := checkBatch(meta.BatchID); err != nil {
		return BatchResult{}, err
	}

	enrolled, err := l.enrolled(ctx, meta.BatchID)
	if err != nil {
		return BatchResult{}, err
	}

	now := l.now().UTC()
	res := BatchResult{Skipped: []string{}}
	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.StudentID)
		if id == "" || e.Score == nil || checkBounds(*e.Score, meta.MaxScore) != "" || !enrolled[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		recs = append(recs, Record{
			ID:         uuid.NewString(),
			StudentID:  id,
			TestName:   meta.TestName,
			Subject:    meta.Subject,
			BatchID:    meta.BatchID,
			Score:      *e.Score,
			MaxScore:   meta.MaxScore,
			Date:       day,
			RecordedBy: teacherID,
			Remarks:    strings.TrimSpace(e.Remarks),
			CreatedAt:  now,
		})
	}
	if len(recs) == 0 {
		return res, nil
	}
	if err := l.insert(ctx, recs); err != nil {
		return BatchResult{}, err
	}
	res.Written = len(recs)
	return res, nil
}

// Find returns records matching every set field of f.
func (l *Ledger) Find(ctx context.Context, f Filter) ([]Record, error) {
	for _, b := range f.BatchIDs {
		if err := checkBatch(b); err != nil {
			return nil, err
		}
	}
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	recs, err := l.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find scores: %w", store.Classify(err))
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// SummarizeStudent aggregates every record of the student.
func (l *Ledger) SummarizeStudent(ctx context.Context, studentID string) (Summary, error) {
	if studentID == "" {
		return Summary{}, core.Invalid("studentId", "required")
	}
	recs, err := l.Find(ctx, Filter{StudentID: studentID})
	if err != nil {
		return Summary{}, err
	}
	return Summarize(recs, l.passMark), nil
}

// Summarize computes statistics over per-record percentages. Average is the mean of the
// percentages, so tests with different maxima weigh the same. No records yields zeros.
func Summarize(recs []Record, passMark float64) Summary {
	if len(recs) == 0 {
		return Summary{}
	}
	var (
		sum    float64
		passed int
		s      = Summary{TotalTests: len(recs), Highest: math.Inf(-1), Lowest: math.Inf(1)}
	)
	for _, r := range recs {
		p := r.Percent()
		sum += p
		s.Highest = math.Max(s.Highest, p)
		s.Lowest = math.Min(s.Lowest, p)
		if p >= passMark {
			passed++
		}
	}
	s.Average = round2(sum / float64(len(recs)))
	s.Highest = round2(s.Highest)
	s.Lowest = round2(s.Lowest)
	s.PassRate = round2(float64(passed) / float64(len(recs)) * 100)
	return s
}

func (l *Ledger) insert(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wctx, cancel := store.Detached(ctx, l.timeout)
	defer cancel()
	if err := l.store.Insert(wctx, recs); err != nil {
		return fmt.Errorf("insert scores: %w", store.Classify(err))
	}
	for _, r := range recs {
		metrics.ScoresWritten.WithLabelValues(string(r.BatchID), r.Subject).Inc()
		metrics.ScorePercent.WithLabelValues(string(r.BatchID)).Observe(r.Percent())
	}
	return nil
}

func (l *Ledger) student(ctx context.Context, id string) (*principal.Student, error) {
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	st, err := l.roster.Student(ctx, id)
	if err != nil {
		return nil, store.Classify(err)
	}
	return st, nil
}

func (l *Ledger) enrolled(ctx context.Context, batch principal.BatchID) (map[string]bool, error) {
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	students, err := l.roster.StudentsInBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", store.Classify(err))
	}
	set := make(map[string]bool, len(students))
	for _, s := range students {
		set[s.ID] = true
	}
	return set, nil
}

// checkBounds returns a message when the pair is out of range. NaN never passes.
func checkBounds(score, max float64) string {
	switch {
	case !(max > 0) || math.IsInf(max, 0):
		return "maxScore must be greater than 0"
	case !(score >= 0):
		return "score must not be negative"
	case score > max:
		return "score must not exceed maxScore"
	}
	return ""
}

func checkBatch(batch principal.BatchID) error {
	if _, ok := principal.ParseBatch(string(batch)); !ok {
		return fmt.Errorf("batch %q: %w", batch, core.ErrNotFound)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
