package attendance

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"tutorhub/internal/core"
	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
	"tutorhub/internal/store"
)

// Entry is one requested mark inside a batch call.
type Entry struct {
	StudentID string `json:"studentId"`
	Status    string `json:"status"`
}

// Rejection reasons for entries dropped from a batch call.
const (
	RejectMissingStudent = "missing_student"
	RejectInvalidStatus  = "invalid_status"
	RejectNotEnrolled    = "not_enrolled"
)

// Rejection describes an entry that was dropped.
type Rejection struct {
	StudentID string `json:"studentId"`
	Reason    string `json:"reason"`
}

// MarkResult reports a batch call. Written is zero when nothing was stored.
type MarkResult struct {
	Written  int         `json:"written"`
	Rejected []Rejection `json:"rejected"`
}

// Summary aggregates a student's records. Percentage is present/total*100 rounded to one decimal.
type Summary struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// RosterEntry is a student of a batch with the status for one day.
type RosterEntry struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Status    Status `json:"status"`
}

// Ledger coordinates attendance marking and reads.
type Ledger struct {
	store   Store
	roster  Roster
	timeout time.Duration
	now     func() time.Time
}

// NewLedger creates a ledger. Writes are bounded by timeout.
func NewLedger(s Store, roster Roster, timeout time.Duration) *Ledger {
	return &Ledger{store: s, roster: roster, timeout: timeout, now: time.Now}
}

// MarkBatch replaces the marks of the listed students for batch and date. Entries for unknown
// or non-enrolled students or with invalid status are rejected individually. When a student
// appears more than once, the last entry wins.
func (l *Ledger) MarkBatch(ctx context.Context, teacherID string, batch principal.BatchID, date string, entries []Entry) (MarkResult, error) {
	if err := ctx.Err(); err != nil {
		return MarkResult{}, err
	}
	if teacherID == "" {
		return MarkResult{}, core.Invalid("teacherId", "required")
	}
	if err := checkBatch(batch); err != nil {
		return MarkResult{}, err
	}
	day, err := core.ParseDate("date", date)
	if err != nil {
		return MarkResult{}, err
	}

	enrolled, err := l.enrolled(ctx, batch)
	if err != nil {
		return MarkResult{}, err
	}

	order := make([]string, 0, len(entries))
	latest := make(map[string]Entry, len(entries))
	res := MarkResult{Rejected: []Rejection{}}
	for _, e := range entries {
		e.StudentID = strings.TrimSpace(e.StudentID)
		if e.StudentID == "" {
			res.Rejected = append(res.Rejected, Rejection{Reason: RejectMissingStudent})
			continue
		}
		if _, seen := latest[e.StudentID]; !seen {
			order = append(order, e.StudentID)
		}
		latest[e.StudentID] = e
	}

	now := l.now().UTC()
	records := make([]Record, 0, len(order))
	for _, id := range order {
		e := latest[id]
		status, ok := ParseStatus(e.Status)
		switch {
		case !ok:
			res.Rejected = append(res.Rejected, Rejection{StudentID: id, Reason: RejectInvalidStatus})
		case !enrolled[id]:
			res.Rejected = append(res.Rejected, Rejection{StudentID: id, Reason: RejectNotEnrolled})
		default:
			records = append(records, Record{
				StudentID:  id,
				BatchID:    batch,
				Date:       day,
				Status:     status,
				RecordedBy: teacherID,
				UpdatedAt:  now,
			})
		}
	}
	if n := len(res.Rejected); n > 0 {
		metrics.AttendanceRejected.WithLabelValues(string(batch)).Add(float64(n))
	}
	if len(records) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return MarkResult{}, err
	}

	wctx, cancel := store.Detached(ctx, l.timeout)
	defer cancel()
	written, err := l.store.ReplaceDay(wctx, batch, day, records)
	if err != nil {
		return MarkResult{}, fmt.Errorf("mark attendance: %w", store.Classify(err))
	}
	res.Written = written
	metrics.AttendanceWritten.WithLabelValues(string(batch)).Add(float64(written))
	return res, nil
}

// ByDate returns the records of the batches on date. Students without a record are absent from
// the result; callers treat them as unmarked.
func (l *Ledger) ByDate(ctx context.Context, batches []principal.BatchID, date string) ([]Record, error) {
	if err := checkBatches(batches); err != nil {
		return nil, err
	}
	day, err := core.ParseDate("date", date)
	if err != nil {
		return nil, err
	}
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	recs, err := l.store.ListByDate(ctx, batches, day)
	if err != nil {
		return nil, fmt.Errorf("attendance by date: %w", store.Classify(err))
	}
	return nonNil(recs), nil
}

// Roster lists every student of batch with the day's status, unmarked when no record exists.
func (l *Ledger) Roster(ctx context.Context, batch principal.BatchID, date string) ([]RosterEntry, error) {
	recs, err := l.ByDate(ctx, []principal.BatchID{batch}, date)
	if err != nil {
		return nil, err
	}
	status := make(map[string]Status, len(recs))
	for _, r := range recs {
		status[r.StudentID] = r.Status
	}

	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	students, err := l.roster.StudentsInBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", store.Classify(err))
	}
	out := make([]RosterEntry, 0, len(students))
	for _, s := range students {
		st, ok := status[s.ID]
		if !ok {
			st = StatusUnmarked
		}
		out = append(out, RosterEntry{StudentID: s.ID, Name: s.Name, Username: s.Username, Status: st})
	}
	return out, nil
}

// History returns the records of the batches in the calendar month (YYYY-MM), newest first.
func (l *Ledger) History(ctx context.Context, batches []principal.BatchID, month string) ([]Record, error) {
	if err := checkBatches(batches); err != nil {
		return nil, err
	}
	from, to, err := core.ParseMonth("month", month)
	if err != nil {
		return nil, err
	}
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	recs, err := l.store.ListByRange(ctx, batches, from, to)
	if err != nil {
		return nil, fmt.Errorf("attendance history: %w", store.Classify(err))
	}
	return nonNil(recs), nil
}

// StudentHistory returns one student's records in the month, newest first. An empty month
// returns every record.
func (l *Ledger) StudentHistory(ctx context.Context, studentID, month string) ([]Record, error) {
	if studentID == "" {
		return nil, core.Invalid("studentId", "required")
	}
	var from, to time.Time
	if month != "" {
		var err error
		if from, to, err = core.ParseMonth("month", month); err != nil {
			return nil, err
		}
	}
	ctx, cancel := store.Bound(ctx, l.timeout)
	defer cancel()
	recs, err := l.store.ListByStudent(ctx, studentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("student attendance: %w", store.Classify(err))
	}
	return nonNil(recs), nil
}

// Summarize counts every record of the student.
func (l *Ledger) Summarize(ctx context.Context, studentID string) (Summary, error) {
	recs, err := l.StudentHistory(ctx, studentID, "")
	if err != nil {
		return Summary{}, err
	}
	return Summarize(recs), nil
}

// Summarize aggregates records. An empty slice yields all zeros.
func Summarize(recs []Record) Summary {
	var s Summary
	for _, r := range recs {
		switch r.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusLate:
			s.Late++
		}
		s.Total++
	}
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present)/float64(s.Total)*1000) / 10
	}
	return s
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

func checkBatch(batch principal.BatchID) error {
	if _, ok := principal.ParseBatch(string(batch)); !ok {
		return fmt.Errorf("batch %q: %w", batch, core.ErrNotFound)
	}
	return nil
}

func checkBatches(batches []principal.BatchID) error {
	if len(batches) == 0 {
		return core.Invalid("batchId", "at least one batch required")
	}
	for _, b := range batches {
		if err := checkBatch(b); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(recs []Record) []Record {
	if recs == nil {
		return []Record{}
	}
	return recs
}
