package scores

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub/internal/core"
	"tutorhub/internal/principal"
	"tutorhub/internal/store"
)

const teacherID = "T1"

func newLedger(t *testing.T) (*Ledger, *MemoryStore) {
	t.Helper()
	roster := principal.NewMemoryStore()
	for _, s := range []struct {
		id    string
		batch principal.BatchID
	}{
		{"S1", principal.BatchUdbhav},
		{"S2", principal.BatchUdbhav},
		{"S3", principal.BatchAarambh},
	} {
		_, err := roster.AddStudent(principal.Student{
			Account: principal.Account{ID: s.id, Username: s.id, Name: "Student " + s.id},
			Batch:   s.batch,
		})
		require.NoError(t, err)
	}
	ms := NewMemoryStore()
	return NewLedger(ms, roster, time.Second, DefaultPassMark), ms
}

func ptr(v float64) *float64 { return &v }

func TestAddScoreAndSummary(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	in := []NewRecord{
		{StudentID: "S1", TestName: "Unit 1", Subject: "Physics", Score: 90, MaxScore: 100, Date: "2024-01-10"},
		{StudentID: "S1", TestName: "Unit 2", Subject: "Physics", Score: 30, MaxScore: 50, Date: "2024-01-17"},
	}
	for _, rec := range in {
		id, err := l.AddScore(ctx, teacherID, rec)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	sum, err := l.SummarizeStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Average: 75, Highest: 90, Lowest: 60, TotalTests: 2, PassRate: 100}, sum)

	recs, err := l.Find(ctx, Filter{StudentID: "S1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Unit 2", recs[0].TestName, "newest test first")
	assert.Equal(t, principal.BatchUdbhav, recs[0].BatchID, "batch defaults to the student's enrollment")
	assert.Equal(t, teacherID, recs[0].RecordedBy)
}

func TestAddScoreBounds(t *testing.T) {
	l, ms := newLedger(t)
	ctx := context.Background()
	base := NewRecord{StudentID: "S1", TestName: "Unit 1", Subject: "Physics", MaxScore: 50, Date: "2024-01-10"}

	for _, tc := range []struct {
		name       string
		score, max float64
		field      string
	}{
		{"above max", 51, 50, "score"},
		{"negative", -1, 50, "score"},
		{"zero max", 0, 0, "maxScore"},
		{"negative max", 1, -5, "maxScore"},
		{"nan", math.NaN(), 50, "score"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := base
			rec.Score, rec.MaxScore = tc.score, tc.max
			_, err := l.AddScore(ctx, teacherID, rec)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tc.field, verr.Fields[0].Field)
		})
	}

	for _, edge := range []float64{0, 50} {
		rec := base
		rec.Score = edge
		_, err := l.AddScore(ctx, teacherID, rec)
		require.NoError(t, err, "score %g", edge)
	}

	recs, err := ms.Find(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestAddScoreRejectsMissingFields(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.AddScore(context.Background(), teacherID, NewRecord{Score: 1, MaxScore: 10, Date: "Jan 10"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))

	got := map[string]bool{}
	for _, f := range verr.Fields {
		got[f.Field] = true
	}
	assert.Equal(t, map[string]bool{"studentId": true, "testName": true, "subject": true, "date": true}, got)
}

func TestAddScoreEnrollment(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	rec := NewRecord{StudentID: "S3", TestName: "Unit 1", Subject: "Physics", BatchID: principal.BatchUdbhav, Score: 5, MaxScore: 10, Date: "2024-01-10"}

	_, err := l.AddScore(ctx, teacherID, rec)
	assert.True(t, core.IsValidation(err), "student of another batch")

	rec.StudentID = "S9"
	_, err = l.AddScore(ctx, teacherID, rec)
	assert.ErrorIs(t, err, core.ErrNotFound)

	rec.StudentID, rec.BatchID = "S1", "Nope"
	_, err = l.AddScore(ctx, teacherID, rec)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAddBatchSkipsInvalidEntries(t *testing.T) {
	l, ms := newLedger(t)
	ctx := context.Background()
	meta := TestMeta{TestName: "Mock 1", Subject: "Chemistry", BatchID: principal.BatchUdbhav, MaxScore: 80, Date: "2024-02-01"}

	res, err := l.AddBatch(ctx, teacherID, meta, []BatchEntry{
		{StudentID: "S1", Score: ptr(64)},
		{StudentID: "S2"},
		{StudentID: "S3", Score: ptr(10)},
		{StudentID: "S9", Score: ptr(10)},
		{StudentID: "S2", Score: ptr(81)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, []string{"S2", "S3", "S9", "S2"}, res.Skipped)

	recs, err := ms.Find(ctx, Filter{TestName: "Mock 1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 64.0, recs[0].Score)
	assert.Equal(t, 80.0, recs[0].MaxScore)
}

func TestAddBatchValidatesMeta(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.AddBatch(ctx, teacherID, TestMeta{Subject: "Chemistry", BatchID: principal.BatchUdbhav, Date: "2024-02-01"}, nil)
	assert.True(t, core.IsValidation(err))

	_, err = l.AddBatch(ctx, teacherID, TestMeta{TestName: "x", Subject: "Chemistry", BatchID: "Unknown", MaxScore: 10, Date: "2024-02-01"}, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	res, err := l.AddBatch(ctx, teacherID, TestMeta{TestName: "x", Subject: "Chemistry", BatchID: principal.BatchUdbhav, MaxScore: 10, Date: "2024-02-01"}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Written)
	assert.Empty(t, res.Skipped)
}

func TestFindFilters(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	add := func(student, subject, test string) {
		_, err := l.AddScore(ctx, teacherID, NewRecord{StudentID: student, TestName: test, Subject: subject, Score: 1, MaxScore: 2, Date: "2024-01-10"})
		require.NoError(t, err)
	}
	add("S1", "Physics", "Unit 1")
	add("S2", "Physics", "Unit 1")
	add("S1", "Maths", "Unit 1")
	add("S3", "Physics", "Unit 1")

	recs, err := l.Find(ctx, Filter{BatchIDs: []principal.BatchID{principal.BatchUdbhav}, Subject: "Physics"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = l.Find(ctx, Filter{Subject: "Biology"})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = l.Find(ctx, Filter{BatchIDs: []principal.BatchID{"udbhav"}})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil, DefaultPassMark))

	recs := []Record{
		{Score: 1, MaxScore: 3},
		{Score: 39, MaxScore: 100},
		{Score: 40, MaxScore: 100},
	}
	s := Summarize(recs, DefaultPassMark)
	assert.Equal(t, 3, s.TotalTests)
	assert.Equal(t, 37.44, s.Average)
	assert.Equal(t, 40.0, s.Highest)
	assert.Equal(t, 33.33, s.Lowest)
	assert.Equal(t, 33.33, s.PassRate)
}

func TestNewLedgerPassMarkFallback(t *testing.T) {
	l := NewLedger(NewMemoryStore(), principal.NewMemoryStore(), time.Second, 0)
	assert.Equal(t, DefaultPassMark, l.passMark)
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f *failingStore) Find(context.Context, Filter) ([]Record, error) { return nil, f.err }

func TestStoreUnavailable(t *testing.T) {
	l, _ := newLedger(t)
	l.store = &failingStore{MemoryStore: NewMemoryStore(), err: fmt.Errorf("query: %w", context.DeadlineExceeded)}

	_, err := l.SummarizeStudent(context.Background(), "S1")
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestAddScoreCancelledBeforeStart(t *testing.T) {
	l, ms := newLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.AddScore(ctx, teacherID, NewRecord{StudentID: "S1", TestName: "Unit 1", Subject: "Physics", Score: 1, MaxScore: 2, Date: "2024-01-10"})
	assert.ErrorIs(t, err, context.Canceled)

	recs, _ := ms.Find(context.Background(), Filter{})
	assert.Empty(t, recs)
}

func TestPaddedBatchIsUnknown(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.AddScore(ctx, teacherID, NewRecord{StudentID: "S1", TestName: "Unit 1", Subject: "Physics", BatchID: "Udbhav ", Score: 1, MaxScore: 2, Date: "2024-01-10"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = l.AddBatch(ctx, teacherID, TestMeta{TestName: "Unit 1", Subject: "Physics", BatchID: " Udbhav", MaxScore: 2, Date: "2024-01-10"}, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentAddScore(t *testing.T) {
	l, ms := newLedger(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			id, err := l.AddScore(ctx, teacherID, NewRecord{
				StudentID: "S1", TestName: fmt.Sprintf("Quiz %d", i), Subject: "Physics",
				Score: float64(i), MaxScore: 20, Date: "2024-01-10",
			})
			if assert.NoError(t, err) {
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}(i)
		go func() {
			defer wg.Done()
			_, err := l.SummarizeStudent(ctx, "S1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 20)
	recs, err := ms.Find(ctx, Filter{StudentID: "S1"})
	require.NoError(t, err)
	assert.Len(t, recs, 20)
	sum, err := l.SummarizeStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 20, sum.TotalTests)
}
