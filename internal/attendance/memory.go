package attendance

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"tutorhub/internal/principal"
)

type recordKey struct {
	studentID string
	batch     principal.BatchID
	date      time.Time
}

// MemoryStore keeps attendance records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[recordKey]Record)}
}

func (m *MemoryStore) ReplaceDay(ctx context.Context, batch principal.BatchID, date time.Time, records []Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		delete(m.records, recordKey{rec.StudentID, batch, date})
	}
	for _, rec := range records {
		m.records[recordKey{rec.StudentID, batch, date}] = rec
	}
	return len(records), nil
}

func (m *MemoryStore) ListByDate(_ context.Context, batches []principal.BatchID, date time.Time) ([]Record, error) {
	out := m.filter(func(r Record) bool {
		return slices.Contains(batches, r.BatchID) && r.Date.Equal(date)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].BatchID != out[j].BatchID {
			return out[i].BatchID < out[j].BatchID
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func (m *MemoryStore) ListByRange(_ context.Context, batches []principal.BatchID, from, to time.Time) ([]Record, error) {
	out := m.filter(func(r Record) bool {
		return slices.Contains(batches, r.BatchID) && !r.Date.Before(from) && r.Date.Before(to)
	})
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ListByStudent(_ context.Context, studentID string, from, to time.Time) ([]Record, error) {
	out := m.filter(func(r Record) bool {
		if r.StudentID != studentID {
			return false
		}
		if !from.IsZero() && r.Date.Before(from) {
			return false
		}
		return to.IsZero() || r.Date.Before(to)
	})
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) filter(keep func(Record) bool) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func sortNewestFirst(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.After(recs[j].Date)
		}
		if recs[i].BatchID != recs[j].BatchID {
			return recs[i].BatchID < recs[j].BatchID
		}
		return recs[i].StudentID < recs[j].StudentID
	})
}
