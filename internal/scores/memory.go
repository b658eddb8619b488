package scores

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStore keeps score records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(ctx context.Context, recs []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recs...)
	return nil
}

func (m *MemoryStore) Find(_ context.Context, f Filter) ([]Record, error) {
	m.mu.RLock()
	var out []Record
	for _, r := range m.records {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func matches(r Record, f Filter) bool {
	if len(f.BatchIDs) > 0 && !slices.Contains(f.BatchIDs, r.BatchID) {
		return false
	}
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	if f.TestName != "" && r.TestName != f.TestName {
		return false
	}
	return f.StudentID == "" || r.StudentID == f.StudentID
}
