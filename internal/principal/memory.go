package principal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorhub/internal/core"
)

// MemoryStore keeps principals in process memory. It backs tests and the memory store backend.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]*Student
	teachers map[string]*Teacher
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]*Student),
		teachers: make(map[string]*Teacher),
	}
}

// AddStudent inserts a student, assigning an id and creation time when missing.
func (m *MemoryStore) AddStudent(s Student) (Student, error) {
	if err := ValidateUsername(s.Username); err != nil {
		return Student{}, err
	}
	if _, ok := ParseBatch(string(s.Batch)); !ok {
		return Student{}, fmt.Errorf("unknown batch %q", s.Batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.students {
		if other.Username == s.Username {
			return Student{}, fmt.Errorf("student username %q already taken", s.Username)
		}
	}
	fillAccount(&s.Account)
	m.students[s.ID] = &s
	return s, nil
}

// AddTeacher inserts a teacher, assigning an id and creation time when missing.
func (m *MemoryStore) AddTeacher(t Teacher) (Teacher, error) {
	if err := ValidateUsername(t.Username); err != nil {
		return Teacher{}, err
	}
	for _, b := range t.Batches {
		if _, ok := ParseBatch(string(b)); !ok {
			return Teacher{}, fmt.Errorf("unknown batch %q", b)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.teachers {
		if other.Username == t.Username {
			return Teacher{}, fmt.Errorf("teacher username %q already taken", t.Username)
		}
	}
	fillAccount(&t.Account)
	m.teachers[t.ID] = &t
	return t, nil
}

func fillAccount(a *Account) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

func (m *MemoryStore) StudentByUsername(_ context.Context, username string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.Username == username {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("student: %w", core.ErrNotFound)
}

func (m *MemoryStore) TeacherByUsername(_ context.Context, username string) (*Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.teachers {
		if t.Username == username {
			return copyTeacher(t), nil
		}
	}
	return nil, fmt.Errorf("teacher: %w", core.ErrNotFound)
}

func (m *MemoryStore) Student(_ context.Context, id string) (*Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, fmt.Errorf("student: %w", core.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Teacher(_ context.Context, id string) (*Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teachers[id]
	if !ok {
		return nil, fmt.Errorf("teacher: %w", core.ErrNotFound)
	}
	return copyTeacher(t), nil
}

func (m *MemoryStore) StudentsInBatch(_ context.Context, batch BatchID) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Student
	for _, s := range m.students {
		if s.Batch == batch {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

func copyTeacher(t *Teacher) *Teacher {
	cp := *t
	cp.Subjects = append([]string(nil), t.Subjects...)
	cp.Batches = append([]BatchID(nil), t.Batches...)
	return &cp
}

// seedFile is the JSON shape accepted by LoadSeed. Passwords are plain text and hashed on load.
type seedFile struct {
	Students []struct {
		Student
		Password string `json:"password"`
	} `json:"students"`
	Teachers []struct {
		Teacher
		Password string `json:"password"`
	} `json:"teachers"`
}

// LoadSeed reads principals from r into the store.
func (m *MemoryStore) LoadSeed(r io.Reader) (students, teachers int, err error) {
	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return 0, 0, fmt.Errorf("decode seed: %w", err)
	}
	for _, s := range seed.Students {
		st := s.Student
		if err := st.SetPassword(s.Password); err != nil {
			return students, teachers, fmt.Errorf("student %s: %w", st.Username, err)
		}
		if _, err := m.AddStudent(st); err != nil {
			return students, teachers, err
		}
		students++
	}
	for _, t := range seed.Teachers {
		tc := t.Teacher
		if err := tc.SetPassword(t.Password); err != nil {
			return students, teachers, fmt.Errorf("teacher %s: %w", tc.Username, err)
		}
		if _, err := m.AddTeacher(tc); err != nil {
			return students, teachers, err
		}
		teachers++
	}
	return students, teachers, nil
}
