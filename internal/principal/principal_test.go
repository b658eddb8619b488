package principal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub/internal/core"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Teacher ")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestParseBatch(t *testing.T) {
	b, ok := ParseBatch("Udbhav")
	assert.True(t, ok)
	assert.Equal(t, BatchUdbhav, b)

	_, ok = ParseBatch("udbhav")
	assert.False(t, ok, "batch names are exact")
	_, ok = ParseBatch("Batch-Z")
	assert.False(t, ok)
	_, ok = ParseBatch("Udbhav ")
	assert.False(t, ok, "padded names are not trimmed into the set")
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("riya"))
	assert.Error(t, ValidateUsername(""))
	assert.Error(t, ValidateUsername("abcdefghijklm"))
	assert.NoError(t, ValidateUsername("ज्योतिप्रकाश"), "length counts characters, not bytes")
	assert.Error(t, ValidateUsername("ज्योतिप्रकाशजी"))
}

func TestPasswordHashing(t *testing.T) {
	var a Account
	require.NoError(t, a.SetPassword("secret"))
	assert.NotEqual(t, []byte("secret"), a.PasswordHash)
	assert.NoError(t, a.CheckPassword("secret"))
	assert.ErrorIs(t, a.CheckPassword("wrong"), ErrPasswordMismatch)

	var empty Account
	assert.ErrorIs(t, empty.CheckPassword(""), ErrPasswordMismatch)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s1, err := m.AddStudent(Student{Account: Account{Username: "s1", Name: "Bela"}, Batch: BatchUdbhav})
	require.NoError(t, err)
	_, err = m.AddStudent(Student{Account: Account{Username: "s2", Name: "Arun"}, Batch: BatchUdbhav})
	require.NoError(t, err)
	_, err = m.AddStudent(Student{Account: Account{Username: "s3"}, Batch: BatchPrayas})
	require.NoError(t, err)

	_, err = m.AddStudent(Student{Account: Account{Username: "s1"}, Batch: BatchUdbhav})
	assert.Error(t, err, "usernames are unique per role")
	_, err = m.AddStudent(Student{Account: Account{Username: "s9"}, Batch: "Nowhere"})
	assert.Error(t, err)
	_, err = m.AddStudent(Student{Account: Account{Username: "s10"}, Batch: "Udbhav "})
	assert.Error(t, err, "padded batch is outside the closed set")
	_, err = m.AddTeacher(Teacher{Account: Account{Username: "t10"}, Batches: []BatchID{" Prayas"}})
	assert.Error(t, err)

	tc, err := m.AddTeacher(Teacher{Account: Account{Username: "s1"}, Batches: []BatchID{BatchUdbhav}, Subjects: []string{"Math"}})
	require.NoError(t, err, "the same username may exist in the other role")
	assert.Equal(t, []BatchID{BatchUdbhav}, tc.Batches)

	got, err := m.Student(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bela", got.Name)
	assert.Equal(t, Identity{ID: s1.ID, Role: RoleStudent}, got.Identity())

	_, err = m.Teacher(ctx, s1.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	inBatch, err := m.StudentsInBatch(ctx, BatchUdbhav)
	require.NoError(t, err)
	require.Len(t, inBatch, 2)
	assert.Equal(t, "Arun", inBatch[0].Name)

	teacher, err := m.TeacherByUsername(ctx, "s1")
	require.NoError(t, err)
	teacher.Batches[0] = BatchPrayas
	again, err := m.Teacher(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, BatchUdbhav, again.Batches[0], "returned teachers are copies")
}

func TestLoadSeed(t *testing.T) {
	seed := `{
		"students": [{"username": "s1", "name": "Riya", "batch": "Udbhav", "class": "10", "password": "pw1"}],
		"teachers": [{"username": "t1", "name": "Mr T", "subjects": ["Math"], "batches": ["Udbhav"], "password": "pw2"}]
	}`
	m := NewMemoryStore()
	students, teachers, err := m.LoadSeed(strings.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, 1, students)
	assert.Equal(t, 1, teachers)

	s, err := m.StudentByUsername(context.Background(), "s1")
	require.NoError(t, err)
	assert.NoError(t, s.CheckPassword("pw1"))
	assert.Equal(t, BatchUdbhav, s.Batch)

	tc, err := m.TeacherByUsername(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Math"}, tc.Subjects)
	assert.NoError(t, tc.CheckPassword("pw2"))
}
