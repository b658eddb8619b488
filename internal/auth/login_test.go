package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub/internal/principal"
)

func newLoginFixture(t *testing.T) (*Service, *Issuer, principal.Student) {
	t.Helper()
	store := principal.NewMemoryStore()

	st := principal.Student{Account: principal.Account{Username: "riya"}, Batch: principal.BatchUdbhav}
	require.NoError(t, st.SetPassword("pw-student"))
	st, err := store.AddStudent(st)
	require.NoError(t, err)

	tc := principal.Teacher{Account: principal.Account{Username: "riya"}, Subjects: []string{"Math"}, Batches: []principal.BatchID{principal.BatchUdbhav}}
	require.NoError(t, tc.SetPassword("pw-teacher"))
	_, err = store.AddTeacher(tc)
	require.NoError(t, err)

	iss := NewIssuer("tutorhub", "secret", time.Hour)
	return NewService(store, iss), iss, st
}

func TestLogin(t *testing.T) {
	svc, iss, st := newLoginFixture(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "riya", "pw-student", principal.RoleStudent)
	require.NoError(t, err)
	id, err := iss.Verify(sess.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, principal.Identity{ID: st.ID, Role: principal.RoleStudent}, id)
	profile, ok := sess.Profile.(*principal.Student)
	require.True(t, ok)
	assert.Equal(t, principal.BatchUdbhav, profile.Batch)

	sess, err = svc.Login(ctx, "riya", "pw-teacher", principal.RoleTeacher)
	require.NoError(t, err)
	_, ok = sess.Profile.(*principal.Teacher)
	assert.True(t, ok, "role selects the principal table")
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _, _ := newLoginFixture(t)
	ctx := context.Background()

	cases := []struct {
		name, user, pass string
		role             principal.Role
	}{
		{"wrong password", "riya", "nope", principal.RoleStudent},
		{"other role password", "riya", "pw-teacher", principal.RoleStudent},
		{"unknown user", "ghost", "pw-student", principal.RoleStudent},
		{"too long username", "abcdefghijklmn", "pw", principal.RoleStudent},
		{"empty password", "riya", "", principal.RoleTeacher},
		{"unknown role", "riya", "pw-student", principal.Role("admin")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tc.user, tc.pass, tc.role)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}
