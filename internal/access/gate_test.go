package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tutorhub/internal/principal"
)

var (
	student = Subject{ID: "S1", Role: principal.RoleStudent}
	teacher = Subject{
		ID:       "T1",
		Role:     principal.RoleTeacher,
		Batches:  []principal.BatchID{principal.BatchUdbhav},
		Subjects: []string{"Math"},
	}
	udbhav = []principal.BatchID{principal.BatchUdbhav}
	prayas = []principal.BatchID{principal.BatchPrayas}
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		sub    Subject
		action Action
		res    Resource
		want   Decision
	}{
		{"teacher marks assigned batch", teacher, MarkAttendance, Resource{BatchIDs: udbhav}, Decision{Allowed: true}},
		{"teacher marks other batch", teacher, MarkAttendance, Resource{BatchIDs: prayas}, Decision{Reason: BatchNotAssigned}},
		{"teacher marks without batch", teacher, MarkAttendance, Resource{}, Decision{Reason: BatchNotAssigned}},
		{"student marks", student, MarkAttendance, Resource{BatchIDs: udbhav}, Decision{Reason: WrongRole}},
		{"student own summary", student, ViewAttendanceSummary, Resource{StudentID: "S1"}, Decision{Allowed: true}},
		{"student other summary", student, ViewAttendanceSummary, Resource{StudentID: "S2"}, Decision{Reason: NotOwner}},
		{"teacher summary in batch", teacher, ViewAttendanceSummary, Resource{StudentID: "S2", BatchIDs: udbhav}, Decision{Allowed: true}},
		{"teacher summary outside batch", teacher, ViewAttendanceSummary, Resource{StudentID: "S9", BatchIDs: prayas}, Decision{Reason: BatchNotAssigned}},
		{"teacher own-history action", teacher, ViewOwnAttendance, Resource{StudentID: "T1"}, Decision{Reason: WrongRole}},
		{"by-date mixed batches", teacher, ViewAttendanceByDate, Resource{BatchIDs: []principal.BatchID{principal.BatchUdbhav, principal.BatchPrayas}}, Decision{Reason: BatchNotAssigned}},
		{"score in subject", teacher, AddTestScore, Resource{BatchIDs: udbhav, Subject: "Math"}, Decision{Allowed: true}},
		{"score other subject", teacher, AddTestScore, Resource{BatchIDs: udbhav, Subject: "Physics"}, Decision{Reason: SubjectNotAssigned}},
		{"score other batch beats subject", teacher, AddTestScore, Resource{BatchIDs: prayas, Subject: "Physics"}, Decision{Reason: BatchNotAssigned}},
		{"student adds score", student, AddTestScore, Resource{StudentID: "S1", BatchIDs: udbhav, Subject: "Math"}, Decision{Reason: WrongRole}},
		{"student own scores", student, ViewTestScores, Resource{StudentID: "S1"}, Decision{Allowed: true}},
		{"student empty owner", student, ViewTestScoreSummary, Resource{}, Decision{Reason: NotOwner}},
		{"unknown role", Subject{ID: "X", Role: "admin"}, ViewTestScores, Resource{StudentID: "X"}, Decision{Reason: WrongRole}},
		{"unknown action", teacher, Action("delete_everything"), Resource{}, Decision{Reason: UnknownAction}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.sub, tc.action, tc.res))
		})
	}
}

func TestDecisionErr(t *testing.T) {
	assert.NoError(t, Decision{Allowed: true}.Err(MarkAttendance))

	err := Decision{Reason: BatchNotAssigned}.Err(MarkAttendance)
	var denied *DeniedError
	assert.True(t, errors.As(err, &denied))
	assert.Equal(t, BatchNotAssigned, denied.Reason)
	assert.Contains(t, err.Error(), "batch_not_assigned")
}

func TestTeacherSubject(t *testing.T) {
	tc := &principal.Teacher{
		Account:  principal.Account{ID: "T1"},
		Subjects: []string{"Math"},
		Batches:  udbhav,
	}
	assert.Equal(t, teacher, TeacherSubject(tc))
	assert.Equal(t, student, StudentSubject(principal.Identity{ID: "S1", Role: principal.RoleStudent}))
}

func TestPermitsChecksRoleOnly(t *testing.T) {
	assert.Equal(t, Decision{Reason: WrongRole}, Permits(principal.RoleStudent, AddTestScore))
	assert.Equal(t, Decision{Reason: WrongRole}, Permits(principal.RoleStudent, MarkAttendance))
	assert.Equal(t, Decision{Reason: UnknownAction}, Permits(principal.RoleTeacher, "drop_tables"))
	assert.True(t, Permits(principal.RoleTeacher, AddTestScore).Allowed, "scope is left to Authorize")
	assert.True(t, Permits(principal.RoleStudent, ViewTestScores).Allowed)
}
