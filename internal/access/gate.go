// Package access decides whether a verified principal may perform an action on a resource.
// It is a pure decision function with no knowledge of transport or storage.
package access

import (
	"fmt"
	"slices"

	"tutorhub/internal/principal"
)

// Action is an operation guarded by the gate.
type Action string

const (
	MarkAttendance        Action = "mark_attendance"
	ViewAttendanceByDate  Action = "view_attendance_by_date"
	ViewAttendanceHistory Action = "view_attendance_history"
	ViewAttendanceSummary Action = "view_attendance_summary"
	ViewOwnAttendance     Action = "view_own_attendance"
	AddTestScore          Action = "add_test_score"
	ViewTestScores        Action = "view_test_scores"
	ViewTestScoreSummary  Action = "view_test_score_summary"
)

// Reason explains a denial.
type Reason string

const (
	WrongRole          Reason = "wrong_role"
	NotOwner           Reason = "not_owner"
	BatchNotAssigned   Reason = "batch_not_assigned"
	SubjectNotAssigned Reason = "subject_not_assigned"
	UnknownAction      Reason = "unknown_action"
)

// Subject is the principal asking. Batches and Subjects are only meaningful for teachers.
type Subject struct {
	ID       string
	Role     principal.Role
	Batches  []principal.BatchID
	Subjects []string
}

// StudentSubject builds the subject for a student identity.
func StudentSubject(id principal.Identity) Subject {
	return Subject{ID: id.ID, Role: principal.RoleStudent}
}

// TeacherSubject builds the subject for a teacher from its live profile.
func TeacherSubject(t *principal.Teacher) Subject {
	return Subject{ID: t.ID, Role: principal.RoleTeacher, Batches: t.Batches, Subjects: t.Subjects}
}

// Resource identifies what an action touches.
type Resource struct {
	StudentID string
	BatchIDs  []principal.BatchID
	Subject   string
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Err returns nil when allowed and a *DeniedError otherwise.
func (d Decision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Action: action, Reason: d.Reason}
}

// DeniedError is returned by boundaries that turn a denial into an error.
type DeniedError struct {
	Action Action
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("access denied for %s: %s", e.Action, e.Reason)
}

type scope uint8

const (
	scopeOwner scope = 1 << iota
	scopeBatch
	scopeSubject
)

type policy struct {
	student scope
	teacher scope
	roles   []principal.Role
}

var policies = map[Action]policy{
	MarkAttendance:        {roles: teacherOnly, teacher: scopeBatch},
	ViewAttendanceByDate:  {roles: teacherOnly, teacher: scopeBatch},
	ViewAttendanceHistory: {roles: teacherOnly, teacher: scopeBatch},
	ViewAttendanceSummary: {roles: both, student: scopeOwner, teacher: scopeBatch},
	ViewOwnAttendance:     {roles: studentOnly, student: scopeOwner},
	AddTestScore:          {roles: teacherOnly, teacher: scopeBatch | scopeSubject},
	ViewTestScores:        {roles: both, student: scopeOwner, teacher: scopeBatch},
	ViewTestScoreSummary:  {roles: both, student: scopeOwner, teacher: scopeBatch},
}

var (
	studentOnly = []principal.Role{principal.RoleStudent}
	teacherOnly = []principal.Role{principal.RoleTeacher}
	both        = []principal.Role{principal.RoleStudent, principal.RoleTeacher}
)

// Permits applies the role rule alone. It lets a boundary refuse a caller before reading the
// request body; Authorize still has to run once the resource is known.
func Permits(role principal.Role, action Action) Decision {
	p, ok := policies[action]
	if !ok {
		return deny(UnknownAction)
	}
	if !slices.Contains(p.roles, role) {
		return deny(WrongRole)
	}
	return Decision{Allowed: true}
}

// Authorize applies the rules in order, first match wins: role, ownership, batch, subject.
func Authorize(sub Subject, action Action, res Resource) Decision {
	if d := Permits(sub.Role, action); !d.Allowed {
		return d
	}
	p := policies[action]

	var sc scope
	switch sub.Role {
	case principal.RoleStudent:
		sc = p.student
	case principal.RoleTeacher:
		sc = p.teacher
	default:
		return deny(WrongRole)
	}

	if sc&scopeOwner != 0 && (res.StudentID == "" || res.StudentID != sub.ID) {
		return deny(NotOwner)
	}
	if sc&scopeBatch != 0 {
		if len(res.BatchIDs) == 0 {
			return deny(BatchNotAssigned)
		}
		for _, b := range res.BatchIDs {
			if !slices.Contains(sub.Batches, b) {
				return deny(BatchNotAssigned)
			}
		}
	}
	if sc&scopeSubject != 0 && !slices.Contains(sub.Subjects, res.Subject) {
		return deny(SubjectNotAssigned)
	}
	return Decision{Allowed: true}
}

func deny(r Reason) Decision { return Decision{Reason: r} }
