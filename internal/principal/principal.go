// Package principal holds students and teachers, their credentials and the batch roster.
package principal

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the closed set of principal kinds.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleTeacher:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// BatchID names one of the institute's fixed cohorts.
type BatchID string

const (
	BatchUdbhav  BatchID = "Udbhav"
	BatchAarambh BatchID = "Aarambh"
	BatchLakshya BatchID = "Lakshya"
	BatchPrayas  BatchID = "Prayas"
)

// Batches lists every known batch.
var Batches = []BatchID{BatchUdbhav, BatchAarambh, BatchLakshya, BatchPrayas}

// ParseBatch validates a batch name. Matching is exact: no trimming, no case folding.
func ParseBatch(s string) (BatchID, bool) {
	b := BatchID(s)
	return b, slices.Contains(Batches, b)
}

// MaxUsernameLen bounds usernames for both roles.
const MaxUsernameLen = 12

// Identity is what a verified session token says about its bearer.
type Identity struct {
	ID   string
	Role Role
}

// Account carries the fields shared by students and teachers.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Student is enrolled in exactly one batch.
type Student struct {
	Account
	Batch           BatchID    `json:"batch"`
	Class           string     `json:"class"`
	PhoneNumber     string     `json:"phoneNumber"`
	DateOfAdmission *time.Time `json:"dateOfAdmission,omitempty"`
}

// Teacher may mark and score only inside the assigned batches and subjects.
type Teacher struct {
	Account
	Subjects []string  `json:"subjects"`
	Batches  []BatchID `json:"batches"`
}

// Principal is implemented by Student and Teacher only.
type Principal interface {
	Identity() Identity
	account() *Account
}

func (s *Student) Identity() Identity { return Identity{ID: s.ID, Role: RoleStudent} }
func (s *Student) account() *Account  { return &s.Account }

func (t *Teacher) Identity() Identity { return Identity{ID: t.ID, Role: RoleTeacher} }
func (t *Teacher) account() *Account  { return &t.Account }

// ValidateUsername enforces the username shape shared by both roles.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("username required")
	case utf8.RuneCountInString(username) > MaxUsernameLen:
		return fmt.Errorf("username must be at most %d characters", MaxUsernameLen)
	}
	return nil
}
