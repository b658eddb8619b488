package auth

import (
	"context"
	"errors"
	"fmt"

	"tutorhub/internal/core"
	"tutorhub/internal/metrics"
	"tutorhub/internal/principal"
)

// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login.
type Session struct {
	Token   Token
	Profile principal.Principal
}

// Service authenticates principals against the credential store.
type Service struct {
	principals principal.Store
	issuer     *Issuer
}

// NewService creates a login service.
func NewService(principals principal.Store, issuer *Issuer) *Service {
	return &Service{principals: principals, issuer: issuer}
}

// Login checks the password of the principal with username in the given role and issues a token.
func (s *Service) Login(ctx context.Context, username, password string, role principal.Role) (Session, error) {
	if principal.ValidateUsername(username) != nil || password == "" {
		return Session{}, s.fail(role)
	}

	var (
		p   principal.Principal
		acc *principal.Account
		err error
	)
	switch role {
	case principal.RoleStudent:
		var st *principal.Student
		if st, err = s.principals.StudentByUsername(ctx, username); err == nil {
			p, acc = st, &st.Account
		}
	case principal.RoleTeacher:
		var tc *principal.Teacher
		if tc, err = s.principals.TeacherByUsername(ctx, username); err == nil {
			p, acc = tc, &tc.Account
		}
	default:
		return Session{}, s.fail(role)
	}
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Session{}, s.fail(role)
		}
		return Session{}, fmt.Errorf("lookup %s: %w", role, err)
	}

	if err := acc.CheckPassword(password); err != nil {
		if errors.Is(err, principal.ErrPasswordMismatch) {
			return Session{}, s.fail(role)
		}
		return Session{}, fmt.Errorf("check password: %w", err)
	}

	token, err := s.issuer.Issue(p.Identity())
	if err != nil {
		return Session{}, err
	}
	metrics.Logins.WithLabelValues(string(role), "ok").Inc()
	return Session{Token: token, Profile: p}, nil
}

func (s *Service) fail(role principal.Role) error {
	metrics.Logins.WithLabelValues(string(role), "invalid_credentials").Inc()
	return ErrInvalidCredentials
}
