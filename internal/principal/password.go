package principal

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match the stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// SetPassword stores the bcrypt hash of pwd.
func (a *Account) SetPassword(pwd string) error {
	if pwd == "" {
		return errors.New("password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

// CheckPassword compares pwd against the stored hash. An account without a hash never matches.
func (a *Account) CheckPassword(pwd string) error {
	if len(a.PasswordHash) == 0 {
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
