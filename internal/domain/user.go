package domain

import (
	"errors"
	"strings"
	"time"
)

// Common validation errors for users
var (
	ErrNilUser           = errors.New("user cannot be nil")
	ErrInvalidUserID     = errors.New("user ID must be greater than zero")
	ErrEmptyUsername     = errors.New("username cannot be empty")
	ErrUsernameTooLong   = errors.New("username cannot exceed 30 characters")
	ErrEmptyEmail        = errors.New("email cannot be empty")
	ErrEmailTooLong      = errors.New("email cannot exceed 120 characters")
	ErrMissingCredential = errors.New("user must have a credential")
)

// Column length limits enforced before persistence.
const (
	MaxUsernameLength = 30
	MaxEmailLength    = 120
)

// User represents an account holder. Each user owns exactly one credential;
// the user row stores the credential's generated ID as a foreign key.
type User struct {
	ID           int64
	Username     string
	Email        string
	Active       bool
	RegisteredAt time.Time
	Credential   *Credential
}

// NewUser creates a transient user with a pending credential built from the
// given plaintext secret. IDs are assigned by the stores on insert.
func NewUser(username, email, plaintext string) (*User, error) {
	cred, err := NewCredential(plaintext)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		RegisteredAt: time.Now().UTC(),
		Credential:   cred,
	}

	if err := user.ValidateShape(); err != nil {
		return nil, err
	}

	return user, nil
}

// ValidateShape checks the fields a user needs before any store access:
// non-empty username and email within the column limits, and an attached
// credential. It does not check uniqueness; that requires the store.
func (u *User) ValidateShape() error {
	if u == nil {
		return ErrNilUser
	}
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if len(u.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if u.Credential == nil {
		return ErrMissingCredential
	}
	return nil
}
