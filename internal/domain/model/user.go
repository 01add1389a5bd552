package model

// Package model contains persistence-facing domain models.

import (
	"errors"
	"strings"
	"time"

	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
)

// UserStatus is the account lifecycle state. New accounts stay pending
// until onboarding completes.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// WelcomeCredits is granted to every newly created account.
const WelcomeCredits = 100

// User is a Savitara account, created either through Google sign-in or
// email registration.
type User struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string // empty for Google-only accounts
	GoogleID       string
	Role           domainauth.Role
	Status         UserStatus
	Credits        int
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLogin      *time.Time
}

// CanAuthenticate reports whether the account may establish a session.
func (u *User) CanAuthenticate() error {
	switch u.Status {
	case UserStatusSuspended:
		return ErrUserSuspended
	case UserStatusDeleted:
		return ErrUserNotActive
	default:
		return nil
	}
}

var (
	// ErrUserSuspended is returned when a suspended account attempts to sign in.
	ErrUserSuspended = errors.New("account suspended")
	// ErrUserNotActive is returned when a deleted account attempts to sign in.
	ErrUserNotActive = errors.New("account not active")
)

// CreateUserRequest carries the fields needed to insert a new account.
type CreateUserRequest struct {
	Email          string
	Name           string
	PasswordHash   string
	GoogleID       string
	Role           domainauth.Role
	Status         UserStatus
	Credits        int
	ProfilePicture string
}

// Validate checks required fields before insert.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if !r.Role.Valid() {
		return errors.New("role must be grihasta or acharya")
	}
	if r.PasswordHash == "" && r.GoogleID == "" {
		return errors.New("either a password hash or a google id is required")
	}
	return nil
}
