package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents the identity principal.
type User struct {
	ID                  uuid.UUID
	TenantID            *uuid.UUID
	Email               string
	Name                *string
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	MFAEnabled          bool
	MFAEnrolledAt       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// IsLocked returns true if the account is locked at the given time.
func (u *User) IsLocked(now time.Time) bool {
	if u.LockedUntil == nil {
		return false
	}
	return now.Before(*u.LockedUntil)
}

// UserCredential stores password credentials separately from user profile.
type UserCredential struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}
