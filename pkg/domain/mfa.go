package domain

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentState is the MFA enrollment state of a user.
type EnrollmentState string

const (
	// EnrollmentNotEnrolled means the user has no TOTP secret.
	EnrollmentNotEnrolled EnrollmentState = "not_enrolled"
	// EnrollmentPendingConfirmation means a secret exists but has not been
	// confirmed with a valid code yet.
	EnrollmentPendingConfirmation EnrollmentState = "pending_confirmation"
	// EnrollmentEnrolled means MFA is active for the user.
	EnrollmentEnrolled EnrollmentState = "enrolled"
)

// MFASecret represents a user's TOTP secret, encrypted at rest.
// ConfirmedAt is nil while enrollment awaits code confirmation; a user has
// at most one row (unique user_id).
type MFASecret struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SecretEncrypted string // AES-256-GCM encrypted base32 secret
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	LastUsedAt      *time.Time // time step of the last accepted code; that step cannot accept again
}

// IsConfirmed reports whether the secret has been activated.
func (s *MFASecret) IsConfirmed() bool {
	return s.ConfirmedAt != nil
}

// State derives the enrollment state from the secret record.
func (s *MFASecret) State() EnrollmentState {
	if s == nil {
		return EnrollmentNotEnrolled
	}
	if s.ConfirmedAt == nil {
		return EnrollmentPendingConfirmation
	}
	return EnrollmentEnrolled
}

// MFARecoveryCode represents a hashed single-use recovery code.
type MFARecoveryCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string // SHA-256, base64 encoded
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsUsed returns true if the recovery code has been consumed.
func (c *MFARecoveryCode) IsUsed() bool {
	return c.UsedAt != nil
}

// EnrollmentSetup contains data returned once when enrollment starts.
type EnrollmentSetup struct {
	Secret          string // base32 secret for manual entry
	ProvisioningURI string // otpauth:// URI for authenticator apps
}
