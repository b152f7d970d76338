package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTokenKind is the purpose tag of a verification token.
// A token is only accepted by the one operation its kind names.
type VerificationTokenKind string

const (
	TokenKindEmailVerification VerificationTokenKind = "email_verification"
	// TokenKindRecoveryVerify gates the identity-verification step of the
	// lost-device flow.
	TokenKindRecoveryVerify VerificationTokenKind = "recovery_verify"
	// TokenKindRecoveryReset gates the final enrollment-reset step.
	TokenKindRecoveryReset VerificationTokenKind = "recovery_reset"
)

// VerificationToken is a single-use, purpose-tagged token. Only the
// SHA-256 hash of the raw token is stored; ConsumedAt is the burn record.
type VerificationToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TokenHash  string
	Kind       VerificationTokenKind
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Metadata   []byte
}

// IsValid reports whether the token is unconsumed and unexpired.
func (t *VerificationToken) IsValid(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
