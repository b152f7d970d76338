package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingMFASession correlates a password-verified login that still awaits
// its second factor. Created at password-check success, consumed exactly
// once on second-factor success, dead past ExpiresAt.
type PendingMFASession struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ClientID   *uuid.UUID
	TokenHash  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsValid reports whether the session can still complete a login.
func (p *PendingMFASession) IsValid(now time.Time) bool {
	return p.ConsumedAt == nil && now.Before(p.ExpiresAt)
}
