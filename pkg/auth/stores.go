package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// Boundary collaborators consumed by the enrollment, login-gate, and
// recovery services. The pkg/repository types satisfy these; tests supply
// in-memory fakes.

// UserStore reads and mutates identity principals.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetEmailVerified(ctx context.Context, userID uuid.UUID) error
	SetMFAEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error
}

// SecretStore persists TOTP secrets. UpdateLastUsed must be atomic: it
// records the time step of an accepted code and fails when that step is
// not later than the one already recorded, so a code can be accepted at
// most once even across concurrent verifications.
type SecretStore interface {
	Upsert(ctx context.Context, secret *domain.MFASecret) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MFASecret, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

// EnrollmentCommitter applies the pending-to-enrolled transition as one
// atomic unit: confirm the secret, replace the recovery codes, set the
// user's MFA flag. A partial transition must never be observable.
type EnrollmentCommitter interface {
	CommitEnrollment(ctx context.Context, userID, secretID uuid.UUID, usedAt time.Time, codes []*domain.MFARecoveryCode) error
}

// RecoveryCodeStore persists hashed single-use recovery codes. Consume
// must be atomic: a code spent by one request must fail for all others.
type RecoveryCodeStore interface {
	CreateBatch(ctx context.Context, codes []*domain.MFARecoveryCode) error
	Consume(ctx context.Context, userID uuid.UUID, codeHash string) error
	CountUnused(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error
}

// PendingSessionStore persists password-verified-but-unconfirmed logins.
type PendingSessionStore interface {
	Create(ctx context.Context, session *domain.PendingMFASession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PendingMFASession, error)
	Consume(ctx context.Context, id uuid.UUID) error
}

// TokenStore persists purpose-tagged verification tokens.
type TokenStore interface {
	Create(ctx context.Context, token *domain.VerificationToken) error
	GetByTokenHash(ctx context.Context, tokenHash string, kind domain.VerificationTokenKind) (*domain.VerificationToken, error)
	MarkConsumed(ctx context.Context, tokenID uuid.UUID) error
	RevokeActiveTokens(ctx context.Context, userID uuid.UUID, kind domain.VerificationTokenKind) error
}

// TenantStore resolves tenants for client policy lookups.
type TenantStore interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// ClientStore resolves client policy records.
type ClientStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*domain.Client, error)
}

// SessionRevoker revokes authenticated sessions after credential-state
// changes (MFA disable, enrollment reset).
type SessionRevoker interface {
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) error
}

// Notifier dispatches tokens out of band. Implementations must not be
// relied on for control flow: failures are logged, never surfaced to the
// initiating client.
type Notifier interface {
	SendActivationToken(email, token string) error
	SendRecoveryToken(email, token string) error
}
