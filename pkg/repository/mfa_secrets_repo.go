package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// MFASecretsRepository handles TOTP secret persistence. A unique
// constraint on user_id enforces at most one secret per user.
type MFASecretsRepository struct {
	db *sql.DB
}

// NewMFASecretsRepository creates a new MFA secrets repository.
func NewMFASecretsRepository(db *sql.DB) *MFASecretsRepository {
	return &MFASecretsRepository{db: db}
}

// Upsert stores a new pending secret for a user, replacing any prior
// unconfirmed one. Re-running enrollment discards the old secret.
func (r *MFASecretsRepository) Upsert(ctx context.Context, secret *domain.MFASecret) error {
	query := `
		INSERT INTO mfa_secrets (id, user_id, secret_encrypted, confirmed_at, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id)
		DO UPDATE SET id = EXCLUDED.id,
		              secret_encrypted = EXCLUDED.secret_encrypted,
		              confirmed_at = EXCLUDED.confirmed_at,
		              created_at = EXCLUDED.created_at,
		              last_used_at = EXCLUDED.last_used_at
	`
	_, err := r.db.ExecContext(ctx, query,
		secret.ID, secret.UserID, secret.SecretEncrypted,
		secret.ConfirmedAt, secret.CreatedAt, secret.LastUsedAt,
	)
	return err
}

// GetByUserID retrieves the secret for a user, confirmed or pending.
func (r *MFASecretsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.MFASecret, error) {
	query := `
		SELECT id, user_id, secret_encrypted, confirmed_at, created_at, last_used_at
		FROM mfa_secrets
		WHERE user_id = $1
	`
	secret := &domain.MFASecret{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&secret.ID, &secret.UserID, &secret.SecretEncrypted,
		&secret.ConfirmedAt, &secret.CreatedAt, &secret.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMFANotEnabled
	}
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// ConfirmTx activates a pending secret and records the step of the code
// that confirmed it, so that code cannot replay through a later
// verification. Returns ErrMFANotPending when no unconfirmed secret
// exists, so a double confirm is detected.
func (r *MFASecretsRepository) ConfirmTx(ctx context.Context, q Querier, id uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE mfa_secrets
		SET confirmed_at = NOW(), last_used_at = $2
		WHERE id = $1 AND confirmed_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrMFANotPending)
}

// UpdateLastUsed records the time step of an accepted code. The WHERE
// predicate is the compare-and-swap: last_used_at only moves forward, so
// of two concurrent verifications of the same step exactly one wins.
// Zero rows affected means the step was already consumed.
func (r *MFASecretsRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE mfa_secrets
		SET last_used_at = $2
		WHERE id = $1 AND confirmed_at IS NOT NULL
		  AND (last_used_at IS NULL OR last_used_at < $2)
	`
	result, err := r.db.ExecContext(ctx, query, id, usedAt)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrInvalidMFACode)
}

// DeleteByUserID removes the secret for a user.
func (r *MFASecretsRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM mfa_secrets WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
