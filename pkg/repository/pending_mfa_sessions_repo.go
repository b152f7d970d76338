package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// PendingMFASessionsRepository handles the transient records gating
// password-verified logins that still await a second factor.
type PendingMFASessionsRepository struct {
	db *sql.DB
}

// NewPendingMFASessionsRepository creates a new pending MFA sessions repository.
func NewPendingMFASessionsRepository(db *sql.DB) *PendingMFASessionsRepository {
	return &PendingMFASessionsRepository{db: db}
}

// Create inserts a new pending session.
func (r *PendingMFASessionsRepository) Create(ctx context.Context, session *domain.PendingMFASession) error {
	query := `
		INSERT INTO pending_mfa_sessions (id, user_id, client_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.ClientID, session.TokenHash,
		session.CreatedAt, session.ExpiresAt,
	)
	return err
}

// GetByTokenHash retrieves a pending session by challenge token hash.
func (r *PendingMFASessionsRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PendingMFASession, error) {
	query := `
		SELECT id, user_id, client_id, token_hash, created_at, expires_at, consumed_at
		FROM pending_mfa_sessions
		WHERE token_hash = $1
	`
	session := &domain.PendingMFASession{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.ClientID, &session.TokenHash,
		&session.CreatedAt, &session.ExpiresAt, &session.ConsumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMFASessionExpired
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Consume atomically marks a pending session as used. Zero rows affected
// means a concurrent request already completed or the session was consumed.
func (r *PendingMFASessionsRepository) Consume(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE pending_mfa_sessions
		SET consumed_at = NOW()
		WHERE id = $1 AND consumed_at IS NULL AND expires_at > NOW()
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrMFASessionExpired)
}

// DeleteExpired removes sessions past their expiry window.
func (r *PendingMFASessionsRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM pending_mfa_sessions WHERE expires_at <= NOW()`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
