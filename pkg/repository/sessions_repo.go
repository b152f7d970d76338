package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// SessionsRepository handles authenticated session persistence.
type SessionsRepository struct {
	db *sql.DB
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *sql.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

// Create creates a new session.
func (r *SessionsRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, mfa_verified, created_at, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.TokenHash, session.MFAVerified,
		session.CreatedAt, session.ExpiresAt, session.Metadata,
	)
	return err
}

// GetByTokenHash retrieves a session by refresh token hash.
func (r *SessionsRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token_hash, mfa_verified, created_at, expires_at, revoked_at, last_seen_at, metadata
		FROM sessions
		WHERE token_hash = $1
	`
	session := &domain.Session{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.MFAVerified,
		&session.CreatedAt, &session.ExpiresAt, &session.RevokedAt,
		&session.LastSeenAt, &session.Metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateLastSeen stamps session activity.
func (r *SessionsRepository) UpdateLastSeen(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET last_seen_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Revoke revokes a session by ID.
func (r *SessionsRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrSessionNotFound)
}

// RevokeByTokenHash revokes a session by refresh token hash.
func (r *SessionsRepository) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, tokenHash)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrSessionNotFound)
}

// RevokeAllByUserID revokes every live session of a user. Used after MFA
// disablement and enrollment resets.
func (r *SessionsRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
