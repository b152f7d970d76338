package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// CredentialsRepository handles password credential persistence.
type CredentialsRepository struct {
	db *sql.DB
}

// NewCredentialsRepository creates a new credentials repository.
func NewCredentialsRepository(db *sql.DB) *CredentialsRepository {
	return &CredentialsRepository{db: db}
}

// CreateTx stores credentials for a new user within a transaction.
func (r *CredentialsRepository) CreateTx(ctx context.Context, q Querier, cred *domain.UserCredential) error {
	query := `
		INSERT INTO user_credentials (user_id, password_hash, password_updated_at)
		VALUES ($1, $2, $3)
	`
	_, err := q.ExecContext(ctx, query, cred.UserID, cred.PasswordHash, cred.PasswordUpdatedAt)
	return err
}

// GetByUserID retrieves credentials for a user.
func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserCredential, error) {
	query := `
		SELECT user_id, password_hash, password_updated_at
		FROM user_credentials
		WHERE user_id = $1
	`
	cred := &domain.UserCredential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.UserID, &cred.PasswordHash, &cred.PasswordUpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// Update replaces a user's password hash.
func (r *CredentialsRepository) Update(ctx context.Context, cred *domain.UserCredential) error {
	query := `
		UPDATE user_credentials
		SET password_hash = $2, password_updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, cred.UserID, cred.PasswordHash)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrUserNotFound)
}
