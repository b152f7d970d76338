package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// MFARecoveryCodesRepository handles recovery code persistence. Codes are
// stored as SHA-256 hashes and consumed with a single compare-and-swap
// update so a code can never be spent twice, even under concurrent
// requests.
type MFARecoveryCodesRepository struct {
	db *sql.DB
}

// NewMFARecoveryCodesRepository creates a new recovery codes repository.
func NewMFARecoveryCodesRepository(db *sql.DB) *MFARecoveryCodesRepository {
	return &MFARecoveryCodesRepository{db: db}
}

// CreateBatch inserts a fresh set of recovery codes, all-or-nothing.
func (r *MFARecoveryCodesRepository) CreateBatch(ctx context.Context, codes []*domain.MFARecoveryCode) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		return r.CreateBatchTx(ctx, tx, codes)
	})
}

// CreateBatchTx inserts a set of recovery codes inside a caller-owned
// transaction.
func (r *MFARecoveryCodesRepository) CreateBatchTx(ctx context.Context, q Querier, codes []*domain.MFARecoveryCode) error {
	query := `
		INSERT INTO mfa_recovery_codes (id, user_id, code_hash, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, code := range codes {
		_, err := q.ExecContext(ctx, query,
			code.ID, code.UserID, code.CodeHash, code.UsedAt, code.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recovery code: %w", err)
		}
	}
	return nil
}

// Consume atomically marks the matching unused code as spent. The WHERE
// predicate is the compare-and-swap: zero rows affected means the code is
// unknown, belongs to another user, or was already used.
func (r *MFARecoveryCodesRepository) Consume(ctx context.Context, userID uuid.UUID, codeHash string) error {
	query := `
		UPDATE mfa_recovery_codes
		SET used_at = NOW()
		WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID, codeHash)
	if err != nil {
		return fmt.Errorf("failed to consume recovery code: %w", err)
	}
	return requireRowAffected(result, domain.ErrInvalidRecoveryCode)
}

// CountUnused returns the number of remaining recovery codes for a user.
func (r *MFARecoveryCodesRepository) CountUnused(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM mfa_recovery_codes
		WHERE user_id = $1 AND used_at IS NULL
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unused recovery codes: %w", err)
	}
	return count, nil
}

// DeleteAllByUserID removes all recovery codes for a user.
func (r *MFARecoveryCodesRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.DeleteAllByUserIDTx(ctx, r.db, userID)
}

// DeleteAllByUserIDTx removes all recovery codes for a user inside a
// caller-owned transaction.
func (r *MFARecoveryCodesRepository) DeleteAllByUserIDTx(ctx context.Context, q Querier, userID uuid.UUID) error {
	query := `DELETE FROM mfa_recovery_codes WHERE user_id = $1`
	_, err := q.ExecContext(ctx, query, userID)
	return err
}
