package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// EnrollmentStore applies multi-table enrollment transitions in a single
// transaction, so a failure part-way never leaves a confirmed secret
// without recovery codes or without the user's MFA flag set.
type EnrollmentStore struct {
	db      *sql.DB
	secrets *MFASecretsRepository
	codes   *MFARecoveryCodesRepository
	users   *UsersRepository
}

// NewEnrollmentStore creates a new enrollment store.
func NewEnrollmentStore(db *sql.DB, secrets *MFASecretsRepository, codes *MFARecoveryCodesRepository, users *UsersRepository) *EnrollmentStore {
	return &EnrollmentStore{
		db:      db,
		secrets: secrets,
		codes:   codes,
		users:   users,
	}
}

// CommitEnrollment confirms the pending secret, replaces the user's
// recovery codes, and sets the MFA flag, all-or-nothing. The secret
// confirm is the one-time gate: of two concurrent commits exactly one
// succeeds, the other rolls back with ErrMFANotPending. usedAt records
// the time step of the code that confirmed, so it cannot be replayed.
func (s *EnrollmentStore) CommitEnrollment(ctx context.Context, userID, secretID uuid.UUID, usedAt time.Time, codes []*domain.MFARecoveryCode) error {
	return Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.secrets.ConfirmTx(ctx, tx, secretID, usedAt); err != nil {
			return err
		}
		if err := s.codes.DeleteAllByUserIDTx(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.codes.CreateBatchTx(ctx, tx, codes); err != nil {
			return err
		}
		return s.users.SetMFAEnabledTx(ctx, tx, userID, true)
	})
}
