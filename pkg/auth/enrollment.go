package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
	"github.com/nexauth/identity/pkg/totp"
)

const (
	recoveryCodeLength = 12
	recoveryCodeCount  = 10
	recoveryCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no ambiguous chars
)

// PasswordVerifier re-confirms a user's password for sensitive operations.
type PasswordVerifier interface {
	VerifyUserPassword(ctx context.Context, userID uuid.UUID, password string) error
}

// EnrollmentConfig holds configuration for the enrollment service.
type EnrollmentConfig struct {
	Issuer string // shown in authenticator apps
}

// EnrollmentService drives a user through the TOTP enrollment state
// machine: NotEnrolled -> PendingConfirmation -> Enrolled.
type EnrollmentService struct {
	config        EnrollmentConfig
	users         UserStore
	secrets       SecretStore
	recoveryCodes RecoveryCodeStore
	clients       ClientStore
	committer     EnrollmentCommitter
	passwords     PasswordVerifier
	sessions      SessionRevoker
	cipher        *SecretCipher
	now           func() time.Time
}

// NewEnrollmentService creates a new enrollment service.
func NewEnrollmentService(
	config EnrollmentConfig,
	users UserStore,
	secrets SecretStore,
	recoveryCodes RecoveryCodeStore,
	clients ClientStore,
	committer EnrollmentCommitter,
	passwords PasswordVerifier,
	sessions SessionRevoker,
	cipher *SecretCipher,
) *EnrollmentService {
	return &EnrollmentService{
		config:        config,
		users:         users,
		secrets:       secrets,
		recoveryCodes: recoveryCodes,
		clients:       clients,
		committer:     committer,
		passwords:     passwords,
		sessions:      sessions,
		cipher:        cipher,
		now:           time.Now,
	}
}

// Start begins enrollment for a user: generates a fresh TOTP secret,
// stores it unconfirmed, and returns the provisioning URI and manual
// entry key. Idempotent: re-invoking discards any prior unconfirmed
// secret. Refused once the user is enrolled.
func (s *EnrollmentService) Start(ctx context.Context, userID uuid.UUID) (*domain.EnrollmentSetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domain.ErrMFAAlreadyEnabled
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	encrypted, err := s.cipher.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt TOTP secret: %w", err)
	}

	record := &domain.MFASecret{
		ID:              uuid.New(),
		UserID:          userID,
		SecretEncrypted: encrypted,
		CreatedAt:       s.now(),
	}
	if err := s.secrets.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return &domain.EnrollmentSetup{
		Secret:          secret,
		ProvisioningURI: totp.ProvisioningURI(secret, s.config.Issuer, user.Email),
	}, nil
}

// Confirm verifies a code against the pending secret. On success the
// secret is activated, the MFA flag set, and a fresh set of one-time
// recovery codes is returned (shown exactly once). On a wrong code the
// state stays PendingConfirmation.
func (s *EnrollmentService) Confirm(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	record, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrMFANotEnabled) {
			return nil, domain.ErrMFANotPending
		}
		return nil, err
	}
	if record.IsConfirmed() {
		return nil, domain.ErrMFAAlreadyEnabled
	}

	secret, err := s.cipher.Decrypt(record.SecretEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}

	stepTime, ok := totp.VerifyStep(secret, code, s.now())
	if !ok {
		return nil, domain.ErrInvalidMFACode
	}

	plainCodes, hashedCodes, err := s.generateRecoveryCodes(userID)
	if err != nil {
		return nil, err
	}

	// One transactional transition: confirm the secret (the one-time
	// gate, a concurrent confirm loses inside), record the accepted
	// code's step so it cannot replay through login, install the
	// recovery codes, and flip the MFA flag.
	if err := s.committer.CommitEnrollment(ctx, userID, record.ID, stepTime, hashedCodes); err != nil {
		return nil, err
	}

	return plainCodes, nil
}

// Disable turns MFA off after password re-confirmation. Refused when the
// user's client mandates MFA. Clears the secret and recovery codes and
// revokes all sessions.
func (s *EnrollmentService) Disable(ctx context.Context, userID uuid.UUID, password string) error {
	if err := s.passwords.VerifyUserPassword(ctx, userID, password); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return domain.ErrMFANotEnabled
	}

	required, err := s.clientRequiresMFA(ctx, user)
	if err != nil {
		return err
	}
	if required {
		return domain.ErrMFARequiredByPolicy
	}

	if err := s.secrets.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete MFA secret: %w", err)
	}
	if err := s.recoveryCodes.DeleteAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete recovery codes: %w", err)
	}
	if err := s.users.SetMFAEnabled(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to disable MFA: %w", err)
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeAllSessions(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}
	return nil
}

// EnrollmentStatus describes a user's MFA posture.
type EnrollmentStatus struct {
	State                  domain.EnrollmentState
	Enabled                bool
	EnrolledAt             *time.Time
	RecoveryCodesRemaining int
	MFARequired            bool // effective: enrolled or demanded by client
	ClientRequiresMFA      bool
}

// Status reports the user's enrollment state and client policy bits.
func (s *EnrollmentService) Status(ctx context.Context, userID uuid.UUID) (*EnrollmentStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &EnrollmentStatus{
		State:      domain.EnrollmentNotEnrolled,
		Enabled:    user.MFAEnabled,
		EnrolledAt: user.MFAEnrolledAt,
	}

	record, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrMFANotEnabled) {
		return nil, err
	}
	if record != nil {
		status.State = record.State()
	}

	if user.MFAEnabled {
		remaining, err := s.recoveryCodes.CountUnused(ctx, userID)
		if err != nil {
			return nil, err
		}
		status.RecoveryCodesRemaining = remaining
	}

	status.ClientRequiresMFA, err = s.clientRequiresMFA(ctx, user)
	if err != nil {
		return nil, err
	}
	status.MFARequired = user.MFAEnabled || status.ClientRequiresMFA

	return status, nil
}

// VerifyTOTP checks a code against the user's confirmed secret. A wrong
// code is a false return; rate limiting is the caller's concern. Each
// time step yields at most one accepted code: the step of every accepted
// code is recorded, and a code from an already-consumed step is refused
// even while the verification window still covers it.
func (s *EnrollmentService) VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	record, err := s.secrets.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !record.IsConfirmed() {
		return false, domain.ErrMFANotEnabled
	}

	secret, err := s.cipher.Decrypt(record.SecretEncrypted)
	if err != nil {
		return false, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}

	stepTime, ok := totp.VerifyStep(secret, code, s.now())
	if !ok {
		return false, nil
	}
	if record.LastUsedAt != nil && !stepTime.After(*record.LastUsedAt) {
		return false, nil
	}

	// The store only advances last_used_at; losing the race with a
	// concurrent verification of the same step rejects this one too.
	if err := s.secrets.UpdateLastUsed(ctx, record.ID, stepTime); err != nil {
		if errors.Is(err, domain.ErrInvalidMFACode) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ConsumeRecoveryCode spends a recovery code. Exactly-once: the store's
// compare-and-swap guarantees a code accepted here is never accepted
// again.
func (s *EnrollmentService) ConsumeRecoveryCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	normalized := normalizeRecoveryCode(code)
	if normalized == "" {
		return false, nil
	}

	err := s.recoveryCodes.Consume(ctx, userID, HashToken(normalized))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRecoveryCode) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset clears the user's enrollment back to NotEnrolled. Used by the
// lost-device recovery flow; no password check because the caller has
// already proven identity via the recovery token chain.
func (s *EnrollmentService) Reset(ctx context.Context, userID uuid.UUID) error {
	if err := s.secrets.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete MFA secret: %w", err)
	}
	if err := s.recoveryCodes.DeleteAllByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete recovery codes: %w", err)
	}
	if err := s.users.SetMFAEnabled(ctx, userID, false); err != nil {
		return fmt.Errorf("failed to clear MFA flag: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeAllSessions(ctx, userID); err != nil {
			return fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}
	return nil
}

func (s *EnrollmentService) clientRequiresMFA(ctx context.Context, user *domain.User) (bool, error) {
	if s.clients == nil || user.TenantID == nil {
		return false, nil
	}
	client, err := s.clients.GetByTenantID(ctx, *user.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return false, nil
		}
		return false, err
	}
	return client.RequireMFA, nil
}

func (s *EnrollmentService) generateRecoveryCodes(userID uuid.UUID) ([]string, []*domain.MFARecoveryCode, error) {
	plain := make([]string, recoveryCodeCount)
	hashed := make([]*domain.MFARecoveryCode, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		code, err := generateRecoveryCode()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate recovery code: %w", err)
		}
		plain[i] = code
		hashed[i] = &domain.MFARecoveryCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  HashToken(normalizeRecoveryCode(code)),
			CreatedAt: s.now(),
		}
	}
	return plain, hashed, nil
}

// generateRecoveryCode generates a random code in format XXXX-XXXX-XXXX.
func generateRecoveryCode() (string, error) {
	chars := make([]byte, recoveryCodeLength)
	if _, err := rand.Read(chars); err != nil {
		return "", err
	}
	for i := range chars {
		chars[i] = recoveryCodeChars[int(chars[i])%len(recoveryCodeChars)]
	}
	return fmt.Sprintf("%s-%s-%s", chars[0:4], chars[4:8], chars[8:12]), nil
}

// normalizeRecoveryCode strips separators and uppercases user input.
func normalizeRecoveryCode(code string) string {
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(code)
}
