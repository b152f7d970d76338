package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// Default recovery token lifetimes.
const (
	DefaultRecoveryVerifyTTL = 30 * time.Minute
	DefaultRecoveryResetTTL  = 10 * time.Minute
)

// IdentityChecker is the pluggable supplementary identity policy for the
// verify-identity step. A nil checker means possession of the recovery
// token is sufficient. Implementations decide what the answers mean;
// the core only cares whether the check passes.
type IdentityChecker interface {
	VerifyAnswers(ctx context.Context, userID uuid.UUID, answers []string) error
}

// EnrollmentResetter clears a user's MFA enrollment.
type EnrollmentResetter interface {
	Reset(ctx context.Context, userID uuid.UUID) error
}

// RecoveryConfig holds configuration for the lost-device recovery flow.
type RecoveryConfig struct {
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

// RecoveryService implements the three-step lost-device flow. Each step
// is gated by a single-use token purpose-tagged to that step, so a token
// can never be replayed or used across steps.
type RecoveryService struct {
	config     RecoveryConfig
	logger     *slog.Logger
	users      UserStore
	tokens     TokenStore
	enrollment EnrollmentResetter
	checker    IdentityChecker
	notifier   Notifier
	now        func() time.Time
}

// NewRecoveryService creates a new recovery service.
func NewRecoveryService(
	config RecoveryConfig,
	logger *slog.Logger,
	users UserStore,
	tokens TokenStore,
	enrollment EnrollmentResetter,
	checker IdentityChecker,
	notifier Notifier,
) *RecoveryService {
	if config.VerifyTokenTTL == 0 {
		config.VerifyTokenTTL = DefaultRecoveryVerifyTTL
	}
	if config.ResetTokenTTL == 0 {
		config.ResetTokenTTL = DefaultRecoveryResetTTL
	}
	return &RecoveryService{
		config:     config,
		logger:     logger,
		users:      users,
		tokens:     tokens,
		enrollment: enrollment,
		checker:    checker,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Initiate starts recovery for an email address. The return is uniform
// whether or not the account exists; when it does, a verify-identity
// token is dispatched out of band. Notifier failures are logged and
// never block the acknowledgement.
func (s *RecoveryService) Initiate(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		// Persistence trouble is also swallowed into the generic ack;
		// revealing it would distinguish existing accounts.
		s.logger.Error("recovery initiation lookup failed", "error", err)
		return nil
	}

	raw, err := s.mintToken(ctx, user.ID, domain.TokenKindRecoveryVerify, s.config.VerifyTokenTTL)
	if err != nil {
		s.logger.Error("failed to mint recovery token", "error", err, "user_id", user.ID)
		return nil
	}

	go func(email, token string) {
		if err := s.notifier.SendRecoveryToken(email, token); err != nil {
			s.logger.Error("failed to dispatch recovery token", "error", err)
		}
	}(user.Email, raw)

	return nil
}

// VerifyResult carries the short-lived reset token issued by the
// verify-identity step.
type VerifyResult struct {
	VerifiedToken string
	ExpiresIn     int // seconds
}

// VerifyIdentity validates and burns a verify-identity token, runs the
// supplementary identity policy, and issues a reset-enrollment token
// with a short expiry.
func (s *RecoveryService) VerifyIdentity(ctx context.Context, rawToken string, answers []string) (*VerifyResult, error) {
	token, err := s.consumeToken(ctx, rawToken, domain.TokenKindRecoveryVerify)
	if err != nil {
		return nil, err
	}

	if s.checker != nil {
		if err := s.checker.VerifyAnswers(ctx, token.UserID, answers); err != nil {
			return nil, domain.ErrIdentityCheckFailed
		}
	}

	resetToken, err := s.mintToken(ctx, token.UserID, domain.TokenKindRecoveryReset, s.config.ResetTokenTTL)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		VerifiedToken: resetToken,
		ExpiresIn:     int(s.config.ResetTokenTTL.Seconds()),
	}, nil
}

// ResetEnrollment validates and burns a reset-enrollment token, then
// clears the user's TOTP secret and recovery codes. The user must re-run
// enrollment afterwards.
func (s *RecoveryService) ResetEnrollment(ctx context.Context, rawToken string) error {
	token, err := s.consumeToken(ctx, rawToken, domain.TokenKindRecoveryReset)
	if err != nil {
		return err
	}
	return s.enrollment.Reset(ctx, token.UserID)
}

func (s *RecoveryService) mintToken(ctx context.Context, userID uuid.UUID, kind domain.VerificationTokenKind, ttl time.Duration) (string, error) {
	raw, err := GenerateToken(32)
	if err != nil {
		return "", err
	}

	now := s.now()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(raw),
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	// At most one live token per purpose per user.
	if err := s.tokens.RevokeActiveTokens(ctx, userID, kind); err != nil {
		return "", fmt.Errorf("failed to revoke active tokens: %w", err)
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return raw, nil
}

// consumeToken validates a token of the given kind and burns it. The
// failure modes stay distinct: unknown tokens are invalid, burned tokens
// are already-used, stale tokens are expired.
func (s *RecoveryService) consumeToken(ctx context.Context, rawToken string, kind domain.VerificationTokenKind) (*domain.VerificationToken, error) {
	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), kind)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenNotFound) {
			return nil, domain.ErrVerificationTokenInvalid
		}
		return nil, err
	}

	if token.ConsumedAt != nil {
		return nil, domain.ErrVerificationTokenConsumed
	}
	if !s.now().Before(token.ExpiresAt) {
		return nil, domain.ErrVerificationTokenExpired
	}

	if err := s.tokens.MarkConsumed(ctx, token.ID); err != nil {
		return nil, err
	}
	return token, nil
}
