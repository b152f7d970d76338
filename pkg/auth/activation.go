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

// DefaultActivationTokenTTL is how long an email verification token
// stays redeemable.
const DefaultActivationTokenTTL = 24 * time.Hour

// ActivationService handles email verification for new accounts.
type ActivationService struct {
	tokenTTL time.Duration
	logger   *slog.Logger
	users    UserStore
	tokens   TokenStore
	notifier Notifier
	now      func() time.Time
}

// NewActivationService creates a new activation service.
func NewActivationService(tokenTTL time.Duration, logger *slog.Logger, users UserStore, tokens TokenStore, notifier Notifier) *ActivationService {
	if tokenTTL == 0 {
		tokenTTL = DefaultActivationTokenTTL
	}
	return &ActivationService{
		tokenTTL: tokenTTL,
		logger:   logger,
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		now:      time.Now,
	}
}

// SendActivation mints an email verification token for the user and
// dispatches it. Any previously issued activation token is revoked so
// only the most recent email works.
func (s *ActivationService) SendActivation(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return domain.ErrEmailAlreadyVerified
	}

	raw, err := GenerateToken(32)
	if err != nil {
		return err
	}

	now := s.now()
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		Kind:      domain.TokenKindEmailVerification,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}

	if err := s.tokens.RevokeActiveTokens(ctx, user.ID, domain.TokenKindEmailVerification); err != nil {
		return fmt.Errorf("failed to revoke active tokens: %w", err)
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	go func(email, token string) {
		if err := s.notifier.SendActivationToken(email, token); err != nil {
			s.logger.Error("failed to dispatch activation token", "error", err)
		}
	}(user.Email, raw)

	return nil
}

// Activate redeems an email verification token and marks the account
// verified. The token burns on success.
func (s *ActivationService) Activate(ctx context.Context, rawToken string) error {
	token, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken), domain.TokenKindEmailVerification)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationTokenNotFound) {
			return domain.ErrVerificationTokenInvalid
		}
		return err
	}

	if token.ConsumedAt != nil {
		return domain.ErrVerificationTokenConsumed
	}
	if !s.now().Before(token.ExpiresAt) {
		return domain.ErrVerificationTokenExpired
	}

	if err := s.tokens.MarkConsumed(ctx, token.ID); err != nil {
		return err
	}
	return s.users.SetEmailVerified(ctx, token.UserID)
}
