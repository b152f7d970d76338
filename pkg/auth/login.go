package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// DefaultPendingSessionTTL bounds how long a password-verified login may
// wait for its second factor.
const DefaultPendingSessionTTL = 5 * time.Minute

// PasswordAuthenticator verifies primary credentials.
type PasswordAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (uuid.UUID, error)
}

// CodeVerifier checks second factors: TOTP codes and recovery codes.
type CodeVerifier interface {
	VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) (bool, error)
	ConsumeRecoveryCode(ctx context.Context, userID uuid.UUID, code string) (bool, error)
}

// SessionIssuer produces the authenticated-session artifact once the
// core signals login completion. Opaque to the gate.
type SessionIssuer interface {
	IssueSession(ctx context.Context, userID uuid.UUID, opts IssueSessionOpts) (*domain.TokenPair, error)
}

// LoginConfig holds configuration for the login gate.
type LoginConfig struct {
	PendingSessionTTL time.Duration
}

// LoginService is the two-step login MFA gate. Step one verifies the
// password and either completes the login or parks it behind a
// PendingMFASession; step two resolves that session against a second
// factor.
type LoginService struct {
	config    LoginConfig
	passwords PasswordAuthenticator
	users     UserStore
	tenants   TenantStore
	clients   ClientStore
	pending   PendingSessionStore
	codes     CodeVerifier
	issuer    SessionIssuer
	now       func() time.Time
}

// NewLoginService creates a new login service.
func NewLoginService(
	config LoginConfig,
	passwords PasswordAuthenticator,
	users UserStore,
	tenants TenantStore,
	clients ClientStore,
	pending PendingSessionStore,
	codes CodeVerifier,
	issuer SessionIssuer,
) *LoginService {
	if config.PendingSessionTTL == 0 {
		config.PendingSessionTTL = DefaultPendingSessionTTL
	}
	return &LoginService{
		config:    config,
		passwords: passwords,
		users:     users,
		tenants:   tenants,
		clients:   clients,
		pending:   pending,
		codes:     codes,
		issuer:    issuer,
		now:       time.Now,
	}
}

// LoginResult is the outcome of the first login step. Either Tokens is
// set (login complete) or MFARequired is true and Challenge carries the
// opaque pending-session reference. The MFA-required response never
// reveals whether the cause is enrollment or client policy.
type LoginResult struct {
	MFARequired bool
	Challenge   string
	Tokens      *domain.TokenPair
}

// Login performs the first step: password verification plus client
// policy resolution. When a TOTP code is supplied alongside valid
// credentials, both steps are collapsed into one round trip.
func (s *LoginService) Login(ctx context.Context, email, password, totpCode, tenantSlug string, opts IssueSessionOpts) (*LoginResult, error) {
	userID, err := s.passwords.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	client, err := s.resolveClient(ctx, user, tenantSlug)
	if err != nil {
		return nil, err
	}

	mfaNeeded := user.MFAEnabled || (client != nil && client.RequireMFA)
	if !mfaNeeded {
		tokens, err := s.issuer.IssueSession(ctx, userID, opts)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Tokens: tokens}, nil
	}

	// Single round trip when the client sent a code with the password.
	if totpCode != "" && user.MFAEnabled {
		ok, err := s.verifySecondFactor(ctx, userID, totpCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrInvalidMFACode
		}
		opts.MFAVerified = true
		tokens, err := s.issuer.IssueSession(ctx, userID, opts)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Tokens: tokens}, nil
	}

	challenge, err := s.createPendingSession(ctx, userID, client)
	if err != nil {
		return nil, err
	}
	return &LoginResult{MFARequired: true, Challenge: challenge}, nil
}

// CompleteMFA performs the second step: resolves the pending session and
// verifies a TOTP or recovery code. Success consumes the session exactly
// once and issues the authenticated session; failure leaves the session
// usable until expiry; an expired session forces a restart from step one.
func (s *LoginService) CompleteMFA(ctx context.Context, challenge, code string, opts IssueSessionOpts) (*domain.TokenPair, error) {
	session, err := s.pending.GetByTokenHash(ctx, HashToken(challenge))
	if err != nil {
		return nil, err
	}
	if !session.IsValid(s.now()) {
		return nil, domain.ErrMFASessionExpired
	}

	ok, err := s.verifySecondFactor(ctx, session.UserID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Session retained: the user may retry until expiry.
		return nil, domain.ErrInvalidMFACode
	}

	// CAS consume: a concurrent completion of the same session loses here.
	if err := s.pending.Consume(ctx, session.ID); err != nil {
		return nil, err
	}

	opts.MFAVerified = true
	return s.issuer.IssueSession(ctx, session.UserID, opts)
}

func (s *LoginService) verifySecondFactor(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	ok, err := s.codes.VerifyTOTP(ctx, userID, code)
	if err != nil && !errors.Is(err, domain.ErrMFANotEnabled) {
		return false, err
	}
	if ok {
		return true, nil
	}
	return s.codes.ConsumeRecoveryCode(ctx, userID, code)
}

func (s *LoginService) createPendingSession(ctx context.Context, userID uuid.UUID, client *domain.Client) (string, error) {
	raw, err := GenerateToken(32)
	if err != nil {
		return "", err
	}

	now := s.now()
	session := &domain.PendingMFASession{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.PendingSessionTTL),
	}
	if client != nil {
		session.ClientID = &client.ID
	}

	if err := s.pending.Create(ctx, session); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *LoginService) resolveClient(ctx context.Context, user *domain.User, tenantSlug string) (*domain.Client, error) {
	tenantID := user.TenantID
	if tenantSlug != "" {
		tenant, err := s.tenants.GetBySlug(ctx, tenantSlug)
		if err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				return nil, nil
			}
			return nil, err
		}
		tenantID = &tenant.ID
	}
	if tenantID == nil || s.clients == nil {
		return nil, nil
	}

	client, err := s.clients.GetByTenantID(ctx, *tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}
