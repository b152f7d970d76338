package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
	"github.com/nexauth/identity/pkg/repository"
)

const (
	refreshTokenLen = 32

	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// SessionConfig holds session configuration.
type SessionConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	JWTSecret       []byte
	Issuer          string
}

// SessionService issues and validates sessions. Every authentication
// path (password-only, MFA completion, refresh) goes through here.
type SessionService struct {
	config   SessionConfig
	sessions *repository.SessionsRepository
	users    *repository.UsersRepository
	now      func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, sessions *repository.SessionsRepository, users *repository.UsersRepository) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	return &SessionService{
		config:   config,
		sessions: sessions,
		users:    users,
		now:      time.Now,
	}
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (s *SessionService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenTTL
}

// IssueSessionOpts holds options for session issuance.
type IssueSessionOpts struct {
	// IP address of the client
	IP string
	// User agent of the client
	UserAgent string
	// MFAVerified indicates whether a second factor was verified for
	// this session
	MFAVerified bool
}

// AccessTokenClaims represents the claims in an access token.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	MFAVerified   bool   `json:"mfa_verified,omitempty"`
}

// IssueSession creates a new session and returns access/refresh tokens.
func (s *SessionService) IssueSession(ctx context.Context, userID uuid.UUID, opts IssueSessionOpts) (*domain.TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// Refresh token is opaque and stored hashed.
	refreshToken, err := GenerateToken(refreshTokenLen)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	session := &domain.Session{
		ID:          sessionID,
		UserID:      userID,
		TokenHash:   HashToken(refreshToken),
		MFAVerified: opts.MFAVerified,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.RefreshTokenTTL),
	}

	if opts.IP != "" || opts.UserAgent != "" {
		metadata := domain.SessionMetadata{
			IP:        opts.IP,
			UserAgent: opts.UserAgent,
		}
		metadataJSON, _ := json.Marshal(metadata)
		session.Metadata = metadataJSON
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return s.signTokenPair(user, session, refreshToken, now)
}

// RefreshSession exchanges a refresh token for a new access token.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	session, err := s.sessions.GetByTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.IsValid(now) {
		if session.RevokedAt != nil {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.ErrSessionExpired
	}

	_ = s.sessions.UpdateLastSeen(ctx, session.ID)

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	pair, err := s.signTokenPair(user, session, refreshToken, now)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// signTokenPair builds the HS256 access token for a session. The
// mfa_verified claim is true when the session cleared a second factor
// or the account has none enrolled.
func (s *SessionService) signTokenPair(user *domain.User, session *domain.Session, refreshToken string, now time.Time) (*domain.TokenPair, error) {
	accessTokenExpiry := now.Add(s.config.AccessTokenTTL)
	name := ""
	if user.Name != nil {
		name = *user.Name
	}
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessTokenExpiry),
			Issuer:    s.config.Issuer,
			ID:        session.ID.String(),
		},
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Name:          name,
		MFAVerified:   !user.MFAEnabled || session.MFAVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt:    accessTokenExpiry,
	}, nil
}

// RevokeSession revokes a session by refresh token.
func (s *SessionService) RevokeSession(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeByTokenHash(ctx, HashToken(refreshToken))
}

// RevokeAllSessions revokes all sessions for a user.
func (s *SessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllByUserID(ctx, userID)
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// GetUserIDFromToken extracts the user ID from an access token.
func (s *SessionService) GetUserIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(claims.Subject)
}
