package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated session backing a refresh token.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	TokenHash   string
	MFAVerified bool
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	LastSeenAt  *time.Time
	Metadata    json.RawMessage
}

// SessionMetadata holds optional session context.
type SessionMetadata struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// IsValid checks if the session is neither expired nor revoked.
func (s *Session) IsValid(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// TokenPair represents the access and refresh token pair.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}
