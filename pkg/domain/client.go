package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client represents an OAuth2/OIDC client application registered under a
// tenant. Client management is CRUD owned elsewhere; the core consults
// RequireMFA when gating logins and refusing MFA disablement.
type Client struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Name       string
	RequireMFA bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}
