package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an organization or workspace. Managed by an external
// administration surface; the identity core only reads it to resolve
// client policy during login.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
