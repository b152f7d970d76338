package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// Unit tests for repository structure and error mapping. Query behavior
// against a real Postgres instance belongs to integration tests.

func TestUsersRepository_Structure(t *testing.T) {
	repo := NewUsersRepository(nil)

	if repo == nil {
		t.Fatal("NewUsersRepository should not return nil")
	}
	if repo.db != nil {
		t.Error("Expected db to be nil in test")
	}
}

func TestUserModel_TenantAssociation(t *testing.T) {
	tests := []struct {
		name     string
		tenantID *uuid.UUID
		wantNil  bool
	}{
		{
			name:     "no tenant",
			tenantID: nil,
			wantNil:  true,
		},
		{
			name:     "tenant-bound user",
			tenantID: uuidPtr(uuid.New()),
			wantNil:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &domain.User{
				ID:        uuid.New(),
				TenantID:  tt.tenantID,
				Email:     "test@example.com",
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}

			if (user.TenantID == nil) != tt.wantNil {
				t.Errorf("TenantID nil check failed: got %v, want nil=%v", user.TenantID, tt.wantNil)
			}
		})
	}
}

func TestUserModel_Lockout(t *testing.T) {
	now := time.Now()
	user := &domain.User{ID: uuid.New(), Email: "test@example.com"}

	if user.IsLocked(now) {
		t.Error("User without LockedUntil must not be locked")
	}

	until := now.Add(15 * time.Minute)
	user.LockedUntil = &until
	if !user.IsLocked(now) {
		t.Error("User must be locked before LockedUntil")
	}
	if user.IsLocked(until.Add(time.Second)) {
		t.Error("Lock must lapse after LockedUntil")
	}
}

func TestUsersRepository_ErrorMapping(t *testing.T) {
	// sql.ErrNoRows is mapped to domain.ErrUserNotFound by the lookup
	// methods so callers never see database internals.
	if errors.Is(sql.ErrNoRows, domain.ErrUserNotFound) {
		t.Fatal("sql.ErrNoRows must not satisfy domain.ErrUserNotFound directly")
	}
	if !errors.Is(domain.ErrUserNotFound, domain.ErrUserNotFound) {
		t.Fatal("Sentinel must match itself")
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
