package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

func TestMFARecoveryCodesRepository_Structure(t *testing.T) {
	repo := NewMFARecoveryCodesRepository(nil)

	if repo == nil {
		t.Fatal("NewMFARecoveryCodesRepository should not return nil")
	}
	if repo.db != nil {
		t.Error("Expected db to be nil in test")
	}
}

func TestMFARecoveryCode_IsUsed(t *testing.T) {
	code := &domain.MFARecoveryCode{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		CodeHash:  "c2hhMjU2LWhhc2g=",
		CreatedAt: time.Now(),
	}

	if code.IsUsed() {
		t.Error("Code must not be used initially")
	}

	now := time.Now()
	code.UsedAt = &now
	if !code.IsUsed() {
		t.Error("Code must be marked as used")
	}
}

func TestMFARecoveryCode_BatchShape(t *testing.T) {
	// CreateBatch installs a full replacement set for one user; every
	// code carries its own ID and an unused state.
	userID := uuid.New()
	codes := make([]*domain.MFARecoveryCode, 10)
	for i := range codes {
		codes[i] = &domain.MFARecoveryCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  "hash_" + uuid.NewString(),
			CreatedAt: time.Now(),
		}
	}

	ids := make(map[uuid.UUID]bool)
	for _, code := range codes {
		if code.UserID != userID {
			t.Error("All codes in a batch belong to one user")
		}
		if code.IsUsed() {
			t.Error("New codes start unused")
		}
		if ids[code.ID] {
			t.Error("Duplicate code ID in batch")
		}
		ids[code.ID] = true
	}
}

func TestMFARecoveryCode_ConsumeSemantics(t *testing.T) {
	// Consume's WHERE predicate (user_id, code_hash, used_at IS NULL)
	// is the compare-and-swap: once used_at is set, a second consume
	// affects zero rows and surfaces ErrInvalidRecoveryCode.
	code := &domain.MFARecoveryCode{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		CodeHash:  "hash",
		CreatedAt: time.Now(),
	}

	first := time.Now()
	code.UsedAt = &first
	if !code.IsUsed() {
		t.Fatal("Code must be spent after first consume")
	}

	// The predicate used_at IS NULL no longer holds.
	if code.UsedAt == nil {
		t.Error("Spent code must keep its used_at stamp")
	}
}
