package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
	"github.com/nexauth/identity/pkg/repository"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const (
	maxFailedAttempts = 5
	lockoutDuration   = 15 * time.Minute
)

// PasswordService handles registration and password authentication.
type PasswordService struct {
	db    *sql.DB
	users *repository.UsersRepository
	creds *repository.CredentialsRepository
}

// NewPasswordService creates a new password service.
func NewPasswordService(db *sql.DB, users *repository.UsersRepository, creds *repository.CredentialsRepository) *PasswordService {
	return &PasswordService{
		db:    db,
		users: users,
		creds: creds,
	}
}

// Register creates a new user with password credentials. The account
// starts unverified; activation happens through an email token.
func (s *PasswordService) Register(ctx context.Context, email, password, name string, tenantID *uuid.UUID) (*domain.User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     email,
		Name:      &name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &domain.UserCredential{
		UserID:            user.ID,
		PasswordHash:      hash,
		PasswordUpdatedAt: now,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		return s.creds.CreateTx(ctx, tx, cred)
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies email and password, returning the user ID on
// success. Repeated failures lock the account for lockoutDuration.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}

	if user.IsLocked(time.Now()) {
		return uuid.Nil, domain.ErrAccountLocked
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}

	if !VerifyPassword(password, cred.PasswordHash) {
		_ = s.users.IncrementFailedLoginAttempts(ctx, user.ID, lockoutDuration, maxFailedAttempts)
		return uuid.Nil, domain.ErrInvalidCredentials
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.users.ResetFailedLoginAttempts(ctx, user.ID)
	}

	return user.ID, nil
}

// VerifyUserPassword re-confirms the password of an already identified
// user, for sensitive operations like disabling MFA.
func (s *PasswordService) VerifyUserPassword(ctx context.Context, userID uuid.UUID, password string) error {
	cred, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(password, cred.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *PasswordService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// GetUserByEmail retrieves a user by email address.
func (s *PasswordService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// VerifyPassword verifies a password against an Argon2id hash in
// constant time.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
