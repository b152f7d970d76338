package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

const userColumns = `id, tenant_id, email, name, email_verified, failed_login_attempts,
	locked_until, mfa_enabled, mfa_enrolled_at, created_at, updated_at, deleted_at`

func scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.Name, &user.EmailVerified,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.MFAEnabled,
		&user.MFAEnrolledAt, &user.CreatedAt, &user.UpdatedAt, &user.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	return r.CreateTx(ctx, r.db, user)
}

// CreateTx creates a new user within a transaction.
func (r *UsersRepository) CreateTx(ctx context.Context, q Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.TenantID, user.Email, user.Name, user.EmailVerified,
		user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if a user exists by email.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// SetEmailVerified marks a user's email as verified.
func (r *UsersRepository) SetEmailVerified(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET email_verified = true, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrUserNotFound)
}

// SetMFAEnabled flips the MFA flag and enrollment timestamp. Enrolling
// stamps mfa_enrolled_at; disabling clears it.
func (r *UsersRepository) SetMFAEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	return r.SetMFAEnabledTx(ctx, r.db, userID, enabled)
}

// SetMFAEnabledTx is SetMFAEnabled inside a caller-owned transaction.
func (r *UsersRepository) SetMFAEnabledTx(ctx context.Context, q Querier, userID uuid.UUID, enabled bool) error {
	query := `
		UPDATE users
		SET mfa_enabled = $2,
		    mfa_enrolled_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, userID, enabled)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrUserNotFound)
}

// IncrementFailedLoginAttempts increments the failed login counter,
// locking the account once maxAttempts is reached.
func (r *UsersRepository) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID, lockoutDuration time.Duration, maxAttempts int) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN NOW() + $3::interval
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, userID, maxAttempts, lockoutDuration.String())
	return err
}

// ResetFailedLoginAttempts resets the counter and clears any lockout.
func (r *UsersRepository) ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func requireRowAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
