package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// TenantsRepository handles tenant persistence. Tenant administration
// lives outside the identity core; this exposes the get/create/update
// collaborator surface only.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

// Create creates a new tenant.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		tenant.ID, tenant.Name, tenant.Slug, tenant.CreatedAt, tenant.UpdatedAt,
	)
	return err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at, deleted_at
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves a tenant by slug.
func (r *TenantsRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at, deleted_at
		FROM tenants
		WHERE slug = $1 AND deleted_at IS NULL
	`
	return r.scan(r.db.QueryRowContext(ctx, query, slug))
}

// Update updates a tenant.
func (r *TenantsRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.Slug)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrTenantNotFound)
}

func (r *TenantsRepository) scan(row *sql.Row) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := row.Scan(
		&tenant.ID, &tenant.Name, &tenant.Slug,
		&tenant.CreatedAt, &tenant.UpdatedAt, &tenant.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}
