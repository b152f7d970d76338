package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/nexauth/identity/pkg/domain"
)

// ClientsRepository handles OAuth2 client persistence. Client management
// is CRUD owned by an external surface; the core reads RequireMFA.
type ClientsRepository struct {
	db *sql.DB
}

// NewClientsRepository creates a new clients repository.
func NewClientsRepository(db *sql.DB) *ClientsRepository {
	return &ClientsRepository{db: db}
}

// Create creates a new client.
func (r *ClientsRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (id, tenant_id, name, require_mfa, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.TenantID, client.Name, client.RequireMFA,
		client.CreatedAt, client.UpdatedAt,
	)
	return err
}

// GetByID retrieves a client by ID.
func (r *ClientsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `
		SELECT id, tenant_id, name, require_mfa, created_at, updated_at, deleted_at
		FROM clients
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// GetByTenantID retrieves the client registered under a tenant.
func (r *ClientsRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*domain.Client, error) {
	query := `
		SELECT id, tenant_id, name, require_mfa, created_at, updated_at, deleted_at
		FROM clients
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1
	`
	return r.scan(r.db.QueryRowContext(ctx, query, tenantID))
}

// Update updates a client.
func (r *ClientsRepository) Update(ctx context.Context, client *domain.Client) error {
	query := `
		UPDATE clients
		SET name = $2, require_mfa = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, client.ID, client.Name, client.RequireMFA)
	if err != nil {
		return err
	}
	return requireRowAffected(result, domain.ErrClientNotFound)
}

func (r *ClientsRepository) scan(row *sql.Row) (*domain.Client, error) {
	var client domain.Client
	err := row.Scan(
		&client.ID, &client.TenantID, &client.Name, &client.RequireMFA,
		&client.CreatedAt, &client.UpdatedAt, &client.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}
