// Package repositories implements the data access layer (repository pattern).
// Each repository type encapsulates all database queries for a domain entity.
// Handlers never issue SQL directly — all database access goes through this layer,
// which makes query logic testable in isolation and prevents accidental
// cross-domain data access.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

const orgColumns = "id, name, display_name, created_at, updated_at"

// OrganizationRepository handles organization database operations
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new organization, assigning its ID and timestamps.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	org.ID = uuid.New().String()
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (`+orgColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, org.DisplayName, org.CreatedAt, org.UpdatedAt)
	return err
}

// GetByID retrieves an organization by ID. A miss returns (nil, nil).
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return r.getOne(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id)
}

// GetByName retrieves an organization by its URL-safe name. A miss returns (nil, nil).
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	return r.getOne(ctx, `SELECT `+orgColumns+` FROM organizations WHERE name = $1`, name)
}

func (r *OrganizationRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Organization, error) {
	org := &models.Organization{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&org.ID, &org.Name, &org.DisplayName, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// ListOrganizations retrieves all organizations ordered by name. Used by
// background jobs that fan out per tenant.
func (r *OrganizationRepository) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.DisplayName, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// Update persists a new display name. The URL-safe name is never updated.
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET display_name = $2, updated_at = $3
		WHERE id = $1
	`, org.ID, org.DisplayName, org.UpdatedAt)
	return err
}
