// document_repository.go implements DocumentRepository, providing database queries
// for uploaded documents including soft deletion and download counting.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// DocumentRepository handles document database operations
type DocumentRepository struct {
	db *sql.DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, organization_id, project_id, uploader_id, file_name, storage_path, content_type, size_bytes, checksum, download_count, is_active, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(
		&d.ID,
		&d.OrganizationID,
		&d.ProjectID,
		&d.UploaderID,
		&d.FileName,
		&d.StoragePath,
		&d.ContentType,
		&d.SizeBytes,
		&d.Checksum,
		&d.DownloadCount,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDocument creates a new document record
func (r *DocumentRepository) CreateDocument(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New().String()
	d.IsActive = true
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()

	query := `
		INSERT INTO documents (id, organization_id, project_id, uploader_id, file_name, storage_path, content_type, size_bytes, checksum, download_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.OrganizationID,
		d.ProjectID,
		d.UploaderID,
		d.FileName,
		d.StoragePath,
		d.ContentType,
		d.SizeBytes,
		d.Checksum,
		d.DownloadCount,
		d.IsActive,
		d.CreatedAt,
		d.UpdatedAt,
	)

	return err
}

// GetDocumentByID retrieves an active document by ID
func (r *DocumentRepository) GetDocumentByID(ctx context.Context, documentID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND is_active = true`
	return scanDocument(r.db.QueryRowContext(ctx, query, documentID))
}

// ListDocumentsByOrganization retrieves all active documents in an organization
func (r *DocumentRepository) ListDocumentsByOrganization(ctx context.Context, orgID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE organization_id = $1 AND is_active = true ORDER BY created_at DESC`
	return r.listDocuments(ctx, query, orgID)
}

// ListDocumentsByProject retrieves all active documents attached to a project
func (r *DocumentRepository) ListDocumentsByProject(ctx context.Context, projectID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE project_id = $1 AND is_active = true ORDER BY created_at DESC`
	return r.listDocuments(ctx, query, projectID)
}

func (r *DocumentRepository) listDocuments(ctx context.Context, query string, args ...interface{}) ([]*models.Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// UpdateDocument updates a document's metadata
func (r *DocumentRepository) UpdateDocument(ctx context.Context, d *models.Document) error {
	d.UpdatedAt = time.Now()

	query := `
		UPDATE documents
		SET project_id = $2, file_name = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, d.ID, d.ProjectID, d.FileName, d.UpdatedAt)
	return err
}

// IncrementDownloadCount bumps the download counter
func (r *DocumentRepository) IncrementDownloadCount(ctx context.Context, documentID string) error {
	query := `UPDATE documents SET download_count = download_count + 1 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}

// SoftDeleteDocument marks a document inactive; the stored file is untouched
func (r *DocumentRepository) SoftDeleteDocument(ctx context.Context, documentID string) error {
	query := `UPDATE documents SET is_active = false, updated_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID, time.Now())
	return err
}
