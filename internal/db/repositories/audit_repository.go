// audit_repository.go implements AuditRepository. Metadata round-trips through a
// JSONB column, so it is marshalled on write and unmarshalled on read here rather
// than leaking json.RawMessage into callers.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

const auditColumns = "id, user_id, organization_id, action, resource_type, resource_id, metadata, ip_address, created_at"

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts one audit entry, assigning its ID and timestamp.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	var metadataJSON []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadataJSON = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.ID, entry.UserID, entry.OrganizationID, entry.Action,
		entry.ResourceType, entry.ResourceID, metadataJSON, entry.IPAddress, entry.CreatedAt,
	)
	return err
}

// ListAuditLogsByOrganization returns one page of an organization's audit trail,
// newest first.
func (r *AuditRepository) ListAuditLogsByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*models.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditColumns+`
		FROM audit_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanAuditLog(rows *sql.Rows) (*models.AuditLog, error) {
	entry := &models.AuditLog{}
	var metadataJSON []byte
	if err := rows.Scan(
		&entry.ID, &entry.UserID, &entry.OrganizationID, &entry.Action,
		&entry.ResourceType, &entry.ResourceID, &metadataJSON, &entry.IPAddress, &entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, err
		}
	}
	return entry, nil
}
