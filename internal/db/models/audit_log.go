// Package models - audit_log.go defines the AuditLog model. One row is written per
// authenticated write operation; system-initiated actions (jobs, migrations) log with
// a nil user.
package models

import "time"

// AuditLog is a single recorded action.
type AuditLog struct {
	ID             string
	UserID         *string
	OrganizationID *string
	Action         string  // e.g. "task.assign", "POST /api/v1/projects"
	ResourceType   *string // "project", "task", "document", "report", "user"
	ResourceID     *string
	Metadata       map[string]interface{} // stored as JSONB
	IPAddress      *string
	CreatedAt      time.Time
}
