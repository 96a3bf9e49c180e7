// Package models - organization.go defines the Organization model, the tenant boundary
// of the system. Cross-tenant access is denied before role or membership is looked at.
package models

import "time"

// Organization is a tenant. Every project, task, document, and user row
// carries an organization ID that must match the acting user's.
type Organization struct {
	ID          string
	Name        string // URL-safe slug, unique across tenants
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
