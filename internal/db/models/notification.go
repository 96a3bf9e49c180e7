// Package models - notification.go defines the Notification and Message models.
// Notifications are append-only rows generated by the due-date job and by assignment
// actions; messages are direct user-to-user mail used for best-effort manager updates.
package models

import "time"

// Notification types
const (
	NotificationTaskDueSoon  = "task_due_soon"
	NotificationTaskAssigned = "task_assigned"
	NotificationRoleChanged  = "role_changed"
)

// Notification represents an in-app notification for a user
type Notification struct {
	ID             string    `db:"id"`
	OrganizationID string    `db:"organization_id"`
	UserID         string    `db:"user_id"`
	TaskID         *string   `db:"task_id"`
	ProjectID      *string   `db:"project_id"`
	Type           string    `db:"type"`
	Message        string    `db:"message"`
	DaysUntilDue   *int      `db:"days_until_due"`
	IsRead         bool      `db:"is_read"`
	CreatedAt      time.Time `db:"created_at"`
}

// Message represents a direct message between two users in the same organization
type Message struct {
	ID             string
	OrganizationID string
	SenderID       *string // nil for system-generated messages
	RecipientID    string
	ProjectID      *string
	Subject        string
	Body           string
	IsRead         bool
	CreatedAt      time.Time
}
