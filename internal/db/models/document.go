// Package models - document.go defines the Document model for uploaded files. Documents
// are soft-deleted via the IsActive flag so download history survives removal.
package models

import "time"

// Document represents an uploaded file, optionally attached to a project
type Document struct {
	ID             string
	OrganizationID string
	ProjectID      *string // nil means org-wide, visible to every member
	UploaderID     string
	FileName       string
	StoragePath    string
	ContentType    string
	SizeBytes      int64
	Checksum       string // SHA-256 of the stored content
	DownloadCount  int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
