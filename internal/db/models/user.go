// Package models - user.go defines the User model for accounts scoped to a single
// organization, carrying one of the three fixed roles (admin, manager, member).
package models

import "time"

// User roles. The set is closed; role strings outside it are rejected at the API boundary.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// User represents a user account in the system
type User struct {
	ID             string
	OrganizationID string
	Email          string
	Username       string
	PasswordHash   string `json:"-"`
	FullName       string
	Role           string // admin, manager, or member
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidRole returns true if role is one of the three recognized roles
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}
