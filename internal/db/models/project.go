// Package models - project.go defines the Project model plus the two project/user link
// tables: team memberships (who works on the project) and visibility grants (who may see
// a restricted project). Memberships and grants are distinct relations — a user can hold
// either one without the other.
package models

import "time"

// Project lifecycle statuses
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusOnHold    = "on_hold"
)

// Project visibility modes
const (
	VisibilityAll      = "all"      // every organization member may see the project
	VisibilitySpecific = "specific" // only granted or assigned members may see it
)

// Membership kinds
const (
	MembershipKindManager = "manager"
	MembershipKindMember  = "member"
)

// Project represents a project owned by an organization
type Project struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	Status         string // planning, active, completed, on_hold
	Visibility     string // all or specific
	ManagerID      *string
	CreatedBy      string
	StartDate      *time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidProjectStatus returns true if status is a recognized lifecycle status
func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold:
		return true
	}
	return false
}

// ValidVisibility returns true if v is a recognized visibility mode
func ValidVisibility(v string) bool {
	return v == VisibilityAll || v == VisibilitySpecific
}

// ProjectMembership represents an explicit team assignment of a user to a project
type ProjectMembership struct {
	ID        string
	ProjectID string
	UserID    string
	Kind      string // manager or member
	AddedBy   *string
	CreatedAt time.Time
}

// ProjectVisibilityGrant allows a user to see a project whose visibility is "specific"
// without being a task-assignable team member.
type ProjectVisibilityGrant struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedAt time.Time
}
