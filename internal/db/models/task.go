// Package models - task.go defines the Task, Milestone, and TaskComment models.
// Tasks belong to a project, optionally to a milestone, and optionally carry an
// assignee and a due date.
package models

import "time"

// Task statuses
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
)

// Task represents a unit of work within a project
type Task struct {
	ID             string
	OrganizationID string
	ProjectID      string
	MilestoneID    *string
	Title          string
	Description    string
	Status         string // pending, in_progress, completed
	Priority       string // low, medium, high
	AssigneeID     *string
	DueDate        *time.Time
	CompletedAt    *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// ValidTaskPriority returns true if priority is a recognized task priority
func ValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// ValidTaskStatus returns true if status is a recognized task status
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskComment is one entry in a task's flat discussion thread. Comments share
// the task's visibility: whoever may view the task may read and write them.
type TaskComment struct {
	ID        string
	TaskID    string
	UserID    string
	UserName  string // author full name, joined at read time; never stored
	Content   string
	CreatedAt time.Time
}

// Milestone groups tasks within a project under a shared due date
type Milestone struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	Status      string // pending, in_progress, completed
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
