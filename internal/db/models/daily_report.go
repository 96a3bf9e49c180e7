// Package models - daily_report.go defines the DailyReport model. Report visibility is
// controlled by two independent flags chosen by the submitter at creation time; project
// association additionally opens the report to the project's manager and teammates.
package models

import "time"

// DailyReport represents a daily work report submitted by a user
type DailyReport struct {
	ID               string
	OrganizationID   string
	UserID           string
	ProjectID        *string
	ReportDate       time.Time
	Content          string
	VisibleToManager bool
	VisibleToAdmin   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
