// report_repository.go implements ReportRepository, providing database queries
// for daily work reports.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// ReportRepository handles daily report database operations
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, organization_id, user_id, project_id, report_date, content, visible_to_manager, visible_to_admin, created_at, updated_at`

func scanReport(row interface{ Scan(...interface{}) error }) (*models.DailyReport, error) {
	rep := &models.DailyReport{}
	err := row.Scan(
		&rep.ID,
		&rep.OrganizationID,
		&rep.UserID,
		&rep.ProjectID,
		&rep.ReportDate,
		&rep.Content,
		&rep.VisibleToManager,
		&rep.VisibleToAdmin,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// CreateReport creates a new daily report
func (r *ReportRepository) CreateReport(ctx context.Context, rep *models.DailyReport) error {
	rep.ID = uuid.New().String()
	rep.CreatedAt = time.Now()
	rep.UpdatedAt = time.Now()

	query := `
		INSERT INTO daily_reports (id, organization_id, user_id, project_id, report_date, content, visible_to_manager, visible_to_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		rep.ID,
		rep.OrganizationID,
		rep.UserID,
		rep.ProjectID,
		rep.ReportDate,
		rep.Content,
		rep.VisibleToManager,
		rep.VisibleToAdmin,
		rep.CreatedAt,
		rep.UpdatedAt,
	)

	return err
}

// GetReportByID retrieves a daily report by ID
func (r *ReportRepository) GetReportByID(ctx context.Context, reportID string) (*models.DailyReport, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE id = $1`
	return scanReport(r.db.QueryRowContext(ctx, query, reportID))
}

// ListReportsByUser retrieves a user's reports, newest first
func (r *ReportRepository) ListReportsByUser(ctx context.Context, userID string) ([]*models.DailyReport, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE user_id = $1 ORDER BY report_date DESC`
	return r.listReports(ctx, query, userID)
}

// ListReportsByOrganization retrieves all reports in an organization, newest first
func (r *ReportRepository) ListReportsByOrganization(ctx context.Context, orgID string) ([]*models.DailyReport, error) {
	query := `SELECT ` + reportColumns + ` FROM daily_reports WHERE organization_id = $1 ORDER BY report_date DESC`
	return r.listReports(ctx, query, orgID)
}

func (r *ReportRepository) listReports(ctx context.Context, query string, args ...interface{}) ([]*models.DailyReport, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.DailyReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}

// UpdateReport updates a report's content and visibility flags
func (r *ReportRepository) UpdateReport(ctx context.Context, rep *models.DailyReport) error {
	rep.UpdatedAt = time.Now()

	query := `
		UPDATE daily_reports
		SET project_id = $2, content = $3, visible_to_manager = $4, visible_to_admin = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		rep.ID,
		rep.ProjectID,
		rep.Content,
		rep.VisibleToManager,
		rep.VisibleToAdmin,
		rep.UpdatedAt,
	)

	return err
}

// DeleteReport deletes a daily report
func (r *ReportRepository) DeleteReport(ctx context.Context, reportID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM daily_reports WHERE id = $1`, reportID)
	return err
}
