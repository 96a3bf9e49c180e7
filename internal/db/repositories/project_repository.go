// project_repository.go implements ProjectRepository, providing database queries
// for projects including status transitions and manager assignment.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, organization_id, name, description, status, visibility, manager_id, created_by, start_date, end_date, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(
		&p.ID,
		&p.OrganizationID,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.Visibility,
		&p.ManagerID,
		&p.CreatedBy,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProject creates a new project
func (r *ProjectRepository) CreateProject(ctx context.Context, p *models.Project) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	query := `
		INSERT INTO projects (id, organization_id, name, description, status, visibility, manager_id, created_by, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.OrganizationID,
		p.Name,
		p.Description,
		p.Status,
		p.Visibility,
		p.ManagerID,
		p.CreatedBy,
		p.StartDate,
		p.EndDate,
		p.CreatedAt,
		p.UpdatedAt,
	)

	return err
}

// GetProjectByID retrieves a project by ID
func (r *ProjectRepository) GetProjectByID(ctx context.Context, projectID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.QueryRowContext(ctx, query, projectID))
}

// ListProjectsByOrganization retrieves all projects in an organization
func (r *ProjectRepository) ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE organization_id = $1 ORDER BY name`
	return r.listProjects(ctx, query, orgID)
}

// ListProjectsByManager retrieves projects where the given user is the assigned manager
func (r *ProjectRepository) ListProjectsByManager(ctx context.Context, managerID string) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE manager_id = $1 ORDER BY name`
	return r.listProjects(ctx, query, managerID)
}

func (r *ProjectRepository) listProjects(ctx context.Context, query string, args ...interface{}) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// UpdateProject updates a project's mutable fields. Status transitions that require
// side effects (auto-unassignment on completion) go through the team coordinator,
// which calls UpdateProjectTx inside its transaction.
func (r *ProjectRepository) UpdateProject(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, updateProjectQuery, updateProjectArgs(p)...)
	return err
}

// UpdateProjectTx is UpdateProject inside a caller-managed transaction
func (r *ProjectRepository) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p *models.Project) error {
	p.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, updateProjectQuery, updateProjectArgs(p)...)
	return err
}

const updateProjectQuery = `
	UPDATE projects
	SET name = $2, description = $3, status = $4, visibility = $5, manager_id = $6, start_date = $7, end_date = $8, updated_at = $9
	WHERE id = $1
`

func updateProjectArgs(p *models.Project) []interface{} {
	return []interface{}{
		p.ID,
		p.Name,
		p.Description,
		p.Status,
		p.Visibility,
		p.ManagerID,
		p.StartDate,
		p.EndDate,
		p.UpdatedAt,
	}
}

// DeleteProject deletes a project. Tasks, milestones, memberships, and visibility
// grants are removed by ON DELETE CASCADE.
func (r *ProjectRepository) DeleteProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	return err
}
