// milestone_repository.go implements MilestoneRepository, providing database
// queries for project milestones.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// MilestoneRepository handles milestone database operations
type MilestoneRepository struct {
	db *sql.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *sql.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

const milestoneColumns = `id, project_id, name, description, status, due_date, created_at, updated_at`

func scanMilestone(row interface{ Scan(...interface{}) error }) (*models.Milestone, error) {
	m := &models.Milestone{}
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Name,
		&m.Description,
		&m.Status,
		&m.DueDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CreateMilestone creates a new milestone
func (r *MilestoneRepository) CreateMilestone(ctx context.Context, m *models.Milestone) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	query := `
		INSERT INTO milestones (id, project_id, name, description, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.ProjectID,
		m.Name,
		m.Description,
		m.Status,
		m.DueDate,
		m.CreatedAt,
		m.UpdatedAt,
	)

	return err
}

// GetMilestoneByID retrieves a milestone by ID
func (r *MilestoneRepository) GetMilestoneByID(ctx context.Context, milestoneID string) (*models.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`
	return scanMilestone(r.db.QueryRowContext(ctx, query, milestoneID))
}

// ListMilestonesByProject retrieves all milestones in a project ordered by due date
func (r *MilestoneRepository) ListMilestonesByProject(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE project_id = $1 ORDER BY due_date NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*models.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}

	return milestones, rows.Err()
}

// UpdateMilestone updates a milestone's mutable fields
func (r *MilestoneRepository) UpdateMilestone(ctx context.Context, m *models.Milestone) error {
	m.UpdatedAt = time.Now()

	query := `
		UPDATE milestones
		SET name = $2, description = $3, status = $4, due_date = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.Description,
		m.Status,
		m.DueDate,
		m.UpdatedAt,
	)

	return err
}

// DeleteMilestone deletes a milestone; its tasks have milestone_id set to NULL
func (r *MilestoneRepository) DeleteMilestone(ctx context.Context, milestoneID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = $1`, milestoneID)
	return err
}
