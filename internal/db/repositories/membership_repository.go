// membership_repository.go implements MembershipRepository, providing database
// queries for project team memberships and visibility grants. The Tx variants
// exist because the team coordinator's auto-mutations must share a transaction
// with the task or project update that triggered them.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// MembershipRepository handles project membership and visibility grant operations
type MembershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipColumns = `id, project_id, user_id, kind, added_by, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (*models.ProjectMembership, error) {
	m := &models.ProjectMembership{}
	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.UserID,
		&m.Kind,
		&m.AddedBy,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMemberships retrieves all memberships on a project
func (r *MembershipRepository) ListMemberships(ctx context.Context, projectID string) ([]*models.ProjectMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_memberships WHERE project_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.ProjectMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// GetMembership retrieves a single membership, or nil if the user is not on the team
func (r *MembershipRepository) GetMembership(ctx context.Context, projectID, userID string) (*models.ProjectMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_memberships WHERE project_id = $1 AND user_id = $2`
	return scanMembership(r.db.QueryRowContext(ctx, query, projectID, userID))
}

// GetMembershipTx is GetMembership inside a caller-managed transaction. The row is
// locked so concurrent auto-add checks on the same project serialize.
func (r *MembershipRepository) GetMembershipTx(ctx context.Context, tx *sql.Tx, projectID, userID string) (*models.ProjectMembership, error) {
	query := `SELECT ` + membershipColumns + ` FROM project_memberships WHERE project_id = $1 AND user_id = $2 FOR UPDATE`
	return scanMembership(tx.QueryRowContext(ctx, query, projectID, userID))
}

// ListMemberProjectIDs returns the IDs of all projects where the user has a membership
func (r *MembershipRepository) ListMemberProjectIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT project_id FROM project_memberships WHERE user_id = $1`
	return r.listIDs(ctx, query, userID)
}

func (r *MembershipRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CreateMembership inserts a membership row. Duplicate (project, user) pairs are
// rejected by the unique constraint; callers that need idempotence check first.
func (r *MembershipRepository) CreateMembership(ctx context.Context, m *models.ProjectMembership) error {
	return r.createMembership(ctx, r.db, m)
}

// CreateMembershipTx is CreateMembership inside a caller-managed transaction
func (r *MembershipRepository) CreateMembershipTx(ctx context.Context, tx *sql.Tx, m *models.ProjectMembership) error {
	return r.createMembership(ctx, tx, m)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *MembershipRepository) createMembership(ctx context.Context, e execer, m *models.ProjectMembership) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()

	query := `
		INSERT INTO project_memberships (id, project_id, user_id, kind, added_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := e.ExecContext(ctx, query,
		m.ID,
		m.ProjectID,
		m.UserID,
		m.Kind,
		m.AddedBy,
		m.CreatedAt,
	)

	return err
}

// DeleteMembership removes a single user's membership from a project
func (r *MembershipRepository) DeleteMembership(ctx context.Context, projectID, userID string) error {
	query := `DELETE FROM project_memberships WHERE project_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, projectID, userID)
	return err
}

// DeleteMemberMembershipsTx removes every member-kind membership on a project,
// returning how many rows were deleted. Manager-kind rows are untouched.
func (r *MembershipRepository) DeleteMemberMembershipsTx(ctx context.Context, tx *sql.Tx, projectID string) (int64, error) {
	query := `DELETE FROM project_memberships WHERE project_id = $1 AND kind = 'member'`

	res, err := tx.ExecContext(ctx, query, projectID)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// ListVisibilityGrants retrieves all visibility grants on a project
func (r *MembershipRepository) ListVisibilityGrants(ctx context.Context, projectID string) ([]*models.ProjectVisibilityGrant, error) {
	query := `SELECT id, project_id, user_id, created_at FROM project_visibility_grants WHERE project_id = $1`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*models.ProjectVisibilityGrant
	for rows.Next() {
		g := &models.ProjectVisibilityGrant{}
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.UserID, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}

	return grants, rows.Err()
}

// ListGrantedProjectIDs returns the IDs of projects the user holds a visibility grant for
func (r *MembershipRepository) ListGrantedProjectIDs(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT project_id FROM project_visibility_grants WHERE user_id = $1`
	return r.listIDs(ctx, query, userID)
}

// CreateVisibilityGrant grants a user visibility into a restricted project.
// Granting twice is a no-op.
func (r *MembershipRepository) CreateVisibilityGrant(ctx context.Context, g *models.ProjectVisibilityGrant) error {
	g.ID = uuid.New().String()
	g.CreatedAt = time.Now()

	query := `
		INSERT INTO project_visibility_grants (id, project_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, g.ID, g.ProjectID, g.UserID, g.CreatedAt)
	return err
}

// DeleteVisibilityGrant revokes a user's visibility grant on a project
func (r *MembershipRepository) DeleteVisibilityGrant(ctx context.Context, projectID, userID string) error {
	query := `DELETE FROM project_visibility_grants WHERE project_id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, projectID, userID)
	return err
}

// ReplaceVisibilityGrantsTx replaces the full grant set on a project inside a
// caller-managed transaction, so visibility mode and grants change together.
func (r *MembershipRepository) ReplaceVisibilityGrantsTx(ctx context.Context, tx *sql.Tx, projectID string, userIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_visibility_grants WHERE project_id = $1`, projectID); err != nil {
		return err
	}

	query := `
		INSERT INTO project_visibility_grants (id, project_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING
	`
	now := time.Now()
	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, query, uuid.New().String(), projectID, userID, now); err != nil {
			return err
		}
	}
	return nil
}
