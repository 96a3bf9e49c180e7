// task_repository.go implements TaskRepository, providing database queries for
// tasks including assignment, status updates, and the due-soon scan used by the
// notification generator.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, organization_id, project_id, milestone_id, title, description, status, priority, assignee_id, due_date, completed_at, created_by, created_at, updated_at`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID,
		&t.OrganizationID,
		&t.ProjectID,
		&t.MilestoneID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.AssigneeID,
		&t.DueDate,
		&t.CompletedAt,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTask creates a new task
func (r *TaskRepository) CreateTask(ctx context.Context, t *models.Task) error {
	return r.createTask(ctx, r.db, t)
}

// CreateTaskTx is CreateTask inside a caller-managed transaction
func (r *TaskRepository) CreateTaskTx(ctx context.Context, tx *sql.Tx, t *models.Task) error {
	return r.createTask(ctx, tx, t)
}

func (r *TaskRepository) createTask(ctx context.Context, e execer, t *models.Task) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()

	query := `
		INSERT INTO tasks (id, organization_id, project_id, milestone_id, title, description, status, priority, assignee_id, due_date, completed_at, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := e.ExecContext(ctx, query,
		t.ID,
		t.OrganizationID,
		t.ProjectID,
		t.MilestoneID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.AssigneeID,
		t.DueDate,
		t.CompletedAt,
		t.CreatedBy,
		t.CreatedAt,
		t.UpdatedAt,
	)

	return err
}

// GetTaskByID retrieves a task by ID
func (r *TaskRepository) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRowContext(ctx, query, taskID))
}

// ListTasksByProject retrieves all tasks in a project
func (r *TaskRepository) ListTasksByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1 ORDER BY created_at`
	return r.listTasks(ctx, query, projectID)
}

// ListTasksByAssignee retrieves all tasks assigned to a user
func (r *TaskRepository) ListTasksByAssignee(ctx context.Context, userID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE assignee_id = $1 ORDER BY due_date NULLS LAST`
	return r.listTasks(ctx, query, userID)
}

// ListUnassignedTasksByMilestone retrieves tasks in a milestone that have no assignee
func (r *TaskRepository) ListUnassignedTasksByMilestone(ctx context.Context, milestoneID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE milestone_id = $1 AND assignee_id IS NULL`
	return r.listTasks(ctx, query, milestoneID)
}

// ListDueSoonTasks retrieves assigned, uncompleted tasks in an organization whose
// due date falls between today and today+windowDays inclusive.
func (r *TaskRepository) ListDueSoonTasks(ctx context.Context, orgID string, windowDays int) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE organization_id = $1
		  AND assignee_id IS NOT NULL
		  AND status != 'completed'
		  AND due_date IS NOT NULL
		  AND due_date >= CURRENT_DATE
		  AND due_date <= CURRENT_DATE + $2::int
		ORDER BY due_date
	`
	return r.listTasks(ctx, query, orgID, windowDays)
}

// ListOverdueTasks retrieves assigned, uncompleted tasks in an organization whose
// due date has passed.
func (r *TaskRepository) ListOverdueTasks(ctx context.Context, orgID string) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE organization_id = $1
		  AND status != 'completed'
		  AND due_date IS NOT NULL
		  AND due_date < CURRENT_DATE
		ORDER BY due_date
	`
	return r.listTasks(ctx, query, orgID)
}

func (r *TaskRepository) listTasks(ctx context.Context, query string, args ...interface{}) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// UpdateTask updates a task's mutable fields
func (r *TaskRepository) UpdateTask(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, updateTaskQuery, updateTaskArgs(t)...)
	return err
}

// UpdateTaskTx is UpdateTask inside a caller-managed transaction
func (r *TaskRepository) UpdateTaskTx(ctx context.Context, tx *sql.Tx, t *models.Task) error {
	t.UpdatedAt = time.Now()
	_, err := tx.ExecContext(ctx, updateTaskQuery, updateTaskArgs(t)...)
	return err
}

const updateTaskQuery = `
	UPDATE tasks
	SET milestone_id = $2, title = $3, description = $4, status = $5, priority = $6, assignee_id = $7, due_date = $8, completed_at = $9, updated_at = $10
	WHERE id = $1
`

func updateTaskArgs(t *models.Task) []interface{} {
	return []interface{}{
		t.ID,
		t.MilestoneID,
		t.Title,
		t.Description,
		t.Status,
		t.Priority,
		t.AssigneeID,
		t.DueDate,
		t.CompletedAt,
		t.UpdatedAt,
	}
}

// UpdateTaskStatus updates only the status and completion timestamp. This is the
// one write members are allowed on their own tasks.
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, taskID, status string, completedAt *time.Time) error {
	query := `UPDATE tasks SET status = $2, completed_at = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, taskID, status, completedAt, time.Now())
	return err
}

// DeleteTask deletes a task
func (r *TaskRepository) DeleteTask(ctx context.Context, taskID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	return err
}
