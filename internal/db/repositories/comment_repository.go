// comment_repository.go implements CommentRepository, providing database queries
// for task comments. Reads join the author's name so callers never need a second
// lookup per comment.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// CommentRepository handles task comment database operations
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// CreateComment creates a new task comment
func (r *CommentRepository) CreateComment(ctx context.Context, c *models.TaskComment) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()

	query := `
		INSERT INTO task_comments (id, task_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.TaskID,
		c.UserID,
		c.Content,
		c.CreatedAt,
	)

	return err
}

// ListCommentsByTask retrieves a task's comments oldest-first, with each
// author's full name joined in.
func (r *CommentRepository) ListCommentsByTask(ctx context.Context, taskID string) ([]*models.TaskComment, error) {
	query := `
		SELECT tc.id, tc.task_id, tc.user_id, u.full_name, tc.content, tc.created_at
		FROM task_comments tc
		JOIN users u ON u.id = tc.user_id
		WHERE tc.task_id = $1
		ORDER BY tc.created_at
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.TaskComment
	for rows.Next() {
		c := &models.TaskComment{}
		err := rows.Scan(
			&c.ID,
			&c.TaskID,
			&c.UserID,
			&c.UserName,
			&c.Content,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}
