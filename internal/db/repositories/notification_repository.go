// notification_repository.go implements NotificationRepository, providing database
// queries for in-app notifications including the per-day due-soon dedup check used
// by the notification generator.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/taskhub/taskhub/internal/db/models"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification creates a new notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()

	query := `
		INSERT INTO notifications (id, organization_id, user_id, task_id, project_id, type, message, days_until_due, is_read, created_at)
		VALUES (:id, :organization_id, :user_id, :task_id, :project_id, :type, :message, :days_until_due, :is_read, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, n)
	return err
}

// ExistsNotificationToday reports whether a notification of the given type already
// exists for (user, task) created on the current calendar day. Used to keep the
// due-soon generator idempotent across reruns.
func (r *NotificationRepository) ExistsNotificationToday(ctx context.Context, userID, taskID, notifType string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE user_id = $1 AND task_id = $2 AND type = $3
			  AND created_at::date = CURRENT_DATE
		)
	`

	err := r.db.GetContext(ctx, &exists, query, userID, taskID, notifType)
	return exists, err
}

// ListNotificationsByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListNotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	query := `
		SELECT id, organization_id, user_id, task_id, project_id, type, message, days_until_due, is_read, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC`

	var notifications []*models.Notification
	err := r.db.SelectContext(ctx, &notifications, query, userID)
	return notifications, err
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

// MarkRead marks a single notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, query, notificationID, userID)
	return err
}

// MarkAllRead marks all of a user's notifications as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	query := `UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteOlderThan removes notifications created more than the given number of
// days ago, returning how many rows were deleted.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < NOW() - ($1 * INTERVAL '1 day')`

	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
