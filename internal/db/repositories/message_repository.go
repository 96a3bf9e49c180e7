// message_repository.go implements MessageRepository, providing database queries
// for direct messages. The team coordinator writes here on a best-effort basis;
// a failed insert is logged by the caller and never fails the triggering mutation.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/db/models"
)

// MessageRepository handles message database operations
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, organization_id, sender_id, recipient_id, project_id, subject, body, is_read, created_at`

// CreateMessage creates a new message
func (r *MessageRepository) CreateMessage(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New().String()
	m.CreatedAt = time.Now()

	query := `
		INSERT INTO messages (id, organization_id, sender_id, recipient_id, project_id, subject, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.OrganizationID,
		m.SenderID,
		m.RecipientID,
		m.ProjectID,
		m.Subject,
		m.Body,
		m.IsRead,
		m.CreatedAt,
	)

	return err
}

// GetMessageByID retrieves a message by ID
func (r *MessageRepository) GetMessageByID(ctx context.Context, messageID string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	m := &models.Message{}
	err := r.db.QueryRowContext(ctx, query, messageID).Scan(
		&m.ID,
		&m.OrganizationID,
		&m.SenderID,
		&m.RecipientID,
		&m.ProjectID,
		&m.Subject,
		&m.Body,
		&m.IsRead,
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

// ListMessagesByRecipient retrieves a user's inbox, newest first
func (r *MessageRepository) ListMessagesByRecipient(ctx context.Context, userID string) ([]*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE recipient_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		err := rows.Scan(
			&m.ID,
			&m.OrganizationID,
			&m.SenderID,
			&m.RecipientID,
			&m.ProjectID,
			&m.Subject,
			&m.Body,
			&m.IsRead,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// MarkRead marks a message as read by its recipient
func (r *MessageRepository) MarkRead(ctx context.Context, messageID, recipientID string) error {
	query := `UPDATE messages SET is_read = true WHERE id = $1 AND recipient_id = $2`
	_, err := r.db.ExecContext(ctx, query, messageID, recipientID)
	return err
}
