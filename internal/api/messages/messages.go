// Package messages implements the direct message HTTP handlers. Messages only
// ever travel between users in the same organization; a participant check on
// retrieval keeps foreign IDs indistinguishable from missing ones.
package messages

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
)

// Handlers handles direct message endpoints
type Handlers struct {
	messageRepo *repositories.MessageRepository
	userRepo    *repositories.UserRepository
}

// NewHandlers creates a new message Handlers instance
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{
		messageRepo: repositories.NewMessageRepository(db),
		userRepo:    repositories.NewUserRepository(db),
	}
}

// SendMessageRequest carries the fields for sending a direct message
type SendMessageRequest struct {
	RecipientID string  `json:"recipient_id" binding:"required"`
	ProjectID   *string `json:"project_id"`
	Subject     string  `json:"subject" binding:"required"`
	Body        string  `json:"body" binding:"required"`
}

// @Summary      Send message
// @Description  Send a direct message to another active user in the caller's organization.
// @Tags         Messages
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  SendMessageRequest  true  "Message"
// @Success      201  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Recipient not found"
// @Router       /api/v1/messages [post]
// SendMessageHandler sends a direct message
// POST /api/v1/messages
func (h *Handlers) SendMessageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		recipient, err := h.userRepo.GetUserByID(c.Request.Context(), req.RecipientID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve recipient"})
			return
		}
		if recipient == nil || recipient.OrganizationID != actor.OrganizationID || !recipient.IsActive {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
			return
		}

		senderID := actor.UserID
		message := &models.Message{
			OrganizationID: actor.OrganizationID,
			SenderID:       &senderID,
			RecipientID:    recipient.ID,
			ProjectID:      req.ProjectID,
			Subject:        req.Subject,
			Body:           req.Body,
		}
		if err := h.messageRepo.CreateMessage(c.Request.Context(), message); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": message})
	}
}

// @Summary      List messages
// @Description  List the caller's received messages, newest first.
// @Tags         Messages
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "messages"
// @Router       /api/v1/messages [get]
// ListMessagesHandler lists the caller's received messages
// GET /api/v1/messages
func (h *Handlers) ListMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		msgs, err := h.messageRepo.ListMessagesByRecipient(c.Request.Context(), actor.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// @Summary      Get message
// @Description  Get a single message. Only the sender or recipient may read it.
// @Tags         Messages
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Message ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Message not found"
// @Router       /api/v1/messages/{id} [get]
// GetMessageHandler retrieves a single message
// GET /api/v1/messages/:id
func (h *Handlers) GetMessageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		message, err := h.messageRepo.GetMessageByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve message"})
			return
		}
		isParticipant := message != nil &&
			(message.RecipientID == actor.UserID ||
				(message.SenderID != nil && *message.SenderID == actor.UserID))
		if !isParticipant {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// @Summary      Mark message read
// @Description  Mark one of the caller's received messages as read.
// @Tags         Messages
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Message ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Router       /api/v1/messages/{id}/read [post]
// MarkReadHandler marks a received message as read
// POST /api/v1/messages/:id/read
func (h *Handlers) MarkReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		if err := h.messageRepo.MarkRead(c.Request.Context(), c.Param("id"), actor.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark message read"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Message marked read"})
	}
}
