// comments.go implements the task comment endpoints. Comments have no
// permission rules of their own: whoever may view a task may read its thread
// and post to it.
package tasks

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/middleware"
)

// CommentRequest carries a new comment's content
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// @Summary      List task comments
// @Description  List a task's comments oldest-first. Visible to anyone who may view the task.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  map[string]interface{}  "comments"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id}/comments [get]
// ListCommentsHandler lists a task's comments
// GET /api/v1/tasks/:id/comments
func (h *Handlers) ListCommentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		task, _ := h.loadTask(c, actor, c.Param("id"), authz.ActionView)
		if task == nil {
			return
		}

		comments, err := h.commentRepo.ListCommentsByTask(c.Request.Context(), task.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list comments"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"comments": comments})
	}
}

// @Summary      Add task comment
// @Description  Append a comment to the task's thread. View access to the task is sufficient.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Task ID"
// @Param        body  body  CommentRequest  true  "Comment"
// @Success      201  {object}  map[string]interface{}  "comment"
// @Failure      400  {object}  map[string]interface{}  "Empty comment"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id}/comments [post]
// AddCommentHandler appends a comment to a task
// POST /api/v1/tasks/:id/comments
func (h *Handlers) AddCommentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req CommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Comment cannot be empty"})
			return
		}

		task, _ := h.loadTask(c, actor, c.Param("id"), authz.ActionView)
		if task == nil {
			return
		}

		comment := &models.TaskComment{
			TaskID:  task.ID,
			UserID:  actor.UserID,
			Content: content,
		}
		if err := h.commentRepo.CreateComment(c.Request.Context(), comment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"comment": comment})
	}
}
