// Package notifications implements the notification HTTP handlers: listing and
// acknowledging a user's own notifications, plus the admin endpoints that
// trigger a due-soon scan on demand and purge old notifications.
package notifications

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/jobs"
	"github.com/taskhub/taskhub/internal/middleware"
)

// Handlers handles notification endpoints
type Handlers struct {
	cfg              *config.Config
	notificationRepo *repositories.NotificationRepository
	notifier         *jobs.DueDateNotifier
}

// NewHandlers creates a new notification Handlers instance
func NewHandlers(cfg *config.Config, db *sql.DB, notifier *jobs.DueDateNotifier) *Handlers {
	sqlxDB := sqlx.NewDb(db, "postgres")
	return &Handlers{
		cfg:              cfg,
		notificationRepo: repositories.NewNotificationRepository(sqlxDB),
		notifier:         notifier,
	}
}

// @Summary      List notifications
// @Description  List the caller's notifications, newest first. Pass unread_only=true to filter.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Param        unread_only  query  bool  false  "Only unread notifications"
// @Success      200  {object}  map[string]interface{}  "notifications"
// @Router       /api/v1/notifications [get]
// ListNotificationsHandler lists the caller's notifications
// GET /api/v1/notifications
func (h *Handlers) ListNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		unreadOnly := c.Query("unread_only") == "true"

		notifications, err := h.notificationRepo.ListNotificationsByUser(c.Request.Context(), actor.UserID, unreadOnly)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

// @Summary      Unread count
// @Description  Count the caller's unread notifications.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count"
// @Router       /api/v1/notifications/unread-count [get]
// UnreadCountHandler returns the caller's unread notification count
// GET /api/v1/notifications/unread-count
func (h *Handlers) UnreadCountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		count, err := h.notificationRepo.CountUnread(c.Request.Context(), actor.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"count": count})
	}
}

// @Summary      Mark notification read
// @Description  Mark one of the caller's notifications as read.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Notification ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Router       /api/v1/notifications/{id}/read [post]
// MarkReadHandler marks a single notification as read
// POST /api/v1/notifications/:id/read
func (h *Handlers) MarkReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		// Scoping by recipient in the update itself means a foreign ID is a
		// silent no-op rather than an information leak.
		if err := h.notificationRepo.MarkRead(c.Request.Context(), c.Param("id"), actor.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
	}
}

// @Summary      Mark all read
// @Description  Mark all of the caller's notifications as read.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "message"
// @Router       /api/v1/notifications/read-all [post]
// MarkAllReadHandler marks all of the caller's notifications as read
// POST /api/v1/notifications/read-all
func (h *Handlers) MarkAllReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		if err := h.notificationRepo.MarkAllRead(c.Request.Context(), actor.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications read"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
	}
}

// @Summary      Trigger due-soon scan
// @Description  Run the due-soon reminder scan for the caller's organization immediately. Admin only.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "generated"
// @Failure      403  {object}  map[string]interface{}  "Admin access required"
// @Router       /api/v1/admin/notifications/due-soon [post]
// TriggerDueSoonHandler runs an on-demand due-soon scan for the caller's organization
// POST /api/v1/admin/notifications/due-soon
func (h *Handlers) TriggerDueSoonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		generated, err := h.notifier.GenerateForOrganization(c.Request.Context(), actor.OrganizationID, h.cfg.Notifications.DueSoonWindowDays)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"generated": generated})
	}
}

// @Summary      Purge old notifications
// @Description  Delete notifications older than the given number of days (default 90). Admin only.
// @Tags         Notifications
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Retention window in days"
// @Success      200  {object}  map[string]interface{}  "deleted"
// @Failure      403  {object}  map[string]interface{}  "Admin access required"
// @Router       /api/v1/admin/notifications/cleanup [post]
// CleanupHandler deletes notifications older than the retention window
// POST /api/v1/admin/notifications/cleanup
func (h *Handlers) CleanupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		days := 90
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
				return
			}
			days = parsed
		}

		deleted, err := h.notificationRepo.DeleteOlderThan(c.Request.Context(), days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notifications"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": deleted, "days": days})
	}
}
