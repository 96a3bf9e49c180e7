// dashboard.go implements the dashboard read models: overdue and due-soon
// task lists, narrowed to the caller's visibility. Admins see the whole
// organization, managers their managed projects, members their own tasks.
package tasks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/middleware"
)

// filterTasksForActor narrows an org-wide task list to the actor's scope.
func (h *Handlers) filterTasksForActor(c *gin.Context, actor authz.ActorContext, tasks []*models.Task) ([]*models.Task, bool) {
	switch actor.Role {
	case models.RoleAdmin:
		return tasks, true

	case models.RoleMember:
		mine := make([]*models.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.AssigneeID != nil && *t.AssigneeID == actor.UserID {
				mine = append(mine, t)
			}
		}
		return mine, true

	default: // manager
		scope, err := h.resolver.Scope().ComputeProjectScope(c.Request.Context(), actor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute project scope"})
			return nil, false
		}
		scoped := make([]*models.Task, 0, len(tasks))
		for _, t := range tasks {
			if scope[t.ProjectID] {
				scoped = append(scoped, t)
			}
		}
		return scoped, true
	}
}

// @Summary      Due-soon tasks
// @Description  List uncompleted assigned tasks due within the window, narrowed to the caller's scope.
// @Tags         Dashboard
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Look-ahead window in days (default 7)"
// @Success      200  {object}  map[string]interface{}  "tasks"
// @Router       /api/v1/dashboard/due-soon [get]
// DueSoonHandler lists tasks approaching their due date
// GET /api/v1/dashboard/due-soon?days=7
func (h *Handlers) DueSoonHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
		if days < 1 || days > 90 {
			days = 7
		}

		tasks, err := h.taskRepo.ListDueSoonTasks(c.Request.Context(), actor.OrganizationID, days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list due-soon tasks"})
			return
		}

		visible, ok := h.filterTasksForActor(c, actor, tasks)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"tasks":       visible,
			"window_days": days,
		})
	}
}

// @Summary      Overdue tasks
// @Description  List uncompleted tasks past their due date, narrowed to the caller's scope.
// @Tags         Dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "tasks"
// @Router       /api/v1/dashboard/overdue [get]
// OverdueHandler lists tasks past their due date
// GET /api/v1/dashboard/overdue
func (h *Handlers) OverdueHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		tasks, err := h.taskRepo.ListOverdueTasks(c.Request.Context(), actor.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list overdue tasks"})
			return
		}

		visible, ok := h.filterTasksForActor(c, actor, tasks)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": visible})
	}
}
