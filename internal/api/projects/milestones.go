// milestones.go implements the milestone endpoints. Milestones are scoped to a
// project, so every operation resolves permissions against the parent project.
// Assigning a milestone bulk-assigns its unassigned tasks through the
// membership coordinator, which also handles auto-add and assignee reminders.
package projects

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/middleware"
)

// MilestoneRequest carries the mutable milestone fields
type MilestoneRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"required"`
	DueDate     *time.Time `json:"due_date"`
}

// loadMilestone fetches a milestone and resolves the action against its parent
// project. On any failure it writes the response and returns nils.
func (h *Handlers) loadMilestone(c *gin.Context, actor authz.ActorContext, milestoneID string, action authz.Action) (*models.Milestone, *models.Project) {
	milestone, err := h.milestoneRepo.GetMilestoneByID(c.Request.Context(), milestoneID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve milestone"})
		return nil, nil
	}
	if milestone == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Milestone not found"})
		return nil, nil
	}

	project := h.loadProject(c, actor, milestone.ProjectID, action)
	if project == nil {
		return nil, nil
	}
	return milestone, project
}

// @Summary      List milestones
// @Description  List a project's milestones.
// @Tags         Milestones
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "milestones"
// @Router       /api/v1/projects/{id}/milestones [get]
// ListMilestonesHandler lists a project's milestones
// GET /api/v1/projects/:id/milestones
func (h *Handlers) ListMilestonesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionView)
		if project == nil {
			return
		}

		milestones, err := h.milestoneRepo.ListMilestonesByProject(c.Request.Context(), project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list milestones"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"milestones": milestones})
	}
}

// @Summary      Create milestone
// @Description  Create a milestone under a project.
// @Tags         Milestones
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "Project ID"
// @Param        body  body  MilestoneRequest  true  "Milestone creation request"
// @Success      201  {object}  map[string]interface{}  "milestone"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/projects/{id}/milestones [post]
// CreateMilestoneHandler creates a milestone under a project
// POST /api/v1/projects/:id/milestones
func (h *Handlers) CreateMilestoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req MilestoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidTaskStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone status"})
			return
		}

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionEdit)
		if project == nil {
			return
		}

		milestone := &models.Milestone{
			ProjectID:   project.ID,
			Name:        req.Name,
			Description: req.Description,
			Status:      req.Status,
			DueDate:     req.DueDate,
		}
		if err := h.milestoneRepo.CreateMilestone(c.Request.Context(), milestone); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create milestone"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"milestone": milestone})
	}
}

// @Summary      Update milestone
// @Description  Update a milestone's fields.
// @Tags         Milestones
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "Milestone ID"
// @Param        body  body  MilestoneRequest  true  "Milestone update request"
// @Success      200  {object}  map[string]interface{}  "milestone"
// @Failure      404  {object}  map[string]interface{}  "Milestone not found"
// @Router       /api/v1/milestones/{id} [put]
// UpdateMilestoneHandler updates a milestone
// PUT /api/v1/milestones/:id
func (h *Handlers) UpdateMilestoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req MilestoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidTaskStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid milestone status"})
			return
		}

		milestone, _ := h.loadMilestone(c, actor, c.Param("id"), authz.ActionEdit)
		if milestone == nil {
			return
		}

		milestone.Name = req.Name
		milestone.Description = req.Description
		milestone.Status = req.Status
		milestone.DueDate = req.DueDate

		if err := h.milestoneRepo.UpdateMilestone(c.Request.Context(), milestone); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update milestone"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"milestone": milestone})
	}
}

// @Summary      Delete milestone
// @Description  Delete a milestone. Its tasks remain, detached from the milestone.
// @Tags         Milestones
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Milestone ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Milestone not found"
// @Router       /api/v1/milestones/{id} [delete]
// DeleteMilestoneHandler deletes a milestone
// DELETE /api/v1/milestones/:id
func (h *Handlers) DeleteMilestoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		milestone, _ := h.loadMilestone(c, actor, c.Param("id"), authz.ActionEdit)
		if milestone == nil {
			return
		}

		if err := h.milestoneRepo.DeleteMilestone(c.Request.Context(), milestone.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete milestone"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Milestone deleted"})
	}
}

// AssignMilestoneRequest assigns every unassigned task under the milestone
type AssignMilestoneRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// @Summary      Assign milestone
// @Description  Bulk-assign the milestone's unassigned tasks to one user. Each assignment runs through the coordinator, so the assignee is auto-added to the project team.
// @Tags         Milestones
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "Milestone ID"
// @Param        body  body  AssignMilestoneRequest  true  "Assignment request"
// @Success      200  {object}  map[string]interface{}  "assigned_count"
// @Failure      400  {object}  map[string]interface{}  "Invalid assignee"
// @Router       /api/v1/milestones/{id}/assign [post]
// AssignMilestoneHandler bulk-assigns the milestone's unassigned tasks
// POST /api/v1/milestones/:id/assign
func (h *Handlers) AssignMilestoneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req AssignMilestoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		// Milestone assignment is a project edit for permission purposes: the
		// assigned manager may do it. ActionAssign on the project itself means
		// team management, which is admin-only.
		milestone, project := h.loadMilestone(c, actor, c.Param("id"), authz.ActionEdit)
		if milestone == nil {
			return
		}

		ctx := c.Request.Context()
		assignee, err := h.userRepo.GetUserByID(ctx, req.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up assignee"})
			return
		}
		if assignee == nil || assignee.OrganizationID != project.OrganizationID || !assignee.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee must be an active user in the organization"})
			return
		}

		tasks, err := h.taskRepo.ListUnassignedTasksByMilestone(ctx, milestone.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list milestone tasks"})
			return
		}

		assigned := 0
		for _, task := range tasks {
			task.AssigneeID = &req.UserID
			if err := h.coordinator.UpdateTask(ctx, task, nil); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign milestone tasks"})
				return
			}
			assigned++
		}

		c.JSON(http.StatusOK, gin.H{"assigned_count": assigned})
	}
}
