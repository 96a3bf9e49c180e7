// Package tasks implements the task HTTP handlers: CRUD with the resolver's
// task rules (including the member status-only edit allowance) and the
// dashboard read models for overdue and due-soon tasks. Task creation and
// assignment changes run through the membership coordinator so auto-add fires
// in the same transaction.
package tasks

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/api/respond"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
	"github.com/taskhub/taskhub/internal/team"
)

// Handlers handles task endpoints
type Handlers struct {
	taskRepo      *repositories.TaskRepository
	projectRepo   *repositories.ProjectRepository
	milestoneRepo *repositories.MilestoneRepository
	userRepo      *repositories.UserRepository
	commentRepo   *repositories.CommentRepository
	resolver      *authz.PermissionResolver
	coordinator   *team.Coordinator
}

// NewHandlers creates a new task Handlers instance
func NewHandlers(db *sql.DB, resolver *authz.PermissionResolver, coordinator *team.Coordinator) *Handlers {
	return &Handlers{
		taskRepo:      repositories.NewTaskRepository(db),
		projectRepo:   repositories.NewProjectRepository(db),
		milestoneRepo: repositories.NewMilestoneRepository(db),
		userRepo:      repositories.NewUserRepository(db),
		commentRepo:   repositories.NewCommentRepository(db),
		resolver:      resolver,
		coordinator:   coordinator,
	}
}

// TaskRequest carries the mutable task fields for create and update
type TaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"required"`
	Priority    string     `json:"priority" binding:"required"`
	MilestoneID *string    `json:"milestone_id"`
	AssigneeID  *string    `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
}

// loadTask fetches a task and resolves the action against it. On any failure
// it writes the response and returns the zero decision with a nil task.
func (h *Handlers) loadTask(c *gin.Context, actor authz.ActorContext, taskID string, action authz.Action) (*models.Task, authz.Decision) {
	task, err := h.taskRepo.GetTaskByID(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return nil, authz.Decision{}
	}

	d, err := h.resolver.ResolveTask(c.Request.Context(), actor, task, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return nil, authz.Decision{}
	}
	if !d.Allowed {
		respond.Denied(c, "task", d)
		return nil, authz.Decision{}
	}
	return task, d
}

// validateTaskRequest checks the request fields against the parent project:
// valid status/priority strings, a due date inside the project date range, a
// milestone belonging to the project, and an assignee inside the organization.
func (h *Handlers) validateTaskRequest(c *gin.Context, project *models.Project, req *TaskRequest) bool {
	if !models.ValidTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task status"})
		return false
	}
	if !models.ValidTaskPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task priority"})
		return false
	}

	if req.DueDate != nil {
		if project.StartDate != nil && req.DueDate.Before(*project.StartDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Due date is before the project start date"})
			return false
		}
		if project.EndDate != nil && req.DueDate.After(*project.EndDate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Due date is after the project end date"})
			return false
		}
	}

	ctx := c.Request.Context()
	if req.MilestoneID != nil {
		m, err := h.milestoneRepo.GetMilestoneByID(ctx, *req.MilestoneID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up milestone"})
			return false
		}
		if m == nil || m.ProjectID != project.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Milestone does not belong to the project"})
			return false
		}
	}

	if req.AssigneeID != nil {
		u, err := h.userRepo.GetUserByID(ctx, *req.AssigneeID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up assignee"})
			return false
		}
		if u == nil || u.OrganizationID != project.OrganizationID || !u.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee must be an active user in the organization"})
			return false
		}
	}
	return true
}

// @Summary      List project tasks
// @Description  List the tasks of a project inside the caller's scope.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "tasks"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/v1/projects/{id}/tasks [get]
// ListProjectTasksHandler lists a project's tasks
// GET /api/v1/projects/:id/tasks
func (h *Handlers) ListProjectTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		project, err := h.projectRepo.GetProjectByID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
			return
		}
		d, err := h.resolver.ResolveProject(ctx, actor, project, authz.ActionView)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
			return
		}
		if !d.Allowed {
			respond.Denied(c, "project", d)
			return
		}

		tasks, err := h.taskRepo.ListTasksByProject(ctx, project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// @Summary      My tasks
// @Description  List the tasks assigned to the caller.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "tasks"
// @Router       /api/v1/tasks/mine [get]
// MyTasksHandler lists the caller's assigned tasks
// GET /api/v1/tasks/mine
func (h *Handlers) MyTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		tasks, err := h.taskRepo.ListTasksByAssignee(c.Request.Context(), actor.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tasks"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// @Summary      Get task
// @Description  Get a task by ID, subject to the caller's scope.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  map[string]interface{}  "task"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id} [get]
// GetTaskHandler retrieves a single task
// GET /api/v1/tasks/:id
func (h *Handlers) GetTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		task, _ := h.loadTask(c, actor, c.Param("id"), authz.ActionView)
		if task == nil {
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// @Summary      Create task
// @Description  Create a task under a project. Assigning a user auto-adds them to the project team in the same transaction.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Project ID"
// @Param        body  body  TaskRequest  true  "Task creation request"
// @Success      201  {object}  map[string]interface{}  "task"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/projects/{id}/tasks [post]
// CreateTaskHandler creates a task under a project
// POST /api/v1/projects/:id/tasks
func (h *Handlers) CreateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		project, err := h.projectRepo.GetProjectByID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
			return
		}
		// Creating a task is an edit on the project; members never pass this.
		d, err := h.resolver.ResolveProject(ctx, actor, project, authz.ActionEdit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
			return
		}
		if !d.Allowed {
			respond.Denied(c, "project", d)
			return
		}

		if !h.validateTaskRequest(c, project, &req) {
			return
		}

		task := &models.Task{
			OrganizationID: project.OrganizationID,
			ProjectID:      project.ID,
			MilestoneID:    req.MilestoneID,
			Title:          req.Title,
			Description:    req.Description,
			Status:         req.Status,
			Priority:       req.Priority,
			AssigneeID:     req.AssigneeID,
			DueDate:        req.DueDate,
			CreatedBy:      actor.UserID,
		}
		if task.Status == models.TaskStatusCompleted {
			now := time.Now()
			task.CompletedAt = &now
		}

		if err := h.coordinator.CreateTask(ctx, task); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"task": task})
	}
}

// @Summary      Update task
// @Description  Update a task. Members assigned to the task may change only its status; assignment changes auto-add the new assignee to the team.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Task ID"
// @Param        body  body  TaskRequest  true  "Task update request"
// @Success      200  {object}  map[string]interface{}  "task"
// @Failure      403  {object}  map[string]interface{}  "Denied or status-only violation"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id} [put]
// UpdateTaskHandler updates a task through the membership coordinator
// PUT /api/v1/tasks/:id
func (h *Handlers) UpdateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req TaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		task, d := h.loadTask(c, actor, c.Param("id"), authz.ActionEdit)
		if task == nil {
			return
		}

		if d.StatusOnly && !statusOnlyChange(task, &req) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Members may only change the task status"})
			return
		}

		ctx := c.Request.Context()
		project, err := h.projectRepo.GetProjectByID(ctx, task.ProjectID)
		if err != nil || project == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
			return
		}
		if !h.validateTaskRequest(c, project, &req) {
			return
		}

		previousAssignee := task.AssigneeID
		previousStatus := task.Status

		task.Title = req.Title
		task.Description = req.Description
		task.Status = req.Status
		task.Priority = req.Priority
		task.MilestoneID = req.MilestoneID
		task.AssigneeID = req.AssigneeID
		task.DueDate = req.DueDate

		// Entering completed stamps the completion time; leaving it clears it.
		if task.Status == models.TaskStatusCompleted && previousStatus != models.TaskStatusCompleted {
			now := time.Now()
			task.CompletedAt = &now
		} else if task.Status != models.TaskStatusCompleted {
			task.CompletedAt = nil
		}

		if err := h.coordinator.UpdateTask(ctx, task, previousAssignee); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// statusOnlyChange reports whether the request differs from the stored task in
// nothing but the status field.
func statusOnlyChange(task *models.Task, req *TaskRequest) bool {
	if req.Title != task.Title || req.Description != task.Description || req.Priority != task.Priority {
		return false
	}
	if !strPtrEqual(req.MilestoneID, task.MilestoneID) || !strPtrEqual(req.AssigneeID, task.AssigneeID) {
		return false
	}
	return timePtrEqual(req.DueDate, task.DueDate)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// UpdateStatusRequest changes only the task status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      Update task status
// @Description  Change only the task status. This is the edit members assigned to the task are allowed.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true  "Task ID"
// @Param        body  body  UpdateStatusRequest  true  "Status update request"
// @Success      200  {object}  map[string]interface{}  "task"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id}/status [patch]
// UpdateStatusHandler changes only the task status
// PATCH /api/v1/tasks/:id/status
func (h *Handlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidTaskStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task status"})
			return
		}

		task, _ := h.loadTask(c, actor, c.Param("id"), authz.ActionEdit)
		if task == nil {
			return
		}

		var completedAt *time.Time
		if req.Status == models.TaskStatusCompleted {
			if task.CompletedAt != nil {
				completedAt = task.CompletedAt
			} else {
				now := time.Now()
				completedAt = &now
			}
		}

		if err := h.taskRepo.UpdateTaskStatus(c.Request.Context(), task.ID, req.Status, completedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task status"})
			return
		}

		task.Status = req.Status
		task.CompletedAt = completedAt
		c.JSON(http.StatusOK, gin.H{"task": task})
	}
}

// @Summary      Delete task
// @Description  Delete a task. Members cannot delete tasks, even their own.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/v1/tasks/{id} [delete]
// DeleteTaskHandler deletes a task
// DELETE /api/v1/tasks/:id
func (h *Handlers) DeleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		task, _ := h.loadTask(c, actor, c.Param("id"), authz.ActionDelete)
		if task == nil {
			return
		}

		if err := h.taskRepo.DeleteTask(c.Request.Context(), task.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	}
}
