// Package projects implements the project HTTP handlers: CRUD with
// scope-filtered listing, visibility editing, team assignment through the
// membership coordinator, and milestone management.
package projects

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

// Handlers handles project endpoints
type Handlers struct {
	db             *sql.DB
	projectRepo    *repositories.ProjectRepository
	membershipRepo *repositories.MembershipRepository
	userRepo       *repositories.UserRepository
	milestoneRepo  *repositories.MilestoneRepository
	taskRepo       *repositories.TaskRepository
	resolver       *authz.PermissionResolver
	coordinator    *team.Coordinator
}

// NewHandlers creates a new project Handlers instance
func NewHandlers(db *sql.DB, resolver *authz.PermissionResolver, coordinator *team.Coordinator) *Handlers {
	return &Handlers{
		db:             db,
		projectRepo:    repositories.NewProjectRepository(db),
		membershipRepo: repositories.NewMembershipRepository(db),
		userRepo:       repositories.NewUserRepository(db),
		milestoneRepo:  repositories.NewMilestoneRepository(db),
		taskRepo:       repositories.NewTaskRepository(db),
		resolver:       resolver,
		coordinator:    coordinator,
	}
}

// loadProject fetches a project and resolves the action against it. On any
// failure it writes the response and returns nil.
func (h *Handlers) loadProject(c *gin.Context, actor authz.ActorContext, projectID string, action authz.Action) *models.Project {
	project, err := h.projectRepo.GetProjectByID(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		return nil
	}

	d, err := h.resolver.ResolveProject(c.Request.Context(), actor, project, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return nil
	}
	if !d.Allowed {
		respond.Denied(c, "project", d)
		return nil
	}
	return project
}

// @Summary      List projects
// @Description  List the projects visible to the caller: everything for admins, managed projects for managers, open/assigned/granted projects for members.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "projects: []models.Project"
// @Router       /api/v1/projects [get]
// ListProjectsHandler lists the projects inside the caller's visible scope
// GET /api/v1/projects
func (h *Handlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		scope, err := h.resolver.Scope().ComputeProjectScope(ctx, actor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute project scope"})
			return
		}

		all, err := h.projectRepo.ListProjectsByOrganization(ctx, actor.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
			return
		}

		visible := make([]*models.Project, 0, len(all))
		for _, p := range all {
			if scope[p.ID] {
				visible = append(visible, p)
			}
		}

		c.JSON(http.StatusOK, gin.H{"projects": visible})
	}
}

// @Summary      Get project
// @Description  Get a project by ID, subject to the caller's visibility scope.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "project, team"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/v1/projects/{id} [get]
// GetProjectHandler retrieves a single project with its team
// GET /api/v1/projects/:id
func (h *Handlers) GetProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionView)
		if project == nil {
			return
		}

		memberships, err := h.membershipRepo.ListMemberships(c.Request.Context(), project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list team"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project": project,
			"team":    memberships,
		})
	}
}

// ProjectRequest carries the mutable project fields for create and update
type ProjectRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"required"`
	Visibility  string     `json:"visibility" binding:"required"`
	ManagerID   *string    `json:"manager_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

func (h *Handlers) validateProjectRequest(c *gin.Context, actor authz.ActorContext, req *ProjectRequest) bool {
	if !models.ValidProjectStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project status"})
		return false
	}
	if !models.ValidVisibility(req.Visibility) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility mode"})
		return false
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must not be before start date"})
		return false
	}

	if req.ManagerID != nil {
		mgr, err := h.userRepo.GetUserByID(c.Request.Context(), *req.ManagerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up manager"})
			return false
		}
		if mgr == nil || mgr.OrganizationID != actor.OrganizationID || !mgr.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Manager must be an active user in the organization"})
			return false
		}
	}
	return true
}

// @Summary      Create project
// @Description  Create a project. Members cannot create projects.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ProjectRequest  true  "Project creation request"
// @Success      201  {object}  map[string]interface{}  "project"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Router       /api/v1/projects [post]
// CreateProjectHandler creates a new project
// POST /api/v1/projects
func (h *Handlers) CreateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role == models.RoleMember {
			respond.Denied(c, "project", authz.Deny(authz.ReasonInsufficientRole))
			return
		}

		var req ProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !h.validateProjectRequest(c, actor, &req) {
			return
		}

		project := &models.Project{
			OrganizationID: actor.OrganizationID,
			Name:           req.Name,
			Description:    req.Description,
			Status:         req.Status,
			Visibility:     req.Visibility,
			ManagerID:      req.ManagerID,
			CreatedBy:      actor.UserID,
			StartDate:      req.StartDate,
			EndDate:        req.EndDate,
		}
		if err := h.projectRepo.CreateProject(c.Request.Context(), project); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"project": project})
	}
}

// @Summary      Update project
// @Description  Update a project. Completing a project auto-unassigns its open tasks and removes auto-added team members.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "Project ID"
// @Param        body  body  ProjectRequest  true  "Project update request"
// @Success      200  {object}  map[string]interface{}  "project"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/v1/projects/{id} [put]
// UpdateProjectHandler updates a project through the membership coordinator
// PUT /api/v1/projects/:id
func (h *Handlers) UpdateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req ProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionEdit)
		if project == nil {
			return
		}
		if !h.validateProjectRequest(c, actor, &req) {
			return
		}

		previousStatus := project.Status
		project.Name = req.Name
		project.Description = req.Description
		project.Status = req.Status
		project.Visibility = req.Visibility
		project.ManagerID = req.ManagerID
		project.StartDate = req.StartDate
		project.EndDate = req.EndDate

		// The coordinator owns the update so that a transition into "completed"
		// runs auto-unassign in the same transaction.
		if err := h.coordinator.UpdateProject(c.Request.Context(), project, previousStatus); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}

// @Summary      Delete project
// @Description  Delete a project and its dependents. Admin only; managers can never delete.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/v1/projects/{id} [delete]
// DeleteProjectHandler deletes a project
// DELETE /api/v1/projects/:id
func (h *Handlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionDelete)
		if project == nil {
			return
		}

		if err := h.projectRepo.DeleteProject(c.Request.Context(), project.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
	}
}

// VisibilityRequest replaces a project's visibility mode and grant set together
type VisibilityRequest struct {
	Visibility   string   `json:"visibility" binding:"required"`
	GrantUserIDs []string `json:"grant_user_ids"`
}

// @Summary      Update project visibility
// @Description  Replace the visibility mode and the grant set atomically.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Project ID"
// @Param        body  body  VisibilityRequest  true  "Visibility update request"
// @Success      200  {object}  map[string]interface{}  "project"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/projects/{id}/visibility [put]
// UpdateVisibilityHandler replaces visibility mode and grants in one transaction
// PUT /api/v1/projects/:id/visibility
func (h *Handlers) UpdateVisibilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req VisibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidVisibility(req.Visibility) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid visibility mode"})
			return
		}

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionEdit)
		if project == nil {
			return
		}

		ctx := c.Request.Context()
		for _, userID := range req.GrantUserIDs {
			u, err := h.userRepo.GetUserByID(ctx, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
				return
			}
			if u == nil || u.OrganizationID != actor.OrganizationID {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Grant user must belong to the organization"})
				return
			}
		}

		project.Visibility = req.Visibility
		err := repositories.RunInTransaction(ctx, h.db, func(tx *sql.Tx) error {
			if err := h.projectRepo.UpdateProjectTx(ctx, tx, project); err != nil {
				return err
			}
			// A project open to everyone carries no grant rows.
			grants := req.GrantUserIDs
			if req.Visibility == models.VisibilityAll {
				grants = nil
			}
			return h.membershipRepo.ReplaceVisibilityGrantsTx(ctx, tx, project.ID, grants)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update visibility"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}

// @Summary      List visibility grants
// @Description  List the users granted visibility into a restricted project.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "grants"
// @Router       /api/v1/projects/{id}/visibility [get]
// ListVisibilityGrantsHandler lists a project's visibility grants
// GET /api/v1/projects/:id/visibility
func (h *Handlers) ListVisibilityGrantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionView)
		if project == nil {
			return
		}

		grants, err := h.membershipRepo.ListVisibilityGrants(c.Request.Context(), project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list grants"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"grants": grants})
	}
}
