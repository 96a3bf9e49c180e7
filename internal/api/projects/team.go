// team.go implements the project team endpoints. All membership mutations go
// through the membership coordinator so its notification side channel and
// transactional guarantees apply uniformly.
package projects

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/middleware"
)

// @Summary      List team
// @Description  List the project's team memberships.
// @Tags         Team
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "team"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/v1/projects/{id}/team [get]
// ListTeamHandler lists a project's team memberships
// GET /api/v1/projects/:id/team
func (h *Handlers) ListTeamHandler() gin.HandlerFunc {
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

		c.JSON(http.StatusOK, gin.H{"team": memberships})
	}
}

// AssignTeamRequest replaces the project's member set
type AssignTeamRequest struct {
	MemberIDs []string `json:"member_ids"`
}

// @Summary      Assign team members
// @Description  Replace the project's member-kind team with the given user set. Admin only; manager-kind rows are untouched.
// @Tags         Team
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Project ID"
// @Param        body  body  AssignTeamRequest  true  "Member assignment request"
// @Success      200  {object}  map[string]interface{}  "team"
// @Failure      400  {object}  map[string]interface{}  "Invalid member"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/projects/{id}/team [put]
// AssignTeamHandler replaces the project's member set
// PUT /api/v1/projects/:id/team
func (h *Handlers) AssignTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req AssignTeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionAssign)
		if project == nil {
			return
		}

		ctx := c.Request.Context()
		for _, userID := range req.MemberIDs {
			u, err := h.userRepo.GetUserByID(ctx, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
				return
			}
			if u == nil || u.OrganizationID != actor.OrganizationID || !u.IsActive {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Members must be active users in the organization"})
				return
			}
		}

		if err := h.coordinator.AssignMembers(ctx, project, req.MemberIDs, actor); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign members"})
			return
		}

		memberships, err := h.membershipRepo.ListMemberships(ctx, project.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list team"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"team": memberships})
	}
}

// @Summary      Remove team member
// @Description  Remove a single user from the project team. Admin only.
// @Tags         Team
// @Security     Bearer
// @Produce      json
// @Param        id       path  string  true  "Project ID"
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/projects/{id}/team/{user_id} [delete]
// RemoveTeamMemberHandler removes a user from the project team
// DELETE /api/v1/projects/:id/team/:user_id
func (h *Handlers) RemoveTeamMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		project := h.loadProject(c, actor, c.Param("id"), authz.ActionAssign)
		if project == nil {
			return
		}

		if err := h.coordinator.RemoveMember(c.Request.Context(), project, c.Param("user_id"), actor); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
	}
}
