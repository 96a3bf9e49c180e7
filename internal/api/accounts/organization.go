// organization.go implements the tenant profile endpoints: any authenticated
// user can read their own organization, and admins can rename its display name.
// The URL-safe name is immutable after registration because it appears in
// storage keys and audit rows.
package accounts

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
)

// OrganizationHandlers handles organization profile endpoints
type OrganizationHandlers struct {
	orgRepo *repositories.OrganizationRepository
}

// NewOrganizationHandlers creates a new OrganizationHandlers instance
func NewOrganizationHandlers(db *sql.DB) *OrganizationHandlers {
	return &OrganizationHandlers{
		orgRepo: repositories.NewOrganizationRepository(db),
	}
}

// UpdateOrganizationRequest renames the organization's display name
type UpdateOrganizationRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// @Summary      Get organization
// @Description  Get the caller's organization profile.
// @Tags         Organization
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/organization [get]
// GetOrganizationHandler returns the caller's organization
// GET /api/v1/organization
func (h *OrganizationHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		org, err := h.orgRepo.GetByID(c.Request.Context(), actor.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve organization"})
			return
		}
		if org == nil {
			// The actor's org was deleted out from under an open session.
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

// @Summary      Update organization
// @Description  Rename the organization's display name. Admin only.
// @Tags         Organization
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  UpdateOrganizationRequest  true  "New display name"
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/v1/organization [put]
// UpdateOrganizationHandler renames the organization (admin only)
// PUT /api/v1/organization
func (h *OrganizationHandlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		displayName := strings.TrimSpace(req.DisplayName)
		if displayName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Display name must not be blank"})
			return
		}

		ctx := c.Request.Context()
		org, err := h.orgRepo.GetByID(ctx, actor.OrganizationID)
		if err != nil || org == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve organization"})
			return
		}

		org.DisplayName = displayName
		if err := h.orgRepo.Update(ctx, org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update organization"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}
