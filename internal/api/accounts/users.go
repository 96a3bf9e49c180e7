// users.go implements handlers for user account management within an
// organization: listing, creation, profile edits with the role-change guard,
// and the admin activate/deactivate toggle.
package accounts

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/api/respond"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
)

// UserHandlers handles user management endpoints
type UserHandlers struct {
	userRepo *repositories.UserRepository
	resolver *authz.PermissionResolver
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(db *sql.DB, resolver *authz.PermissionResolver) *UserHandlers {
	return &UserHandlers{
		userRepo: repositories.NewUserRepository(db),
		resolver: resolver,
	}
}

// @Summary      List users
// @Description  List every user in the caller's organization.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "users: []models.User"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/users [get]
// ListUsersHandler lists the organization's users
// GET /api/v1/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		users, err := h.userRepo.ListUsersByOrganization(c.Request.Context(), actor.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// @Summary      Get user
// @Description  Get a user in the caller's organization by ID.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/users/{id} [get]
// GetUserHandler retrieves a specific user by ID
// GET /api/v1/users/:id
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		user, err := h.userRepo.GetUserByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		// Cross-tenant lookups are indistinguishable from missing users.
		if user == nil || user.OrganizationID != actor.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// CreateUserRequest represents the request to create a new user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// @Summary      Create user
// @Description  Create a user in the caller's organization. Managers may only create members; admin creation requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateUserRequest  true  "User creation request"
// @Success      201  {object}  map[string]interface{}  "user"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/v1/users [post]
// CreateUserHandler creates a new user inside the actor's organization
// POST /api/v1/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}

		// Granting a role at creation follows the same rules as changing one:
		// managers can mint members only, admins can mint anything.
		d := h.resolver.ResolveRoleChange(actor, &models.User{
			OrganizationID: actor.OrganizationID,
			Role:           models.RoleMember,
		}, req.Role)
		if !d.Allowed {
			respond.Denied(c, "role_change", d)
			return
		}

		ctx := c.Request.Context()
		if existing, err := h.userRepo.GetUserByEmail(ctx, req.Email); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		} else if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user := &models.User{
			OrganizationID: actor.OrganizationID,
			Email:          req.Email,
			Username:       req.Username,
			PasswordHash:   hash,
			FullName:       req.FullName,
			Role:           req.Role,
			IsActive:       true,
		}
		if err := h.userRepo.CreateUser(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// UpdateUserRequest represents the request to update a user's profile and role
type UpdateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// @Summary      Update user
// @Description  Update a user's profile fields and role. Role changes go through the role-change guard.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        body  body  UpdateUserRequest  true  "User update request"
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/v1/users/{id} [put]
// UpdateUserHandler updates a user's profile fields and role
// PUT /api/v1/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if !models.ValidRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}

		ctx := c.Request.Context()
		target, err := h.userRepo.GetUserByID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if target == nil || target.OrganizationID != actor.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		// Members may edit only their own profile; profile edits on others need
		// admin or manager authority.
		if actor.Role == models.RoleMember && target.ID != actor.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		// Any edit of another user's account clears the role-change guard, not
		// just role deltas: a manager rewriting an admin's email is still a
		// manager acting on an admin account.
		if req.Role != target.Role || target.ID != actor.UserID {
			d := h.resolver.ResolveRoleChange(actor, target, req.Role)
			if !d.Allowed {
				respond.Denied(c, "role_change", d)
				return
			}
		}

		target.Email = req.Email
		target.Username = req.Username
		target.FullName = req.FullName
		target.Role = req.Role

		if err := h.userRepo.UpdateUser(ctx, target); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": target})
	}
}

// @Summary      Deactivate user
// @Description  Deactivate a user account. Admin only; self-deactivation is rejected.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      400  {object}  map[string]interface{}  "Cannot deactivate yourself"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/v1/users/{id}/deactivate [post]
// DeactivateUserHandler deactivates a user account (admin only)
// POST /api/v1/users/:id/deactivate
func (h *UserHandlers) DeactivateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role != models.RoleAdmin {
			respond.Denied(c, "role_change", authz.Deny(authz.ReasonInsufficientRole))
			return
		}

		targetID := c.Param("id")
		if targetID == actor.UserID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot deactivate your own account"})
			return
		}

		ctx := c.Request.Context()
		target, err := h.userRepo.GetUserByID(ctx, targetID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if target == nil || target.OrganizationID != actor.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if err := h.userRepo.DeactivateUser(ctx, targetID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User deactivated"})
	}
}

// @Summary      Activate user
// @Description  Re-activate a deactivated user account. Admin only.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Admin only"
// @Router       /api/v1/users/{id}/activate [post]
// ActivateUserHandler re-activates a user account (admin only)
// POST /api/v1/users/:id/activate
func (h *UserHandlers) ActivateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		if actor.Role != models.RoleAdmin {
			respond.Denied(c, "role_change", authz.Deny(authz.ReasonInsufficientRole))
			return
		}

		ctx := c.Request.Context()
		target, err := h.userRepo.GetUserByID(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
			return
		}
		if target == nil || target.OrganizationID != actor.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		target.IsActive = true
		if err := h.userRepo.UpdateUser(ctx, target); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User activated"})
	}
}
