// Package accounts implements the authentication and user management HTTP
// handlers: registration, login, profile access, and the user CRUD surface
// with its role-change guard.
//
// auth.go covers the unauthenticated entry points (register, login) and the
// self-service endpoints (me, password change).
package accounts

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
)

// AuthHandlers handles registration, login, and self-service account endpoints
type AuthHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrganizationRepository
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sql.DB) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		userRepo: repositories.NewUserRepository(db),
		orgRepo:  repositories.NewOrganizationRepository(db),
	}
}

func (h *AuthHandlers) tokenLifetime() time.Duration {
	hours := h.cfg.Auth.JWT.ExpiryHours
	if hours < 1 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// RegisterRequest creates a new organization with its first admin user
type RegisterRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Username         string `json:"username" binding:"required"`
	Password         string `json:"password" binding:"required"`
	FullName         string `json:"full_name" binding:"required"`
}

// @Summary      Register organization
// @Description  Create a new organization; the registering user becomes its admin.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  RegisterRequest  true  "Registration request"
// @Success      201  {object}  map[string]interface{}  "token, user, organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      409  {object}  map[string]interface{}  "Organization or email already exists"
// @Router       /api/v1/auth/register [post]
// RegisterHandler creates an organization and its first (admin) user
// POST /api/v1/auth/register
func (h *AuthHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		ctx := c.Request.Context()

		existing, err := h.orgRepo.GetByName(ctx, req.OrganizationName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check organization"})
			return
		}
		if existing != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Organization name already taken"})
			return
		}

		if u, err := h.userRepo.GetUserByEmail(ctx, req.Email); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
			return
		} else if u != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		org := &models.Organization{
			ID:          uuid.New().String(),
			Name:        req.OrganizationName,
			DisplayName: req.OrganizationName,
		}
		if err := h.orgRepo.Create(ctx, org); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create organization"})
			return
		}

		// The first user of an organization is always its admin.
		user := &models.User{
			OrganizationID: org.ID,
			Email:          req.Email,
			Username:       req.Username,
			PasswordHash:   hash,
			FullName:       req.FullName,
			Role:           models.RoleAdmin,
			IsActive:       true,
		}
		if err := h.userRepo.CreateUser(ctx, user); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.tokenLifetime())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token":        token,
			"user":         user,
			"organization": org,
		})
	}
}

// LoginRequest authenticates an existing user
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Login
// @Description  Verify credentials and issue a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Login request"
// @Success      200  {object}  map[string]interface{}  "token, user"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Failure      403  {object}  map[string]interface{}  "Account deactivated"
// @Router       /api/v1/auth/login [post]
// LoginHandler verifies credentials and returns a JWT
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		// Same response for unknown email and wrong password.
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated"})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.tokenLifetime())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// @Summary      Current user
// @Description  Return the authenticated user's profile.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the authenticated user
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// @Summary      Change password
// @Description  Verify the current password and replace it with a new one.
// @Tags         Auth
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ChangePasswordRequest  true  "Password change request"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      401  {object}  map[string]interface{}  "Current password incorrect"
// @Router       /api/v1/auth/password [post]
// ChangePasswordHandler replaces the caller's password
// POST /api/v1/auth/password
func (h *AuthHandlers) ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
	}
}
