// Package middleware provides Gin HTTP middleware for authentication,
// rate limiting, security headers, request IDs, metrics, and audit logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	RequestID → Security → Metrics → RateLimit → Auth → Audit → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates the user identity and actor context; audit logging runs after
// auth so recorded actions carry the authenticated user.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
)

// Context keys set by AuthMiddleware and read by handlers.
const (
	ContextUser  = "user"
	ContextActor = "actor"
)

// AuthMiddleware validates the bearer JWT, loads the user, and stores both the
// user and an authz.ActorContext in the Gin context for downstream handlers.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "User account is deactivated",
			})
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextActor, authz.ActorContext{
			OrganizationID: user.OrganizationID,
			UserID:         user.ID,
			Role:           user.Role,
		})

		c.Next()
	}
}

// GetActor retrieves the authenticated actor context set by AuthMiddleware.
// The second return value is false when the request is unauthenticated.
func GetActor(c *gin.Context) (authz.ActorContext, bool) {
	v, ok := c.Get(ContextActor)
	if !ok {
		return authz.ActorContext{}, false
	}
	actor, ok := v.(authz.ActorContext)
	return actor, ok
}

// GetUser retrieves the authenticated user set by AuthMiddleware.
func GetUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
