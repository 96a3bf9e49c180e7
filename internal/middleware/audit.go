// audit.go provides Gin middleware that records authenticated write operations
// to the audit log table.
package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
)

// AuditMiddleware logs authenticated actions to the database. By default only
// successful write operations are recorded; auditCfg can widen that to read
// operations and failed requests.
func AuditMiddleware(auditRepo *repositories.AuditRepository, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request first
		c.Next()

		// Skip OPTIONS always
		if c.Request.Method == "OPTIONS" {
			return
		}

		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		if isReadOp && !logReadOps {
			return
		}
		if isFailed && !logFailedReqs {
			return
		}

		action := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		ipAddress := c.ClientIP()

		auditLog := &models.AuditLog{
			Action:    action,
			IPAddress: &ipAddress,
			CreatedAt: time.Now(),
		}

		if user, ok := GetUser(c); ok {
			auditLog.UserID = &user.ID
			auditLog.OrganizationID = &user.OrganizationID
		}

		if rt := resourceTypeFromPath(c.Request.URL.Path); rt != "" {
			auditLog.ResourceType = &rt
		}

		auditLog.Metadata = map[string]interface{}{
			"status_code": c.Writer.Status(),
		}
		if rid, ok := c.Get(RequestIDKey); ok {
			auditLog.Metadata["request_id"] = rid
		}

		// Async log creation (non-blocking). Audit writes are best-effort and must
		// not add a synchronous DB write to every mutating request.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					fmt.Printf("Failed to create audit log in database: %v\n", err)
				}
			}
		}()
	}
}

// resourceTypeFromPath derives the audited resource type from the URL path.
func resourceTypeFromPath(path string) string {
	switch {
	case strings.Contains(path, "/projects"):
		return "project"
	case strings.Contains(path, "/tasks"):
		return "task"
	case strings.Contains(path, "/milestones"):
		return "milestone"
	case strings.Contains(path, "/documents"):
		return "document"
	case strings.Contains(path, "/reports"):
		return "daily_report"
	case strings.Contains(path, "/users"):
		return "user"
	case strings.Contains(path, "/notifications"):
		return "notification"
	case strings.Contains(path, "/messages"):
		return "message"
	case strings.Contains(path, "/organizations"):
		return "organization"
	}
	return ""
}
