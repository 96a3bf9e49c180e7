// Package respond holds small response helpers shared by the API handler
// packages.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/telemetry"
)

// Denied writes the HTTP response for a permission denial and records it in
// the denial counter. Cross-tenant and not-found denials render as 404 so that
// resource existence is never revealed across organization boundaries.
func Denied(c *gin.Context, resource string, d authz.Decision) {
	reason := d.Reason
	if reason == "" {
		reason = authz.ReasonInsufficientRole
	}
	telemetry.PermissionDenialsTotal.WithLabelValues(resource, string(reason)).Inc()

	switch reason {
	case authz.ReasonCrossTenant, authz.ReasonNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	}
}
