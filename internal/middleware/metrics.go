// Package middleware holds the Gin middleware chain: request IDs, metrics,
// rate limiting, security headers, JWT authentication, and audit capture.
// Everything here is registered in internal/api/router.go ahead of the route
// handlers.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/taskhub/internal/telemetry"
)

// MetricsMiddleware records a request counter and latency histogram for every
// request. The path label is the matched route template
// (e.g. /api/v1/tasks/:id), not the raw URL, so task or project IDs never
// explode label cardinality; requests matching no route are bucketed under
// "<no-route>". Register it after gin.Recovery so panics still record a 500.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
