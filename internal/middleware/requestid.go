package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier between client, proxy,
	// and server.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the request ID so handlers
	// can log it without re-reading headers.
	RequestIDKey = "request_id"

	// maxRequestIDLength bounds IDs accepted from upstream. Anything longer
	// is replaced rather than propagated into logs and audit rows.
	maxRequestIDLength = 64
)

// RequestIDMiddleware tags every request with an identifier. An inbound
// X-Request-ID from a gateway or load balancer is reused when it is sane;
// otherwise a fresh UUID is minted. The ID is stored in the context, echoed
// in the response header, and picked up by the logger and audit middleware.
//
// Register it first so every later middleware sees the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
