package middleware

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
)

// Token generation in the auth tests needs a signing secret before any
// handler runs.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("PMS_AUTH_JWT_SECRET", "test-jwt-secret-that-is-32-chars!!")
	os.Exit(m.Run())
}
