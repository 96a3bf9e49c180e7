// Package api wires together all HTTP routes for the TaskHub backend.
//
// Route grouping philosophy:
//   - /api/v1/auth/register and /api/v1/auth/login are the only public domain
//     routes. They sit behind the stricter auth rate limiter because they are
//     the credential-guessing surface.
//   - Everything else requires a valid JWT. The authenticated group runs the
//     full chain (rate limit, auth, audit) so every mutating request leaves an
//     audit trail attributed to a user.
//   - Permission checks live in the handlers, not in route middleware: most
//     decisions depend on the specific resource (its project, its visibility,
//     its submitter), which is only known after a database load.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/taskhub/taskhub/internal/api/accounts"
	"github.com/taskhub/taskhub/internal/api/documents"
	"github.com/taskhub/taskhub/internal/api/messages"
	"github.com/taskhub/taskhub/internal/api/notifications"
	"github.com/taskhub/taskhub/internal/api/projects"
	"github.com/taskhub/taskhub/internal/api/reports"
	"github.com/taskhub/taskhub/internal/api/tasks"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/jobs"
	"github.com/taskhub/taskhub/internal/middleware"
	"github.com/taskhub/taskhub/internal/safego"
	"github.com/taskhub/taskhub/internal/storage"
	"github.com/taskhub/taskhub/internal/storage/local"
	"github.com/taskhub/taskhub/internal/team"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	dueDateNotifier *jobs.DueDateNotifier
	rateLimiters    []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.dueDateNotifier != nil {
		bg.dueDateNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize document storage
	store, err := local.New(&cfg.Storage.Local)
	if err != nil {
		log.Fatalf("Failed to initialize document storage: %v", err)
	}
	log.Printf("Initialized document storage at %s", cfg.Storage.Local.BasePath)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	membershipRepo := repositories.NewMembershipRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Wrap *sql.DB with sqlx for the notification repository
	sqlxDB := sqlx.NewDb(db, "postgres")
	notificationRepo := repositories.NewNotificationRepository(sqlxDB)

	// Permission resolver and team coordinator are shared by all handler packages
	resolver := authz.NewPermissionResolver(projectRepo, membershipRepo)
	coordinator := team.NewCoordinator(db, membershipRepo, projectRepo, taskRepo, userRepo, messageRepo, notificationRepo)

	// Initialize and start the due-date reminder job
	notifier := jobs.NewDueDateNotifier(orgRepo, taskRepo, notificationRepo, &cfg.Notifications)
	safego.Go(func() {
		notifier.Start(context.Background())
	})

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage probe)
	router.GET("/ready", readinessHandler(db, store))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	authHandlers := accounts.NewAuthHandlers(cfg, db)
	userHandlers := accounts.NewUserHandlers(db, resolver)
	orgHandlers := accounts.NewOrganizationHandlers(db)
	projectHandlers := projects.NewHandlers(db, resolver, coordinator)
	taskHandlers := tasks.NewHandlers(db, resolver, coordinator)
	documentHandlers := documents.NewHandlers(cfg, db, store, resolver)
	reportHandlers := reports.NewHandlers(db, resolver)
	notificationHandlers := notifications.NewHandlers(cfg, db, notifier)
	messageHandlers := messages.NewHandlers(db)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/register", authHandlers.RegisterHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Authenticated endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authenticatedGroup.Use(middleware.AuthMiddleware(userRepo))
		authenticatedGroup.Use(middleware.AuditMiddleware(auditRepo, &cfg.Audit))
		{
			// Session endpoints
			authenticatedGroup.GET("/auth/me", authHandlers.MeHandler())
			authenticatedGroup.PUT("/auth/password", authHandlers.ChangePasswordHandler())

			// Tenant profile
			authenticatedGroup.GET("/organization", orgHandlers.GetOrganizationHandler())
			authenticatedGroup.PUT("/organization", orgHandlers.UpdateOrganizationHandler())

			// User management
			usersGroup := authenticatedGroup.Group("/users")
			{
				usersGroup.GET("", userHandlers.ListUsersHandler())
				usersGroup.POST("", userHandlers.CreateUserHandler())
				usersGroup.GET("/:id", userHandlers.GetUserHandler())
				usersGroup.PUT("/:id", userHandlers.UpdateUserHandler())
				usersGroup.DELETE("/:id", userHandlers.DeactivateUserHandler())
				usersGroup.POST("/:id/activate", userHandlers.ActivateUserHandler())
			}

			// Projects, with team / visibility / milestone / task sub-resources
			projectsGroup := authenticatedGroup.Group("/projects")
			{
				projectsGroup.GET("", projectHandlers.ListProjectsHandler())
				projectsGroup.POST("", projectHandlers.CreateProjectHandler())
				projectsGroup.GET("/:id", projectHandlers.GetProjectHandler())
				projectsGroup.PUT("/:id", projectHandlers.UpdateProjectHandler())
				projectsGroup.DELETE("/:id", projectHandlers.DeleteProjectHandler())

				projectsGroup.PUT("/:id/visibility", projectHandlers.UpdateVisibilityHandler())
				projectsGroup.GET("/:id/visibility", projectHandlers.ListVisibilityGrantsHandler())

				projectsGroup.GET("/:id/team", projectHandlers.ListTeamHandler())
				projectsGroup.POST("/:id/team", projectHandlers.AssignTeamHandler())
				projectsGroup.DELETE("/:id/team/:user_id", projectHandlers.RemoveTeamMemberHandler())

				projectsGroup.GET("/:id/milestones", projectHandlers.ListMilestonesHandler())
				projectsGroup.POST("/:id/milestones", projectHandlers.CreateMilestoneHandler())

				projectsGroup.GET("/:id/tasks", taskHandlers.ListProjectTasksHandler())
				projectsGroup.POST("/:id/tasks", taskHandlers.CreateTaskHandler())
			}

			// Milestones addressed by their own ID
			milestonesGroup := authenticatedGroup.Group("/milestones")
			{
				milestonesGroup.PUT("/:id", projectHandlers.UpdateMilestoneHandler())
				milestonesGroup.DELETE("/:id", projectHandlers.DeleteMilestoneHandler())
				milestonesGroup.POST("/:id/assign", projectHandlers.AssignMilestoneHandler())
			}

			// Tasks addressed by their own ID
			tasksGroup := authenticatedGroup.Group("/tasks")
			{
				tasksGroup.GET("/mine", taskHandlers.MyTasksHandler())
				tasksGroup.GET("/:id", taskHandlers.GetTaskHandler())
				tasksGroup.PUT("/:id", taskHandlers.UpdateTaskHandler())
				tasksGroup.PATCH("/:id/status", taskHandlers.UpdateStatusHandler())
				tasksGroup.DELETE("/:id", taskHandlers.DeleteTaskHandler())

				tasksGroup.GET("/:id/comments", taskHandlers.ListCommentsHandler())
				tasksGroup.POST("/:id/comments", taskHandlers.AddCommentHandler())
			}

			// Documents (upload gets the stricter upload rate limit)
			documentsGroup := authenticatedGroup.Group("/documents")
			{
				documentsGroup.POST("",
					middleware.RateLimitMiddleware(uploadRateLimiter),
					documentHandlers.UploadHandler())
				documentsGroup.GET("", documentHandlers.ListDocumentsHandler())
				documentsGroup.GET("/:id", documentHandlers.GetDocumentHandler())
				documentsGroup.GET("/:id/download", documentHandlers.DownloadHandler())
				documentsGroup.DELETE("/:id", documentHandlers.DeleteDocumentHandler())
			}

			// Daily reports
			reportsGroup := authenticatedGroup.Group("/reports")
			{
				reportsGroup.GET("", reportHandlers.ListReportsHandler())
				reportsGroup.POST("", reportHandlers.CreateReportHandler())
				reportsGroup.GET("/mine", reportHandlers.ListMyReportsHandler())
				reportsGroup.GET("/:id", reportHandlers.GetReportHandler())
				reportsGroup.PUT("/:id", reportHandlers.UpdateReportHandler())
				reportsGroup.DELETE("/:id", reportHandlers.DeleteReportHandler())
			}

			// Notifications
			notificationsGroup := authenticatedGroup.Group("/notifications")
			{
				notificationsGroup.GET("", notificationHandlers.ListNotificationsHandler())
				notificationsGroup.GET("/unread-count", notificationHandlers.UnreadCountHandler())
				notificationsGroup.POST("/:id/read", notificationHandlers.MarkReadHandler())
				notificationsGroup.POST("/read-all", notificationHandlers.MarkAllReadHandler())
			}

			// Direct messages
			messagesGroup := authenticatedGroup.Group("/messages")
			{
				messagesGroup.GET("", messageHandlers.ListMessagesHandler())
				messagesGroup.POST("", messageHandlers.SendMessageHandler())
				messagesGroup.GET("/:id", messageHandlers.GetMessageHandler())
				messagesGroup.POST("/:id/read", messageHandlers.MarkReadHandler())
			}

			// Due-date dashboard
			dashboardGroup := authenticatedGroup.Group("/dashboard")
			{
				dashboardGroup.GET("/due-soon", taskHandlers.DueSoonHandler())
				dashboardGroup.GET("/overdue", taskHandlers.OverdueHandler())
			}

			// Admin operations (role checked in the handlers)
			adminGroup := authenticatedGroup.Group("/admin")
			{
				adminGroup.POST("/notifications/due-soon", notificationHandlers.TriggerDueSoonHandler())
				adminGroup.POST("/notifications/cleanup", notificationHandlers.CleanupHandler())
			}
		}
	}

	bg := &BackgroundServices{
		dueDateNotifier: notifier,
		rateLimiters:    []*middleware.RateLimiter{authRateLimiter, generalRateLimiter, uploadRateLimiter},
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler is the liveness probe. Database reachability is the only
// check; storage belongs to readiness.
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and document storage.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: dependency not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks document storage so
// that a Kubernetes readiness gate fails when uploads/downloads would error.
func readinessHandler(db *sql.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Probe storage with a known-absent sentinel path. Exists() exercises
		// the filesystem without creating any state.
		if _, err := store.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "document storage not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware emits one slog record per request after the handler chain
// finishes. The configured format (json / text) is already baked into the
// global slog handler by telemetry.SetupLogger; the cfg parameter is kept so
// format-specific behavior has a place to hang if the two outputs ever diverge.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		// Capture before c.Next(): handlers may rewrite the URL.
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware applies the configured origin allowlist and answers preflight
// requests with 204. Disallowed origins still reach the handler; they just get
// no CORS headers, which is what makes the browser block the response.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if corsOriginAllowed(cfg.Security.CORS.AllowedOrigins, origin) {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func corsOriginAllowed(allowlist []string, origin string) bool {
	for _, entry := range allowlist {
		if entry == "*" || entry == origin {
			return true
		}
	}
	return false
}
