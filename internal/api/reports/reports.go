// Package reports implements the daily report HTTP handlers. A report belongs
// to its submitter; everyone else's access runs through the resolver's
// visibility-flag rules, so listing filters per report rather than per query.
package reports

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/api/respond"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
)

// reportDateFormat is the wire format for report dates (no time component).
const reportDateFormat = "2006-01-02"

// Handlers handles daily report endpoints
type Handlers struct {
	reportRepo  *repositories.ReportRepository
	projectRepo *repositories.ProjectRepository
	resolver    *authz.PermissionResolver
}

// NewHandlers creates a new report Handlers instance
func NewHandlers(db *sql.DB, resolver *authz.PermissionResolver) *Handlers {
	return &Handlers{
		reportRepo:  repositories.NewReportRepository(db),
		projectRepo: repositories.NewProjectRepository(db),
		resolver:    resolver,
	}
}

// loadReport fetches a report and resolves the action against it. On any
// failure it writes the response and returns nil.
func (h *Handlers) loadReport(c *gin.Context, actor authz.ActorContext, reportID string, action authz.Action) *models.DailyReport {
	report, err := h.reportRepo.GetReportByID(c.Request.Context(), reportID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve report"})
		return nil
	}

	d, err := h.resolver.ResolveReport(c.Request.Context(), actor, report, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return nil
	}
	if !d.Allowed {
		respond.Denied(c, "report", d)
		return nil
	}
	return report
}

// ReportRequest carries the mutable daily report fields
type ReportRequest struct {
	ProjectID        *string `json:"project_id"`
	ReportDate       string  `json:"report_date" binding:"required"`
	Content          string  `json:"content" binding:"required"`
	VisibleToManager bool    `json:"visible_to_manager"`
	VisibleToAdmin   bool    `json:"visible_to_admin"`
}

func (h *Handlers) parseReportRequest(c *gin.Context, actor authz.ActorContext, req *ReportRequest) (time.Time, bool) {
	reportDate, err := time.Parse(reportDateFormat, req.ReportDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_date must be formatted YYYY-MM-DD"})
		return time.Time{}, false
	}

	if req.ProjectID != nil {
		project, err := h.projectRepo.GetProjectByID(c.Request.Context(), *req.ProjectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
			return time.Time{}, false
		}
		if project == nil || project.OrganizationID != actor.OrganizationID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return time.Time{}, false
		}
	}
	return reportDate, true
}

// @Summary      Submit report
// @Description  Submit a daily report with visibility flags controlling who beyond the submitter may read it.
// @Tags         Reports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ReportRequest  true  "Report submission"
// @Success      201  {object}  map[string]interface{}  "report"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Router       /api/v1/reports [post]
// CreateReportHandler submits a daily report
// POST /api/v1/reports
func (h *Handlers) CreateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		reportDate, ok := h.parseReportRequest(c, actor, &req)
		if !ok {
			return
		}

		report := &models.DailyReport{
			OrganizationID:   actor.OrganizationID,
			UserID:           actor.UserID,
			ProjectID:        req.ProjectID,
			ReportDate:       reportDate,
			Content:          req.Content,
			VisibleToManager: req.VisibleToManager,
			VisibleToAdmin:   req.VisibleToAdmin,
		}
		if err := h.reportRepo.CreateReport(c.Request.Context(), report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"report": report})
	}
}

// @Summary      My reports
// @Description  List the caller's own reports.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "reports"
// @Router       /api/v1/reports/mine [get]
// ListMyReportsHandler lists the caller's own reports
// GET /api/v1/reports/mine
func (h *Handlers) ListMyReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		reports, err := h.reportRepo.ListReportsByUser(c.Request.Context(), actor.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"reports": reports})
	}
}

// @Summary      List reports
// @Description  List organization reports the caller is allowed to read, per the visibility rules.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "reports"
// @Router       /api/v1/reports [get]
// ListReportsHandler lists the reports visible to the caller
// GET /api/v1/reports
func (h *Handlers) ListReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		all, err := h.reportRepo.ListReportsByOrganization(ctx, actor.OrganizationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
			return
		}

		visible := make([]*models.DailyReport, 0, len(all))
		for _, report := range all {
			d, err := h.resolver.ResolveReport(ctx, actor, report, authz.ActionView)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
				return
			}
			if d.Allowed {
				visible = append(visible, report)
			}
		}

		c.JSON(http.StatusOK, gin.H{"reports": visible})
	}
}

// @Summary      Get report
// @Description  Get a single report, subject to the visibility rules.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Report ID"
// @Success      200  {object}  map[string]interface{}  "report"
// @Failure      404  {object}  map[string]interface{}  "Report not found"
// @Router       /api/v1/reports/{id} [get]
// GetReportHandler retrieves a single report
// GET /api/v1/reports/:id
func (h *Handlers) GetReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		report := h.loadReport(c, actor, c.Param("id"), authz.ActionView)
		if report == nil {
			return
		}

		c.JSON(http.StatusOK, gin.H{"report": report})
	}
}

// @Summary      Update report
// @Description  Update a report. Only the submitter may edit.
// @Tags         Reports
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string         true  "Report ID"
// @Param        body  body  ReportRequest  true  "Report update"
// @Success      200  {object}  map[string]interface{}  "report"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/reports/{id} [put]
// UpdateReportHandler updates a report
// PUT /api/v1/reports/:id
func (h *Handlers) UpdateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		var req ReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		report := h.loadReport(c, actor, c.Param("id"), authz.ActionEdit)
		if report == nil {
			return
		}

		reportDate, ok := h.parseReportRequest(c, actor, &req)
		if !ok {
			return
		}

		report.ProjectID = req.ProjectID
		report.ReportDate = reportDate
		report.Content = req.Content
		report.VisibleToManager = req.VisibleToManager
		report.VisibleToAdmin = req.VisibleToAdmin

		if err := h.reportRepo.UpdateReport(c.Request.Context(), report); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"report": report})
	}
}

// @Summary      Delete report
// @Description  Delete a report. Only the submitter may delete.
// @Tags         Reports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Report ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Router       /api/v1/reports/{id} [delete]
// DeleteReportHandler deletes a report
// DELETE /api/v1/reports/:id
func (h *Handlers) DeleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		report := h.loadReport(c, actor, c.Param("id"), authz.ActionDelete)
		if report == nil {
			return
		}

		if err := h.reportRepo.DeleteReport(c.Request.Context(), report.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Report deleted"})
	}
}
