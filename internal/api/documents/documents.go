// Package documents implements the document HTTP handlers: multipart upload
// into the storage backend, metadata listing filtered through the resolver's
// document rules, streamed download with a download counter, and soft delete.
package documents

import (
	"database/sql"
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/api/respond"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
	"github.com/taskhub/taskhub/internal/storage"
	"github.com/taskhub/taskhub/internal/telemetry"
	"github.com/taskhub/taskhub/internal/validation"
	"github.com/taskhub/taskhub/pkg/checksum"
)

// Handlers handles document endpoints
type Handlers struct {
	cfg         *config.Config
	docRepo     *repositories.DocumentRepository
	projectRepo *repositories.ProjectRepository
	store       storage.Storage
	resolver    *authz.PermissionResolver
}

// NewHandlers creates a new document Handlers instance
func NewHandlers(cfg *config.Config, db *sql.DB, store storage.Storage, resolver *authz.PermissionResolver) *Handlers {
	return &Handlers{
		cfg:         cfg,
		docRepo:     repositories.NewDocumentRepository(db),
		projectRepo: repositories.NewProjectRepository(db),
		store:       store,
		resolver:    resolver,
	}
}

// loadDocument fetches an active document and resolves the action against it.
// On any failure it writes the response and returns nil.
func (h *Handlers) loadDocument(c *gin.Context, actor authz.ActorContext, documentID string, action authz.Action) *models.Document {
	doc, err := h.docRepo.GetDocumentByID(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve document"})
		return nil
	}
	// Soft-deleted documents are gone as far as the API is concerned.
	if doc != nil && !doc.IsActive {
		doc = nil
	}

	d, err := h.resolver.ResolveDocument(c.Request.Context(), actor, doc, action)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return nil
	}
	if !d.Allowed {
		respond.Denied(c, "document", d)
		return nil
	}
	return doc
}

// @Summary      Upload document
// @Description  Upload a document file (multipart field "file"), optionally attached to a project. Unattached documents are visible org-wide.
// @Tags         Documents
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file        formData  file    true   "Document file"
// @Param        project_id  formData  string  false  "Project to attach the document to"
// @Success      201  {object}  map[string]interface{}  "document"
// @Failure      400  {object}  map[string]interface{}  "Invalid file"
// @Failure      403  {object}  map[string]interface{}  "Project not in scope"
// @Router       /api/v1/documents [post]
// UploadHandler stores a document file and its metadata record
// POST /api/v1/documents
func (h *Handlers) UploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
			return
		}

		if err := validation.ValidateDocumentFileName(header.Filename); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := validation.ValidateDocumentSize(header.Size, h.cfg.Storage.Local.MaxUploadSizeMB); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var projectID *string
		if pid := c.PostForm("project_id"); pid != "" {
			project, err := h.projectRepo.GetProjectByID(ctx, pid)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
				return
			}
			if project == nil || project.OrganizationID != actor.OrganizationID {
				c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
				return
			}
			visible, err := h.resolver.Scope().InScope(ctx, actor, project)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
				return
			}
			if !visible {
				respond.Denied(c, "document", authz.Deny(authz.ReasonNotAssigned))
				return
			}
			projectID = &pid
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
			return
		}
		defer file.Close()

		// Hash the upload before storing so the stored checksum can be verified
		// against what the backend wrote.
		expectedSum, err := checksum.CalculateSHA256(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash upload"})
			return
		}
		if _, err := file.Seek(0, 0); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
			return
		}

		storagePath := path.Join(actor.OrganizationID, uuid.New().String(), header.Filename)
		result, err := h.store.Upload(ctx, storagePath, file, header.Size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
			return
		}
		if result.Checksum != expectedSum {
			_ = h.store.Delete(ctx, storagePath)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Stored file failed checksum verification"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		doc := &models.Document{
			OrganizationID: actor.OrganizationID,
			ProjectID:      projectID,
			UploaderID:     actor.UserID,
			FileName:       header.Filename,
			StoragePath:    result.Path,
			ContentType:    contentType,
			SizeBytes:      result.Size,
			Checksum:       result.Checksum,
			IsActive:       true,
		}
		if err := h.docRepo.CreateDocument(ctx, doc); err != nil {
			_ = h.store.Delete(ctx, storagePath)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document record"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"document": doc})
	}
}

// @Summary      List documents
// @Description  List documents visible to the caller, optionally narrowed to one project.
// @Tags         Documents
// @Security     Bearer
// @Produce      json
// @Param        project_id  query  string  false  "Project ID"
// @Success      200  {object}  map[string]interface{}  "documents"
// @Router       /api/v1/documents [get]
// ListDocumentsHandler lists documents inside the caller's visibility
// GET /api/v1/documents?project_id=...
func (h *Handlers) ListDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		var (
			docs []*models.Document
			err  error
		)
		if pid := c.Query("project_id"); pid != "" {
			docs, err = h.docRepo.ListDocumentsByProject(ctx, pid)
		} else {
			docs, err = h.docRepo.ListDocumentsByOrganization(ctx, actor.OrganizationID)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
			return
		}

		visible := make([]*models.Document, 0, len(docs))
		for _, doc := range docs {
			d, err := h.resolver.ResolveDocument(ctx, actor, doc, authz.ActionView)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
				return
			}
			if d.Allowed {
				visible = append(visible, doc)
			}
		}

		c.JSON(http.StatusOK, gin.H{"documents": visible})
	}
}

// @Summary      Get document
// @Description  Get a document's metadata.
// @Tags         Documents
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  map[string]interface{}  "document"
// @Failure      404  {object}  map[string]interface{}  "Document not found"
// @Router       /api/v1/documents/{id} [get]
// GetDocumentHandler retrieves a document's metadata
// GET /api/v1/documents/:id
func (h *Handlers) GetDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		doc := h.loadDocument(c, actor, c.Param("id"), authz.ActionView)
		if doc == nil {
			return
		}

		c.JSON(http.StatusOK, gin.H{"document": doc})
	}
}

// @Summary      Download document
// @Description  Stream the document's file content and increment its download counter.
// @Tags         Documents
// @Security     Bearer
// @Produce      application/octet-stream
// @Param        id  path  string  true  "Document ID"
// @Success      200  {file}    file
// @Failure      404  {object}  map[string]interface{}  "Document not found"
// @Router       /api/v1/documents/{id}/download [get]
// DownloadHandler streams a document's stored bytes
// GET /api/v1/documents/:id/download
func (h *Handlers) DownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)
		ctx := c.Request.Context()

		doc := h.loadDocument(c, actor, c.Param("id"), authz.ActionView)
		if doc == nil {
			return
		}

		reader, err := h.store.Download(ctx, doc.StoragePath)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document content not found"})
			return
		}
		defer reader.Close()

		// Counter failures must not break the download itself.
		if err := h.docRepo.IncrementDownloadCount(ctx, doc.ID); err == nil {
			telemetry.DocumentDownloadsTotal.WithLabelValues(doc.OrganizationID).Inc()
		}

		c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.ContentType, reader, map[string]string{
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.FileName),
		})
	}
}

// @Summary      Delete document
// @Description  Soft-delete a document. The uploader and admins may delete; the stored file is retained.
// @Tags         Documents
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Document ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      403  {object}  map[string]interface{}  "Denied"
// @Failure      404  {object}  map[string]interface{}  "Document not found"
// @Router       /api/v1/documents/{id} [delete]
// DeleteDocumentHandler soft-deletes a document
// DELETE /api/v1/documents/:id
func (h *Handlers) DeleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, _ := middleware.GetActor(c)

		doc := h.loadDocument(c, actor, c.Param("id"), authz.ActionDelete)
		if doc == nil {
			return
		}

		if err := h.docRepo.SoftDeleteDocument(c.Request.Context(), doc.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
	}
}
