package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/middleware"
	"github.com/taskhub/taskhub/internal/storage"
	"github.com/taskhub/taskhub/pkg/checksum"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- constants & shared test data -------------------------------------------

const (
	sampleDocID = "dddddddd-0000-0000-0000-000000000001"
	sampleOrgID = "org-1"
)

var documentCols = []string{
	"id", "organization_id", "project_id", "uploader_id", "file_name",
	"storage_path", "content_type", "size_bytes", "checksum",
	"download_count", "is_active", "created_at", "updated_at",
}

func sampleDocumentRow(uploaderID string, active bool) *sqlmock.Rows {
	return sqlmock.NewRows(documentCols).AddRow(
		sampleDocID, sampleOrgID, nil, uploaderID, "notes.txt",
		"org-1/doc-1/notes.txt", "text/plain", int64(5), "abc123",
		0, active, time.Now(), time.Now(),
	)
}

// ---- mock storage -----------------------------------------------------------

type mockStorage struct {
	uploaded map[string][]byte
	deleted  []string
	content  []byte
}

func newMockStorage(content []byte) *mockStorage {
	return &mockStorage{uploaded: map[string][]byte{}, content: content}
}

func (m *mockStorage) Upload(_ context.Context, p string, r io.Reader, _ int64) (*storage.UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.uploaded[p] = data
	sum, _ := checksum.CalculateSHA256(bytes.NewReader(data))
	return &storage.UploadResult{Path: p, Size: int64(len(data)), Checksum: sum}, nil
}

func (m *mockStorage) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.content)), nil
}

func (m *mockStorage) Delete(_ context.Context, p string) error {
	m.deleted = append(m.deleted, p)
	return nil
}

func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockStorage) GetMetadata(_ context.Context, _ string) (*storage.FileMetadata, error) {
	return nil, nil
}

// ---- router setup -----------------------------------------------------------

func newDocumentRouter(t *testing.T, actor authz.ActorContext, store *mockStorage) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Storage.Local.MaxUploadSizeMB = 10

	resolver := authz.NewPermissionResolver(
		repositories.NewProjectRepository(db),
		repositories.NewMembershipRepository(db),
	)
	h := NewHandlers(cfg, db, store, resolver)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	r.POST("/documents", h.UploadHandler())
	r.GET("/documents", h.ListDocumentsHandler())
	r.GET("/documents/:id", h.GetDocumentHandler())
	r.GET("/documents/:id/download", h.DownloadHandler())
	r.DELETE("/documents/:id", h.DeleteDocumentHandler())

	return mock, r
}

func memberActor(userID string) authz.ActorContext {
	return authz.ActorContext{OrganizationID: sampleOrgID, UserID: userID, Role: "member"}
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// ---- UploadHandler ----------------------------------------------------------

func TestUploadHandler_Success(t *testing.T) {
	store := newMockStorage(nil)
	mock, r := newDocumentRouter(t, memberActor("u1"), store)

	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body, contentType := multipartBody(t, "notes.txt", []byte("hello"))
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, store.uploaded, 1)
	for p, data := range store.uploaded {
		assert.Contains(t, p, sampleOrgID+"/")
		assert.Equal(t, []byte("hello"), data)
	}

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "document")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadHandler_RejectsBadExtension(t *testing.T) {
	store := newMockStorage(nil)
	_, r := newDocumentRouter(t, memberActor("u1"), store)

	body, contentType := multipartBody(t, "payload.exe", []byte("MZ"))
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.uploaded, "rejected file must not reach storage")
}

func TestUploadHandler_RejectsDottedName(t *testing.T) {
	store := newMockStorage(nil)
	_, r := newDocumentRouter(t, memberActor("u1"), store)

	body, contentType := multipartBody(t, "..secret.txt", []byte("x"))
	req := httptest.NewRequest("POST", "/documents", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.uploaded)
}

// ---- GetDocumentHandler -----------------------------------------------------

func TestGetDocumentHandler_OrgWideVisibleToMembers(t *testing.T) {
	store := newMockStorage(nil)
	mock, r := newDocumentRouter(t, memberActor("u2"), store)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs(sampleDocID).
		WillReturnRows(sampleDocumentRow("u1", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/documents/"+sampleDocID, nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGetDocumentHandler_SoftDeletedReads404(t *testing.T) {
	store := newMockStorage(nil)
	mock, r := newDocumentRouter(t, memberActor("u1"), store)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs(sampleDocID).
		WillReturnRows(sampleDocumentRow("u1", false))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/documents/"+sampleDocID, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---- DownloadHandler --------------------------------------------------------

func TestDownloadHandler_StreamsContent(t *testing.T) {
	store := newMockStorage([]byte("hello"))
	mock, r := newDocumentRouter(t, memberActor("u1"), store)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs(sampleDocID).
		WillReturnRows(sampleDocumentRow("u1", true))
	mock.ExpectExec("UPDATE documents SET download_count").
		WithArgs(sampleDocID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/documents/"+sampleDocID+"/download", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "notes.txt")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---- DeleteDocumentHandler --------------------------------------------------

func TestDeleteDocumentHandler_NonUploaderMemberDenied(t *testing.T) {
	store := newMockStorage(nil)
	mock, r := newDocumentRouter(t, memberActor("u2"), store)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs(sampleDocID).
		WillReturnRows(sampleDocumentRow("u1", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/documents/"+sampleDocID, nil))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteDocumentHandler_Uploader(t *testing.T) {
	store := newMockStorage(nil)
	mock, r := newDocumentRouter(t, memberActor("u1"), store)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
		WithArgs(sampleDocID).
		WillReturnRows(sampleDocumentRow("u1", true))
	mock.ExpectExec("UPDATE documents SET is_active").
		WithArgs(sampleDocID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("DELETE", "/documents/"+sampleDocID, nil))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
