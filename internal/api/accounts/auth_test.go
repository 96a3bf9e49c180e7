package accounts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	// GenerateJWT needs a secret; set one before any handler runs.
	os.Setenv("PMS_AUTH_JWT_SECRET", "test-jwt-secret-that-is-32-chars-!")
	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// Test setup helpers
// ---------------------------------------------------------------------------

// userSQLCols are the columns returned by user SELECT queries.
var userSQLCols = []string{
	"id", "organization_id", "email", "username", "password_hash",
	"full_name", "role", "is_active", "created_at", "updated_at",
}

// orgSQLCols are the columns returned by organization SELECT queries.
var orgSQLCols = []string{"id", "name", "display_name", "created_at", "updated_at"}

func userRow(t *testing.T, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return sqlmock.NewRows(userSQLCols).
		AddRow("user-1", "org-1", "alice@example.com", "alice", hash,
			"Alice", "member", active, time.Now(), time.Now())
}

// newAuthRouter creates a gin router with the public auth routes registered.
func newAuthRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewAuthHandlers(&config.Config{}, db)

	r := gin.New()
	r.POST("/auth/register", h.RegisterHandler())
	r.POST("/auth/login", h.LoginHandler())

	return mock, r
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

// ---------------------------------------------------------------------------
// LoginHandler
// ---------------------------------------------------------------------------

func TestLoginHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(userRow(t, "correct-horse", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login",
		jsonBody(map[string]string{"email": "alice@example.com", "password": "correct-horse"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["token"] == nil || resp["token"] == "" {
		t.Error("response missing token")
	}
	user, _ := resp["user"].(map[string]interface{})
	if user["Email"] != "alice@example.com" {
		t.Errorf("user email = %v, want alice@example.com", user["Email"])
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Error("response leaks password hash")
	}
}

func TestLoginHandler_UnknownEmail(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userSQLCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login",
		jsonBody(map[string]string{"email": "nobody@example.com", "password": "whatever1"})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if getJSON(w)["error"] != "Invalid credentials" {
		t.Errorf("error = %v, want Invalid credentials", getJSON(w)["error"])
	}
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(userRow(t, "correct-horse", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login",
		jsonBody(map[string]string{"email": "alice@example.com", "password": "wrong-horse"})))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	// Wrong password and unknown email must be indistinguishable.
	if getJSON(w)["error"] != "Invalid credentials" {
		t.Errorf("error = %v, want Invalid credentials", getJSON(w)["error"])
	}
}

func TestLoginHandler_DeactivatedAccount(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(userRow(t, "correct-horse", false))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login",
		jsonBody(map[string]string{"email": "alice@example.com", "password": "correct-horse"})))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestLoginHandler_InvalidBody(t *testing.T) {
	_, r := newAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/login",
		jsonBody(map[string]string{"email": "not-an-email"})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// RegisterHandler
// ---------------------------------------------------------------------------

func registerBody() *bytes.Buffer {
	return jsonBody(map[string]string{
		"organization_name": "acme",
		"email":             "founder@acme.com",
		"username":          "founder",
		"password":          "longenough",
		"full_name":         "Founder",
	})
}

func TestRegisterHandler_Success(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE name").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(orgSQLCols))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("founder@acme.com").
		WillReturnRows(sqlmock.NewRows(userSQLCols))
	mock.ExpectExec("INSERT INTO organizations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/register", registerBody()))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	if resp["token"] == nil {
		t.Error("response missing token")
	}
	user, _ := resp["user"].(map[string]interface{})
	if user["Role"] != "admin" {
		t.Errorf("first user role = %v, want admin", user["Role"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegisterHandler_OrganizationNameTaken(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE name").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(orgSQLCols).
			AddRow("org-1", "acme", "Acme", time.Now(), time.Now()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/register", registerBody()))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE name").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(orgSQLCols))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("founder@acme.com").
		WillReturnRows(userRow(t, "whatever1", true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/register", registerBody()))

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestRegisterHandler_ShortPassword(t *testing.T) {
	mock, r := newAuthRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE name").
		WillReturnRows(sqlmock.NewRows(orgSQLCols))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows(userSQLCols))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/auth/register",
		jsonBody(map[string]string{
			"organization_name": "acme",
			"email":             "founder@acme.com",
			"username":          "founder",
			"password":          "short",
			"full_name":         "Founder",
		})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
