package repositories

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/taskhub/taskhub/internal/db/models"
)

var userCols = []string{
	"id", "organization_id", "email", "username", "password_hash", "full_name",
	"role", "is_active", "created_at", "updated_at",
}

func userRows(users ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows(userCols)
	for _, u := range users {
		rows.AddRow(u...)
	}
	return rows
}

func memberRow(id, username string) []driver.Value {
	return []driver.Value{
		id, "org-1", username + "@example.com", username, "$2a$10$hash",
		"Test " + username, "member", true, time.Now(), time.Now(),
	}
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func TestUserLookups(t *testing.T) {
	tests := []struct {
		name     string
		queryRe  string
		rows     *sqlmock.Rows
		lookup   func(*UserRepository) (*models.User, error)
		wantUser bool
	}{
		{
			name:    "by id, found",
			queryRe: "SELECT.*FROM users WHERE id",
			rows:    userRows(memberRow("user-1", "alice")),
			lookup: func(r *UserRepository) (*models.User, error) {
				return r.GetUserByID(context.Background(), "user-1")
			},
			wantUser: true,
		},
		{
			name:    "by id, missing",
			queryRe: "SELECT.*FROM users WHERE id",
			rows:    userRows(),
			lookup: func(r *UserRepository) (*models.User, error) {
				return r.GetUserByID(context.Background(), "user-404")
			},
		},
		{
			name:    "by email, found",
			queryRe: "SELECT.*FROM users WHERE email",
			rows:    userRows(memberRow("user-1", "alice")),
			lookup: func(r *UserRepository) (*models.User, error) {
				return r.GetUserByEmail(context.Background(), "alice@example.com")
			},
			wantUser: true,
		},
		{
			name:    "by email, missing",
			queryRe: "SELECT.*FROM users WHERE email",
			rows:    userRows(),
			lookup: func(r *UserRepository) (*models.User, error) {
				return r.GetUserByEmail(context.Background(), "nobody@example.com")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newUserRepo(t)
			mock.ExpectQuery(tt.queryRe).WillReturnRows(tt.rows)

			user, err := tt.lookup(repo)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// A miss is a nil user, not an error.
			if (user != nil) != tt.wantUser {
				t.Fatalf("user = %v, want present=%v", user, tt.wantUser)
			}
			if tt.wantUser && user.Role != models.RoleMember {
				t.Errorf("Role = %s, want member", user.Role)
			}
		})
	}
}

func TestCreateUser_AssignsID(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{
		OrganizationID: "org-1",
		Email:          "alice@example.com",
		Username:       "alice",
		PasswordHash:   "$2a$10$hash",
		Role:           models.RoleMember,
		IsActive:       true,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("CreateUser left user.ID empty")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser left user.CreatedAt zero")
	}
}

func TestListUsersByOrganization(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE organization_id.*ORDER BY username").
		WithArgs("org-1").
		WillReturnRows(userRows(memberRow("user-1", "alice"), memberRow("user-2", "bob")))

	users, err := repo.ListUsersByOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].Username != "alice" || users[1].Username != "bob" {
		t.Errorf("usernames = %s, %s; want alice, bob", users[0].Username, users[1].Username)
	}
}

func TestUpdateUser_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users").WillReturnError(errDB)

	user := &models.User{ID: "user-1", Role: models.RoleManager}
	if err := repo.UpdateUser(context.Background(), user); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestUpdatePassword(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("user-1", "$2a$10$newhash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdatePassword(context.Background(), "user-1", "$2a$10$newhash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeactivateUser(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("UPDATE users SET is_active = false").
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeactivateUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
