package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newNotifierConfig(enabled bool) *config.NotificationsConfig {
	return &config.NotificationsConfig{
		Enabled:                   enabled,
		DueSoonWindowDays:         7,
		DueSoonCheckIntervalHours: 24,
	}
}

func newTaskRepoForNotifier(t *testing.T) (*repositories.TaskRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (task): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewTaskRepository(db), mock
}

func newNotificationRepoForNotifier(t *testing.T) (*repositories.NotificationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (notification): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewNotificationRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var dueTaskCols = []string{
	"id", "organization_id", "project_id", "milestone_id", "title", "description",
	"status", "priority", "assignee_id", "due_date", "completed_at", "created_by",
	"created_at", "updated_at",
}

func dueSoonRows(taskID, title string, daysAhead int) *sqlmock.Rows {
	due := time.Now().AddDate(0, 0, daysAhead)
	return sqlmock.NewRows(dueTaskCols).
		AddRow(taskID, "org-1", "proj-1", nil, title, "",
			"in_progress", "medium", "user-1", due, nil, "mgr-1", time.Now(), time.Now())
}

// ---------------------------------------------------------------------------
// NewDueDateNotifier — interval defaulting
// ---------------------------------------------------------------------------

func TestNewDueDateNotifier_DefaultInterval(t *testing.T) {
	cfg := newNotifierConfig(true)
	cfg.DueSoonCheckIntervalHours = 0 // should default to 24

	n := NewDueDateNotifier(nil, nil, nil, cfg)
	if n.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", n.interval)
	}
}

// ---------------------------------------------------------------------------
// GenerateForOrganization
// ---------------------------------------------------------------------------

func TestGenerateForOrganization_CreatesReminder(t *testing.T) {
	taskRepo, taskMock := newTaskRepoForNotifier(t)
	notifRepo, notifMock := newNotificationRepoForNotifier(t)

	taskMock.ExpectQuery("SELECT.*FROM tasks").
		WithArgs("org-1", 7).
		WillReturnRows(dueSoonRows("task-1", "Fix login bug", 2))
	notifMock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	notifMock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := NewDueDateNotifier(nil, taskRepo, notifRepo, newNotifierConfig(true))
	count, err := n.GenerateForOrganization(context.Background(), "org-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestGenerateForOrganization_DedupSkipsExisting(t *testing.T) {
	taskRepo, taskMock := newTaskRepoForNotifier(t)
	notifRepo, notifMock := newNotificationRepoForNotifier(t)

	taskMock.ExpectQuery("SELECT.*FROM tasks").
		WillReturnRows(dueSoonRows("task-1", "Fix login bug", 2))
	// A reminder already exists today: no insert follows.
	notifMock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	n := NewDueDateNotifier(nil, taskRepo, notifRepo, newNotifierConfig(true))
	count, err := n.GenerateForOrganization(context.Background(), "org-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if err := notifMock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected notification writes: %v", err)
	}
}

func TestGenerateForOrganization_ContinuesPastTaskFailure(t *testing.T) {
	taskRepo, taskMock := newTaskRepoForNotifier(t)
	notifRepo, notifMock := newNotificationRepoForNotifier(t)

	rows := dueSoonRows("task-1", "First", 1)
	due := time.Now().AddDate(0, 0, 3)
	rows.AddRow("task-2", "org-1", "proj-1", nil, "Second", "",
		"pending", "low", "user-2", due, nil, "mgr-1", time.Now(), time.Now())
	taskMock.ExpectQuery("SELECT.*FROM tasks").WillReturnRows(rows)

	// First task's insert fails; the second still gets its reminder.
	notifMock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	notifMock.ExpectExec("INSERT INTO notifications").
		WillReturnError(errors.New("db error"))
	notifMock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	notifMock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := NewDueDateNotifier(nil, taskRepo, notifRepo, newNotifierConfig(true))
	count, err := n.GenerateForOrganization(context.Background(), "org-1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestGenerateForOrganization_ListFailure(t *testing.T) {
	taskRepo, taskMock := newTaskRepoForNotifier(t)
	notifRepo, _ := newNotificationRepoForNotifier(t)

	taskMock.ExpectQuery("SELECT.*FROM tasks").WillReturnError(errors.New("db error"))

	n := NewDueDateNotifier(nil, taskRepo, notifRepo, newNotifierConfig(true))
	if _, err := n.GenerateForOrganization(context.Background(), "org-1", 7); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// Message rendering
// ---------------------------------------------------------------------------

func TestDueSoonMessage(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{0, `Task "Deploy" is due today`},
		{1, `Task "Deploy" is due tomorrow`},
		{2, `Task "Deploy" is due in 2 days`},
		{7, `Task "Deploy" is due in 7 days`},
	}
	for _, c := range cases {
		if got := dueSoonMessage("Deploy", c.days); got != c.want {
			t.Errorf("dueSoonMessage(%d) = %q, want %q", c.days, got, c.want)
		}
	}
}

func TestDaysUntilDue_TruncatesToDates(t *testing.T) {
	now := time.Date(2026, 8, 29, 23, 30, 0, 0, time.UTC)
	due := time.Date(2026, 8, 30, 1, 0, 0, 0, time.UTC)
	if got := daysUntilDue(due, now); got != 1 {
		t.Errorf("daysUntilDue = %d, want 1", got)
	}

	sameDay := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if got := daysUntilDue(sameDay, now); got != 0 {
		t.Errorf("daysUntilDue same day = %d, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// Start — disabled config
// ---------------------------------------------------------------------------

func TestStart_DisabledReturnsImmediately(t *testing.T) {
	n := NewDueDateNotifier(nil, nil, nil, newNotifierConfig(false))

	done := make(chan struct{})
	go func() {
		n.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when disabled")
	}
}
