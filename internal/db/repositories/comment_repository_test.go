package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/taskhub/taskhub/internal/db/models"
)

var commentCols = []string{"id", "task_id", "user_id", "full_name", "content", "created_at"}

func newCommentRepo(t *testing.T) (*CommentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCommentRepository(db), mock
}

func TestCreateComment_AssignsID(t *testing.T) {
	repo, mock := newCommentRepo(t)
	mock.ExpectExec("INSERT INTO task_comments").
		WithArgs(sqlmock.AnyArg(), "task-1", "user-1", "Looks done to me", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	comment := &models.TaskComment{TaskID: "task-1", UserID: "user-1", Content: "Looks done to me"}
	if err := repo.CreateComment(context.Background(), comment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if comment.ID == "" {
		t.Error("CreateComment should assign an ID")
	}
	if comment.CreatedAt.IsZero() {
		t.Error("CreateComment should set CreatedAt")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestListCommentsByTask_JoinsAuthorName(t *testing.T) {
	repo, mock := newCommentRepo(t)
	mock.ExpectQuery("SELECT.*FROM task_comments tc.*JOIN users u").
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows(commentCols).
			AddRow("c-1", "task-1", "user-1", "Alice", "First", time.Now().Add(-time.Hour)).
			AddRow("c-2", "task-1", "user-2", "Bob", "Second", time.Now()))

	comments, err := repo.ListCommentsByTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len = %d, want 2", len(comments))
	}
	if comments[0].UserName != "Alice" || comments[1].UserName != "Bob" {
		t.Errorf("author names = %s, %s; want Alice, Bob", comments[0].UserName, comments[1].UserName)
	}
}

func TestListCommentsByTask_Empty(t *testing.T) {
	repo, mock := newCommentRepo(t)
	mock.ExpectQuery("SELECT.*FROM task_comments tc").
		WithArgs("task-1").
		WillReturnRows(sqlmock.NewRows(commentCols))

	comments, err := repo.ListCommentsByTask(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("len = %d, want 0", len(comments))
	}
}
