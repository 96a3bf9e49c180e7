// Package team implements the membership coordinator: the single owner of project
// team mutations and the automation around them. Auto-add-on-assignment and
// auto-unassign-on-completion always run inside the same transaction as the task
// or project update that triggered them, so membership and status never diverge.
// Manager notifications are a best-effort side channel: a failed write is logged
// and swallowed, never rolled into the primary transaction.
package team

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/telemetry"
)

// MembershipStore is the membership surface the coordinator mutates
type MembershipStore interface {
	ListMemberships(ctx context.Context, projectID string) ([]*models.ProjectMembership, error)
	GetMembershipTx(ctx context.Context, tx *sql.Tx, projectID, userID string) (*models.ProjectMembership, error)
	CreateMembershipTx(ctx context.Context, tx *sql.Tx, m *models.ProjectMembership) error
	DeleteMembership(ctx context.Context, projectID, userID string) error
	DeleteMemberMembershipsTx(ctx context.Context, tx *sql.Tx, projectID string) (int64, error)
}

// ProjectStore is the project surface the coordinator mutates
type ProjectStore interface {
	UpdateProjectTx(ctx context.Context, tx *sql.Tx, p *models.Project) error
}

// TaskStore is the task surface the coordinator mutates
type TaskStore interface {
	CreateTaskTx(ctx context.Context, tx *sql.Tx, t *models.Task) error
	UpdateTaskTx(ctx context.Context, tx *sql.Tx, t *models.Task) error
}

// UserStore resolves user names for notification messages
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// MessageStore receives best-effort manager messages
type MessageStore interface {
	CreateMessage(ctx context.Context, m *models.Message) error
}

// NotificationStore receives best-effort assignment notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Coordinator maintains project team membership and its automations
type Coordinator struct {
	db            *sql.DB
	memberships   MembershipStore
	projects      ProjectStore
	tasks         TaskStore
	users         UserStore
	messages      MessageStore
	notifications NotificationStore
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(db *sql.DB, memberships MembershipStore, projects ProjectStore, tasks TaskStore, users UserStore, messages MessageStore, notifications NotificationStore) *Coordinator {
	return &Coordinator{
		db:            db,
		memberships:   memberships,
		projects:      projects,
		tasks:         tasks,
		users:         users,
		messages:      messages,
		notifications: notifications,
	}
}

// AssignMembers replaces every member-kind membership on the project with the
// given user set. Manager-kind rows are untouched. On success the project's
// assigned manager, if different from the actor, gets a best-effort message
// summarizing the change.
func (c *Coordinator) AssignMembers(ctx context.Context, project *models.Project, memberIDs []string, actor authz.ActorContext) error {
	err := repositories.RunInTransaction(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := c.memberships.DeleteMemberMembershipsTx(ctx, tx, project.ID); err != nil {
			return fmt.Errorf("failed to clear member assignments: %w", err)
		}
		for _, userID := range memberIDs {
			m := &models.ProjectMembership{
				ProjectID: project.ID,
				UserID:    userID,
				Kind:      models.MembershipKindMember,
				AddedBy:   &actor.UserID,
			}
			if err := c.memberships.CreateMembershipTx(ctx, tx, m); err != nil {
				return fmt.Errorf("failed to assign member %s: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.notifyManager(ctx, project, actor, memberIDs)
	return nil
}

// RemoveMember deletes a single member-kind membership, with the same best-effort
// manager notification as AssignMembers.
func (c *Coordinator) RemoveMember(ctx context.Context, project *models.Project, userID string, actor authz.ActorContext) error {
	if err := c.memberships.DeleteMembership(ctx, project.ID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if project.ManagerID != nil && *project.ManagerID != actor.UserID {
		body := fmt.Sprintf("%s was removed from the %s team.", c.userName(ctx, userID), project.Name)
		c.sendManagerMessage(ctx, project, actor, body)
	}
	return nil
}

// AutoAddOnAssignment ensures the assignee holds a membership on the task's
// project, creating a member-kind row if absent. Idempotent: re-assigning an
// existing teammate is a no-op. Runs inside the caller's transaction.
func (c *Coordinator) AutoAddOnAssignment(ctx context.Context, tx *sql.Tx, projectID, userID string) (bool, error) {
	existing, err := c.memberships.GetMembershipTx(ctx, tx, projectID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	m := &models.ProjectMembership{
		ProjectID: projectID,
		UserID:    userID,
		Kind:      models.MembershipKindMember,
	}
	if err := c.memberships.CreateMembershipTx(ctx, tx, m); err != nil {
		return false, fmt.Errorf("failed to auto-add member: %w", err)
	}

	telemetry.TeamAutoAddTotal.Inc()
	return true, nil
}

// CreateTask inserts the task and, when it carries an assignee, auto-adds the
// assignee to the project team in the same transaction.
func (c *Coordinator) CreateTask(ctx context.Context, task *models.Task) error {
	err := repositories.RunInTransaction(ctx, c.db, func(tx *sql.Tx) error {
		if err := c.tasks.CreateTaskTx(ctx, tx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if task.AssigneeID != nil {
			if _, err := c.AutoAddOnAssignment(ctx, tx, task.ProjectID, *task.AssigneeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if task.AssigneeID != nil {
		c.notifyAssignee(ctx, task)
	}
	return nil
}

// UpdateTask saves the task and, when the assignee changed to a non-nil user,
// auto-adds them to the project team in the same transaction. previousAssignee
// is the assignee before the update; it gates both the auto-add and the
// assignment notification so no-op saves trigger nothing.
func (c *Coordinator) UpdateTask(ctx context.Context, task *models.Task, previousAssignee *string) error {
	assigneeChanged := task.AssigneeID != nil &&
		(previousAssignee == nil || *previousAssignee != *task.AssigneeID)

	err := repositories.RunInTransaction(ctx, c.db, func(tx *sql.Tx) error {
		if err := c.tasks.UpdateTaskTx(ctx, tx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if assigneeChanged {
			if _, err := c.AutoAddOnAssignment(ctx, tx, task.ProjectID, *task.AssigneeID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if assigneeChanged {
		c.notifyAssignee(ctx, task)
	}
	return nil
}

// UpdateProject saves the project and, on a transition into completed status,
// deletes every member-kind membership in the same transaction. The transition
// is detected against previousStatus: saving an already-completed project again
// unassigns nothing.
func (c *Coordinator) UpdateProject(ctx context.Context, project *models.Project, previousStatus string) error {
	completing := previousStatus != models.ProjectStatusCompleted &&
		project.Status == models.ProjectStatusCompleted

	var removedNames []string
	if completing {
		memberships, err := c.memberships.ListMemberships(ctx, project.ID)
		if err != nil {
			return fmt.Errorf("failed to list memberships: %w", err)
		}
		for _, m := range memberships {
			if m.Kind == models.MembershipKindMember {
				removedNames = append(removedNames, c.userName(ctx, m.UserID))
			}
		}
	}

	return repositories.RunInTransaction(ctx, c.db, func(tx *sql.Tx) error {
		if err := c.projects.UpdateProjectTx(ctx, tx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		if completing {
			count, err := c.memberships.DeleteMemberMembershipsTx(ctx, tx, project.ID)
			if err != nil {
				return fmt.Errorf("failed to auto-unassign members: %w", err)
			}
			telemetry.TeamAutoUnassignTotal.Add(float64(count))
			slog.Info("auto-unassigned members on project completion",
				"project_id", project.ID,
				"count", count,
				"members", strings.Join(removedNames, ", "))
		}
		return nil
	})
}

// notifyManager sends the post-assignment summary to the project's assigned
// manager. Best-effort: failures are logged, never returned.
func (c *Coordinator) notifyManager(ctx context.Context, project *models.Project, actor authz.ActorContext, memberIDs []string) {
	if project.ManagerID == nil || *project.ManagerID == actor.UserID {
		return
	}

	var body string
	if len(memberIDs) == 0 {
		body = fmt.Sprintf("All member assignments on %s were cleared.", project.Name)
	} else {
		names := make([]string, 0, len(memberIDs))
		for _, id := range memberIDs {
			names = append(names, c.userName(ctx, id))
		}
		body = fmt.Sprintf("Team assignment on %s changed. Members: %s.", project.Name, strings.Join(names, ", "))
	}

	c.sendManagerMessage(ctx, project, actor, body)
}

func (c *Coordinator) sendManagerMessage(ctx context.Context, project *models.Project, actor authz.ActorContext, body string) {
	msg := &models.Message{
		OrganizationID: project.OrganizationID,
		SenderID:       &actor.UserID,
		RecipientID:    *project.ManagerID,
		ProjectID:      &project.ID,
		Subject:        fmt.Sprintf("Team update: %s", project.Name),
		Body:           body,
	}
	if err := c.messages.CreateMessage(ctx, msg); err != nil {
		slog.Warn("failed to notify project manager of team change",
			"project_id", project.ID,
			"manager_id", *project.ManagerID,
			"error", err)
	}
}

// notifyAssignee writes a task_assigned notification. Best-effort.
func (c *Coordinator) notifyAssignee(ctx context.Context, task *models.Task) {
	n := &models.Notification{
		OrganizationID: task.OrganizationID,
		UserID:         *task.AssigneeID,
		TaskID:         &task.ID,
		ProjectID:      &task.ProjectID,
		Type:           models.NotificationTaskAssigned,
		Message:        fmt.Sprintf("You were assigned to task %q", task.Title),
	}
	if err := c.notifications.CreateNotification(ctx, n); err != nil {
		slog.Warn("failed to create assignment notification",
			"task_id", task.ID,
			"assignee_id", *task.AssigneeID,
			"error", err)
	}
}

func (c *Coordinator) userName(ctx context.Context, userID string) string {
	user, err := c.users.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		return userID
	}
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}
