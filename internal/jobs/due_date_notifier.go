// due_date_notifier.go implements the DueDateNotifier background job, which
// periodically scans for assigned, uncompleted tasks approaching their due date
// and writes a reminder notification to each assignee. A per-day existence check
// keeps the job idempotent: at most one reminder per (task, assignee) per calendar
// day, so reruns and restarts never double-notify. Tasks are processed
// independently; one task's failure never aborts the rest of the scan.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/db/models"
	"github.com/taskhub/taskhub/internal/db/repositories"
	"github.com/taskhub/taskhub/internal/telemetry"
)

// DueDateNotifier periodically generates due-soon reminders for every organization.
type DueDateNotifier struct {
	orgRepo          *repositories.OrganizationRepository
	taskRepo         *repositories.TaskRepository
	notificationRepo *repositories.NotificationRepository
	cfg              *config.NotificationsConfig
	interval         time.Duration
	stopChan         chan struct{}
}

// NewDueDateNotifier creates a new DueDateNotifier.
// intervalHours controls how often the scan runs (default 24h).
func NewDueDateNotifier(
	orgRepo *repositories.OrganizationRepository,
	taskRepo *repositories.TaskRepository,
	notificationRepo *repositories.NotificationRepository,
	cfg *config.NotificationsConfig,
) *DueDateNotifier {
	hours := cfg.DueSoonCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &DueDateNotifier{
		orgRepo:          orgRepo,
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		cfg:              cfg,
		interval:         time.Duration(hours) * time.Hour,
		stopChan:         make(chan struct{}),
	}
}

// Start begins the background reminder loop.
// It runs an initial scan immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (n *DueDateNotifier) Start(ctx context.Context) {
	if !n.cfg.Enabled {
		log.Println("Due date notifier: disabled (notifications.enabled=false)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("Due date notifier started (check interval: %v, lookahead window: %d days)",
		n.interval, n.windowDays())

	// Run once immediately on startup
	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			log.Println("Due date notifier stopped")
			return
		case <-ctx.Done():
			log.Println("Due date notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *DueDateNotifier) Stop() {
	close(n.stopChan)
}

func (n *DueDateNotifier) windowDays() int {
	if n.cfg.DueSoonWindowDays > 0 {
		return n.cfg.DueSoonWindowDays
	}
	return 7
}

// runCheck scans every organization. Per-organization failures are logged and
// the scan moves on.
func (n *DueDateNotifier) runCheck(ctx context.Context) {
	orgs, err := n.orgRepo.ListOrganizations(ctx)
	if err != nil {
		log.Printf("Due date notifier: failed to list organizations: %v", err)
		return
	}

	for _, org := range orgs {
		count, err := n.GenerateForOrganization(ctx, org.ID, n.windowDays())
		if err != nil {
			log.Printf("Due date notifier: scan failed for organization %s: %v", org.ID, err)
			continue
		}
		if count > 0 {
			log.Printf("Due date notifier: created %d reminder(s) for organization %s", count, org.ID)
		}
	}
}

// GenerateForOrganization scans one organization's due-soon tasks and returns the
// number of reminders written. It is safe to call on demand (the admin trigger
// endpoint uses it directly) and safe to rerun: the per-day dedup check makes a
// second run on the same day a no-op.
//
// The scan is not transactional across tasks. Each reminder commits on its own,
// so a failure partway through keeps the reminders already written.
func (n *DueDateNotifier) GenerateForOrganization(ctx context.Context, orgID string, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	tasks, err := n.taskRepo.ListDueSoonTasks(ctx, orgID, windowDays)
	if err != nil {
		return 0, fmt.Errorf("failed to list due-soon tasks: %w", err)
	}

	created := 0
	for _, task := range tasks {
		if task.AssigneeID == nil || task.DueDate == nil {
			continue
		}

		exists, err := n.notificationRepo.ExistsNotificationToday(ctx, *task.AssigneeID, task.ID, models.NotificationTaskDueSoon)
		if err != nil {
			log.Printf("Due date notifier: dedup check failed for task %s: %v", task.ID, err)
			continue
		}
		if exists {
			continue
		}

		days := daysUntilDue(*task.DueDate, time.Now())
		notification := &models.Notification{
			OrganizationID: orgID,
			UserID:         *task.AssigneeID,
			TaskID:         &task.ID,
			ProjectID:      &task.ProjectID,
			Type:           models.NotificationTaskDueSoon,
			Message:        dueSoonMessage(task.Title, days),
			DaysUntilDue:   &days,
		}

		if err := n.notificationRepo.CreateNotification(ctx, notification); err != nil {
			log.Printf("Due date notifier: failed to create reminder for task %s: %v", task.ID, err)
			continue
		}

		telemetry.DueSoonNotificationsTotal.Inc()
		created++
	}

	return created, nil
}

// daysUntilDue counts whole calendar days between now and the due date.
// Both sides are truncated to dates so a task due later today counts as 0.
func daysUntilDue(dueDate, now time.Time) int {
	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}

// dueSoonMessage renders the reminder text for a task due in the given number of days.
func dueSoonMessage(title string, days int) string {
	switch {
	case days <= 0:
		return fmt.Sprintf("Task %q is due today", title)
	case days == 1:
		return fmt.Sprintf("Task %q is due tomorrow", title)
	default:
		return fmt.Sprintf("Task %q is due in %d days", title, days)
	}
}
