// resolver.go implements the unified permission decision function across the five
// resource kinds: projects, tasks, documents, daily reports, and user role changes.
// Each kind has one evaluation method; role handling is a closed enumeration, never
// an ad hoc string comparison at a call site.
package authz

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub/internal/db/models"
)

// PermissionResolver decides whether an actor may perform an action on a resource
type PermissionResolver struct {
	scope       *ProjectScopeCalculator
	projects    ProjectReader
	memberships MembershipReader
}

// NewPermissionResolver creates a new PermissionResolver
func NewPermissionResolver(projects ProjectReader, memberships MembershipReader) *PermissionResolver {
	return &PermissionResolver{
		scope:       NewProjectScopeCalculator(projects, memberships),
		projects:    projects,
		memberships: memberships,
	}
}

// Scope exposes the underlying scope calculator for callers that need the full
// project ID set (list endpoints, dashboards).
func (r *PermissionResolver) Scope() *ProjectScopeCalculator {
	return r.scope
}

// ResolveProject decides an action on a project.
//
// Managers may never delete projects, even ones they manage, and team
// assignment is an admin-only bulk operation, so ActionAssign is denied for
// managers too. Members may only ever view, and only projects inside their
// scope.
func (r *PermissionResolver) ResolveProject(ctx context.Context, actor ActorContext, project *models.Project, action Action) (Decision, error) {
	if project == nil {
		return Deny(ReasonNotFound), nil
	}
	if project.OrganizationID != actor.OrganizationID {
		return Deny(ReasonCrossTenant), nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		return Allow(), nil

	case models.RoleManager:
		if action == ActionDelete || action == ActionAssign {
			return Deny(ReasonInsufficientRole), nil
		}
		if project.ManagerID != nil && *project.ManagerID == actor.UserID {
			return Allow(), nil
		}
		return Deny(ReasonNotAssigned), nil

	case models.RoleMember:
		if action != ActionView {
			return Deny(ReasonInsufficientRole), nil
		}
		visible, err := r.scope.InScope(ctx, actor, project)
		if err != nil {
			return Decision{}, err
		}
		if visible {
			return Allow(), nil
		}
		return Deny(ReasonNotAssigned), nil
	}

	return Deny(ReasonInsufficientRole), nil
}

// ResolveTask decides an action on a task. Task access derives from the parent
// project, with one member-specific override: a member may view and status-edit
// a task assigned to them regardless of anything else about the project.
func (r *PermissionResolver) ResolveTask(ctx context.Context, actor ActorContext, task *models.Task, action Action) (Decision, error) {
	if task == nil {
		return Deny(ReasonNotFound), nil
	}
	if task.OrganizationID != actor.OrganizationID {
		return Deny(ReasonCrossTenant), nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		return Allow(), nil

	case models.RoleManager:
		project, err := r.projects.GetProjectByID(ctx, task.ProjectID)
		if err != nil {
			return Decision{}, fmt.Errorf("failed to load task project: %w", err)
		}
		if project == nil {
			return Deny(ReasonNotFound), nil
		}
		if project.ManagerID != nil && *project.ManagerID == actor.UserID {
			return Allow(), nil
		}
		return Deny(ReasonNotAssigned), nil

	case models.RoleMember:
		if task.AssigneeID == nil || *task.AssigneeID != actor.UserID {
			return Deny(ReasonNotAssigned), nil
		}
		switch action {
		case ActionView:
			return Allow(), nil
		case ActionEdit:
			return AllowStatusOnly(), nil
		}
		return Deny(ReasonInsufficientRole), nil
	}

	return Deny(ReasonInsufficientRole), nil
}

// ResolveDocument decides an action on a document.
//
// Uploaders keep full control of their own uploads. A document with no project
// attachment is visible to the whole organization but editable only by its
// uploader or an admin.
func (r *PermissionResolver) ResolveDocument(ctx context.Context, actor ActorContext, doc *models.Document, action Action) (Decision, error) {
	if doc == nil {
		return Deny(ReasonNotFound), nil
	}
	if doc.OrganizationID != actor.OrganizationID {
		return Deny(ReasonCrossTenant), nil
	}

	if doc.UploaderID == actor.UserID {
		return Allow(), nil
	}
	if actor.Role == models.RoleAdmin {
		return Allow(), nil
	}

	if doc.ProjectID == nil {
		if action == ActionView {
			return Allow(), nil
		}
		return Deny(ReasonInsufficientRole), nil
	}

	project, err := r.projects.GetProjectByID(ctx, *doc.ProjectID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load document project: %w", err)
	}
	if project == nil {
		return Deny(ReasonNotFound), nil
	}

	if actor.Role == models.RoleManager {
		if project.ManagerID != nil && *project.ManagerID == actor.UserID {
			return Allow(), nil
		}
		return Deny(ReasonNotAssigned), nil
	}

	// Member: view only, and only within project scope.
	if action != ActionView {
		return Deny(ReasonInsufficientRole), nil
	}
	visible, err := r.scope.InScope(ctx, actor, project)
	if err != nil {
		return Decision{}, err
	}
	if visible {
		return Allow(), nil
	}
	return Deny(ReasonNotAssigned), nil
}

// ResolveReport decides an action on a daily report. The submitter always has
// full access; everyone else gets at most view, gated by the report's visibility
// flags and project association.
func (r *PermissionResolver) ResolveReport(ctx context.Context, actor ActorContext, report *models.DailyReport, action Action) (Decision, error) {
	if report == nil {
		return Deny(ReasonNotFound), nil
	}
	if report.OrganizationID != actor.OrganizationID {
		return Deny(ReasonCrossTenant), nil
	}

	if report.UserID == actor.UserID {
		return Allow(), nil
	}

	if action != ActionView {
		return Deny(ReasonInsufficientRole), nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		if report.VisibleToAdmin {
			return Allow(), nil
		}
		return Deny(ReasonInsufficientRole), nil

	case models.RoleManager:
		if report.VisibleToManager {
			return Allow(), nil
		}
		if report.ProjectID != nil {
			project, err := r.projects.GetProjectByID(ctx, *report.ProjectID)
			if err != nil {
				return Decision{}, fmt.Errorf("failed to load report project: %w", err)
			}
			if project != nil && project.ManagerID != nil && *project.ManagerID == actor.UserID {
				return Allow(), nil
			}
			membership, err := r.memberships.GetMembership(ctx, *report.ProjectID, actor.UserID)
			if err != nil {
				return Decision{}, fmt.Errorf("failed to check membership: %w", err)
			}
			if membership != nil {
				return Allow(), nil
			}
		}
		return Deny(ReasonNotAssigned), nil

	case models.RoleMember:
		// Members see teammates' reports only when the submitter opted into
		// manager visibility and both share the report's project team.
		if report.ProjectID != nil && report.VisibleToManager {
			membership, err := r.memberships.GetMembership(ctx, *report.ProjectID, actor.UserID)
			if err != nil {
				return Decision{}, fmt.Errorf("failed to check membership: %w", err)
			}
			if membership != nil {
				return Allow(), nil
			}
		}
		return Deny(ReasonNotAssigned), nil
	}

	return Deny(ReasonInsufficientRole), nil
}

// ResolveRoleChange decides whether the actor may change target's role to newRole.
//
// Guards, in order: no one may demote themselves out of admin; managers may never
// act on an admin account at all, mint admins, touch another manager, or promote
// anyone to manager; members may not change roles at all. Admins are otherwise
// unrestricted within their organization.
func (r *PermissionResolver) ResolveRoleChange(actor ActorContext, target *models.User, newRole string) Decision {
	if target == nil {
		return Deny(ReasonNotFound)
	}
	if target.OrganizationID != actor.OrganizationID {
		return Deny(ReasonCrossTenant)
	}

	if actor.UserID == target.ID && target.Role == models.RoleAdmin && newRole != models.RoleAdmin {
		return Deny(ReasonInsufficientRole)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return Allow()

	case models.RoleManager:
		if target.Role == models.RoleAdmin {
			return Deny(ReasonInsufficientRole)
		}
		if newRole == models.RoleAdmin {
			return Deny(ReasonInsufficientRole)
		}
		if target.Role == models.RoleManager && target.ID != actor.UserID {
			return Deny(ReasonInsufficientRole)
		}
		if newRole == models.RoleManager && target.Role != models.RoleManager {
			return Deny(ReasonInsufficientRole)
		}
		return Allow()
	}

	return Deny(ReasonInsufficientRole)
}
