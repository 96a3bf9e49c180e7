// scope.go implements the project scope calculator: the set of project IDs an
// actor may see. Member scope unifies the three visibility signals — open
// visibility, team membership, and explicit grants — so every access path
// consults the same rule.
package authz

import (
	"context"
	"fmt"

	"github.com/taskhub/taskhub/internal/db/models"
)

// ProjectScopeCalculator computes which projects an actor may see
type ProjectScopeCalculator struct {
	projects    ProjectReader
	memberships MembershipReader
}

// NewProjectScopeCalculator creates a new ProjectScopeCalculator
func NewProjectScopeCalculator(projects ProjectReader, memberships MembershipReader) *ProjectScopeCalculator {
	return &ProjectScopeCalculator{projects: projects, memberships: memberships}
}

// ComputeProjectScope returns the set of project IDs the actor may see.
//
//   - admin: every project in the organization
//   - manager: exactly the projects where they are the assigned manager
//   - member: projects with visibility "all", plus projects they hold a team
//     membership or a visibility grant on
func (c *ProjectScopeCalculator) ComputeProjectScope(ctx context.Context, actor ActorContext) (map[string]bool, error) {
	scope := make(map[string]bool)

	switch actor.Role {
	case models.RoleAdmin:
		projects, err := c.projects.ListProjectsByOrganization(ctx, actor.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization projects: %w", err)
		}
		for _, p := range projects {
			scope[p.ID] = true
		}
		return scope, nil

	case models.RoleManager:
		managed, err := c.projects.ListProjectsByManager(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to list managed projects: %w", err)
		}
		for _, p := range managed {
			if p.OrganizationID == actor.OrganizationID {
				scope[p.ID] = true
			}
		}
		return scope, nil
	}

	projects, err := c.projects.ListProjectsByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization projects: %w", err)
	}

	memberIDs, err := c.memberships.ListMemberProjectIDs(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	grantIDs, err := c.memberships.ListGrantedProjectIDs(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visibility grants: %w", err)
	}

	linked := make(map[string]bool, len(memberIDs)+len(grantIDs))
	for _, id := range memberIDs {
		linked[id] = true
	}
	for _, id := range grantIDs {
		linked[id] = true
	}

	for _, p := range projects {
		if p.Visibility == models.VisibilityAll || linked[p.ID] {
			scope[p.ID] = true
		}
	}

	return scope, nil
}

// InScope reports whether a single project is visible to the actor without
// materializing the full scope set.
func (c *ProjectScopeCalculator) InScope(ctx context.Context, actor ActorContext, project *models.Project) (bool, error) {
	if project.OrganizationID != actor.OrganizationID {
		return false, nil
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true, nil
	case models.RoleManager:
		return project.ManagerID != nil && *project.ManagerID == actor.UserID, nil
	}

	if project.Visibility == models.VisibilityAll {
		return true, nil
	}

	membership, err := c.memberships.GetMembership(ctx, project.ID, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if membership != nil {
		return true, nil
	}

	grantIDs, err := c.memberships.ListGrantedProjectIDs(ctx, actor.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check visibility grants: %w", err)
	}
	for _, id := range grantIDs {
		if id == project.ID {
			return true, nil
		}
	}

	return false, nil
}
