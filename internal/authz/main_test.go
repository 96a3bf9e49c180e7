package authz

import (
	"context"

	"github.com/taskhub/taskhub/internal/db/models"
)

// ---------------------------------------------------------------------------
// In-memory store fakes
// ---------------------------------------------------------------------------

type fakeStore struct {
	projects    map[string]*models.Project
	memberships map[string][]string // projectID -> userIDs with member/manager rows
	grants      map[string][]string // projectID -> userIDs with visibility grants
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:    make(map[string]*models.Project),
		memberships: make(map[string][]string),
		grants:      make(map[string][]string),
	}
}

func (s *fakeStore) GetProjectByID(_ context.Context, projectID string) (*models.Project, error) {
	return s.projects[projectID], nil
}

func (s *fakeStore) ListProjectsByOrganization(_ context.Context, orgID string) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range s.projects {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListProjectsByManager(_ context.Context, managerID string) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range s.projects {
		if p.ManagerID != nil && *p.ManagerID == managerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetMembership(_ context.Context, projectID, userID string) (*models.ProjectMembership, error) {
	for _, uid := range s.memberships[projectID] {
		if uid == userID {
			return &models.ProjectMembership{ProjectID: projectID, UserID: userID, Kind: models.MembershipKindMember}, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListMemberProjectIDs(_ context.Context, userID string) ([]string, error) {
	var out []string
	for projectID, userIDs := range s.memberships {
		for _, uid := range userIDs {
			if uid == userID {
				out = append(out, projectID)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) ListGrantedProjectIDs(_ context.Context, userID string) ([]string, error) {
	var out []string
	for projectID, userIDs := range s.grants {
		for _, uid := range userIDs {
			if uid == userID {
				out = append(out, projectID)
			}
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Shared fixtures
// ---------------------------------------------------------------------------

func strPtr(s string) *string { return &s }

func admin() ActorContext {
	return ActorContext{OrganizationID: "org-1", UserID: "admin-1", Role: models.RoleAdmin}
}

func manager() ActorContext {
	return ActorContext{OrganizationID: "org-1", UserID: "mgr-1", Role: models.RoleManager}
}

func member(userID string) ActorContext {
	return ActorContext{OrganizationID: "org-1", UserID: userID, Role: models.RoleMember}
}

func openProject(id string) *models.Project {
	return &models.Project{
		ID:             id,
		OrganizationID: "org-1",
		Name:           "Open Project",
		Status:         models.ProjectStatusActive,
		Visibility:     models.VisibilityAll,
	}
}

func restrictedProject(id string) *models.Project {
	return &models.Project{
		ID:             id,
		OrganizationID: "org-1",
		Name:           "Restricted Project",
		Status:         models.ProjectStatusActive,
		Visibility:     models.VisibilitySpecific,
	}
}
