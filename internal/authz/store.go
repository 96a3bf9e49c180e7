// store.go declares the narrow read-only store surface the resolver and scope
// calculator depend on. The repositories satisfy these interfaces; tests supply
// in-memory fakes.
package authz

import (
	"context"

	"github.com/taskhub/taskhub/internal/db/models"
)

// ProjectReader provides the project reads needed for scope resolution
type ProjectReader interface {
	GetProjectByID(ctx context.Context, projectID string) (*models.Project, error)
	ListProjectsByOrganization(ctx context.Context, orgID string) ([]*models.Project, error)
	ListProjectsByManager(ctx context.Context, managerID string) ([]*models.Project, error)
}

// MembershipReader provides the membership and grant reads needed for scope resolution
type MembershipReader interface {
	GetMembership(ctx context.Context, projectID, userID string) (*models.ProjectMembership, error)
	ListMemberProjectIDs(ctx context.Context, userID string) ([]string, error)
	ListGrantedProjectIDs(ctx context.Context, userID string) ([]string, error)
}
