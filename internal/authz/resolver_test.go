package authz

import (
	"context"
	"testing"

	"github.com/taskhub/taskhub/internal/db/models"
)

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func TestResolveProject_CrossTenantDeniedForAdmin(t *testing.T) {
	store := newFakeStore()
	foreign := openProject("x")
	foreign.OrganizationID = "org-2"

	resolver := NewPermissionResolver(store, store)
	d, err := resolver.ResolveProject(context.Background(), admin(), foreign, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("cross-tenant access must be denied")
	}
	if d.Reason != ReasonCrossTenant {
		t.Errorf("Reason = %s, want cross_tenant", d.Reason)
	}
}

func TestResolveProject_ManagerNeverDeletes(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-1")
	store.projects["p"] = p

	resolver := NewPermissionResolver(store, store)

	// The manager may edit their own project but never delete it.
	d, err := resolver.ResolveProject(context.Background(), manager(), p, ActionEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("assigned manager should be able to edit")
	}

	d, err = resolver.ResolveProject(context.Background(), manager(), p, ActionDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("manager delete must be denied")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Errorf("Reason = %s, want insufficient_role", d.Reason)
	}
}

func TestResolveProject_TeamAssignmentIsAdminOnly(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-1")
	store.projects["p"] = p

	resolver := NewPermissionResolver(store, store)

	// Even the assigned manager cannot rewrite the team.
	d, err := resolver.ResolveProject(context.Background(), manager(), p, ActionAssign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("manager team assignment must be denied")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Errorf("Reason = %s, want insufficient_role", d.Reason)
	}

	d, err = resolver.ResolveProject(context.Background(), admin(), p, ActionAssign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("admin team assignment should be allowed")
	}
}

func TestResolveProject_ManagerNotAssigned(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-2")
	store.projects["p"] = p

	resolver := NewPermissionResolver(store, store)
	d, err := resolver.ResolveProject(context.Background(), manager(), p, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("unassigned manager must be denied")
	}
	if d.Reason != ReasonNotAssigned {
		t.Errorf("Reason = %s, want not_assigned", d.Reason)
	}
}

func TestResolveProject_MemberViewViaScope(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	store.projects["p"] = p
	q := restrictedProject("q")
	store.projects["q"] = q

	resolver := NewPermissionResolver(store, store)

	d, err := resolver.ResolveProject(context.Background(), member("u1"), p, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("member should see open-visibility project")
	}

	d, err = resolver.ResolveProject(context.Background(), member("u1"), q, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("member without grant or membership should not see restricted project")
	}

	d, err = resolver.ResolveProject(context.Background(), member("u1"), p, ActionEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("member must never edit a project")
	}
}

func TestResolveProject_NilIsNotFound(t *testing.T) {
	store := newFakeStore()
	resolver := NewPermissionResolver(store, store)
	d, err := resolver.ResolveProject(context.Background(), admin(), nil, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || d.Reason != ReasonNotFound {
		t.Errorf("decision = %+v, want Deny(not_found)", d)
	}
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func sampleTask(projectID, assigneeID string) *models.Task {
	task := &models.Task{
		ID:             "task-1",
		OrganizationID: "org-1",
		ProjectID:      projectID,
		Title:          "Fix login bug",
		Status:         models.TaskStatusInProgress,
	}
	if assigneeID != "" {
		task.AssigneeID = &assigneeID
	}
	return task
}

func TestResolveTask_MemberStatusOnlyEdit(t *testing.T) {
	store := newFakeStore()
	store.projects["p"] = openProject("p")

	resolver := NewPermissionResolver(store, store)
	task := sampleTask("p", "u1")

	d, err := resolver.ResolveTask(context.Background(), member("u1"), task, ActionEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Fatal("assignee should be able to edit own task")
	}
	if !d.StatusOnly {
		t.Error("member edit must be restricted to status")
	}

	// Viewing carries no field restriction.
	d, err = resolver.ResolveTask(context.Background(), member("u1"), task, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.StatusOnly {
		t.Errorf("view decision = %+v, want unrestricted Allow", d)
	}
}

func TestResolveTask_MemberDeniedForUnassignedTask(t *testing.T) {
	store := newFakeStore()
	store.projects["p"] = openProject("p")

	resolver := NewPermissionResolver(store, store)
	task := sampleTask("p", "u2")

	d, err := resolver.ResolveTask(context.Background(), member("u1"), task, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("member should not see a task assigned to someone else")
	}
}

func TestResolveTask_ManagerScopedToManagedProjects(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-1")
	store.projects["p"] = p
	q := openProject("q")
	q.ManagerID = strPtr("mgr-2")
	store.projects["q"] = q

	resolver := NewPermissionResolver(store, store)

	d, err := resolver.ResolveTask(context.Background(), manager(), sampleTask("p", "u1"), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("manager should see tasks in managed project")
	}

	d, err = resolver.ResolveTask(context.Background(), manager(), sampleTask("q", "u1"), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("manager should not see tasks in another manager's project")
	}
	if d.Reason != ReasonNotAssigned {
		t.Errorf("Reason = %s, want not_assigned", d.Reason)
	}
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

func sampleDocument(projectID *string, uploaderID string) *models.Document {
	return &models.Document{
		ID:             "doc-1",
		OrganizationID: "org-1",
		ProjectID:      projectID,
		UploaderID:     uploaderID,
		FileName:       "plan.pdf",
		IsActive:       true,
	}
}

func TestResolveDocument_UploaderAlwaysFull(t *testing.T) {
	store := newFakeStore()
	resolver := NewPermissionResolver(store, store)
	doc := sampleDocument(nil, "u1")

	for _, action := range []Action{ActionView, ActionEdit, ActionDelete} {
		d, err := resolver.ResolveDocument(context.Background(), member("u1"), doc, action)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !d.Allowed {
			t.Errorf("uploader denied %s on own document", action)
		}
	}
}

func TestResolveDocument_UnattachedVisibleOrgWide(t *testing.T) {
	store := newFakeStore()
	resolver := NewPermissionResolver(store, store)
	doc := sampleDocument(nil, "u2")

	d, err := resolver.ResolveDocument(context.Background(), member("u1"), doc, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("unattached document should be viewable by any org member")
	}

	d, err = resolver.ResolveDocument(context.Background(), member("u1"), doc, ActionDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("unattached document should be deletable only by uploader or admin")
	}
}

func TestResolveDocument_ManagerOnManagedProject(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-1")
	store.projects["p"] = p

	resolver := NewPermissionResolver(store, store)
	projectID := "p"
	doc := sampleDocument(&projectID, "u2")

	d, err := resolver.ResolveDocument(context.Background(), manager(), doc, ActionDelete)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("manager should control documents on managed project")
	}
}

func TestResolveDocument_MemberViewOnlyInScope(t *testing.T) {
	store := newFakeStore()
	q := restrictedProject("q")
	store.projects["q"] = q
	store.memberships["q"] = []string{"u1"}

	resolver := NewPermissionResolver(store, store)
	projectID := "q"
	doc := sampleDocument(&projectID, "u2")

	d, err := resolver.ResolveDocument(context.Background(), member("u1"), doc, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("project teammate should view project document")
	}

	d, err = resolver.ResolveDocument(context.Background(), member("u1"), doc, ActionEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("member must never edit another user's document")
	}
}

// ---------------------------------------------------------------------------
// Daily reports
// ---------------------------------------------------------------------------

func sampleReport(userID string, projectID *string, toManager, toAdmin bool) *models.DailyReport {
	return &models.DailyReport{
		ID:               "rep-1",
		OrganizationID:   "org-1",
		UserID:           userID,
		ProjectID:        projectID,
		VisibleToManager: toManager,
		VisibleToAdmin:   toAdmin,
	}
}

func TestResolveReport_SubmitterAlwaysFull(t *testing.T) {
	store := newFakeStore()
	resolver := NewPermissionResolver(store, store)
	report := sampleReport("u1", nil, false, false)

	d, err := resolver.ResolveReport(context.Background(), member("u1"), report, ActionEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("submitter should always control own report")
	}
}

func TestResolveReport_AdminGatedByFlag(t *testing.T) {
	store := newFakeStore()
	resolver := NewPermissionResolver(store, store)

	d, err := resolver.ResolveReport(context.Background(), admin(), sampleReport("u1", nil, true, false), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("admin should not see report without visible_to_admin")
	}

	d, err = resolver.ResolveReport(context.Background(), admin(), sampleReport("u1", nil, false, true), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("admin should see report with visible_to_admin")
	}
}

func TestResolveReport_ManagerViaManagedProject(t *testing.T) {
	store := newFakeStore()
	p := openProject("p")
	p.ManagerID = strPtr("mgr-1")
	store.projects["p"] = p

	resolver := NewPermissionResolver(store, store)
	projectID := "p"
	report := sampleReport("u1", &projectID, false, false)

	d, err := resolver.ResolveReport(context.Background(), manager(), report, ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("manager of the report's project should see it despite flags")
	}
}

func TestResolveReport_MemberSharedProjectTeam(t *testing.T) {
	store := newFakeStore()
	store.projects["p"] = openProject("p")
	store.memberships["p"] = []string{"u1", "u2"}

	resolver := NewPermissionResolver(store, store)
	projectID := "p"

	d, err := resolver.ResolveReport(context.Background(), member("u2"), sampleReport("u1", &projectID, true, false), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("teammate should see manager-visible project report")
	}

	// Without the manager-visibility flag the teammate sees nothing.
	d, err = resolver.ResolveReport(context.Background(), member("u2"), sampleReport("u1", &projectID, false, true), ActionView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Error("admin-visibility flag must not open a report to members")
	}
}

// ---------------------------------------------------------------------------
// Role changes
// ---------------------------------------------------------------------------

func targetUser(id, role string) *models.User {
	return &models.User{ID: id, OrganizationID: "org-1", Role: role}
}

func TestResolveRoleChange_ManagerCannotMintAdmin(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(manager(), targetUser("u1", models.RoleMember), models.RoleAdmin)
	if d.Allowed {
		t.Fatal("manager must not set any role to admin")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Errorf("Reason = %s, want insufficient_role", d.Reason)
	}
}

func TestResolveRoleChange_ManagerCannotTouchAdmin(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())

	// Demoting an admin is the dangerous path: the new role is not admin and
	// the target is not a manager, so only the admin-target guard catches it.
	d := resolver.ResolveRoleChange(manager(), targetUser("admin-1", models.RoleAdmin), models.RoleMember)
	if d.Allowed {
		t.Fatal("manager must not change an admin's role")
	}
	if d.Reason != ReasonInsufficientRole {
		t.Errorf("Reason = %s, want insufficient_role", d.Reason)
	}

	// Same-role writes on an admin account are acting on an admin too.
	d = resolver.ResolveRoleChange(manager(), targetUser("admin-1", models.RoleAdmin), models.RoleAdmin)
	if d.Allowed {
		t.Error("manager must not act on an admin account at all")
	}
}

func TestResolveRoleChange_ManagerCannotTouchOtherManager(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(manager(), targetUser("mgr-2", models.RoleManager), models.RoleMember)
	if d.Allowed {
		t.Error("manager must not change another manager's role")
	}
}

func TestResolveRoleChange_ManagerCannotPromoteToManager(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(manager(), targetUser("u1", models.RoleMember), models.RoleManager)
	if d.Allowed {
		t.Error("manager must not promote a member to manager")
	}
}

func TestResolveRoleChange_ManagerMayDemoteMember(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(manager(), targetUser("u1", models.RoleMember), models.RoleMember)
	if !d.Allowed {
		t.Error("manager should be able to edit a member's role within bounds")
	}
}

func TestResolveRoleChange_AdminUnrestricted(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(admin(), targetUser("mgr-2", models.RoleManager), models.RoleAdmin)
	if !d.Allowed {
		t.Error("admin should be unrestricted within the organization")
	}
}

func TestResolveRoleChange_NoSelfAdminDemotion(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	d := resolver.ResolveRoleChange(admin(), targetUser("admin-1", models.RoleAdmin), models.RoleMember)
	if d.Allowed {
		t.Error("an admin must not demote themselves out of admin")
	}
}

func TestResolveRoleChange_CrossTenant(t *testing.T) {
	resolver := NewPermissionResolver(newFakeStore(), newFakeStore())
	target := targetUser("u1", models.RoleMember)
	target.OrganizationID = "org-2"
	d := resolver.ResolveRoleChange(admin(), target, models.RoleManager)
	if d.Allowed || d.Reason != ReasonCrossTenant {
		t.Errorf("decision = %+v, want Deny(cross_tenant)", d)
	}
}
