package gate

import (
	"testing"

	"reflectify/server/internal/model"
)

func profileWithRole(role model.Role) *model.Profile {
	return &model.Profile{UserID: "user-1", Role: role}
}

func TestResolveAccessNeverRedirectsWhileLoading(t *testing.T) {
	route := Route{Path: "/teacher", Allowed: []model.Role{model.RoleTeacher, model.RoleAdmin}}

	// Sequence of session states during an initial load: the only decision
	// that may carry a redirect is the final, resolved one.
	states := []Session{
		{Loading: true},
		{Loading: true, UserID: "user-1"},
		{UserID: "user-1", Profile: profileWithRole(model.RoleTeacher)},
	}
	for i, sess := range states[:2] {
		dec := ResolveAccess(sess, route)
		if dec.Action != ActionWait {
			t.Fatalf("state %d: expected wait while loading, got %v", i, dec.Action)
		}
		if dec.Target != "" {
			t.Fatalf("state %d: unexpected redirect target %s", i, dec.Target)
		}
	}
	if dec := ResolveAccess(states[2], route); dec.Action != ActionRender {
		t.Fatalf("expected render once resolved, got %v", dec.Action)
	}
}

func TestResolveAccessAnonymousRedirectsToLogin(t *testing.T) {
	dec := ResolveAccess(Session{}, Route{Path: "/"})
	if dec.Action != ActionRedirect || dec.Target != LoginPath {
		t.Fatalf("expected redirect to %s, got %+v", LoginPath, dec)
	}
}

func TestResolveAccessUnauthorizedRedirectsToRoot(t *testing.T) {
	route := Route{Path: "/teacher", Allowed: []model.Role{model.RoleTeacher, model.RoleAdmin}}
	sess := Session{UserID: "user-1", Profile: profileWithRole(model.RoleStudent)}

	dec := ResolveAccess(sess, route)
	if dec.Action != ActionRedirect || dec.Target != RootPath {
		t.Fatalf("expected silent redirect to root, got %+v", dec)
	}
}

func TestResolveAccessWaitsForProfileOnGatedRoute(t *testing.T) {
	route := Route{Path: "/analytics", Allowed: []model.Role{model.RoleTeacher}}
	dec := ResolveAccess(Session{UserID: "user-1"}, route)
	if dec.Action != ActionWait {
		t.Fatalf("expected wait while profile unresolved, got %v", dec.Action)
	}
}

func TestResolveAccessEmptyAllowListAdmitsAnyRole(t *testing.T) {
	for _, role := range []model.Role{model.RoleStudent, model.RoleTeacher, model.RoleAdmin} {
		sess := Session{UserID: "user-1", Profile: profileWithRole(role)}
		if dec := ResolveAccess(sess, Route{Path: "/"}); dec.Action != ActionRender {
			t.Fatalf("role %s: expected render on ungated route, got %v", role, dec.Action)
		}
	}
}

func TestNewTableRejectsRoleGatedRoot(t *testing.T) {
	_, err := NewTable([]Route{
		{Path: "/", Feature: "dashboard", Allowed: []model.Role{model.RoleAdmin}},
	})
	if err == nil {
		t.Fatalf("expected role-gated root route to be rejected")
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Route{
		{Path: "/journal", Feature: "journal"},
		{Path: "/journal", Feature: "journal"},
	})
	if err == nil {
		t.Fatalf("expected duplicate route to be rejected")
	}
}

func TestTableLookup(t *testing.T) {
	table, err := NewTable([]Route{
		{Path: "/", Feature: "dashboard"},
		{Path: "/journal", Feature: "journal", Allowed: []model.Role{model.RoleStudent}},
	})
	if err != nil {
		t.Fatalf("table error: %v", err)
	}
	route, ok := table.Lookup("/journal")
	if !ok || route.Feature != "journal" {
		t.Fatalf("expected journal route, got %+v ok=%v", route, ok)
	}
	if _, ok := table.Lookup("/missing"); ok {
		t.Fatalf("expected miss for unknown path")
	}
}

func TestSelectDashboardExhaustive(t *testing.T) {
	cases := map[model.Role]Dashboard{
		model.RoleStudent: DashboardStudent,
		model.RoleTeacher: DashboardTeacher,
		model.RoleAdmin:   DashboardAdmin,
	}
	for role, expect := range cases {
		dashboard, err := SelectDashboard(role)
		if err != nil {
			t.Fatalf("role %s: unexpected error %v", role, err)
		}
		if dashboard != expect {
			t.Fatalf("role %s: expected %s, got %s", role, expect, dashboard)
		}
	}
	if _, err := SelectDashboard(model.Role("ghost")); err == nil {
		t.Fatalf("expected unknown role to error")
	}
}
