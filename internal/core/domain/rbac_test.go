package domain

import (
	"testing"
)

func TestClassifyRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
	}{
		{"user", RoleUser},
		{"agent", RoleAgent},
		{"admin", RoleAdmin},
		{"creator", RoleCreator},
		{"superAdmin", RoleSuperAdmin},
		{"SUPERADMIN", RoleSuperAdmin},
		{"Admin", RoleAdmin},
		{"  agent  ", RoleAgent},
		{"", RoleUser},
		{"moderator", RoleUser},
		{"root", RoleUser},
	}

	for _, tc := range cases {
		if got := ClassifyRole(tc.raw); got != tc.want {
			t.Errorf("ClassifyRole(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestClassifyRoleIdempotent(t *testing.T) {
	for _, raw := range []string{"user", "agent", "admin", "creator", "superAdmin", "garbage", ""} {
		once := ClassifyRole(raw)
		twice := ClassifyRole(string(once))
		if once != twice {
			t.Errorf("classification not idempotent for %q: %s then %s", raw, once, twice)
		}
	}
}

func TestIsAdminClass(t *testing.T) {
	if RoleUser.IsAdminClass() || RoleAgent.IsAdminClass() {
		t.Fatal("user and agent must not be admin-class")
	}
	if !RoleAdmin.IsAdminClass() || !RoleCreator.IsAdminClass() || !RoleSuperAdmin.IsAdminClass() {
		t.Fatal("admin, creator, superAdmin must be admin-class")
	}
}

func TestSuperAdminHoldsFullCatalog(t *testing.T) {
	defaults := DefaultPermissions(RoleSuperAdmin)
	if len(defaults) != len(AllPermissions()) {
		t.Fatalf("superAdmin holds %d permissions, catalog has %d", len(defaults), len(AllPermissions()))
	}
	for _, p := range AllPermissions() {
		if !HasPermission(defaults, p) {
			t.Errorf("superAdmin missing %s", p)
		}
	}
}

func TestDefaultPermissionsPerRole(t *testing.T) {
	if DefaultPermissions(RoleUser) != nil {
		t.Error("user must have no default permissions")
	}
	if DefaultPermissions(RoleAgent) != nil {
		t.Error("agent must have no default permissions")
	}

	admin := DefaultPermissions(RoleAdmin)
	if !HasPermission(admin, PermUsersSuspend) {
		t.Error("admin defaults must include users.suspend")
	}
	if HasPermission(admin, PermNewslettersSend) {
		t.Error("admin defaults must not include newsletters.send")
	}
	if HasPermission(admin, PermAdminsManage) {
		t.Error("admin defaults must not include admins.manage")
	}

	creator := DefaultPermissions(RoleCreator)
	if !HasPermission(creator, PermNewslettersSend) {
		t.Error("creator defaults must include newsletters.send")
	}
	if HasPermission(creator, PermUsersView) {
		t.Error("creator defaults must not include users.view")
	}
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	first := DefaultPermissions(RoleCreator)
	first[0] = Permission("tampered")

	second := DefaultPermissions(RoleCreator)
	for _, p := range second {
		if p == Permission("tampered") {
			t.Fatal("mutating a returned set must not affect the catalog")
		}
	}
}

func TestMustPermissionPanicsOnUnknownToken(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown permission")
		}
	}()
	MustPermission(Permission("listings.teleport"))
}

func TestHasPermissionPanicsOnUnknownRequirement(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown required permission")
		}
	}()
	HasPermission([]Permission{PermBlogsView}, Permission("blogs.fly"))
}

func TestEffectivePermissions(t *testing.T) {
	t.Run("nil identity", func(t *testing.T) {
		if EffectivePermissions(nil) != nil {
			t.Fatal("expected nil set for nil identity")
		}
	})

	t.Run("non admin-class", func(t *testing.T) {
		user := &Identity{Role: RoleUser}
		if EffectivePermissions(user) != nil {
			t.Fatal("expected nil set for plain user")
		}
	})

	t.Run("defaults without profile override", func(t *testing.T) {
		admin := &Identity{
			Role:  RoleAdmin,
			Admin: &AdminProfile{IsActivated: true, Access: AdminAccessFull},
		}
		set := EffectivePermissions(admin)
		if !HasPermission(set, PermUsersManage) {
			t.Fatal("expected admin defaults")
		}
	})

	t.Run("no_access empties the set", func(t *testing.T) {
		admin := &Identity{
			Role:  RoleSuperAdmin,
			Admin: &AdminProfile{IsActivated: true, Access: AdminAccessNone},
		}
		if set := EffectivePermissions(admin); len(set) != 0 {
			t.Fatalf("expected empty set for no_access, got %d entries", len(set))
		}
	})

	t.Run("override replaces defaults", func(t *testing.T) {
		admin := &Identity{
			Role: RoleAdmin,
			Admin: &AdminProfile{
				IsActivated: true,
				Access:      AdminAccessLimited,
				Permissions: []Permission{PermBlogsView, PermNewslettersView},
			},
		}
		set := EffectivePermissions(admin)
		if !HasPermission(set, PermNewslettersView) {
			t.Fatal("expected override-granted permission")
		}
		if HasPermission(set, PermUsersSuspend) {
			t.Fatal("override must replace defaults, not merge")
		}
	})

	t.Run("unknown tokens in stored override are dropped", func(t *testing.T) {
		admin := &Identity{
			Role: RoleAdmin,
			Admin: &AdminProfile{
				IsActivated: true,
				Access:      AdminAccessFull,
				Permissions: []Permission{PermBlogsView, Permission("legacy.token")},
			},
		}
		set := EffectivePermissions(admin)
		if len(set) != 1 || set[0] != PermBlogsView {
			t.Fatalf("expected only the known token to survive, got %v", set)
		}
	})
}
