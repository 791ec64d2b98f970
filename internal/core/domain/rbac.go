package domain

import (
	"fmt"
	"strings"
)

// Role is one of the five canonical marketplace roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleAgent      Role = "agent"
	RoleAdmin      Role = "admin"
	RoleCreator    Role = "creator"
	RoleSuperAdmin Role = "superAdmin"
)

// ClassifyRole normalizes an arbitrary role string into a canonical role.
// Matching is case-insensitive; anything unrecognized collapses to RoleUser so
// that unknown input can never confer elevated treatment.
func ClassifyRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "agent":
		return RoleAgent
	case "admin":
		return RoleAdmin
	case "creator":
		return RoleCreator
	case "superadmin":
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// IsAdminClass reports whether the role is subject to permission-token checks.
// user and agent are gated by role equality and account state only.
func (r Role) IsAdminClass() bool {
	switch r {
	case RoleAdmin, RoleCreator, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// Permission is an opaque token from the closed catalog, namespaced as
// resource.action or resource.action.own.
type Permission string

const (
	PermVerificationsView    Permission = "verifications.view"
	PermVerificationsApprove Permission = "verifications.approve"
	PermVerificationsReject  Permission = "verifications.reject"

	PermInspectionsView   Permission = "inspections.view"
	PermInspectionsManage Permission = "inspections.manage"

	PermApartmentsView   Permission = "apartments.view"
	PermApartmentsCreate Permission = "apartments.create"
	PermApartmentsUpdate Permission = "apartments.update"
	PermApartmentsDelete Permission = "apartments.delete"

	PermBlogsView      Permission = "blogs.view"
	PermBlogsCreate    Permission = "blogs.create"
	PermBlogsUpdate    Permission = "blogs.update"
	PermBlogsDelete    Permission = "blogs.delete"
	PermBlogsUpdateOwn Permission = "blogs.update.own"
	PermBlogsDeleteOwn Permission = "blogs.delete.own"

	PermNewslettersView Permission = "newsletters.view"
	PermNewslettersSend Permission = "newsletters.send"

	PermUsersView    Permission = "users.view"
	PermUsersDelete  Permission = "users.delete"
	PermUsersManage  Permission = "users.manage"
	PermUsersSuspend Permission = "users.suspend"

	PermTransactionsView Permission = "transactions.view"

	PermAdminsManage Permission = "admins.manage"
)

// allPermissions is the full, closed catalog. superAdmin holds exactly this set.
var allPermissions = []Permission{
	PermVerificationsView,
	PermVerificationsApprove,
	PermVerificationsReject,
	PermInspectionsView,
	PermInspectionsManage,
	PermApartmentsView,
	PermApartmentsCreate,
	PermApartmentsUpdate,
	PermApartmentsDelete,
	PermBlogsView,
	PermBlogsCreate,
	PermBlogsUpdate,
	PermBlogsDelete,
	PermBlogsUpdateOwn,
	PermBlogsDeleteOwn,
	PermNewslettersView,
	PermNewslettersSend,
	PermUsersView,
	PermUsersDelete,
	PermUsersManage,
	PermUsersSuspend,
	PermTransactionsView,
	PermAdminsManage,
}

var catalog = func() map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(allPermissions))
	for _, p := range allPermissions {
		set[p] = struct{}{}
	}
	return set
}()

var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: allPermissions,
	RoleAdmin: {
		PermVerificationsView,
		PermVerificationsApprove,
		PermVerificationsReject,
		PermInspectionsView,
		PermInspectionsManage,
		PermApartmentsView,
		PermApartmentsCreate,
		PermApartmentsUpdate,
		PermApartmentsDelete,
		PermBlogsView,
		PermBlogsCreate,
		PermBlogsUpdateOwn,
		PermBlogsDeleteOwn,
		PermUsersView,
		PermUsersDelete,
		PermUsersManage,
		PermUsersSuspend,
	},
	RoleCreator: {
		PermBlogsView,
		PermBlogsCreate,
		PermBlogsUpdate,
		PermBlogsDelete,
		PermBlogsUpdateOwn,
		PermBlogsDeleteOwn,
		PermNewslettersView,
		PermNewslettersSend,
	},
}

// AllPermissions returns a copy of the full permission catalog.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// IsKnownPermission reports whether the token belongs to the catalog.
func IsKnownPermission(p Permission) bool {
	_, ok := catalog[p]
	return ok
}

// MustPermission asserts the token belongs to the catalog. Requesting a
// permission outside the catalog is a programming error, not a runtime denial.
func MustPermission(p Permission) Permission {
	if !IsKnownPermission(p) {
		panic(fmt.Sprintf("rbac: unknown permission %q", p))
	}
	return p
}

// DefaultPermissions returns a copy of the role's default permission set.
// user and agent have no catalog entries and yield nil.
func DefaultPermissions(role Role) []Permission {
	defaults, ok := rolePermissions[ClassifyRole(string(role))]
	if !ok {
		return nil
	}
	out := make([]Permission, len(defaults))
	copy(out, defaults)
	return out
}

// HasPermission reports whether required is contained in the effective set.
func HasPermission(effective []Permission, required Permission) bool {
	MustPermission(required)
	for _, p := range effective {
		if p == required {
			return true
		}
	}
	return false
}

// EffectivePermissions computes the permission set available to the identity
// right now. Admin-class roles start from their role defaults; a no_access
// admin has nothing regardless of role, and an explicit AdminPermissions list
// replaces the defaults entirely rather than merging with them. Unknown tokens
// found in a stored override are dropped rather than honored.
func EffectivePermissions(identity *Identity) []Permission {
	if identity == nil {
		return nil
	}

	role := ClassifyRole(string(identity.Role))
	if !role.IsAdminClass() {
		return nil
	}

	if admin := identity.Admin; admin != nil {
		if admin.Access == AdminAccessNone {
			return nil
		}
		if len(admin.Permissions) > 0 {
			out := make([]Permission, 0, len(admin.Permissions))
			for _, p := range admin.Permissions {
				if IsKnownPermission(p) {
					out = append(out, p)
				}
			}
			return out
		}
	}

	return DefaultPermissions(role)
}
