package usecase

import (
	"time"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

// DenyForbidden is the catch-all denial for role or permission mismatches.
// Admin onboarding and access gates also collapse into it: a request guard
// never reveals why an elevated account was refused, only the login flow does.
const DenyForbidden domain.DenyReason = "FORBIDDEN"

// Decision is the outcome of an authorization guard. It is a value, not an
// error: a denied request is a normal result, not a fault.
type Decision struct {
	Allowed    bool
	Reason     domain.DenyReason
	RetryAfter time.Time
}

// Allow is the affirmative decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny produces a denial with the given reason.
func Deny(reason domain.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err maps a denial onto the matching sentinel error for callers that treat
// authorization inline rather than at the transport boundary.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}

	switch d.Reason {
	case domain.DenyAccountDeleted:
		return ErrAccountDeleted
	case domain.DenyAccountSuspended:
		return ErrAccountSuspended
	case domain.DenyAccountLocked:
		return &LockedError{RetryAfter: d.RetryAfter}
	default:
		return ErrForbidden
	}
}

// GuardRole admits the identity when its classified role matches any of the
// allowed roles. The account-state gate always runs first, so a suspended
// admin is reported as suspended, not as role-mismatched.
func GuardRole(identity *domain.Identity, now time.Time, allowed ...domain.Role) Decision {
	if identity == nil {
		return Deny(DenyForbidden)
	}

	if decision := guardState(identity, now); !decision.Allowed {
		return decision
	}

	role := domain.ClassifyRole(string(identity.Role))
	for _, candidate := range allowed {
		if role == candidate {
			return Allow()
		}
	}

	return Deny(DenyForbidden)
}

// GuardPermission admits the identity when the required permission is in its
// effective set. Requiring a permission outside the catalog panics; non
// admin-class roles have an empty effective set and are always denied.
func GuardPermission(identity *domain.Identity, now time.Time, required domain.Permission) Decision {
	domain.MustPermission(required)

	if identity == nil {
		return Deny(DenyForbidden)
	}

	if decision := guardState(identity, now); !decision.Allowed {
		return decision
	}

	if domain.HasPermission(domain.EffectivePermissions(identity), required) {
		return Allow()
	}

	return Deny(DenyForbidden)
}

// guardState maps the account-state evaluation into a guard decision.
// Deleted, suspended, and locked keep their specific reasons; the admin
// onboarding and access gates degrade to the generic denial.
func guardState(identity *domain.Identity, now time.Time) Decision {
	state := domain.EvaluateAccountState(identity, now)
	if state.Allowed {
		return Allow()
	}

	switch state.Reason {
	case domain.DenyAdminNotOnboarded, domain.DenyAdminNoAccess:
		return Deny(DenyForbidden)
	case domain.DenyAccountLocked:
		return Decision{Reason: state.Reason, RetryAfter: state.RetryAfter}
	default:
		return Deny(state.Reason)
	}
}
