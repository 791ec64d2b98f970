package domain

import "time"

// DenyReason identifies why an identity may not authenticate or act.
type DenyReason string

const (
	DenyAccountDeleted    DenyReason = "ACCOUNT_DELETED"
	DenyAccountSuspended  DenyReason = "ACCOUNT_SUSPENDED"
	DenyAccountLocked     DenyReason = "ACCOUNT_LOCKED"
	DenyAdminNotOnboarded DenyReason = "ADMIN_NOT_ONBOARDED"
	DenyAdminNoAccess     DenyReason = "ADMIN_NO_ACCESS"
)

// StateDecision is the outcome of evaluating an identity's account state.
// RetryAfter is set only for locked accounts.
type StateDecision struct {
	Allowed    bool
	Reason     DenyReason
	RetryAfter time.Time
}

// EvaluateAccountState applies the account-state gate. The first matching
// condition wins, so an identity that is both deleted and suspended always
// reports deleted. A lock strictly in the past has expired and does not deny.
// The function is a pure read; it never mutates the identity.
func EvaluateAccountState(identity *Identity, now time.Time) StateDecision {
	if identity == nil {
		return StateDecision{Reason: DenyAccountDeleted}
	}

	switch {
	case identity.Deleted:
		return StateDecision{Reason: DenyAccountDeleted}
	case identity.Suspended:
		return StateDecision{Reason: DenyAccountSuspended}
	case identity.LockedUntil != nil && identity.LockedUntil.After(now):
		return StateDecision{Reason: DenyAccountLocked, RetryAfter: *identity.LockedUntil}
	}

	if ClassifyRole(string(identity.Role)).IsAdminClass() && identity.Admin != nil {
		if !identity.Admin.IsActivated {
			return StateDecision{Reason: DenyAdminNotOnboarded}
		}
		if identity.Admin.Access == AdminAccessNone {
			return StateDecision{Reason: DenyAdminNoAccess}
		}
	}

	return StateDecision{Allowed: true}
}
