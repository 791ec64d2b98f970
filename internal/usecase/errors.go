package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput indicates a structurally invalid request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials indicates the email or password is incorrect. It
	// deliberately does not distinguish an unknown email from a bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates too many failed logins; see LockedError.
	ErrAccountLocked = errors.New("account is locked")
	// ErrAccountSuspended indicates the account is under an active suspension.
	ErrAccountSuspended = errors.New("account is suspended")
	// ErrAccountDeleted indicates the account was soft-deleted.
	ErrAccountDeleted = errors.New("account no longer exists")
	// ErrForbidden indicates the caller lacks the required role or permission.
	ErrForbidden = errors.New("forbidden")
	// ErrAdminNoAccess indicates an admin-class account with dashboard access revoked.
	ErrAdminNoAccess = errors.New("admin access has been revoked")
	// ErrAdminNotOnboarded indicates an admin-class account that has not completed activation.
	ErrAdminNotOnboarded = errors.New("admin account is not activated")
	// ErrStoreUnavailable indicates the identity store could not be reached.
	ErrStoreUnavailable = errors.New("identity store unavailable")
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCode indicates a wrong or expired one-time code.
	ErrInvalidCode = errors.New("invalid or expired code")
	// ErrTooManyAttempts indicates the one-time code attempt cap was reached.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrNoActiveSuspension indicates a lift or appeal without a suspension in effect.
	ErrNoActiveSuspension = errors.New("no active suspension")
	// ErrAlreadySuspended indicates a suspend request against an already suspended identity.
	ErrAlreadySuspended = errors.New("identity is already suspended")
)

// LockedError carries the lock expiry alongside ErrAccountLocked so callers
// can emit a Retry-After hint. errors.Is(err, ErrAccountLocked) matches it.
type LockedError struct {
	RetryAfter time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.RetryAfter.UTC().Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
