package domain

import "time"

// AdminAccess enumerates dashboard access levels for admin-class identities.
type AdminAccess string

const (
	AdminAccessFull    AdminAccess = "full_access"
	AdminAccessLimited AdminAccess = "limited_access"
	AdminAccessNone    AdminAccess = "no_access"
)

// Identity mirrors the persisted representation in the identities table.
// Role and account state are always re-read from storage per request; a
// session token is only a pointer to this record, never a capability cache.
type Identity struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           Role
	Verified       bool
	Deleted        bool
	Suspended      bool
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	LastLogin      *time.Time

	// Role extension: at most one profile is set, matching the role class.
	Agent *AgentProfile
	Admin *AdminProfile
}

// AgentProfile carries agent-specific extension fields.
type AgentProfile struct {
	IdentityID    string
	Agency        string
	LicenseNumber *string
	Verified      bool
}

// AdminProfile carries the richer dashboard sub-state for elevated roles.
// Permissions, when non-empty, is an explicit override of the role defaults.
type AdminProfile struct {
	IdentityID    string
	IsActive      bool
	IsActivated   bool
	IsSuspended   bool
	Access        AdminAccess
	Permissions   []Permission
	LockUntil     *time.Time
	OTPHash       *string
	OTPExpiresAt  *time.Time
	DeactivatedAt *time.Time
	DeactivatedBy *string
}

// SessionClaim is the minimal authenticated context issued at login: an
// identity pointer plus the role at issuance time. Permissions are never
// embedded so that revocation takes effect on the next request.
type SessionClaim struct {
	IdentityID string
	Role       Role
}

// SuspensionDuration categorizes how long a suspension window lasts.
type SuspensionDuration string

const (
	Suspension24Hours    SuspensionDuration = "24_hours"
	Suspension3Days      SuspensionDuration = "3_days"
	Suspension7Days      SuspensionDuration = "7_days"
	Suspension30Days     SuspensionDuration = "30_days"
	SuspensionIndefinite SuspensionDuration = "indefinite"
)

// Window returns the wall-clock length of the category; zero means indefinite.
func (d SuspensionDuration) Window() time.Duration {
	switch d {
	case Suspension24Hours:
		return 24 * time.Hour
	case Suspension3Days:
		return 3 * 24 * time.Hour
	case Suspension7Days:
		return 7 * 24 * time.Hour
	case Suspension30Days:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// SuspensionAction enumerates entries in an identity's suspension history.
type SuspensionAction string

const (
	SuspensionActionSuspend SuspensionAction = "suspend"
	SuspensionActionAppeal  SuspensionAction = "appeal"
	SuspensionActionLift    SuspensionAction = "lift"
)

// SuspensionRecord is an append-only entry in the suspension history.
// At most one record per identity is active at a time.
type SuspensionRecord struct {
	ID         string
	IdentityID string
	Action     SuspensionAction
	Actor      string
	Reason     string
	Duration   SuspensionDuration
	ExpiresAt  *time.Time
	Active     bool
	CreatedAt  time.Time
}
