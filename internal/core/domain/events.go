package domain

import "time"

// IdentityRegisteredEvent represents the payload for estate.identity.registered messages.
type IdentityRegisteredEvent struct {
	EventID      string
	IdentityID   string
	Email        string
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// AccountSuspendedEvent represents the payload for estate.account.suspended messages.
type AccountSuspendedEvent struct {
	EventID     string
	IdentityID  string
	SuspendedBy string
	Reason      string
	Duration    SuspensionDuration
	ExpiresAt   *time.Time
	SuspendedAt time.Time
	Metadata    map[string]any
}

// SuspensionLiftedEvent represents the payload for estate.account.suspension_lifted messages.
type SuspensionLiftedEvent struct {
	EventID    string
	IdentityID string
	LiftedBy   string
	Reason     string
	LiftedAt   time.Time
	Metadata   map[string]any
}

// SuspensionAppealedEvent represents the payload for estate.account.suspension_appealed messages.
type SuspensionAppealedEvent struct {
	EventID    string
	IdentityID string
	Reason     string
	AppealedAt time.Time
	Metadata   map[string]any
}

// AccountLockedEvent represents the payload for estate.account.locked messages.
type AccountLockedEvent struct {
	EventID        string
	IdentityID     string
	FailedAttempts int
	LockedUntil    time.Time
	LockedAt       time.Time
	Metadata       map[string]any
}
