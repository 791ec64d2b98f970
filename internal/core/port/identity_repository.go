package port

import (
	"context"
	"time"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

// IdentityFilter narrows identity listings.
type IdentityFilter struct {
	Role      domain.Role
	Suspended *bool
	Deleted   *bool
	Limit     int
	Offset    int
}

// LockoutResult reports the outcome of an atomic failed-attempt increment.
type LockoutResult struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// IdentityRepository exposes persistence behavior for identities. Lookups by
// email operate on the stored lowercase form. RecordFailedAttempt must be a
// single conditional update keyed by identity id so that concurrent failed
// logins never under-count the lockout threshold.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]domain.Identity, error)
	Count(ctx context.Context, filter IdentityFilter) (int, error)
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockFor time.Duration) (LockoutResult, error)
	ResetFailedAttempts(ctx context.Context, id string, loginAt time.Time) error
	SetSuspended(ctx context.Context, id string, suspended bool) error
	SoftDelete(ctx context.Context, id string) error
	MarkVerified(ctx context.Context, id string) error
	ActivateAdmin(ctx context.Context, id string) error
}
