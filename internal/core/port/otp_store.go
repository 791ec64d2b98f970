package port

import (
	"context"
	"time"
)

// OTPRecord captures a stored one-time code and its bookkeeping.
type OTPRecord struct {
	Purpose    string
	Identifier string
	Code       string
	Attempts   int
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// OTPStore persists short-lived one-time codes for recovery flows.
type OTPStore interface {
	Store(ctx context.Context, purpose, identifier, code string, ttl time.Duration) (*OTPRecord, error)
	Fetch(ctx context.Context, purpose, identifier string) (*OTPRecord, error)
	IncrementAttempts(ctx context.Context, purpose, identifier string) (int, error)
	Delete(ctx context.Context, purpose, identifier string) error
}
