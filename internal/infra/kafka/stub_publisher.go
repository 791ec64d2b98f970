package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, identityID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("identity_id", identityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishIdentityRegistered logs estate.identity.registered events.
func (p *StubPublisher) PublishIdentityRegistered(_ context.Context, event domain.IdentityRegisteredEvent) error {
	payload := map[string]any{
		"identity_id":   event.IdentityID,
		"email":         event.Email,
		"role":          event.Role,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("estate.identity.registered", event.IdentityID, event.RegisteredAt, payload)
	return nil
}

// PublishAccountSuspended logs estate.account.suspended events.
func (p *StubPublisher) PublishAccountSuspended(_ context.Context, event domain.AccountSuspendedEvent) error {
	payload := map[string]any{
		"identity_id":  event.IdentityID,
		"suspended_by": event.SuspendedBy,
		"reason":       event.Reason,
		"duration":     event.Duration,
		"expires_at":   event.ExpiresAt,
		"suspended_at": event.SuspendedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("estate.account.suspended", event.IdentityID, event.SuspendedAt, payload)
	return nil
}

// PublishSuspensionLifted logs estate.account.suspension_lifted events.
func (p *StubPublisher) PublishSuspensionLifted(_ context.Context, event domain.SuspensionLiftedEvent) error {
	payload := map[string]any{
		"identity_id": event.IdentityID,
		"lifted_by":   event.LiftedBy,
		"reason":      event.Reason,
		"lifted_at":   event.LiftedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("estate.account.suspension_lifted", event.IdentityID, event.LiftedAt, payload)
	return nil
}

// PublishSuspensionAppealed logs estate.account.suspension_appealed events.
func (p *StubPublisher) PublishSuspensionAppealed(_ context.Context, event domain.SuspensionAppealedEvent) error {
	payload := map[string]any{
		"identity_id": event.IdentityID,
		"reason":      event.Reason,
		"appealed_at": event.AppealedAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("estate.account.suspension_appealed", event.IdentityID, event.AppealedAt, payload)
	return nil
}

// PublishAccountLocked logs estate.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"identity_id":     event.IdentityID,
		"failed_attempts": event.FailedAttempts,
		"locked_until":    event.LockedUntil,
		"locked_at":       event.LockedAt,
		"metadata":        event.Metadata,
	}
	p.logEvent("estate.account.locked", event.IdentityID, event.LockedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
