package port

import (
	"context"

	"github.com/havenlane/estate-iam/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishIdentityRegistered(ctx context.Context, event domain.IdentityRegisteredEvent) error
	PublishAccountSuspended(ctx context.Context, event domain.AccountSuspendedEvent) error
	PublishSuspensionLifted(ctx context.Context, event domain.SuspensionLiftedEvent) error
	PublishSuspensionAppealed(ctx context.Context, event domain.SuspensionAppealedEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
}
