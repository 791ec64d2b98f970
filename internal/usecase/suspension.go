package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/repository"
)

// SuspensionService runs the suspend / appeal / lift workflows over the
// append-only suspension history.
type SuspensionService struct {
	identities  port.IdentityRepository
	suspensions port.SuspensionRepository
	events      port.EventPublisher
	log         *zap.Logger
}

// NewSuspensionService constructs a SuspensionService instance.
func NewSuspensionService(
	identities port.IdentityRepository,
	suspensions port.SuspensionRepository,
	events port.EventPublisher,
	log *zap.Logger,
) *SuspensionService {
	return &SuspensionService{
		identities:  identities,
		suspensions: suspensions,
		events:      events,
		log:         log,
	}
}

// Suspend places the target under a new suspension. The actor needs the
// users.suspend permission; suspending an already suspended identity fails.
func (s *SuspensionService) Suspend(ctx context.Context, actor *domain.Identity, targetID, reason string, duration domain.SuspensionDuration) (*domain.SuspensionRecord, error) {
	now := time.Now().UTC()

	if decision := GuardPermission(actor, now, domain.PermUsersSuspend); !decision.Allowed {
		return nil, decision.Err()
	}

	switch duration {
	case domain.Suspension24Hours, domain.Suspension3Days, domain.Suspension7Days,
		domain.Suspension30Days, domain.SuspensionIndefinite:
	default:
		return nil, fmt.Errorf("%w: unknown suspension duration %q", ErrInvalidInput, duration)
	}

	target, err := s.identities.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("lookup target identity: %w", err)
	}

	if target.Deleted {
		return nil, ErrAccountDeleted
	}
	if target.Suspended {
		return nil, ErrAlreadySuspended
	}

	var expiresAt *time.Time
	if window := duration.Window(); window > 0 {
		at := now.Add(window)
		expiresAt = &at
	}

	record := domain.SuspensionRecord{
		ID:         uuid.NewString(),
		IdentityID: target.ID,
		Action:     domain.SuspensionActionSuspend,
		Actor:      actor.ID,
		Reason:     strings.TrimSpace(reason),
		Duration:   duration,
		ExpiresAt:  expiresAt,
		Active:     true,
		CreatedAt:  now,
	}

	if err := s.suspensions.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append suspension record: %w", err)
	}
	if err := s.identities.SetSuspended(ctx, target.ID, true); err != nil {
		return nil, fmt.Errorf("set suspended flag: %w", err)
	}

	s.log.Info("identity suspended",
		zap.String("identity_id", target.ID),
		zap.String("actor_id", actor.ID),
		zap.String("duration", string(duration)),
	)

	event := domain.AccountSuspendedEvent{
		EventID:     uuid.NewString(),
		IdentityID:  target.ID,
		SuspendedBy: actor.ID,
		Reason:      record.Reason,
		Duration:    duration,
		ExpiresAt:   expiresAt,
		SuspendedAt: now,
	}
	if err := s.events.PublishAccountSuspended(ctx, event); err != nil {
		s.log.Error("publish account suspended event", zap.Error(err))
	}

	return &record, nil
}

// Appeal lets a suspended identity contest its suspension. The appeal is an
// inert history entry; it never alters the active suspension by itself.
func (s *SuspensionService) Appeal(ctx context.Context, identity *domain.Identity, reason string) (*domain.SuspensionRecord, error) {
	if identity == nil {
		return nil, ErrForbidden
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: appeal reason is required", ErrInvalidInput)
	}

	if !identity.Suspended {
		return nil, ErrNoActiveSuspension
	}

	active, err := s.suspensions.ActiveByIdentity(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSuspension
		}
		return nil, fmt.Errorf("lookup active suspension: %w", err)
	}

	now := time.Now().UTC()
	record := domain.SuspensionRecord{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		Action:     domain.SuspensionActionAppeal,
		Actor:      identity.ID,
		Reason:     reason,
		Duration:   active.Duration,
		CreatedAt:  now,
	}

	if err := s.suspensions.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append appeal record: %w", err)
	}

	event := domain.SuspensionAppealedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identity.ID,
		Reason:     reason,
		AppealedAt: now,
	}
	if err := s.events.PublishSuspensionAppealed(ctx, event); err != nil {
		s.log.Error("publish suspension appealed event", zap.Error(err))
	}

	return &record, nil
}

// Lift ends the target's active suspension. The actor needs users.suspend.
func (s *SuspensionService) Lift(ctx context.Context, actor *domain.Identity, targetID, reason string) error {
	now := time.Now().UTC()

	if decision := GuardPermission(actor, now, domain.PermUsersSuspend); !decision.Allowed {
		return decision.Err()
	}

	deactivated, err := s.suspensions.Deactivate(ctx, targetID)
	if err != nil {
		return fmt.Errorf("deactivate suspension: %w", err)
	}
	if deactivated == 0 {
		return ErrNoActiveSuspension
	}

	if err := s.identities.SetSuspended(ctx, targetID, false); err != nil {
		return fmt.Errorf("clear suspended flag: %w", err)
	}

	record := domain.SuspensionRecord{
		ID:         uuid.NewString(),
		IdentityID: targetID,
		Action:     domain.SuspensionActionLift,
		Actor:      actor.ID,
		Reason:     strings.TrimSpace(reason),
		CreatedAt:  now,
	}
	if err := s.suspensions.Append(ctx, record); err != nil {
		return fmt.Errorf("append lift record: %w", err)
	}

	s.log.Info("suspension lifted",
		zap.String("identity_id", targetID),
		zap.String("actor_id", actor.ID),
	)

	event := domain.SuspensionLiftedEvent{
		EventID:    uuid.NewString(),
		IdentityID: targetID,
		LiftedBy:   actor.ID,
		Reason:     record.Reason,
		LiftedAt:   now,
	}
	if err := s.events.PublishSuspensionLifted(ctx, event); err != nil {
		s.log.Error("publish suspension lifted event", zap.Error(err))
	}

	return nil
}

// History returns the target's full suspension trail. The actor needs users.view.
func (s *SuspensionService) History(ctx context.Context, actor *domain.Identity, targetID string) ([]domain.SuspensionRecord, error) {
	if decision := GuardPermission(actor, time.Now().UTC(), domain.PermUsersView); !decision.Allowed {
		return nil, decision.Err()
	}

	records, err := s.suspensions.History(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("load suspension history: %w", err)
	}

	return records, nil
}
