package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/core/port"
	"github.com/havenlane/estate-iam/internal/infra/config"
	"github.com/havenlane/estate-iam/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	IdentityID string           `json:"identity_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
	Version    string           `json:"version"`
	Payload    any              `json:"payload"`
	Metadata   envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, identityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if requestID, ok := ctx.Value(logger.RequestIDKey{}).(string); ok && requestID != "" {
		metadata["request_id"] = requestID
	}

	envelope := eventEnvelope{
		EventID:    id,
		EventType:  eventType,
		IdentityID: identityID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata:   metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishIdentityRegistered publishes estate.identity.registered events.
func (p *EventPublisher) PublishIdentityRegistered(ctx context.Context, event domain.IdentityRegisteredEvent) error {
	payload := struct {
		IdentityID   string         `json:"identity_id"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:   event.IdentityID,
		Email:        event.Email,
		Role:         string(event.Role),
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "estate.identity.registered", event.IdentityID, event.RegisteredAt, payload)
}

// PublishAccountSuspended publishes estate.account.suspended events.
func (p *EventPublisher) PublishAccountSuspended(ctx context.Context, event domain.AccountSuspendedEvent) error {
	payload := struct {
		IdentityID  string         `json:"identity_id"`
		SuspendedBy string         `json:"suspended_by"`
		Reason      string         `json:"reason,omitempty"`
		Duration    string         `json:"duration"`
		ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
		SuspendedAt time.Time      `json:"suspended_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:  event.IdentityID,
		SuspendedBy: event.SuspendedBy,
		Reason:      event.Reason,
		Duration:    string(event.Duration),
		ExpiresAt:   event.ExpiresAt,
		SuspendedAt: event.SuspendedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "estate.account.suspended", event.IdentityID, event.SuspendedAt, payload)
}

// PublishSuspensionLifted publishes estate.account.suspension_lifted events.
func (p *EventPublisher) PublishSuspensionLifted(ctx context.Context, event domain.SuspensionLiftedEvent) error {
	payload := struct {
		IdentityID string         `json:"identity_id"`
		LiftedBy   string         `json:"lifted_by"`
		Reason     string         `json:"reason,omitempty"`
		LiftedAt   time.Time      `json:"lifted_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID: event.IdentityID,
		LiftedBy:   event.LiftedBy,
		Reason:     event.Reason,
		LiftedAt:   event.LiftedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "estate.account.suspension_lifted", event.IdentityID, event.LiftedAt, payload)
}

// PublishSuspensionAppealed publishes estate.account.suspension_appealed events.
func (p *EventPublisher) PublishSuspensionAppealed(ctx context.Context, event domain.SuspensionAppealedEvent) error {
	payload := struct {
		IdentityID string         `json:"identity_id"`
		Reason     string         `json:"reason"`
		AppealedAt time.Time      `json:"appealed_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID: event.IdentityID,
		Reason:     event.Reason,
		AppealedAt: event.AppealedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, "estate.account.suspension_appealed", event.IdentityID, event.AppealedAt, payload)
}

// PublishAccountLocked publishes estate.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		IdentityID     string         `json:"identity_id"`
		FailedAttempts int            `json:"failed_attempts"`
		LockedUntil    time.Time      `json:"locked_until"`
		LockedAt       time.Time      `json:"locked_at"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		IdentityID:     event.IdentityID,
		FailedAttempts: event.FailedAttempts,
		LockedUntil:    event.LockedUntil.UTC(),
		LockedAt:       event.LockedAt.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "estate.account.locked", event.IdentityID, event.LockedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
