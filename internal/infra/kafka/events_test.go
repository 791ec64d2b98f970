package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/havenlane/estate-iam/internal/core/domain"
	"github.com/havenlane/estate-iam/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer *fakeAsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "estate",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "estate-iam",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishIdentityRegistered(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	registeredAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	event := domain.IdentityRegisteredEvent{
		EventID:      "event-123",
		IdentityID:   "identity-456",
		Email:        "agent@example.com",
		Role:         domain.RoleAgent,
		RegisteredAt: registeredAt,
		Metadata:     map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishIdentityRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishIdentityRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "estate.identity.registered" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "estate.identity.registered" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if got := envelope["identity_id"]; got != event.IdentityID {
			t.Fatalf("unexpected identity_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != registeredAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not an object: %T", envelope["payload"])
		}
		if got := payload["role"]; got != string(domain.RoleAgent) {
			t.Fatalf("unexpected role: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishAccountSuspendedCancelledContext(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()

	// Fill the buffered input so publish must block, then cancel.
	asyncProducer.input <- &sarama.ProducerMessage{}

	publisher := newTestPublisher(t, asyncProducer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishAccountSuspended(ctx, domain.AccountSuspendedEvent{
		IdentityID:  "identity-456",
		SuspendedBy: "admin-1",
		Duration:    domain.Suspension7Days,
		SuspendedAt: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
