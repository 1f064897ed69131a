package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/infra/config"
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

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "watchvibe",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "auth-service",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func TestPublishSessionStarted(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	startedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	event := domain.SessionStartedEvent{
		EventID:   "event-123",
		UserID:    "user-789",
		StartedAt: startedAt,
		Metadata:  map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishSessionStarted(context.Background(), event); err != nil {
		t.Fatalf("PublishSessionStarted returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "watchvibe.auth.session.started" {
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

		if got := envelope["event_type"]; got != "auth.session.started" {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["event_id"]; got != event.EventID {
			t.Fatalf("unexpected event_id: %v", got)
		}
		if got := envelope["user_id"]; got != event.UserID {
			t.Fatalf("unexpected user_id: %v", got)
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != startedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		metadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", envelope["metadata"])
		}
		if got := metadata["service"]; got != "auth-service" {
			t.Fatalf("unexpected service metadata: %v", got)
		}
	default:
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishOTPDispatchedGeneratesEventID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	dispatchedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	event := domain.OTPDispatchedEvent{
		UserID:            "user-42",
		Purpose:           "login",
		MaskedDestination: "ali***@example.com",
		DispatchedAt:      dispatchedAt,
		ExpiresAt:         dispatchedAt.Add(5 * time.Minute),
	}

	if err := publisher.PublishOTPDispatched(context.Background(), event); err != nil {
		t.Fatalf("PublishOTPDispatched returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		id, ok := envelope["event_id"].(string)
		if !ok || id == "" {
			t.Fatalf("expected generated event_id, got %v", envelope["event_id"])
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}
		if got := payload["purpose"]; got != "login" {
			t.Fatalf("unexpected purpose: %v", got)
		}
		if got := payload["masked_destination"]; got != "ali***@example.com" {
			t.Fatalf("unexpected masked destination: %v", got)
		}
	default:
		t.Fatal("expected a message on the producer input channel")
	}
}

func TestPublishCancelledContext(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	// Fill the buffered input channel so publish has to wait.
	asyncProducer.input <- &sarama.ProducerMessage{Topic: "filler"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishSessionEnded(ctx, domain.SessionEndedEvent{
		UserID:  "user-1",
		EndedAt: time.Now(),
		Reason:  "logout",
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}
