package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/watchvibe/auth-service/internal/core/domain"
	"github.com/watchvibe/auth-service/internal/core/port"
	"github.com/watchvibe/auth-service/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types carried on the bus.
const (
	eventUserRegistered  = "auth.user.registered"
	eventEmailVerified   = "auth.user.email.verified"
	eventOTPDispatched   = "auth.user.otp.dispatched"
	eventSessionStarted  = "auth.session.started"
	eventSessionEnded    = "auth.session.ended"
	eventPasswordChanged = "auth.user.password.changed"
	eventRoleAssigned    = "auth.user.role.assigned"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
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

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
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

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string         `json:"user_id"`
		Username     string         `json:"username"`
		Email        string         `json:"email"`
		LoginType    string         `json:"login_type"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		UserID:       event.UserID,
		Username:     event.Username,
		Email:        event.Email,
		LoginType:    event.LoginType,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishEmailVerified publishes auth.user.email.verified events.
func (p *EventPublisher) PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Email      string         `json:"email"`
		VerifiedAt time.Time      `json:"verified_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		Email:      event.Email,
		VerifiedAt: event.VerifiedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventEmailVerified, event.UserID, event.VerifiedAt, payload)
}

// PublishOTPDispatched publishes auth.user.otp.dispatched events.
func (p *EventPublisher) PublishOTPDispatched(ctx context.Context, event domain.OTPDispatchedEvent) error {
	payload := struct {
		UserID            string         `json:"user_id"`
		Purpose           string         `json:"purpose"`
		MaskedDestination string         `json:"masked_destination"`
		DispatchedAt      time.Time      `json:"dispatched_at"`
		ExpiresAt         time.Time      `json:"expires_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		UserID:            event.UserID,
		Purpose:           event.Purpose,
		MaskedDestination: event.MaskedDestination,
		DispatchedAt:      event.DispatchedAt.UTC(),
		ExpiresAt:         event.ExpiresAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventOTPDispatched, event.UserID, event.DispatchedAt, payload)
}

// PublishSessionStarted publishes auth.session.started events.
func (p *EventPublisher) PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		StartedAt time.Time      `json:"started_at"`
		IPAddress *string        `json:"ip_address,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		StartedAt: event.StartedAt.UTC(),
		IPAddress: event.IPAddress,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventSessionStarted, event.UserID, event.StartedAt, payload)
}

// PublishSessionEnded publishes auth.session.ended events.
func (p *EventPublisher) PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error {
	payload := struct {
		UserID   string         `json:"user_id"`
		EndedAt  time.Time      `json:"ended_at"`
		Reason   string         `json:"reason"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		UserID:   event.UserID,
		EndedAt:  event.EndedAt.UTC(),
		Reason:   event.Reason,
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventSessionEnded, event.UserID, event.EndedAt, payload)
}

// PublishPasswordChanged publishes auth.user.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		ChangedAt time.Time      `json:"changed_at"`
		ChangedBy string         `json:"changed_by"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		ChangedAt: event.ChangedAt.UTC(),
		ChangedBy: event.ChangedBy,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventPasswordChanged, event.UserID, event.ChangedAt, payload)
}

// PublishRoleAssigned publishes auth.user.role.assigned events.
func (p *EventPublisher) PublishRoleAssigned(ctx context.Context, event domain.RoleAssignedEvent) error {
	payload := struct {
		UserID     string         `json:"user_id"`
		Role       string         `json:"role"`
		AssignedBy string         `json:"assigned_by"`
		AssignedAt time.Time      `json:"assigned_at"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}{
		UserID:     event.UserID,
		Role:       event.Role,
		AssignedBy: event.AssignedBy,
		AssignedAt: event.AssignedAt.UTC(),
		Metadata:   event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventRoleAssigned, event.UserID, event.AssignedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
