package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopcore/backend/internal/domain"
	pkgkafka "github.com/shopcore/backend/pkg/kafka"
)

// Kafka topics for account domain events.
var (
	TopicUserRegistered      = pkgkafka.Topic("user", "registered")
	TopicUserUpdated         = pkgkafka.Topic("user", "updated")
	TopicUserDeleted         = pkgkafka.Topic("user", "deleted")
	TopicUserPasswordChanged = pkgkafka.Topic("user", "password_changed")
	TopicUserPasswordReset   = pkgkafka.Topic("user", "password_reset")
	TopicUserEmailVerified   = pkgkafka.Topic("user", "email_verified")
)

// Aggregate type constant.
const AggregateTypeUser = "user"

// Source identifier for events originating from this service.
const SourceAuthService = "shopcore-backend"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UserUpdatedData is the payload for a user.updated event.
type UserUpdatedData struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserCredentialData is the payload for the password_changed, password_reset
// and email_verified events.
type UserCredentialData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Producer publishes account domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, data)
}

// PublishUserUpdated publishes a user.updated event.
func (p *Producer) PublishUserUpdated(ctx context.Context, user *domain.User) error {
	data := UserUpdatedData{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
		Status: user.Status,
	}
	return p.publish(ctx, TopicUserUpdated, user.ID, data)
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, userID, email string) error {
	return p.publish(ctx, TopicUserDeleted, userID, UserDeletedData{ID: userID, Email: email})
}

// PublishPasswordChanged publishes a user.password_changed event.
func (p *Producer) PublishPasswordChanged(ctx context.Context, userID, email string) error {
	return p.publish(ctx, TopicUserPasswordChanged, userID, UserCredentialData{UserID: userID, Email: email})
}

// PublishPasswordReset publishes a user.password_reset event.
func (p *Producer) PublishPasswordReset(ctx context.Context, userID, email string) error {
	return p.publish(ctx, TopicUserPasswordReset, userID, UserCredentialData{UserID: userID, Email: email})
}

// PublishEmailVerified publishes a user.email_verified event.
func (p *Producer) PublishEmailVerified(ctx context.Context, userID, email string) error {
	return p.publish(ctx, TopicUserEmailVerified, userID, UserCredentialData{UserID: userID, Email: email})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeUser, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
