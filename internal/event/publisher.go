package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	routingKeyPrefix = "ledger."
	publisherAppID   = "microloan-ledger"
)

// ActivityPublisher forwards committed ledger activity to other systems.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, activity domain.Activity) error
}

// ActivityEvent is the wire shape of a published activity.
type ActivityEvent struct {
	ActivityID   string    `json:"activityId"`
	LoanID       string    `json:"loanId"`
	BorrowerID   string    `json:"borrowerId"`
	Action       string    `json:"action"`
	ActorID      string    `json:"actorId"`
	ActorRole    string    `json:"actorRole"`
	Amount       string    `json:"amount"`
	Description  string    `json:"description"`
	StatusBefore string    `json:"statusBefore,omitempty"`
	StatusAfter  string    `json:"statusAfter,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewActivityEvent(a domain.Activity) ActivityEvent {
	return ActivityEvent{
		ActivityID:   a.ID.String(),
		LoanID:       a.LoanID.String(),
		BorrowerID:   a.BorrowerID.String(),
		Action:       string(a.Action),
		ActorID:      a.Actor.ID.String(),
		ActorRole:    string(a.Actor.Role),
		Amount:       a.Amount.StringFixed(2),
		Description:  a.Description,
		StatusBefore: string(a.StatusBefore),
		StatusAfter:  string(a.StatusAfter),
		OccurredAt:   a.OccurredAt,
	}
}

// RoutingKey maps an action such as payment.recorded to ledger.payment.recorded.
func RoutingKey(action domain.ActivityAction) string {
	return routingKeyPrefix + string(action)
}

type RabbitMQPublisher struct {
	conn         *amqp.Connection
	exchangeName string
	logger       *slog.Logger
}

func NewRabbitMQPublisher(conn *amqp.Connection, exchangeName string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection cannot be nil")
	}
	if exchangeName == "" {
		return nil, fmt.Errorf("RabbitMQ exchange name cannot be empty")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel for exchange declaration: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		exchangeName,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}
	logger.Info("Ensured RabbitMQ exchange exists", "exchange", exchangeName, "type", amqp.ExchangeTopic)

	return &RabbitMQPublisher{
		conn:         conn,
		exchangeName: exchangeName,
		logger:       logger.With("component", "RabbitMQPublisher", "exchange", exchangeName),
	}, nil
}

func (p *RabbitMQPublisher) PublishActivity(ctx context.Context, activity domain.Activity) error {
	routingKey := RoutingKey(activity.Action)
	logCtx := p.logger.With(slog.String("routingKey", routingKey), slog.String("loanID", activity.LoanID.String()))

	channel, err := p.conn.Channel()
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to open RabbitMQ channel", slog.Any("error", err))
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer channel.Close()

	body, err := json.Marshal(NewActivityEvent(activity))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = channel.PublishWithContext(
		ctx,
		p.exchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    activity.ID.String(),
			Timestamp:    activity.OccurredAt,
			Body:         body,
			AppId:        publisherAppID,
		},
	)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to publish message to RabbitMQ", slog.Any("error", err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logCtx.DebugContext(ctx, "Published activity", "bodySize", len(body))
	return nil
}

// LogPublisher is used when no broker is configured; it only logs.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "LogPublisher")}
}

func (p *LogPublisher) PublishActivity(ctx context.Context, activity domain.Activity) error {
	p.logger.DebugContext(ctx, "Activity",
		slog.String("action", string(activity.Action)),
		slog.String("loanID", activity.LoanID.String()),
		slog.String("description", activity.Description),
	)
	return nil
}
