// internal/events/publisher.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wa-insights-service/internal/pkg/requestid"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data any) error
	Close() error
}

// RabbitPublisher publishes JSON envelopes to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
	producer string
	logger   *zap.Logger
}

func NewRabbitPublisher(url, exchange, producer string, logger *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitPublisher{
		conn:     conn,
		exchange: exchange,
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, data any) error {
	env := NewEnvelope(eventType, p.producer, requestid.From(ctx), data)

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	cid := uuid.NewString()
	if env.Meta.CorrelationID != nil {
		cid = *env.Meta.CorrelationID
	}

	err = ch.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: cid,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug("event published",
		zap.String("type", eventType),
		zap.String("exchange", p.exchange),
		zap.String("event_id", env.Meta.ID),
	)
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.conn.Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
