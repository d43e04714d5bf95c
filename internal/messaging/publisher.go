package messaging

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/middleware"
)

// TraceparentHeader carries W3C trace context across the broker.
const TraceparentHeader = "traceparent"

// amqpChannel is the slice of *amqp.Channel the publisher uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher delivers outbox events to a topic exchange. Messages are
// persistent and routed by event type; the traceparent recorded at posting
// time travels in a header.
type RabbitPublisher struct {
	channel  amqpChannel
	exchange string
}

func NewRabbitPublisher(channel *amqp.Channel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{channel: channel, exchange: exchange}
}

var _ portssvc.OutboxPublisherFacade = (*RabbitPublisher)(nil)

// DeclareTopology sets up the exchange, ingestion queue with its dead-letter
// pair, and bindings. Idempotent; safe to run at every startup.
func DeclareTopology(channel *amqp.Channel, exchange, ingestQueue, dlxExchange, dlq string) error {
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return apperrors.NewAppError(500, "failed to declare exchange "+exchange, err)
	}
	if err := channel.ExchangeDeclare(dlxExchange, "fanout", true, false, false, false, nil); err != nil {
		return apperrors.NewAppError(500, "failed to declare dead-letter exchange "+dlxExchange, err)
	}
	if _, err := channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return apperrors.NewAppError(500, "failed to declare dead-letter queue "+dlq, err)
	}
	if err := channel.QueueBind(dlq, "", dlxExchange, false, nil); err != nil {
		return apperrors.NewAppError(500, "failed to bind dead-letter queue "+dlq, err)
	}
	if _, err := channel.QueueDeclare(ingestQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": dlxExchange,
	}); err != nil {
		return apperrors.NewAppError(500, "failed to declare queue "+ingestQueue, err)
	}
	return nil
}

// Publish sends one event. An error leaves the outbox record unpublished, so
// the relay retries it on the next pass.
func (p *RabbitPublisher) Publish(ctx context.Context, event domain.OutboxEvent) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	headers := amqp.Table{
		"x-tenant-id":      event.TenantID,
		"x-aggregate-type": event.AggregateType,
		"x-aggregate-id":   event.AggregateID,
	}
	if event.Traceparent != "" {
		headers[TraceparentHeader] = event.Traceparent
	}

	err := p.channel.PublishWithContext(ctx, p.exchange, event.EventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OutboxID,
		Timestamp:    event.CreatedAt,
		Type:         event.EventType,
		Headers:      headers,
		Body:         []byte(event.Payload),
	})
	if err != nil {
		return apperrors.NewAppError(500, "failed to publish outbox event "+event.OutboxID, err)
	}

	logger.Debug("Outbox event published",
		slog.String("outbox_id", event.OutboxID),
		slog.String("event_type", event.EventType),
	)
	return nil
}
