package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/finstack/fisledger/internal/apperrors"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// EventConsumer feeds financial events from the ingestion queue into the
// posting pipeline. Ack discipline:
//
//   - posted or replayed duplicate:  ack
//   - malformed envelope:            reject, no requeue (dead-letter)
//   - business failure:              reject, no requeue (dead-letter)
//   - transient failure:             nack with requeue
//
// The idempotency gate makes redelivery safe, so requeueing on transient
// faults never double-posts.
type EventConsumer struct {
	channel    *amqp.Channel
	queue      string
	postingSvc portssvc.PostingSvcFacade
}

func NewEventConsumer(channel *amqp.Channel, queue string, postingSvc portssvc.PostingSvcFacade) *EventConsumer {
	return &EventConsumer{
		channel:    channel,
		queue:      queue,
		postingSvc: postingSvc,
	}
}

// Run consumes until the context is cancelled or the delivery channel closes.
func (c *EventConsumer) Run(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := c.channel.Qos(1, 0, false); err != nil {
		return apperrors.NewAppError(500, "failed to set channel QoS", err)
	}
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return apperrors.NewAppError(500, "failed to start consuming from queue "+c.queue, err)
	}

	logger.Info("Event consumer started", slog.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Event consumer stopped")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				logger.Warn("Delivery channel closed")
				return apperrors.NewAppError(500, "delivery channel closed", apperrors.ErrTransient)
			}
			c.HandleDelivery(ctx, delivery)
		}
	}
}

// HandleDelivery processes one message and settles it. Exported for tests.
func (c *EventConsumer) HandleDelivery(ctx context.Context, delivery amqp.Delivery) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var envelope dto.IngestionEnvelope
	if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
		logger.Error("Rejecting malformed message", slog.String("error", err.Error()))
		_ = delivery.Reject(false)
		return
	}
	if envelope.TenantID == "" || envelope.Event == nil || envelope.Event.SourceEventID == "" {
		logger.Error("Rejecting envelope with missing identity fields")
		_ = delivery.Reject(false)
		return
	}

	traceparent := envelope.Traceparent
	if traceparent == "" {
		if tp, ok := delivery.Headers[TraceparentHeader].(string); ok {
			traceparent = tp
		}
	}

	eventLogger := logger.With(
		slog.String("tenant_id", envelope.TenantID),
		slog.String("event_id", envelope.Event.SourceEventID),
	)
	_, err := c.postingSvc.PostEntry(middleware.WithLogger(ctx, eventLogger), envelope.TenantID, *envelope.Event, traceparent)
	switch {
	case err == nil:
		eventLogger.Info("Event posted from queue")
		_ = delivery.Ack(false)
	case errors.Is(err, apperrors.ErrTransient), errors.Is(err, apperrors.ErrInternal):
		// Infrastructure fault: the record stays PROCESSING, redelivery will
		// pick the event up once the dependency recovers.
		eventLogger.Warn("Transient failure, requeueing event", slog.String("error", err.Error()))
		_ = delivery.Nack(false, true)
	default:
		// Business failure: already recorded as FAILED by the gate, the
		// message itself is a dead letter.
		eventLogger.Error("Business failure, dead-lettering event", slog.String("error", err.Error()))
		_ = delivery.Reject(false)
	}
}
