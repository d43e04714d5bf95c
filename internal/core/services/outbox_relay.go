package services

import (
	"context"
	"log/slog"
	"time"

	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/middleware"
)

// OutboxRelayConfig tunes the relay and cleanup loops.
type OutboxRelayConfig struct {
	Interval        time.Duration
	BatchSize       int
	CleanupInterval time.Duration
	Retention       time.Duration
}

// OutboxRelay drains the transactional outbox into the message broker.
// Events are picked oldest first and published one by one; the first failure
// aborts the batch so ordering is preserved and the failed event is retried
// on the next tick. Delivery is therefore at-least-once.
type OutboxRelay struct {
	outboxRepo portsrepo.OutboxRepositoryFacade
	publisher  portssvc.OutboxPublisherFacade
	cfg        OutboxRelayConfig
}

func NewOutboxRelay(outboxRepo portsrepo.OutboxRepositoryFacade, publisher portssvc.OutboxPublisherFacade, cfg OutboxRelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		cfg:        cfg,
	}
}

// Run drives the relay loop until the context is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	logger.Info("Outbox relay started",
		slog.Duration("interval", r.cfg.Interval),
		slog.Int("batch_size", r.cfg.BatchSize),
	)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox relay stopped")
			return
		case <-ticker.C:
			if err := r.RelayOnce(ctx); err != nil {
				logger.Error("Outbox relay pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RelayOnce publishes one batch of pending events.
func (r *OutboxRelay) RelayOnce(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	events, err := r.outboxRepo.FindUnpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := 0
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			// Stop the batch: publishing later events before this one would
			// reorder the stream, and the broker is likely unhealthy anyway.
			logger.Warn("Outbox publish failed, aborting batch",
				slog.String("outbox_id", event.OutboxID),
				slog.Int("published", published),
				slog.String("error", err.Error()),
			)
			return err
		}
		if err := r.outboxRepo.MarkPublished(ctx, event.OutboxID, time.Now().UTC()); err != nil {
			// The event went out but is still flagged pending; the next pass
			// republishes it. Consumers must tolerate duplicates regardless.
			return err
		}
		published++
	}

	logger.Info("Outbox batch relayed", slog.Int("published", published))
	return nil
}

// RunCleanup drives the retention loop until the context is cancelled.
func (r *OutboxRelay) RunCleanup(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.CleanupOnce(ctx); err != nil {
				logger.Error("Outbox cleanup pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// CleanupOnce deletes published events older than the retention window.
func (r *OutboxRelay) CleanupOnce(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	cutoff := time.Now().UTC().Add(-r.cfg.Retention)
	deleted, err := r.outboxRepo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Outbox cleanup removed published events",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}
