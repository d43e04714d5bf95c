package pgsql

import (
	"context"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxOutboxRepository struct {
	BaseRepository
}

func newPgxOutboxRepository(pool *pgxpool.Pool) portsrepo.OutboxRepositoryFacade {
	return &PgxOutboxRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.OutboxRepositoryFacade = (*PgxOutboxRepository)(nil)

// FindUnpublished returns the oldest pending outbox events, capped at limit.
// Oldest-first keeps per-aggregate ordering on the wire.
func (r *PgxOutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `
		SELECT outbox_id, tenant_id, event_type, aggregate_type, aggregate_id, payload, traceparent, published, published_at, created_at
		FROM outbox_events
		WHERE published = FALSE
		ORDER BY created_at ASC
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query unpublished outbox events", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.OutboxID, &ev.TenantID, &ev.EventType, &ev.AggregateType, &ev.AggregateID, &ev.Payload, &ev.Traceparent, &ev.Published, &ev.PublishedAt, &ev.CreatedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan outbox row", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating outbox rows", err)
	}
	return events, nil
}

// MarkPublished stamps an event as delivered to the broker.
func (r *PgxOutboxRepository) MarkPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	query := `
		UPDATE outbox_events SET published = TRUE, published_at = $2
		WHERE outbox_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, outboxID, publishedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark outbox event "+outboxID+" published", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("outbox event " + outboxID + " not found")
	}
	return nil
}

// DeletePublishedBefore removes delivered events older than the cutoff.
// Unpublished events are never deleted regardless of age.
func (r *PgxOutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE published = TRUE AND created_at < $1;
	`
	tag, err := r.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to delete published outbox events", err)
	}
	return tag.RowsAffected(), nil
}
