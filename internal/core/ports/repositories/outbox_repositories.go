package repositories

import (
	"context"
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
)

// OutboxRepositoryFacade reads and settles outbox records. Insertion happens
// inside the entry persistence transaction, not here.
type OutboxRepositoryFacade interface {
	// FindUnpublished returns up to limit unpublished events, oldest first.
	FindUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)

	// MarkPublished flips the published flag and stamps the publish time.
	MarkPublished(ctx context.Context, outboxID string, publishedAt time.Time) error

	// DeletePublishedBefore removes published events created before the
	// cutoff. Unpublished events are never deleted regardless of age.
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
