package services

import (
	"context"
	"encoding/json"

	"github.com/finstack/fisledger/internal/core/domain"
)

// IdempotencySvcFacade dedupes posting requests under at-least-once delivery.
type IdempotencySvcFacade interface {
	// CheckAndMarkProcessing classifies the (tenant, event id, fingerprint)
	// triple as NEW, DUPLICATE_SAME_PAYLOAD (cached response attached) or
	// DUPLICATE_DIFFERENT_PAYLOAD.
	CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error)

	// MarkCompleted records the terminal success state and the response body
	// to replay on same-payload duplicates.
	MarkCompleted(ctx context.Context, tenantID, sourceEventID, payloadHash, responseBody string) error

	// MarkFailed records a terminal business failure; a later identical
	// request is allowed to retry from scratch.
	MarkFailed(ctx context.Context, tenantID, sourceEventID, payloadHash, failureDetail string) error

	// Execute wraps a write operation in the gate: fingerprints the payload,
	// replays the cached response on a same-payload duplicate, fails with a
	// conflict on a fingerprint mismatch, and otherwise runs the operation and
	// records its outcome. The returned bytes are the operation's JSON
	// response, fresh or replayed.
	Execute(ctx context.Context, tenantID, sourceEventID string, payload any, operation func(context.Context) (any, error)) (json.RawMessage, error)
}

// OutboxPublisherFacade delivers outbox events to the external message
// transport. At-least-once: a delivery error leaves the record unpublished.
type OutboxPublisherFacade interface {
	Publish(ctx context.Context, event domain.OutboxEvent) error
}
