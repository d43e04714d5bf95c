package repositories

import (
	"context"

	"github.com/finstack/fisledger/internal/core/domain"
)

// IdempotencyRepositoryFacade is the durable store of record for duplicate
// detection. It is the last word whenever the cache is cold or unavailable.
type IdempotencyRepositoryFacade interface {
	// CheckAndMarkProcessing arbitrates a first-sight race under a row-level
	// exclusive lock: absent or FAILED records are (re)marked PROCESSING and
	// reported NEW; COMPLETED/PROCESSING records are reported as duplicates
	// with fingerprint comparison. The lock is held only for this arbitration,
	// not for the posting that follows.
	CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error)

	// Upsert records the terminal (or re-entered PROCESSING) state of a key.
	Upsert(ctx context.Context, record domain.IdempotencyRecord) error

	// Find loads the durable record, apperrors.ErrNotFound if absent.
	Find(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error)
}

// IdempotencyCacheFacade is the low-latency first line of duplicate detection.
// Implementations must provide an atomic first-sight primitive; the durable
// store remains authoritative when the cache misses or fails.
type IdempotencyCacheFacade interface {
	// AcquireFirstSight atomically increments the per-key counter, setting its
	// TTL on first write, and stores the PROCESSING record when this caller is
	// first. Returns true only for the first sight of the key.
	AcquireFirstSight(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) (bool, error)

	// Get returns the cached record, or nil without error on a miss.
	Get(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error)

	// Set overwrites the cached record, refreshing its TTL.
	Set(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) error
}
