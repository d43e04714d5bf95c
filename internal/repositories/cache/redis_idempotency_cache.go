package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/go-redis/redis/v8"
)

const (
	counterKeyPrefix = "fis:ik:cnt:"
	recordKeyPrefix  = "fis:ik:"
)

// RedisIdempotencyCache is the low-latency first line of duplicate detection.
// A per-key counter answers "has anyone seen this event" atomically; a
// sibling key carries the JSON record for replay.
type RedisIdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyCache(client *redis.Client, ttl time.Duration) *RedisIdempotencyCache {
	return &RedisIdempotencyCache{client: client, ttl: ttl}
}

var _ portsrepo.IdempotencyCacheFacade = (*RedisIdempotencyCache)(nil)

func counterKey(tenantID, sourceEventID string) string {
	return counterKeyPrefix + tenantID + ":" + sourceEventID
}

func recordKey(tenantID, sourceEventID string) string {
	return recordKeyPrefix + tenantID + ":" + sourceEventID
}

// AcquireFirstSight increments the event's counter and, when this caller is
// the first sight, sets the counter TTL and stores the PROCESSING record.
// INCR is atomic, so exactly one of N racing callers observes 1.
func (c *RedisIdempotencyCache) AcquireFirstSight(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) (bool, error) {
	count, err := c.client.Incr(ctx, counterKey(tenantID, sourceEventID)).Result()
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to increment idempotency counter for event "+sourceEventID, err)
	}
	if count > 1 {
		return false, nil
	}

	// TTL only on the first write, so retries never extend the window.
	if err := c.client.Expire(ctx, counterKey(tenantID, sourceEventID), c.ttl).Err(); err != nil {
		return false, apperrors.NewAppError(500, "failed to set idempotency counter TTL for event "+sourceEventID, err)
	}
	if err := c.Set(ctx, tenantID, sourceEventID, record); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the cached record, or nil without error on a miss.
func (c *RedisIdempotencyCache) Get(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error) {
	raw, err := c.client.Get(ctx, recordKey(tenantID, sourceEventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to read cached idempotency record for event "+sourceEventID, err)
	}
	var record domain.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode cached idempotency record for event "+sourceEventID, err)
	}
	return &record, nil
}

// Set overwrites the cached record, refreshing its TTL.
func (c *RedisIdempotencyCache) Set(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode idempotency record for event "+sourceEventID, err)
	}
	if err := c.client.Set(ctx, recordKey(tenantID, sourceEventID), raw, c.ttl).Err(); err != nil {
		return apperrors.NewAppError(500, "failed to cache idempotency record for event "+sourceEventID, err)
	}
	return nil
}
