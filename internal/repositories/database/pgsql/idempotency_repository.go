package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxIdempotencyRepository struct {
	BaseRepository
}

func newPgxIdempotencyRepository(pool *pgxpool.Pool) portsrepo.IdempotencyRepositoryFacade {
	return &PgxIdempotencyRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.IdempotencyRepositoryFacade = (*PgxIdempotencyRepository)(nil)

// CheckAndMarkProcessing arbitrates an incoming event against the durable
// idempotency store. The record row is locked for the duration of a short
// transaction so two racing arrivals of the same event serialize here.
//
//   - no record:             insert PROCESSING, report NEW
//   - different payload:     report DUPLICATE_DIFFERENT_PAYLOAD
//   - COMPLETED, same hash:  report DUPLICATE_SAME_PAYLOAD with the cached response
//   - FAILED, same hash:     flip back to PROCESSING, report NEW (retry admitted)
//   - PROCESSING, same hash: DUPLICATE_SAME_PAYLOAD while the lease is fresh;
//     once the lease expires the claim is reopened and the retry reported NEW
//
// The lease keeps a crashed or transiently failed worker from blocking
// identical retries forever: PROCESSING is a claim, not a terminal state.
func (r *PgxIdempotencyRepository) CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error) {
	var result domain.IdempotencyCheckResult

	tx, err := r.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer r.Rollback(ctx, tx)

	now := time.Now().UTC()

	selectQuery := `
		SELECT payload_hash, status, response_body, updated_at
		FROM idempotency_records
		WHERE tenant_id = $1 AND event_id = $2
		FOR UPDATE;
	`
	var storedHash, status string
	var responseBody *string
	var updatedAt time.Time
	err = tx.QueryRow(ctx, selectQuery, tenantID, sourceEventID).Scan(&storedHash, &status, &responseBody, &updatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		insertQuery := `
			INSERT INTO idempotency_records (tenant_id, event_id, payload_hash, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5);
		`
		if _, err := tx.Exec(ctx, insertQuery, tenantID, sourceEventID, payloadHash, string(domain.IdempotencyProcessing), now); err != nil {
			return result, apperrors.NewAppError(500, "failed to insert idempotency record for event "+sourceEventID, err)
		}
		result.State = domain.IdempotencyNew
	case err != nil:
		return result, apperrors.NewAppError(500, "failed to read idempotency record for event "+sourceEventID, err)
	case storedHash != payloadHash:
		result.State = domain.IdempotencyDuplicateDifferentPayload
	case status == string(domain.IdempotencyCompleted):
		result.State = domain.IdempotencyDuplicateSamePayload
		if responseBody != nil {
			result.CachedResponse = *responseBody
		}
	case status == string(domain.IdempotencyFailed):
		updateQuery := `
			UPDATE idempotency_records SET status = $3, updated_at = $4
			WHERE tenant_id = $1 AND event_id = $2;
		`
		if _, err := tx.Exec(ctx, updateQuery, tenantID, sourceEventID, string(domain.IdempotencyProcessing), now); err != nil {
			return result, apperrors.NewAppError(500, "failed to reopen failed idempotency record for event "+sourceEventID, err)
		}
		result.State = domain.IdempotencyNew
	case now.Sub(updatedAt) >= domain.ProcessingLease:
		// PROCESSING, same payload, stale claim: the holder is presumed dead.
		updateQuery := `
			UPDATE idempotency_records SET updated_at = $3
			WHERE tenant_id = $1 AND event_id = $2;
		`
		if _, err := tx.Exec(ctx, updateQuery, tenantID, sourceEventID, now); err != nil {
			return result, apperrors.NewAppError(500, "failed to reclaim idempotency record for event "+sourceEventID, err)
		}
		result.State = domain.IdempotencyNew
	default: // still PROCESSING with the same payload, lease fresh
		result.State = domain.IdempotencyDuplicateSamePayload
	}

	if err := r.Commit(ctx, tx); err != nil {
		return domain.IdempotencyCheckResult{}, err
	}
	return result, nil
}

// Upsert writes the record's terminal state, replacing any prior row for the
// same (tenant, event) pair.
func (r *PgxIdempotencyRepository) Upsert(ctx context.Context, record domain.IdempotencyRecord) error {
	query := `
		INSERT INTO idempotency_records (tenant_id, event_id, payload_hash, status, response_body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, event_id) DO UPDATE
		SET payload_hash = EXCLUDED.payload_hash,
		    status = EXCLUDED.status,
		    response_body = EXCLUDED.response_body,
		    updated_at = EXCLUDED.updated_at;
	`
	var responseBody *string
	if record.ResponseBody != "" {
		responseBody = &record.ResponseBody
	}
	_, err := r.Pool.Exec(ctx, query,
		record.TenantID,
		record.SourceEventID,
		record.PayloadHash,
		string(record.Status),
		responseBody,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to upsert idempotency record for event "+record.SourceEventID, err)
	}
	return nil
}

// Find retrieves the durable record for an event, or ErrNotFound.
func (r *PgxIdempotencyRepository) Find(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error) {
	query := `
		SELECT tenant_id, event_id, payload_hash, status, response_body, created_at, updated_at
		FROM idempotency_records
		WHERE tenant_id = $1 AND event_id = $2;
	`
	var record domain.IdempotencyRecord
	var responseBody *string
	err := r.Pool.QueryRow(ctx, query, tenantID, sourceEventID).Scan(
		&record.TenantID,
		&record.SourceEventID,
		&record.PayloadHash,
		&record.Status,
		&responseBody,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find idempotency record for event "+sourceEventID, err)
	}
	if responseBody != nil {
		record.ResponseBody = *responseBody
	}
	return &record, nil
}
