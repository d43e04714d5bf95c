package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/middleware"
	"github.com/finstack/fisledger/internal/utils/hashing"
)

var (
	ErrPayloadMismatch = apperrors.NewAppError(409, "event id was already used with a different payload", apperrors.ErrDuplicate)
	ErrStillProcessing = apperrors.NewAppError(503, "event is still being processed, retry later", apperrors.ErrTransient)
)

// idempotencyService layers the cache in front of the durable store. The
// cache answers the common cases fast; the database remains the authority
// because cache entries expire and the cache itself may be down.
type idempotencyService struct {
	idempotencyRepo portsrepo.IdempotencyRepositoryFacade
	cache           portsrepo.IdempotencyCacheFacade
	failOpen        bool
}

// NewIdempotencyService creates the duplicate-detection gate. failOpen
// controls behavior when the cache is unreachable: true falls through to the
// durable store, false rejects the request as transient.
func NewIdempotencyService(idempotencyRepo portsrepo.IdempotencyRepositoryFacade, cache portsrepo.IdempotencyCacheFacade, failOpen bool) portssvc.IdempotencySvcFacade {
	return &idempotencyService{
		idempotencyRepo: idempotencyRepo,
		cache:           cache,
		failOpen:        failOpen,
	}
}

var _ portssvc.IdempotencySvcFacade = (*idempotencyService)(nil)

// CheckAndMarkProcessing classifies the event against the cache, then the
// durable store. A cache first-sight is never trusted on its own: the counter
// TTL can outlive nothing while the database still remembers the event, so
// NEW is only reported after the durable arbitration agrees.
func (s *idempotencyService) CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()

	record := domain.IdempotencyRecord{
		TenantID:      tenantID,
		SourceEventID: sourceEventID,
		PayloadHash:   payloadHash,
		Status:        domain.IdempotencyProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	first, err := s.cache.AcquireFirstSight(ctx, tenantID, sourceEventID, record)
	if err != nil {
		if !s.failOpen {
			logger.Error("Idempotency cache unavailable, rejecting (fail-closed)", slog.String("event_id", sourceEventID), slog.String("error", err.Error()))
			return domain.IdempotencyCheckResult{}, apperrors.NewAppError(503, "idempotency cache unavailable", apperrors.ErrTransient)
		}
		logger.Warn("Idempotency cache unavailable, falling through to database", slog.String("event_id", sourceEventID), slog.String("error", err.Error()))
		return s.idempotencyRepo.CheckAndMarkProcessing(ctx, tenantID, sourceEventID, payloadHash)
	}

	if !first {
		cached, err := s.cache.Get(ctx, tenantID, sourceEventID)
		if err != nil && !s.failOpen {
			return domain.IdempotencyCheckResult{}, apperrors.NewAppError(503, "idempotency cache unavailable", apperrors.ErrTransient)
		}
		if cached != nil {
			switch {
			case cached.PayloadHash != payloadHash:
				return domain.IdempotencyCheckResult{State: domain.IdempotencyDuplicateDifferentPayload}, nil
			case cached.Status == domain.IdempotencyCompleted:
				return domain.IdempotencyCheckResult{
					State:          domain.IdempotencyDuplicateSamePayload,
					CachedResponse: cached.ResponseBody,
				}, nil
			case cached.Status == domain.IdempotencyProcessing && now.Sub(cached.UpdatedAt) < domain.ProcessingLease:
				return domain.IdempotencyCheckResult{State: domain.IdempotencyDuplicateSamePayload}, nil
			}
			// FAILED and expired PROCESSING claims fall through: the durable
			// store decides whether the retry is admitted.
		}
	}

	return s.idempotencyRepo.CheckAndMarkProcessing(ctx, tenantID, sourceEventID, payloadHash)
}

// MarkCompleted records the terminal success state in both tiers.
func (s *idempotencyService) MarkCompleted(ctx context.Context, tenantID, sourceEventID, payloadHash, responseBody string) error {
	return s.markTerminal(ctx, tenantID, sourceEventID, payloadHash, domain.IdempotencyCompleted, responseBody)
}

// MarkFailed records a terminal business failure in both tiers. A later
// identical request is allowed to retry from scratch.
func (s *idempotencyService) MarkFailed(ctx context.Context, tenantID, sourceEventID, payloadHash, failureDetail string) error {
	return s.markTerminal(ctx, tenantID, sourceEventID, payloadHash, domain.IdempotencyFailed, failureDetail)
}

func (s *idempotencyService) markTerminal(ctx context.Context, tenantID, sourceEventID, payloadHash string, status domain.IdempotencyStatus, body string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	now := time.Now().UTC()
	record := domain.IdempotencyRecord{
		TenantID:      tenantID,
		SourceEventID: sourceEventID,
		PayloadHash:   payloadHash,
		Status:        status,
		ResponseBody:  body,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.idempotencyRepo.Upsert(ctx, record); err != nil {
		return err
	}
	// The cache is best-effort once the database has the record.
	if err := s.cache.Set(ctx, tenantID, sourceEventID, record); err != nil {
		logger.Warn("Failed to refresh idempotency cache", slog.String("event_id", sourceEventID), slog.String("error", err.Error()))
	}
	return nil
}

// Execute wraps a write operation with the gate. The operation runs at most
// once per (tenant, event id, payload fingerprint); same-payload duplicates
// replay the recorded response.
func (s *idempotencyService) Execute(ctx context.Context, tenantID, sourceEventID string, payload any, operation func(context.Context) (any, error)) (json.RawMessage, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	payloadHash, err := hashing.PayloadFingerprint(payload)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to fingerprint payload for event "+sourceEventID, err)
	}

	check, err := s.CheckAndMarkProcessing(ctx, tenantID, sourceEventID, payloadHash)
	if err != nil {
		return nil, err
	}

	switch check.State {
	case domain.IdempotencyDuplicateDifferentPayload:
		logger.Warn("Duplicate event with different payload", slog.String("event_id", sourceEventID))
		return nil, ErrPayloadMismatch
	case domain.IdempotencyDuplicateSamePayload:
		if check.CachedResponse != "" {
			logger.Info("Replaying recorded response for duplicate event", slog.String("event_id", sourceEventID))
			return json.RawMessage(check.CachedResponse), nil
		}
		// Another worker holds the event in PROCESSING; the caller retries.
		return nil, ErrStillProcessing
	}

	result, opErr := operation(ctx)
	if opErr != nil {
		// Transient faults leave the record PROCESSING so redelivery can pick
		// the event up again. Business failures are terminal.
		if !errors.Is(opErr, apperrors.ErrTransient) && !errors.Is(opErr, apperrors.ErrInternal) {
			if markErr := s.MarkFailed(ctx, tenantID, sourceEventID, payloadHash, opErr.Error()); markErr != nil {
				logger.Error("Failed to record idempotency failure", slog.String("event_id", sourceEventID), slog.String("error", markErr.Error()))
			}
		}
		return nil, opErr
	}

	responseBody, err := json.Marshal(result)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to encode response for event "+sourceEventID, err)
	}
	if err := s.MarkCompleted(ctx, tenantID, sourceEventID, payloadHash, string(responseBody)); err != nil {
		return nil, err
	}
	return responseBody, nil
}
