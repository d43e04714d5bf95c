package services

import (
	"context"
	"log/slog"

	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// autoReverseKeyPrefix derives the synthetic event id for a generated
// reversal from the original entry id, making period-open generation
// idempotent without any extra bookkeeping table.
const autoReverseKeyPrefix = "AUTO-REVERSE:"

// autoReversalService generates the period-open reversals for accrual entries
// flagged auto-reverse. Running it twice for the same period is a no-op.
type autoReversalService struct {
	entryRepo  portsrepo.EntryRepositoryFacade
	postingSvc *postingService
}

func NewAutoReversalService(entryRepo portsrepo.EntryRepositoryFacade, postingSvc *postingService) portssvc.AutoReversalSvcFacade {
	return &autoReversalService{
		entryRepo:  entryRepo,
		postingSvc: postingSvc,
	}
}

var _ portssvc.AutoReversalSvcFacade = (*autoReversalService)(nil)

// GenerateReversals mirrors every auto-reverse entry posted in the prior
// period into the new period. Entries already reversed, by this job or
// manually, are skipped.
func (s *autoReversalService) GenerateReversals(ctx context.Context, tenantID string, req dto.AutoReversalRequest) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entries, err := s.entryRepo.FindAutoReverseEntries(ctx, tenantID, req.PriorPeriodStart.UTC(), req.PriorPeriodEnd.UTC())
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range entries {
		entry := entries[i]
		eventID := autoReverseKeyPrefix + entry.EntryID

		posted, err := s.entryRepo.ExistsByTenantAndEventID(ctx, tenantID, eventID)
		if err != nil {
			return count, err
		}
		if posted {
			continue
		}
		reversed, err := s.entryRepo.ExistsReversalOf(ctx, tenantID, entry.EntryID)
		if err != nil {
			return count, err
		}
		if reversed {
			continue
		}

		draft := mirrorDraft(&entry, eventID, "Automatic reversal of "+entry.EntryID, req.CreatedBy, req.NewPeriodStart.UTC())
		if _, err := s.postingSvc.postPrepared(ctx, eventID, draft, ""); err != nil {
			logger.Error("Failed to generate auto-reversal",
				slog.String("journal_entry_id", entry.EntryID),
				slog.String("error", err.Error()),
			)
			return count, err
		}
		count++
	}

	logger.Info("Auto-reversal generation finished",
		slog.String("tenant_id", tenantID),
		slog.Int("reversal_count", count),
		slog.Int("candidates", len(entries)),
	)
	return count, nil
}
