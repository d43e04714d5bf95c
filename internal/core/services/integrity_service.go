package services

import (
	"context"
	"log/slog"

	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// integrityService verifies a tenant's ledger offline: the hash chain is
// recomputed link by link, and the accounting equation is checked against the
// materialized balances. Read-only; it never repairs anything.
type integrityService struct {
	entryRepo   portsrepo.EntryRepositoryFacade
	accountRepo portsrepo.AccountRepositoryFacade
}

func NewIntegrityService(entryRepo portsrepo.EntryRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) portssvc.IntegritySvcFacade {
	return &integrityService{
		entryRepo:   entryRepo,
		accountRepo: accountRepo,
	}
}

var _ portssvc.IntegritySvcFacade = (*integrityService)(nil)

// CheckTenant walks the tenant's full chain and totals the balances.
//
// Balances use the uniform sign convention (debits positive, credits
// negative), so every posted entry nets to zero and the whole book must sum
// to zero: the equation delta is simply the sum over all account types.
func (s *integrityService) CheckTenant(ctx context.Context, tenantID string) (*dto.IntegrityCheckResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entries, err := s.entryRepo.ListEntriesByCreation(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := &dto.IntegrityCheckResponse{
		TenantID:    tenantID,
		ChainLength: len(entries),
		ChainIntact: true,
	}

	previousHash := domain.GenesisHash
	for i := range entries {
		entry := entries[i]
		expected := domain.ComputeEntryHash(entry.EntryID, entry.PreviousHash, entry.CreatedAt)
		if entry.PreviousHash != previousHash || entry.Hash != expected {
			resp.ChainIntact = false
			resp.BrokenAtEntryID = entry.EntryID
			logger.Error("Hash chain broken",
				slog.String("tenant_id", tenantID),
				slog.String("journal_entry_id", entry.EntryID),
				slog.Int64("sequence_number", entry.SequenceNumber),
			)
			break
		}
		previousHash = entry.Hash
	}

	sums, err := s.accountRepo.SumBalancesByType(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp.BalancesByType = sums
	for _, total := range sums {
		resp.EquationDelta += total
	}
	resp.Balanced = resp.EquationDelta == 0

	if !resp.Balanced {
		logger.Error("Accounting equation violated",
			slog.String("tenant_id", tenantID),
			slog.Int64("equation_delta", resp.EquationDelta),
		)
	}
	return resp, nil
}
