package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

var ErrAlreadyReversed = apperrors.NewAppError(409, "entry has already been reversed", apperrors.ErrConflict)

// reversalService posts compensating entries. The ledger is append-only, so
// an erroneous entry is never touched; its effect is undone by a mirror entry
// and, for corrections, replaced by a fresh one.
type reversalService struct {
	entryRepo  portsrepo.EntryRepositoryFacade
	tenantRepo portsrepo.TenantRepositoryFacade
	postingSvc *postingService
}

func NewReversalService(entryRepo portsrepo.EntryRepositoryFacade, tenantRepo portsrepo.TenantRepositoryFacade, postingSvc *postingService) portssvc.ReversalSvcFacade {
	return &reversalService{
		entryRepo:  entryRepo,
		tenantRepo: tenantRepo,
		postingSvc: postingSvc,
	}
}

var _ portssvc.ReversalSvcFacade = (*reversalService)(nil)

// Reverse posts a mirror entry with every line's direction flipped.
func (s *reversalService) Reverse(ctx context.Context, tenantID, entryID string, req dto.ReversalRequest) (*dto.ReversalResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.entryRepo.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	reversed, err := s.entryRepo.ExistsReversalOf(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if reversed {
		logger.Warn("Reversal rejected, entry already reversed", slog.String("journal_entry_id", entryID))
		return nil, ErrAlreadyReversed
	}

	description := fmt.Sprintf("Reversal of %s: %s", entryID, req.Reason)
	draft := mirrorDraft(original, req.EventID, description, req.CreatedBy, time.Now().UTC())

	posted, err := s.postingSvc.postPrepared(ctx, draft.SourceEventID, draft, "")
	if err != nil {
		return nil, err
	}

	logger.Info("Entry reversed",
		slog.String("journal_entry_id", entryID),
		slog.String("reversal_journal_entry_id", posted.EntryID),
	)
	return &dto.ReversalResponse{
		ReversalEntryID: posted.EntryID,
		OriginalEntryID: entryID,
		Status:          string(posted.Status),
		Message:         "entry reversed",
	}, nil
}

// Correct reverses the original and posts a replacement. The replacement is
// validated before either entry is persisted, so a bad replacement never
// leaves an orphaned reversal behind.
func (s *reversalService) Correct(ctx context.Context, tenantID, entryID string, req dto.CorrectionRequest) (*dto.ReversalResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.entryRepo.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	reversed, err := s.entryRepo.ExistsReversalOf(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	if reversed {
		return nil, ErrAlreadyReversed
	}

	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	replacementReq := dto.CreateEntryRequest{
		SourceEventID:       req.EventID,
		PostingDate:         req.PostingDate,
		Description:         req.Description,
		ReferenceID:         req.ReferenceID,
		TransactionCurrency: req.TransactionCurrency,
		CreatedBy:           req.CreatedBy,
		Lines:               req.Lines,
	}
	replacement, err := buildDraft(*tenant, replacementReq)
	if err != nil {
		return nil, err
	}
	replacement.Status = domain.Correction
	if err := s.postingSvc.validator.Validate(ctx, *tenant, replacement); err != nil {
		logger.Warn("Correction rejected, replacement invalid", slog.String("journal_entry_id", entryID), slog.String("error", err.Error()))
		return nil, err
	}

	description := fmt.Sprintf("Reversal of %s for correction", entryID)
	reversalDraft := mirrorDraft(original, req.ReversalEventID, description, req.CreatedBy, time.Now().UTC())

	reversal, err := s.postingSvc.postPrepared(ctx, reversalDraft.SourceEventID, reversalDraft, "")
	if err != nil {
		return nil, err
	}
	posted, err := s.postingSvc.postPrepared(ctx, replacement.SourceEventID, replacement, "")
	if err != nil {
		return nil, err
	}

	logger.Info("Entry corrected",
		slog.String("journal_entry_id", entryID),
		slog.String("reversal_journal_entry_id", reversal.EntryID),
		slog.String("replacement_journal_entry_id", posted.EntryID),
	)
	return &dto.ReversalResponse{
		ReversalEntryID:    reversal.EntryID,
		OriginalEntryID:    entryID,
		ReplacementEntryID: &posted.EntryID,
		Status:             string(domain.Correction),
		Message:            "entry corrected",
	}, nil
}

// mirrorDraft builds the compensating draft for an entry: same lines, same
// amounts, direction flipped.
func mirrorDraft(original *domain.LedgerEntry, eventID, description, createdBy string, postingDate time.Time) domain.DraftEntry {
	originalID := original.EntryID
	draft := domain.DraftEntry{
		TenantID:            original.TenantID,
		SourceEventID:       eventID,
		PostingDate:         postingDate,
		Description:         description,
		ReferenceID:         original.ReferenceID,
		Status:              domain.Reversal,
		ReversalOfID:        &originalID,
		TransactionCurrency: original.TransactionCurrency,
		BaseCurrency:        original.BaseCurrency,
		ExchangeRate:        original.ExchangeRate,
		CreatedBy:           createdBy,
		Lines:               make([]domain.DraftLine, len(original.Lines)),
	}
	for i, line := range original.Lines {
		draft.Lines[i] = domain.DraftLine{
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			BaseAmount:  line.BaseAmount,
			IsCredit:    !line.IsCredit,
			Dimensions:  line.Dimensions,
		}
	}
	return draft
}
