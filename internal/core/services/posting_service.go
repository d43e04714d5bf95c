package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/finstack/fisledger/internal/middleware"
)

// WorkflowDraftStatus is the status reported when a request is diverted into
// the approval workflow instead of posted.
const WorkflowDraftStatus = domain.EntryStatus("DRAFT")

// postingService is the single pipeline from draft to ledger: idempotency
// gate, validation, approval routing, then the atomic persist. The reversal,
// workflow and auto-reversal services reuse its gated persist path with
// drafts they prepare themselves.
type postingService struct {
	entryRepo      portsrepo.EntryRepositoryFacade
	tenantRepo     portsrepo.TenantRepositoryFacade
	idempotencySvc portssvc.IdempotencySvcFacade
	workflowSvc    portssvc.WorkflowSvcFacade
	validator      *entryValidator

	// Drafts whose total debits reach this value (minor units) require
	// approval. Zero disables routing.
	approvalThreshold int64
}

// NewPostingService creates the posting engine. The workflow service is
// attached afterwards via SetWorkflowService because the two depend on each
// other.
func NewPostingService(
	entryRepo portsrepo.EntryRepositoryFacade,
	accountRepo portsrepo.AccountRepositoryFacade,
	tenantRepo portsrepo.TenantRepositoryFacade,
	idempotencySvc portssvc.IdempotencySvcFacade,
	approvalThreshold int64,
) *postingService {
	return &postingService{
		entryRepo:         entryRepo,
		tenantRepo:        tenantRepo,
		idempotencySvc:    idempotencySvc,
		validator:         newEntryValidator(accountRepo),
		approvalThreshold: approvalThreshold,
	}
}

// SetWorkflowService attaches the approval workflow used for threshold
// routing. Must be called before serving traffic when a threshold is set.
func (s *postingService) SetWorkflowService(workflowSvc portssvc.WorkflowSvcFacade) {
	s.workflowSvc = workflowSvc
}

var _ portssvc.PostingSvcFacade = (*postingService)(nil)

// PostEntry gates, validates and persists one entry. Drafts at or above the
// approval threshold are diverted into the approval workflow.
func (s *postingService) PostEntry(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error) {
	raw, err := s.idempotencySvc.Execute(ctx, tenantID, req.SourceEventID, req, func(ctx context.Context) (any, error) {
		return s.postRequestOnce(ctx, tenantID, req, traceparent)
	})
	if err != nil {
		return nil, err
	}
	return decodeEntryResponse(ctx, raw)
}

// postRequestOnce runs exactly once per admitted event: everything in here
// may assume the idempotency gate already filtered duplicates.
func (s *postingService) postRequestOnce(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	draft, err := buildDraft(*tenant, req)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, *tenant, draft); err != nil {
		logger.Warn("Draft rejected by validation", slog.String("event_id", req.SourceEventID), slog.String("error", err.Error()))
		return nil, err
	}

	if s.approvalThreshold > 0 && draft.TotalDebits() >= s.approvalThreshold {
		if s.workflowSvc == nil {
			return nil, apperrors.NewAppError(500, "approval workflow not configured", apperrors.ErrInternal)
		}
		logger.Info("Draft diverted to approval workflow",
			slog.String("event_id", req.SourceEventID),
			slog.Int64("total_debits", draft.TotalDebits()),
			slog.Int64("threshold", s.approvalThreshold),
		)
		return s.workflowSvc.CreateDraft(ctx, tenantID, req, traceparent)
	}

	return s.persistDraft(ctx, draft, traceparent)
}

// postPrepared gates and persists a draft built by a sibling service
// (reversal, correction, workflow approval, auto-reversal). These drafts are
// already authorized, so threshold routing never applies; the draft itself is
// the fingerprinted payload. gateKey is the idempotency key, which may differ
// from the draft's source event id when that id was consumed by an earlier
// gate pass.
func (s *postingService) postPrepared(ctx context.Context, gateKey string, draft domain.DraftEntry, traceparent string) (*dto.EntryResponse, error) {
	raw, err := s.idempotencySvc.Execute(ctx, draft.TenantID, gateKey, draft, func(ctx context.Context) (any, error) {
		tenant, err := s.tenantRepo.FindTenantByID(ctx, draft.TenantID)
		if err != nil {
			return nil, err
		}
		if err := s.validator.Validate(ctx, *tenant, draft); err != nil {
			return nil, err
		}
		return s.persistDraft(ctx, draft, traceparent)
	})
	if err != nil {
		return nil, err
	}
	return decodeEntryResponse(ctx, raw)
}

func decodeEntryResponse(ctx context.Context, raw json.RawMessage) (*dto.EntryResponse, error) {
	var resp dto.EntryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to decode posting response", slog.String("error", err.Error()))
		return nil, apperrors.NewAppError(500, "failed to decode posting response", err)
	}
	return &resp, nil
}

// buildDraft maps the request onto a draft, filling base-currency defaults.
// When the entry is already in the tenant's base currency the base amounts
// mirror the transaction amounts; foreign-currency entries must arrive with
// base amounts pre-resolved upstream.
func buildDraft(tenant domain.Tenant, req dto.CreateEntryRequest) (domain.DraftEntry, error) {
	rate := decimal.NewFromInt(1)
	if req.ExchangeRate != nil {
		rate = *req.ExchangeRate
	}

	draft := domain.DraftEntry{
		TenantID:            tenant.TenantID,
		SourceEventID:       req.SourceEventID,
		PostingDate:         req.PostingDate.UTC(),
		Description:         req.Description,
		ReferenceID:         req.ReferenceID,
		Status:              domain.Posted,
		TransactionCurrency: req.TransactionCurrency,
		BaseCurrency:        tenant.BaseCurrency,
		ExchangeRate:        rate,
		AutoReverse:         req.AutoReverse,
		CreatedBy:           req.CreatedBy,
		Lines:               make([]domain.DraftLine, len(req.Lines)),
	}
	for i, line := range req.Lines {
		baseAmount := line.BaseAmount
		if baseAmount == 0 {
			if req.TransactionCurrency != tenant.BaseCurrency {
				return domain.DraftEntry{}, fmt.Errorf("%w: base amount required for account %s", apperrors.ErrValidation, line.AccountCode)
			}
			baseAmount = line.Amount
		}
		draft.Lines[i] = domain.DraftLine{
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			BaseAmount:  baseAmount,
			IsCredit:    line.IsCredit,
			Dimensions:  line.Dimensions,
		}
	}
	return draft, nil
}

// persistDraft turns a validated draft into a ledger entry plus its outbox
// record through the repository's single-transaction write path.
func (s *postingService) persistDraft(ctx context.Context, draft domain.DraftEntry, traceparent string) (*dto.EntryResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry := domain.LedgerEntry{
		EntryID:             uuid.NewString(),
		TenantID:            draft.TenantID,
		SourceEventID:       draft.SourceEventID,
		PostingDate:         draft.PostingDate,
		Description:         draft.Description,
		ReferenceID:         draft.ReferenceID,
		Status:              draft.Status,
		ReversalOfID:        draft.ReversalOfID,
		FiscalYear:          draft.PostingDate.UTC().Year(),
		TransactionCurrency: draft.TransactionCurrency,
		BaseCurrency:        draft.BaseCurrency,
		ExchangeRate:        draft.ExchangeRate,
		AutoReverse:         draft.AutoReverse,
		CreatedBy:           draft.CreatedBy,
		Lines:               make([]domain.LedgerLine, len(draft.Lines)),
	}
	for i, line := range draft.Lines {
		entry.Lines[i] = domain.LedgerLine{
			LineID:      uuid.NewString(),
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			BaseAmount:  line.BaseAmount,
			IsCredit:    line.IsCredit,
			Dimensions:  line.Dimensions,
		}
	}

	outbox, err := buildOutboxEvent(entry, traceparent, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	persisted, err := s.entryRepo.PersistEntry(ctx, entry, outbox)
	if err != nil {
		logger.Error("Failed to persist ledger entry", slog.String("event_id", draft.SourceEventID), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Ledger entry posted",
		slog.String("journal_entry_id", persisted.EntryID),
		slog.String("event_id", persisted.SourceEventID),
		slog.Int64("sequence_number", persisted.SequenceNumber),
	)
	resp := dto.ToEntryResponse(persisted)
	return &resp, nil
}

// buildOutboxEvent assembles the fis.journal.posted payload. The payload is
// fixed before persistence, so it carries only the business identity of the
// entry; chain fields and the creation time are assigned inside the write
// transaction and are not part of it.
func buildOutboxEvent(entry domain.LedgerEntry, traceparent string, now time.Time) (domain.OutboxEvent, error) {
	payload, err := json.Marshal(map[string]any{
		"journalEntryId":      entry.EntryID,
		"tenantId":            entry.TenantID,
		"eventId":             entry.SourceEventID,
		"postingDate":         entry.PostingDate,
		"status":              entry.Status,
		"transactionCurrency": entry.TransactionCurrency,
		"totalDebitsCents":    entry.TotalDebits(),
		"lineCount":           len(entry.Lines),
	})
	if err != nil {
		return domain.OutboxEvent{}, apperrors.NewAppError(500, "failed to encode outbox payload for entry "+entry.EntryID, err)
	}
	return domain.OutboxEvent{
		OutboxID:      uuid.NewString(),
		TenantID:      entry.TenantID,
		EventType:     domain.EventTypeJournalPosted,
		AggregateType: domain.AggregateTypeLedgerEntry,
		AggregateID:   entry.EntryID,
		Payload:       string(payload),
		Traceparent:   traceparent,
		CreatedAt:     now,
	}, nil
}

// GetEntry loads a posted entry with its lines.
func (s *postingService) GetEntry(ctx context.Context, tenantID, entryID string) (*dto.EntryResponse, error) {
	entry, err := s.entryRepo.FindEntryByID(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToEntryResponse(entry)
	return &resp, nil
}

// ListEntries pages through a tenant's entries, newest first.
func (s *postingService) ListEntries(ctx context.Context, tenantID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	entries, nextToken, err := s.entryRepo.ListEntries(ctx, tenantID, params.Limit, params.NextToken)
	if err != nil {
		return nil, err
	}
	resp := dto.ListEntriesResponse{
		Entries:   make([]dto.EntryResponse, len(entries)),
		NextToken: nextToken,
	}
	for i := range entries {
		resp.Entries[i] = dto.ToEntryResponse(&entries[i])
	}
	return &resp, nil
}
