package services

import (
	"context"
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

// workflowGateKeyPrefix namespaces the approval posting's idempotency key: the
// workflow's own event id was consumed when the draft was created.
const workflowGateKeyPrefix = "WORKFLOW-APPROVE:"

var (
	ErrWorkflowEventTaken  = apperrors.NewAppError(409, "event id already has a workflow", apperrors.ErrConflict)
	ErrWorkflowEventPosted = apperrors.NewAppError(409, "event id was already posted to the ledger", apperrors.ErrConflict)
	ErrWorkflowNotDraft    = apperrors.NewAppError(409, "workflow can only be submitted from DRAFT", apperrors.ErrConflict)
	ErrWorkflowNotPending  = apperrors.NewAppError(409, "workflow is not pending approval", apperrors.ErrConflict)
	ErrSelfApproval        = fmt.Errorf("%w: approver must differ from the creator", apperrors.ErrValidation)
	ErrWorkflowCurrency    = fmt.Errorf("%w: workflow drafts must be in the tenant base currency", apperrors.ErrValidation)
)

// workflowService drives the maker-checker state machine for manual entries:
// DRAFT -> PENDING_APPROVAL -> APPROVED or REJECTED. Only APPROVED touches
// the ledger, and only through the shared posting pipeline.
type workflowService struct {
	workflowRepo portsrepo.WorkflowRepositoryFacade
	entryRepo    portsrepo.EntryRepositoryFacade
	tenantRepo   portsrepo.TenantRepositoryFacade
	postingSvc   *postingService
}

func NewWorkflowService(workflowRepo portsrepo.WorkflowRepositoryFacade, entryRepo portsrepo.EntryRepositoryFacade, tenantRepo portsrepo.TenantRepositoryFacade, postingSvc *postingService) portssvc.WorkflowSvcFacade {
	return &workflowService{
		workflowRepo: workflowRepo,
		entryRepo:    entryRepo,
		tenantRepo:   tenantRepo,
		postingSvc:   postingSvc,
	}
}

var _ portssvc.WorkflowSvcFacade = (*workflowService)(nil)

// CreateDraft stores a draft workflow for the request. Invoked by API callers
// directly and by the posting engine when a request crosses the approval
// threshold.
func (s *workflowService) CreateDraft(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	exists, err := s.workflowRepo.ExistsByTenantAndEventID(ctx, tenantID, req.SourceEventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrWorkflowEventTaken
	}
	posted, err := s.entryRepo.ExistsByTenantAndEventID(ctx, tenantID, req.SourceEventID)
	if err != nil {
		return nil, err
	}
	if posted {
		return nil, ErrWorkflowEventPosted
	}

	now := time.Now().UTC()
	workflow := domain.Workflow{
		WorkflowID:          uuid.NewString(),
		TenantID:            tenantID,
		SourceEventID:       req.SourceEventID,
		PostingDate:         req.PostingDate.UTC(),
		Description:         req.Description,
		ReferenceID:         req.ReferenceID,
		TransactionCurrency: req.TransactionCurrency,
		Status:              domain.WorkflowDraft,
		CreatedBy:           req.CreatedBy,
		CreatedAt:           now,
		Traceparent:         traceparent,
		Lines:               make([]domain.WorkflowLine, len(req.Lines)),
	}
	for i, line := range req.Lines {
		workflow.Lines[i] = domain.WorkflowLine{
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			IsCredit:    line.IsCredit,
			Dimensions:  line.Dimensions,
			SortOrder:   i,
		}
	}

	if err := s.workflowRepo.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	logger.Info("Workflow draft created",
		slog.String("workflow_id", workflow.WorkflowID),
		slog.String("event_id", req.SourceEventID),
	)
	return &dto.EntryResponse{
		EntryID:             workflow.WorkflowID,
		TenantID:            tenantID,
		SourceEventID:       req.SourceEventID,
		PostingDate:         workflow.PostingDate,
		Description:         workflow.Description,
		ReferenceID:         workflow.ReferenceID,
		Status:              WorkflowDraftStatus,
		TransactionCurrency: workflow.TransactionCurrency,
		CreatedBy:           workflow.CreatedBy,
		CreatedAt:           workflow.CreatedAt,
		LineCount:           len(workflow.Lines),
	}, nil
}

// Submit moves a draft into the approval queue.
func (s *workflowService) Submit(ctx context.Context, tenantID, workflowID string, req dto.SubmitWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	workflow, err := s.workflowRepo.FindByTenantAndID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status != domain.WorkflowDraft {
		return nil, ErrWorkflowNotDraft
	}
	if err := validateWorkflowLines(workflow.Lines); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.Status = domain.WorkflowPendingApproval
	workflow.SubmittedBy = req.SubmittedBy
	workflow.SubmittedAt = &now
	if err := s.workflowRepo.UpdateWorkflowState(ctx, *workflow); err != nil {
		return nil, err
	}

	return &dto.WorkflowActionResponse{
		WorkflowID: workflowID,
		Status:     workflow.Status,
		Message:    "workflow submitted for approval",
	}, nil
}

// validateWorkflowLines enforces the structural shape of a draft before it
// enters the approval queue: at least one debit and one credit, strictly
// positive amounts, and debits equal to credits. Account and tenant checks
// run later, at approval time, through the posting pipeline.
func validateWorkflowLines(lines []domain.WorkflowLine) error {
	var debits, credits int
	var debitTotal, creditTotal int64
	for _, line := range lines {
		if line.Amount <= 0 {
			return fmt.Errorf("%w: account %s", ErrAmountNotPositive, line.AccountCode)
		}
		if line.IsCredit {
			credits++
			creditTotal += line.Amount
		} else {
			debits++
			debitTotal += line.Amount
		}
	}
	if debits < 1 || credits < 1 {
		return ErrEntryMinLines
	}
	if debitTotal != creditTotal {
		return fmt.Errorf("%w: debits %d, credits %d", ErrEntryUnbalanced, debitTotal, creditTotal)
	}
	return nil
}

// Approve posts the pending draft to the ledger and freezes the workflow.
// Maker-checker: the approver must not be the creator.
func (s *workflowService) Approve(ctx context.Context, tenantID, workflowID string, req dto.ApproveWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	workflow, err := s.workflowRepo.FindByTenantAndID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status != domain.WorkflowPendingApproval {
		return nil, ErrWorkflowNotPending
	}
	if req.ApprovedBy == workflow.CreatedBy {
		logger.Warn("Self-approval rejected", slog.String("workflow_id", workflowID), slog.String("user", req.ApprovedBy))
		return nil, ErrSelfApproval
	}

	tenant, err := s.tenantRepo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	draft, err := draftFromWorkflow(*tenant, *workflow, req.ApprovedBy)
	if err != nil {
		return nil, err
	}

	posted, err := s.postingSvc.postPrepared(ctx, workflowGateKeyPrefix+workflowID, draft, workflow.Traceparent)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow.Status = domain.WorkflowApproved
	workflow.ApprovedBy = req.ApprovedBy
	workflow.ApprovedAt = &now
	workflow.PostedEntryID = &posted.EntryID
	if err := s.workflowRepo.UpdateWorkflowState(ctx, *workflow); err != nil {
		return nil, err
	}

	logger.Info("Workflow approved and posted",
		slog.String("workflow_id", workflowID),
		slog.String("journal_entry_id", posted.EntryID),
	)
	return &dto.WorkflowActionResponse{
		WorkflowID:    workflowID,
		Status:        domain.WorkflowApproved,
		PostedEntryID: &posted.EntryID,
		Message:       "workflow approved, entry posted",
	}, nil
}

// Reject terminates a pending draft. REJECTED is final.
func (s *workflowService) Reject(ctx context.Context, tenantID, workflowID string, req dto.RejectWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	workflow, err := s.workflowRepo.FindByTenantAndID(ctx, tenantID, workflowID)
	if err != nil {
		return nil, err
	}
	if workflow.Status != domain.WorkflowPendingApproval {
		return nil, ErrWorkflowNotPending
	}

	now := time.Now().UTC()
	workflow.Status = domain.WorkflowRejected
	workflow.RejectedBy = req.RejectedBy
	workflow.RejectedAt = &now
	workflow.RejectionReason = req.Reason
	if err := s.workflowRepo.UpdateWorkflowState(ctx, *workflow); err != nil {
		return nil, err
	}

	return &dto.WorkflowActionResponse{
		WorkflowID: workflowID,
		Status:     domain.WorkflowRejected,
		Message:    "workflow rejected: " + req.Reason,
	}, nil
}

// draftFromWorkflow rebuilds the posting draft from the stored workflow.
// Workflow drafts are manual entries, so they are restricted to the tenant's
// base currency; there is no manual exchange-rate entry.
func draftFromWorkflow(tenant domain.Tenant, workflow domain.Workflow, approvedBy string) (domain.DraftEntry, error) {
	if workflow.TransactionCurrency != tenant.BaseCurrency {
		return domain.DraftEntry{}, ErrWorkflowCurrency
	}
	draft := domain.DraftEntry{
		TenantID:            workflow.TenantID,
		SourceEventID:       workflow.SourceEventID,
		PostingDate:         workflow.PostingDate,
		Description:         workflow.Description,
		ReferenceID:         workflow.ReferenceID,
		Status:              domain.Posted,
		TransactionCurrency: workflow.TransactionCurrency,
		BaseCurrency:        tenant.BaseCurrency,
		ExchangeRate:        decimal.NewFromInt(1),
		CreatedBy:           approvedBy,
		Lines:               make([]domain.DraftLine, len(workflow.Lines)),
	}
	for i, line := range workflow.Lines {
		draft.Lines[i] = domain.DraftLine{
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			BaseAmount:  line.Amount,
			IsCredit:    line.IsCredit,
			Dimensions:  line.Dimensions,
		}
	}
	return draft, nil
}
