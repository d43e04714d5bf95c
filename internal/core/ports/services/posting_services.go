package services

import (
	"context"

	"github.com/finstack/fisledger/internal/dto"
)

// PostingSvcFacade is the single front door for getting drafts into the
// ledger. Every posting path (API, queue consumer, reversal, approved
// workflow, auto-reversal) funnels into the same validate→persist→outbox
// pipeline behind this facade.
type PostingSvcFacade interface {
	// PostEntry gates, validates and persists one entry. Drafts whose total
	// debits reach the approval threshold are diverted into the approval
	// workflow instead and returned with DRAFT semantics.
	PostEntry(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error)

	// GetEntry loads a posted entry with its lines.
	GetEntry(ctx context.Context, tenantID, entryID string) (*dto.EntryResponse, error)

	// ListEntries pages through a tenant's entries, newest first.
	ListEntries(ctx context.Context, tenantID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
}

// ReversalSvcFacade posts compensating entries.
type ReversalSvcFacade interface {
	// Reverse posts a mirror entry with every line's direction flipped.
	// Conflicts if the original is missing or already reversed.
	Reverse(ctx context.Context, tenantID, entryID string, req dto.ReversalRequest) (*dto.ReversalResponse, error)

	// Correct reverses the original and posts a replacement as one
	// all-or-nothing operation; a failing replacement leaves no orphaned
	// reversal behind.
	Correct(ctx context.Context, tenantID, entryID string, req dto.CorrectionRequest) (*dto.ReversalResponse, error)
}

// WorkflowSvcFacade drives the manual-entry approval state machine.
type WorkflowSvcFacade interface {
	CreateDraft(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error)
	Submit(ctx context.Context, tenantID, workflowID string, req dto.SubmitWorkflowRequest) (*dto.WorkflowActionResponse, error)
	Approve(ctx context.Context, tenantID, workflowID string, req dto.ApproveWorkflowRequest) (*dto.WorkflowActionResponse, error)
	Reject(ctx context.Context, tenantID, workflowID string, req dto.RejectWorkflowRequest) (*dto.WorkflowActionResponse, error)
}

// AutoReversalSvcFacade generates period-open reversals for accrual entries.
type AutoReversalSvcFacade interface {
	GenerateReversals(ctx context.Context, tenantID string, req dto.AutoReversalRequest) (int, error)
}

// IntegritySvcFacade verifies the hash chain and the accounting equation.
type IntegritySvcFacade interface {
	CheckTenant(ctx context.Context, tenantID string) (*dto.IntegrityCheckResponse, error)
}
