package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
)

// --- Mock PostingService ---

type MockPostingService struct {
	mock.Mock
}

func (m *MockPostingService) PostEntry(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error) {
	args := m.Called(ctx, tenantID, req, traceparent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EntryResponse), args.Error(1)
}

func (m *MockPostingService) GetEntry(ctx context.Context, tenantID, entryID string) (*dto.EntryResponse, error) {
	args := m.Called(ctx, tenantID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EntryResponse), args.Error(1)
}

func (m *MockPostingService) ListEntries(ctx context.Context, tenantID string, params dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, tenantID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}

var _ portssvc.PostingSvcFacade = (*MockPostingService)(nil)

// --- Mock ReversalService ---

type MockReversalService struct {
	mock.Mock
}

func (m *MockReversalService) Reverse(ctx context.Context, tenantID, entryID string, req dto.ReversalRequest) (*dto.ReversalResponse, error) {
	args := m.Called(ctx, tenantID, entryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReversalResponse), args.Error(1)
}

func (m *MockReversalService) Correct(ctx context.Context, tenantID, entryID string, req dto.CorrectionRequest) (*dto.ReversalResponse, error) {
	args := m.Called(ctx, tenantID, entryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReversalResponse), args.Error(1)
}

var _ portssvc.ReversalSvcFacade = (*MockReversalService)(nil)

// --- Mock WorkflowService ---

type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) CreateDraft(ctx context.Context, tenantID string, req dto.CreateEntryRequest, traceparent string) (*dto.EntryResponse, error) {
	args := m.Called(ctx, tenantID, req, traceparent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.EntryResponse), args.Error(1)
}

func (m *MockWorkflowService) Submit(ctx context.Context, tenantID, workflowID string, req dto.SubmitWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	args := m.Called(ctx, tenantID, workflowID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.WorkflowActionResponse), args.Error(1)
}

func (m *MockWorkflowService) Approve(ctx context.Context, tenantID, workflowID string, req dto.ApproveWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	args := m.Called(ctx, tenantID, workflowID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.WorkflowActionResponse), args.Error(1)
}

func (m *MockWorkflowService) Reject(ctx context.Context, tenantID, workflowID string, req dto.RejectWorkflowRequest) (*dto.WorkflowActionResponse, error) {
	args := m.Called(ctx, tenantID, workflowID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.WorkflowActionResponse), args.Error(1)
}

var _ portssvc.WorkflowSvcFacade = (*MockWorkflowService)(nil)

// --- Mock IntegrityService ---

type MockIntegrityService struct {
	mock.Mock
}

func (m *MockIntegrityService) CheckTenant(ctx context.Context, tenantID string) (*dto.IntegrityCheckResponse, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IntegrityCheckResponse), args.Error(1)
}

var _ portssvc.IntegritySvcFacade = (*MockIntegrityService)(nil)

// --- Mock AutoReversalService ---

type MockAutoReversalService struct {
	mock.Mock
}

func (m *MockAutoReversalService) GenerateReversals(ctx context.Context, tenantID string, req dto.AutoReversalRequest) (int, error) {
	args := m.Called(ctx, tenantID, req)
	return args.Int(0), args.Error(1)
}

var _ portssvc.AutoReversalSvcFacade = (*MockAutoReversalService)(nil)
