package services_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

// --- Mock EntryRepository ---

type MockEntryRepository struct {
	mock.Mock
}

var _ portsrepo.EntryRepositoryFacade = (*MockEntryRepository)(nil)

func (m *MockEntryRepository) PersistEntry(ctx context.Context, entry domain.LedgerEntry, outbox domain.OutboxEvent) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, entry, outbox)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error) {
	args := m.Called(ctx, tenantID, sourceEventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryRepository) ExistsReversalOf(ctx context.Context, tenantID, entryID string) (bool, error) {
	args := m.Called(ctx, tenantID, entryID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntryRepository) LatestHash(ctx context.Context, tenantID string) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockEntryRepository) FindAutoReverseEntries(ctx context.Context, tenantID string, from, to time.Time) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) ListEntriesByCreation(ctx context.Context, tenantID string) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}

func (m *MockEntryRepository) ListEntries(ctx context.Context, tenantID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	args := m.Called(ctx, tenantID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedToken = &tokenVal
	}
	return args.Get(0).([]domain.LedgerEntry), returnedToken, args.Error(2)
}

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) FindByTenantAndCodes(ctx context.Context, tenantID string, codes []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tenantID, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, accountCode string, delta int64) error {
	args := m.Called(ctx, tx, tenantID, accountCode, delta)
	return args.Error(0)
}

func (m *MockAccountRepository) SumBalancesByType(ctx context.Context, tenantID string) (map[domain.AccountType]int64, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.AccountType]int64), args.Error(1)
}

// --- Mock TenantRepository ---

type MockTenantRepository struct {
	mock.Mock
}

var _ portsrepo.TenantRepositoryFacade = (*MockTenantRepository)(nil)

func (m *MockTenantRepository) FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListActiveTenants(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tenant), args.Error(1)
}

// --- Mock IdempotencyRepository ---

type MockIdempotencyRepository struct {
	mock.Mock
}

var _ portsrepo.IdempotencyRepositoryFacade = (*MockIdempotencyRepository)(nil)

func (m *MockIdempotencyRepository) CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error) {
	args := m.Called(ctx, tenantID, sourceEventID, payloadHash)
	return args.Get(0).(domain.IdempotencyCheckResult), args.Error(1)
}

func (m *MockIdempotencyRepository) Upsert(ctx context.Context, record domain.IdempotencyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) Find(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error) {
	args := m.Called(ctx, tenantID, sourceEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyRecord), args.Error(1)
}

// --- Mock IdempotencyCache ---

type MockIdempotencyCache struct {
	mock.Mock
}

var _ portsrepo.IdempotencyCacheFacade = (*MockIdempotencyCache)(nil)

func (m *MockIdempotencyCache) AcquireFirstSight(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) (bool, error) {
	args := m.Called(ctx, tenantID, sourceEventID, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyCache) Get(ctx context.Context, tenantID, sourceEventID string) (*domain.IdempotencyRecord, error) {
	args := m.Called(ctx, tenantID, sourceEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyRecord), args.Error(1)
}

func (m *MockIdempotencyCache) Set(ctx context.Context, tenantID, sourceEventID string, record domain.IdempotencyRecord) error {
	args := m.Called(ctx, tenantID, sourceEventID, record)
	return args.Error(0)
}

// --- Mock OutboxRepository ---

type MockOutboxRepository struct {
	mock.Mock
}

var _ portsrepo.OutboxRepositoryFacade = (*MockOutboxRepository)(nil)

func (m *MockOutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	args := m.Called(ctx, outboxID, publishedAt)
	return args.Error(0)
}

func (m *MockOutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock WorkflowRepository ---

type MockWorkflowRepository struct {
	mock.Mock
}

var _ portsrepo.WorkflowRepositoryFacade = (*MockWorkflowRepository)(nil)

func (m *MockWorkflowRepository) SaveWorkflow(ctx context.Context, workflow domain.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepository) FindByTenantAndID(ctx context.Context, tenantID, workflowID string) (*domain.Workflow, error) {
	args := m.Called(ctx, tenantID, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) UpdateWorkflowState(ctx context.Context, workflow domain.Workflow) error {
	args := m.Called(ctx, workflow)
	return args.Error(0)
}

func (m *MockWorkflowRepository) ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error) {
	args := m.Called(ctx, tenantID, sourceEventID)
	return args.Bool(0), args.Error(1)
}

// --- Mock WorkflowService ---

type MockWorkflowService struct {
	mock.Mock
}

var _ portssvc.WorkflowSvcFacade = (*MockWorkflowService)(nil)

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

// --- Mock OutboxPublisher ---

type MockPublisher struct {
	mock.Mock
}

var _ portssvc.OutboxPublisherFacade = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, event domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- passthrough idempotency gate ---

// passthroughGate admits every event as NEW and runs the wrapped operation
// directly, recording the gate keys it sees. It stands in for the real gate
// in tests whose subject is the code behind the gate.
type passthroughGate struct {
	Keys []string
}

var _ portssvc.IdempotencySvcFacade = (*passthroughGate)(nil)

func (g *passthroughGate) CheckAndMarkProcessing(ctx context.Context, tenantID, sourceEventID, payloadHash string) (domain.IdempotencyCheckResult, error) {
	return domain.IdempotencyCheckResult{State: domain.IdempotencyNew}, nil
}

func (g *passthroughGate) MarkCompleted(ctx context.Context, tenantID, sourceEventID, payloadHash, responseBody string) error {
	return nil
}

func (g *passthroughGate) MarkFailed(ctx context.Context, tenantID, sourceEventID, payloadHash, failureDetail string) error {
	return nil
}

func (g *passthroughGate) Execute(ctx context.Context, tenantID, sourceEventID string, payload any, operation func(context.Context) (any, error)) (json.RawMessage, error) {
	g.Keys = append(g.Keys, sourceEventID)
	result, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
