package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/core/services"
	"github.com/finstack/fisledger/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type PostingServiceTestSuite struct {
	suite.Suite
	mockEntryRepo   *MockEntryRepository
	mockAccountRepo *MockAccountRepository
	mockTenantRepo  *MockTenantRepository
	gate            *passthroughGate
	posting         portssvc.PostingSvcFacade

	tenantID string
	tenant   domain.Tenant
	cashAcct domain.Account
	revAcct  domain.Account
}

func (s *PostingServiceTestSuite) SetupTest() {
	s.mockEntryRepo = new(MockEntryRepository)
	s.mockAccountRepo = new(MockAccountRepository)
	s.mockTenantRepo = new(MockTenantRepository)
	s.gate = new(passthroughGate)

	s.tenantID = uuid.NewString()
	s.tenant = domain.Tenant{
		TenantID:     s.tenantID,
		Name:         "Acme Ltd",
		BaseCurrency: "USD",
		IsActive:     true,
	}
	s.cashAcct = domain.Account{
		AccountID:    uuid.NewString(),
		TenantID:     s.tenantID,
		Code:         "1000",
		Name:         "Cash",
		AccountType:  domain.Asset,
		CurrencyCode: "USD",
		IsActive:     true,
	}
	s.revAcct = domain.Account{
		AccountID:    uuid.NewString(),
		TenantID:     s.tenantID,
		Code:         "4000",
		Name:         "Revenue",
		AccountType:  domain.Revenue,
		CurrencyCode: "USD",
		IsActive:     true,
	}
}

func (s *PostingServiceTestSuite) newService(threshold int64) *MockWorkflowService {
	s.T().Helper()
	mockWf := new(MockWorkflowService)
	posting := services.NewPostingService(s.mockEntryRepo, s.mockAccountRepo, s.mockTenantRepo, s.gate, threshold)
	posting.SetWorkflowService(mockWf)
	s.posting = posting
	return mockWf
}

func (s *PostingServiceTestSuite) validRequest() dto.CreateEntryRequest {
	return dto.CreateEntryRequest{
		SourceEventID:       "EVT-" + uuid.NewString(),
		PostingDate:         time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Description:         "April invoice",
		TransactionCurrency: "USD",
		CreatedBy:           "system",
		Lines: []dto.EntryLineRequest{
			{AccountCode: "1000", Amount: 15000, IsCredit: false},
			{AccountCode: "4000", Amount: 15000, IsCredit: true},
		},
	}
}

func (s *PostingServiceTestSuite) expectAccounts() {
	s.mockAccountRepo.On("FindByTenantAndCodes", mock.Anything, s.tenantID, []string{"1000", "4000"}).
		Return(map[string]domain.Account{"1000": s.cashAcct, "4000": s.revAcct}, nil).Once()
}

func (s *PostingServiceTestSuite) TestPostEntrySuccess() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.expectAccounts()

	s.mockEntryRepo.On("PersistEntry", ctx, mock.MatchedBy(func(entry domain.LedgerEntry) bool {
		return entry.TenantID == s.tenantID &&
			entry.SourceEventID == req.SourceEventID &&
			entry.Status == domain.Posted &&
			entry.FiscalYear == 2026 &&
			entry.BaseCurrency == "USD" &&
			len(entry.Lines) == 2 &&
			entry.Lines[0].BaseAmount == 15000 && // defaults from Amount in base currency
			entry.EntryID != "" &&
			entry.Lines[0].LineID != ""
	}), mock.MatchedBy(func(outbox domain.OutboxEvent) bool {
		return outbox.EventType == domain.EventTypeJournalPosted &&
			outbox.AggregateType == domain.AggregateTypeLedgerEntry &&
			outbox.TenantID == s.tenantID
	})).Return(&domain.LedgerEntry{
		EntryID:             uuid.NewString(),
		TenantID:            s.tenantID,
		SourceEventID:       req.SourceEventID,
		PostingDate:         req.PostingDate,
		Status:              domain.Posted,
		SequenceNumber:      7,
		FiscalYear:          2026,
		TransactionCurrency: "USD",
		BaseCurrency:        "USD",
		ExchangeRate:        decimal.NewFromInt(1),
		PreviousHash:        domain.GenesisHash,
		Hash:                "abc123",
		Lines: []domain.LedgerLine{
			{AccountCode: "1000", Amount: 15000, BaseAmount: 15000},
			{AccountCode: "4000", Amount: 15000, BaseAmount: 15000, IsCredit: true},
		},
	}, nil).Once()

	resp, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.Equal(domain.Posted, resp.Status)
	s.Equal(int64(7), resp.SequenceNumber)
	s.Equal(2, resp.LineCount)
	s.Equal([]string{req.SourceEventID}, s.gate.Keys, "the source event id is the idempotency key")
	s.mockEntryRepo.AssertExpectations(s.T())
}

func (s *PostingServiceTestSuite) TestPostEntryUnbalancedRejected() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	req.Lines[1].Amount = 14000

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockEntryRepo.AssertNotCalled(s.T(), "PersistEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PostingServiceTestSuite) TestPostEntryDebitOnlyRejected() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	req.Lines[1].IsCredit = false

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PostingServiceTestSuite) TestPostEntryUnknownAccountRejected() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.mockAccountRepo.On("FindByTenantAndCodes", mock.Anything, s.tenantID, []string{"1000", "4000"}).
		Return(map[string]domain.Account{"1000": s.cashAcct}, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.mockEntryRepo.AssertNotCalled(s.T(), "PersistEntry", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PostingServiceTestSuite) TestPostEntryInactiveAccountRejected() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	inactive := s.revAcct
	inactive.IsActive = false

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.mockAccountRepo.On("FindByTenantAndCodes", mock.Anything, s.tenantID, []string{"1000", "4000"}).
		Return(map[string]domain.Account{"1000": s.cashAcct, "4000": inactive}, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PostingServiceTestSuite) TestPostEntryInactiveTenantRejected() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	inactiveTenant := s.tenant
	inactiveTenant.IsActive = false

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&inactiveTenant, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PostingServiceTestSuite) TestPostEntryForeignCurrencyRequiresBaseAmounts() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	req.TransactionCurrency = "EUR"
	rate := decimal.RequireFromString("1.08")
	req.ExchangeRate = &rate
	// No base amounts supplied: the service performs no conversion math.

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PostingServiceTestSuite) TestPostEntryForeignCurrencyWithBaseAmounts() {
	ctx := context.Background()
	s.newService(0)
	req := s.validRequest()
	req.TransactionCurrency = "EUR"
	rate := decimal.RequireFromString("1.08")
	req.ExchangeRate = &rate
	req.Lines[0].BaseAmount = 16200
	req.Lines[1].BaseAmount = 16200
	eurCash := s.cashAcct
	eurCash.CurrencyCode = "EUR"

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.mockAccountRepo.On("FindByTenantAndCodes", mock.Anything, s.tenantID, []string{"1000", "4000"}).
		Return(map[string]domain.Account{"1000": eurCash, "4000": s.revAcct}, nil).Once()
	s.mockEntryRepo.On("PersistEntry", ctx, mock.MatchedBy(func(entry domain.LedgerEntry) bool {
		return entry.TransactionCurrency == "EUR" &&
			entry.BaseCurrency == "USD" &&
			entry.ExchangeRate.Equal(rate) &&
			entry.Lines[0].BaseAmount == 16200
	}), mock.Anything).Return(&domain.LedgerEntry{EntryID: uuid.NewString(), Status: domain.Posted, ExchangeRate: rate}, nil).Once()

	resp, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().NoError(err)
	s.Require().NotNil(resp)
	s.mockEntryRepo.AssertExpectations(s.T())
}

func (s *PostingServiceTestSuite) TestPostEntryThresholdDivertsToWorkflow() {
	ctx := context.Background()
	mockWf := s.newService(10000) // total debits 15000 crosses it
	req := s.validRequest()

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.expectAccounts()
	mockWf.On("CreateDraft", mock.Anything, s.tenantID, req, "tp-1").Return(&dto.EntryResponse{
		EntryID:       uuid.NewString(),
		TenantID:      s.tenantID,
		SourceEventID: req.SourceEventID,
		Status:        services.WorkflowDraftStatus,
	}, nil).Once()

	resp, err := s.posting.PostEntry(ctx, s.tenantID, req, "tp-1")

	s.Require().NoError(err)
	s.Equal(services.WorkflowDraftStatus, resp.Status)
	s.mockEntryRepo.AssertNotCalled(s.T(), "PersistEntry", mock.Anything, mock.Anything, mock.Anything)
	mockWf.AssertExpectations(s.T())
}

func (s *PostingServiceTestSuite) TestPostEntryBelowThresholdPostsDirectly() {
	ctx := context.Background()
	mockWf := s.newService(20000) // total debits 15000 stays below
	req := s.validRequest()

	s.mockTenantRepo.On("FindTenantByID", ctx, s.tenantID).Return(&s.tenant, nil).Once()
	s.expectAccounts()
	s.mockEntryRepo.On("PersistEntry", ctx, mock.Anything, mock.Anything).
		Return(&domain.LedgerEntry{EntryID: uuid.NewString(), Status: domain.Posted}, nil).Once()

	_, err := s.posting.PostEntry(ctx, s.tenantID, req, "")

	s.Require().NoError(err)
	mockWf.AssertNotCalled(s.T(), "CreateDraft", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *PostingServiceTestSuite) TestGetEntryNotFound() {
	ctx := context.Background()
	s.newService(0)

	s.mockEntryRepo.On("FindEntryByID", ctx, s.tenantID, "missing").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := s.posting.GetEntry(ctx, s.tenantID, "missing")

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *PostingServiceTestSuite) TestListEntriesPropagatesToken() {
	ctx := context.Background()
	s.newService(0)
	token := "cursor"

	s.mockEntryRepo.On("ListEntries", ctx, s.tenantID, 25, (*string)(nil)).
		Return([]domain.LedgerEntry{{EntryID: "e1"}, {EntryID: "e2"}}, token, nil).Once()

	resp, err := s.posting.ListEntries(ctx, s.tenantID, dto.ListEntriesParams{Limit: 25})

	s.Require().NoError(err)
	s.Len(resp.Entries, 2)
	s.Require().NotNil(resp.NextToken)
	s.Equal(token, *resp.NextToken)
}

func TestPostingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PostingServiceTestSuite))
}
