package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
	"github.com/finstack/fisledger/internal/core/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type IntegrityServiceTestSuite struct {
	suite.Suite
	mockEntryRepo   *MockEntryRepository
	mockAccountRepo *MockAccountRepository
	integrity       portssvc.IntegritySvcFacade

	tenantID string
}

func (s *IntegrityServiceTestSuite) SetupTest() {
	s.mockEntryRepo = new(MockEntryRepository)
	s.mockAccountRepo = new(MockAccountRepository)
	s.integrity = services.NewIntegrityService(s.mockEntryRepo, s.mockAccountRepo)
	s.tenantID = uuid.NewString()
}

// chain builds n entries whose hashes link correctly from genesis.
func (s *IntegrityServiceTestSuite) chain(n int) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, n)
	previous := domain.GenesisHash
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range entries {
		id := uuid.NewString()
		hash := domain.ComputeEntryHash(id, previous, createdAt)
		entries[i] = domain.LedgerEntry{
			EntryID:        id,
			TenantID:       s.tenantID,
			SequenceNumber: int64(i + 1),
			CreatedAt:      createdAt,
			PreviousHash:   previous,
			Hash:           hash,
		}
		previous = hash
		createdAt = createdAt.Add(time.Minute)
	}
	return entries
}

func (s *IntegrityServiceTestSuite) balancedSums() map[domain.AccountType]int64 {
	return map[domain.AccountType]int64{
		domain.Asset:     120000,
		domain.Liability: -50000,
		domain.Equity:    -30000,
		domain.Revenue:   -60000,
		domain.Expense:   20000,
	}
}

func (s *IntegrityServiceTestSuite) TestIntactChainBalancedBook() {
	ctx := context.Background()

	s.mockEntryRepo.On("ListEntriesByCreation", ctx, s.tenantID).Return(s.chain(5), nil).Once()
	s.mockAccountRepo.On("SumBalancesByType", ctx, s.tenantID).Return(s.balancedSums(), nil).Once()

	resp, err := s.integrity.CheckTenant(ctx, s.tenantID)

	s.Require().NoError(err)
	s.True(resp.ChainIntact)
	s.Empty(resp.BrokenAtEntryID)
	s.Equal(5, resp.ChainLength)
	s.True(resp.Balanced)
	s.Zero(resp.EquationDelta)
}

func (s *IntegrityServiceTestSuite) TestTamperedHashDetected() {
	ctx := context.Background()
	entries := s.chain(5)
	entries[2].Hash = "tampered"

	s.mockEntryRepo.On("ListEntriesByCreation", ctx, s.tenantID).Return(entries, nil).Once()
	s.mockAccountRepo.On("SumBalancesByType", ctx, s.tenantID).Return(s.balancedSums(), nil).Once()

	resp, err := s.integrity.CheckTenant(ctx, s.tenantID)

	s.Require().NoError(err)
	s.False(resp.ChainIntact)
	s.Equal(entries[2].EntryID, resp.BrokenAtEntryID)
}

func (s *IntegrityServiceTestSuite) TestBrokenLinkDetected() {
	// A deleted entry shows up as the next entry's previous-hash pointing at
	// something other than its predecessor.
	ctx := context.Background()
	entries := s.chain(5)
	entries = append(entries[:2], entries[3:]...)

	s.mockEntryRepo.On("ListEntriesByCreation", ctx, s.tenantID).Return(entries, nil).Once()
	s.mockAccountRepo.On("SumBalancesByType", ctx, s.tenantID).Return(s.balancedSums(), nil).Once()

	resp, err := s.integrity.CheckTenant(ctx, s.tenantID)

	s.Require().NoError(err)
	s.False(resp.ChainIntact)
	s.Equal(entries[2].EntryID, resp.BrokenAtEntryID)
}

func (s *IntegrityServiceTestSuite) TestUnbalancedBookDetected() {
	ctx := context.Background()
	sums := s.balancedSums()
	sums[domain.Asset] += 1 // a cent out of thin air

	s.mockEntryRepo.On("ListEntriesByCreation", ctx, s.tenantID).Return(s.chain(2), nil).Once()
	s.mockAccountRepo.On("SumBalancesByType", ctx, s.tenantID).Return(sums, nil).Once()

	resp, err := s.integrity.CheckTenant(ctx, s.tenantID)

	s.Require().NoError(err)
	s.True(resp.ChainIntact)
	s.False(resp.Balanced)
	s.Equal(int64(1), resp.EquationDelta)
}

func (s *IntegrityServiceTestSuite) TestEmptyChain() {
	ctx := context.Background()

	s.mockEntryRepo.On("ListEntriesByCreation", ctx, s.tenantID).Return([]domain.LedgerEntry{}, nil).Once()
	s.mockAccountRepo.On("SumBalancesByType", ctx, s.tenantID).Return(map[domain.AccountType]int64{}, nil).Once()

	resp, err := s.integrity.CheckTenant(ctx, s.tenantID)

	s.Require().NoError(err)
	s.True(resp.ChainIntact)
	s.Zero(resp.ChainLength)
	s.True(resp.Balanced)
}

func TestIntegrityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrityServiceTestSuite))
}
