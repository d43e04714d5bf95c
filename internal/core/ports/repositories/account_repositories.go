package repositories

import (
	"context"

	"github.com/finstack/fisledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// AccountRepositoryFacade gives the posting core read access to accounts and
// the locked balance mutation primitive. Account CRUD is out of scope.
type AccountRepositoryFacade interface {
	// FindByTenantAndCodes returns the named accounts keyed by code. Missing
	// codes are simply absent from the map.
	FindByTenantAndCodes(ctx context.Context, tenantID string, codes []string) (map[string]domain.Account, error)

	// UpdateBalanceInTx applies a signed minor-unit delta to one account in a
	// single statement, taking the row's exclusive lock as part of the UPDATE.
	// Returns apperrors.ErrNotFound if the account row no longer exists. This
	// is the only legal way to mutate a balance.
	UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, accountCode string, delta int64) error

	// SumBalancesByType totals balances per account type for the accounting
	// equation check.
	SumBalancesByType(ctx context.Context, tenantID string) (map[domain.AccountType]int64, error)
}

// TenantRepositoryFacade resolves tenants at the posting boundary.
type TenantRepositoryFacade interface {
	FindTenantByID(ctx context.Context, tenantID string) (*domain.Tenant, error)
	ListActiveTenants(ctx context.Context) ([]domain.Tenant, error)
}
