package pgsql

import (
	"context"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for chart-of-accounts data.
func newPgxAccountRepository(pool *pgxpool.Pool) portsrepo.AccountRepositoryFacade {
	return &PgxAccountRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

// FindByTenantAndCodes retrieves the tenant's accounts for the given codes,
// keyed by account code. Codes with no matching account are simply absent
// from the result; the caller decides whether that is an error.
func (r *PgxAccountRepository) FindByTenantAndCodes(ctx context.Context, tenantID string, codes []string) (map[string]domain.Account, error) {
	if len(codes) == 0 {
		return map[string]domain.Account{}, nil
	}
	query := `
		SELECT account_id, tenant_id, code, name, account_type, currency_code, is_active, balance_cents, created_at
		FROM accounts
		WHERE tenant_id = $1 AND code = ANY($2);
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, codes)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query accounts for tenant "+tenantID, err)
	}
	defer rows.Close()

	accounts := make(map[string]domain.Account, len(codes))
	for rows.Next() {
		var acc domain.Account
		if err := rows.Scan(&acc.AccountID, &acc.TenantID, &acc.Code, &acc.Name, &acc.AccountType, &acc.CurrencyCode, &acc.IsActive, &acc.Balance, &acc.CreatedAt); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan account row", err)
		}
		accounts[acc.Code] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating account rows for tenant "+tenantID, err)
	}
	return accounts, nil
}

// UpdateBalanceInTx applies a signed delta to one account balance inside the
// caller's transaction. The single UPDATE takes the row lock and applies the
// increment in one statement, so no read-modify-write race exists.
func (r *PgxAccountRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, tenantID, accountCode string, delta int64) error {
	query := `
		UPDATE accounts
		SET balance_cents = balance_cents + $3
		WHERE tenant_id = $1 AND code = $2;
	`
	tag, err := tx.Exec(ctx, query, tenantID, accountCode, delta)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update balance for account "+accountCode, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("account " + accountCode + " not found for tenant " + tenantID)
	}
	return nil
}

// SumBalancesByType aggregates active-account balances per account type.
// Used by the accounting-equation check.
func (r *PgxAccountRepository) SumBalancesByType(ctx context.Context, tenantID string) (map[domain.AccountType]int64, error) {
	query := `
		SELECT account_type, COALESCE(SUM(balance_cents), 0)
		FROM accounts
		WHERE tenant_id = $1
		GROUP BY account_type;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to aggregate balances for tenant "+tenantID, err)
	}
	defer rows.Close()

	sums := make(map[domain.AccountType]int64)
	for rows.Next() {
		var accountType string
		var total int64
		if err := rows.Scan(&accountType, &total); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan balance aggregate row", err)
		}
		sums[domain.AccountType(accountType)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating balance aggregate rows", err)
	}
	return sums, nil
}
