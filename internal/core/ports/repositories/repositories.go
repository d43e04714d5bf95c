package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// RepositoryProvider bundles the persistence facades handed to the service
// layer at startup.
type RepositoryProvider struct {
	EntryRepo       EntryRepositoryFacade
	AccountRepo     AccountRepositoryFacade
	TenantRepo      TenantRepositoryFacade
	IdempotencyRepo IdempotencyRepositoryFacade
	OutboxRepo      OutboxRepositoryFacade
	WorkflowRepo    WorkflowRepositoryFacade
}

// TransactionManager defines methods for transaction management.
type TransactionManager interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction.
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction.
	Rollback(ctx context.Context, tx pgx.Tx) error
}
