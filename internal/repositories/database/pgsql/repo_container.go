package pgsql

import (
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	tenantRepo := newPgxTenantRepository(dbPool)
	entryRepo := newPgxEntryRepository(dbPool, accountRepo)
	idempotencyRepo := newPgxIdempotencyRepository(dbPool)
	outboxRepo := newPgxOutboxRepository(dbPool)
	workflowRepo := newPgxWorkflowRepository(dbPool)

	return portsrepo.RepositoryProvider{
		EntryRepo:       entryRepo,
		AccountRepo:     accountRepo,
		TenantRepo:      tenantRepo,
		IdempotencyRepo: idempotencyRepo,
		OutboxRepo:      outboxRepo,
		WorkflowRepo:    workflowRepo,
	}
}
