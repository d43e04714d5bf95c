package services

import (
	"time"

	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	portssvc "github.com/finstack/fisledger/internal/core/ports/services"
)

// Config carries the tunables the service layer needs from the platform
// configuration.
type Config struct {
	// ApprovalThresholdCents routes drafts whose total debits reach this
	// amount into the approval workflow. Zero disables routing.
	ApprovalThresholdCents int64

	// IdempotencyFailOpen falls through to the database when the cache is
	// unreachable instead of rejecting the request.
	IdempotencyFailOpen bool

	Outbox OutboxRelayConfig
}

// Container holds all the services and manages their dependencies
type Container struct {
	Idempotency  portssvc.IdempotencySvcFacade
	Posting      portssvc.PostingSvcFacade
	Reversal     portssvc.ReversalSvcFacade
	Workflow     portssvc.WorkflowSvcFacade
	AutoReversal portssvc.AutoReversalSvcFacade
	Integrity    portssvc.IntegritySvcFacade
	Relay        *OutboxRelay
}

// NewContainer creates a new service container with properly initialized
// dependencies. The posting engine and the workflow service reference each
// other (threshold routing one way, approval posting the other), so the
// workflow service is attached after both exist.
func NewContainer(repos portsrepo.RepositoryProvider, cache portsrepo.IdempotencyCacheFacade, publisher portssvc.OutboxPublisherFacade, cfg Config) *Container {
	container := &Container{}

	container.Idempotency = NewIdempotencyService(repos.IdempotencyRepo, cache, cfg.IdempotencyFailOpen)

	posting := NewPostingService(
		repos.EntryRepo,
		repos.AccountRepo,
		repos.TenantRepo,
		container.Idempotency,
		cfg.ApprovalThresholdCents,
	)
	container.Posting = posting

	container.Workflow = NewWorkflowService(repos.WorkflowRepo, repos.EntryRepo, repos.TenantRepo, posting)
	posting.SetWorkflowService(container.Workflow)

	container.Reversal = NewReversalService(repos.EntryRepo, repos.TenantRepo, posting)
	container.AutoReversal = NewAutoReversalService(repos.EntryRepo, posting)
	container.Integrity = NewIntegrityService(repos.EntryRepo, repos.AccountRepo)

	relayCfg := cfg.Outbox
	if relayCfg.Interval <= 0 {
		relayCfg = DefaultOutboxRelayConfig()
	}
	container.Relay = NewOutboxRelay(repos.OutboxRepo, publisher, relayCfg)

	return container
}

// DefaultOutboxRelayConfig is the fallback when the platform config is silent.
func DefaultOutboxRelayConfig() OutboxRelayConfig {
	return OutboxRelayConfig{
		Interval:        5 * time.Second,
		BatchSize:       100,
		CleanupInterval: time.Hour,
		Retention:       7 * 24 * time.Hour,
	}
}
