package repositories

import (
	"context"

	"github.com/finstack/fisledger/internal/core/domain"
)

// WorkflowRepositoryFacade stores pre-ledger approval records.
type WorkflowRepositoryFacade interface {
	// SaveWorkflow inserts a workflow with its lines as one unit.
	SaveWorkflow(ctx context.Context, workflow domain.Workflow) error

	// FindByTenantAndID loads a workflow with its lines in sort order.
	FindByTenantAndID(ctx context.Context, tenantID, workflowID string) (*domain.Workflow, error)

	// UpdateWorkflowState persists a status transition together with the
	// actor/timestamp/reason fields that transition touched.
	UpdateWorkflowState(ctx context.Context, workflow domain.Workflow) error

	// ExistsByTenantAndEventID reports whether a workflow already carries the
	// given source event id.
	ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error)
}
