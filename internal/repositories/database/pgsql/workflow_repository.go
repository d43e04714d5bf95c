package pgsql

import (
	"context"
	"errors"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/finstack/fisledger/internal/models"
	"github.com/finstack/fisledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxWorkflowRepository struct {
	BaseRepository
}

func newPgxWorkflowRepository(pool *pgxpool.Pool) portsrepo.WorkflowRepositoryFacade {
	return &PgxWorkflowRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.WorkflowRepositoryFacade = (*PgxWorkflowRepository)(nil)

// SaveWorkflow inserts a new draft workflow and its lines in one transaction.
func (r *PgxWorkflowRepository) SaveWorkflow(ctx context.Context, workflow domain.Workflow) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	m := toModelWorkflow(workflow)
	workflowQuery := `
		INSERT INTO journal_workflows (
			workflow_id, tenant_id, event_id, posting_date, description, reference_id, transaction_currency,
			status, created_by, created_at, submitted_by, submitted_at, approved_by, approved_at,
			rejected_by, rejected_at, rejection_reason, traceparent, posted_journal_entry_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19);
	`
	_, err = tx.Exec(ctx, workflowQuery,
		m.WorkflowID, m.TenantID, m.SourceEventID, m.PostingDate, m.Description, m.ReferenceID, m.TransactionCurrency,
		m.Status, m.CreatedBy, m.CreatedAt, m.SubmittedBy, m.SubmittedAt, m.ApprovedBy, m.ApprovedAt,
		m.RejectedBy, m.RejectedAt, m.RejectionReason, m.Traceparent, m.PostedEntryID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert workflow "+m.WorkflowID, err)
	}

	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO journal_workflow_lines (workflow_id, account_code, amount_cents, is_credit, dimensions, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	for _, line := range workflow.Lines {
		dims, dimErr := mapping.MarshalDimensions(line.Dimensions)
		if dimErr != nil {
			return apperrors.NewAppError(500, "failed to encode dimensions for workflow "+m.WorkflowID, dimErr)
		}
		batch.Queue(lineQuery, m.WorkflowID, line.AccountCode, line.Amount, line.IsCredit, dims, line.SortOrder)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to execute line batch for workflow "+m.WorkflowID, err)
	}

	return r.Commit(ctx, tx)
}

// FindByTenantAndID retrieves a workflow with its lines.
func (r *PgxWorkflowRepository) FindByTenantAndID(ctx context.Context, tenantID, workflowID string) (*domain.Workflow, error) {
	query := `
		SELECT workflow_id, tenant_id, event_id, posting_date, description, reference_id, transaction_currency,
		       status, created_by, created_at, submitted_by, submitted_at, approved_by, approved_at,
		       rejected_by, rejected_at, rejection_reason, traceparent, posted_journal_entry_id
		FROM journal_workflows
		WHERE tenant_id = $1 AND workflow_id = $2;
	`
	var m models.Workflow
	err := r.Pool.QueryRow(ctx, query, tenantID, workflowID).Scan(
		&m.WorkflowID, &m.TenantID, &m.SourceEventID, &m.PostingDate, &m.Description, &m.ReferenceID, &m.TransactionCurrency,
		&m.Status, &m.CreatedBy, &m.CreatedAt, &m.SubmittedBy, &m.SubmittedAt, &m.ApprovedBy, &m.ApprovedAt,
		&m.RejectedBy, &m.RejectedAt, &m.RejectionReason, &m.Traceparent, &m.PostedEntryID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find workflow "+workflowID, err)
	}

	lineQuery := `
		SELECT account_code, amount_cents, is_credit, dimensions, sort_order
		FROM journal_workflow_lines
		WHERE workflow_id = $1
		ORDER BY sort_order;
	`
	rows, err := r.Pool.Query(ctx, lineQuery, workflowID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lines for workflow "+workflowID, err)
	}
	defer rows.Close()

	var lines []domain.WorkflowLine
	for rows.Next() {
		var lm models.WorkflowLine
		if err := rows.Scan(&lm.AccountCode, &lm.Amount, &lm.IsCredit, &lm.Dimensions, &lm.SortOrder); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan workflow line row", err)
		}
		dims, dimErr := mapping.UnmarshalDimensions(lm.Dimensions)
		if dimErr != nil {
			return nil, apperrors.NewAppError(500, "failed to decode dimensions for workflow "+workflowID, dimErr)
		}
		lines = append(lines, domain.WorkflowLine{
			AccountCode: lm.AccountCode,
			Amount:      lm.Amount,
			IsCredit:    lm.IsCredit,
			Dimensions:  dims,
			SortOrder:   lm.SortOrder,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating workflow line rows", err)
	}

	workflow := toDomainWorkflow(m)
	workflow.Lines = lines
	return &workflow, nil
}

// UpdateWorkflowState persists a state transition. Lines are immutable after
// creation, so only header fields are touched.
func (r *PgxWorkflowRepository) UpdateWorkflowState(ctx context.Context, workflow domain.Workflow) error {
	m := toModelWorkflow(workflow)
	query := `
		UPDATE journal_workflows
		SET status = $3, submitted_by = $4, submitted_at = $5, approved_by = $6, approved_at = $7,
		    rejected_by = $8, rejected_at = $9, rejection_reason = $10, posted_journal_entry_id = $11
		WHERE tenant_id = $1 AND workflow_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.TenantID, m.WorkflowID, m.Status, m.SubmittedBy, m.SubmittedAt, m.ApprovedBy, m.ApprovedAt,
		m.RejectedBy, m.RejectedAt, m.RejectionReason, m.PostedEntryID,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update workflow "+m.WorkflowID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("workflow " + m.WorkflowID + " not found")
	}
	return nil
}

// ExistsByTenantAndEventID reports whether a workflow already claimed the event.
func (r *PgxWorkflowRepository) ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM journal_workflows WHERE tenant_id = $1 AND event_id = $2);`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, tenantID, sourceEventID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check workflow existence for event "+sourceEventID, err)
	}
	return exists, nil
}

func toModelWorkflow(d domain.Workflow) models.Workflow {
	m := models.Workflow{
		WorkflowID:          d.WorkflowID,
		TenantID:            d.TenantID,
		SourceEventID:       d.SourceEventID,
		PostingDate:         d.PostingDate,
		Description:         d.Description,
		ReferenceID:         d.ReferenceID,
		TransactionCurrency: d.TransactionCurrency,
		Status:              string(d.Status),
		CreatedBy:           d.CreatedBy,
		CreatedAt:           d.CreatedAt,
		SubmittedAt:         d.SubmittedAt,
		ApprovedAt:          d.ApprovedAt,
		RejectedAt:          d.RejectedAt,
		PostedEntryID:       d.PostedEntryID,
	}
	if d.SubmittedBy != "" {
		m.SubmittedBy = &d.SubmittedBy
	}
	if d.ApprovedBy != "" {
		m.ApprovedBy = &d.ApprovedBy
	}
	if d.RejectedBy != "" {
		m.RejectedBy = &d.RejectedBy
	}
	if d.RejectionReason != "" {
		m.RejectionReason = &d.RejectionReason
	}
	if d.Traceparent != "" {
		m.Traceparent = &d.Traceparent
	}
	return m
}

func toDomainWorkflow(m models.Workflow) domain.Workflow {
	d := domain.Workflow{
		WorkflowID:          m.WorkflowID,
		TenantID:            m.TenantID,
		SourceEventID:       m.SourceEventID,
		PostingDate:         m.PostingDate,
		Description:         m.Description,
		ReferenceID:         m.ReferenceID,
		TransactionCurrency: m.TransactionCurrency,
		Status:              domain.WorkflowStatus(m.Status),
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		SubmittedAt:         m.SubmittedAt,
		ApprovedAt:          m.ApprovedAt,
		RejectedAt:          m.RejectedAt,
		PostedEntryID:       m.PostedEntryID,
	}
	if m.SubmittedBy != nil {
		d.SubmittedBy = *m.SubmittedBy
	}
	if m.ApprovedBy != nil {
		d.ApprovedBy = *m.ApprovedBy
	}
	if m.RejectedBy != nil {
		d.RejectedBy = *m.RejectedBy
	}
	if m.RejectionReason != nil {
		d.RejectionReason = *m.RejectionReason
	}
	if m.Traceparent != nil {
		d.Traceparent = *m.Traceparent
	}
	return d
}
