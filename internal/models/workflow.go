package models

import "time"

// Workflow is the journal_workflows row shape.
type Workflow struct {
	WorkflowID          string     `db:"workflow_id"`
	TenantID            string     `db:"tenant_id"`
	SourceEventID       string     `db:"event_id"`
	PostingDate         time.Time  `db:"posting_date"`
	Description         string     `db:"description"`
	ReferenceID         string     `db:"reference_id"`
	TransactionCurrency string     `db:"transaction_currency"`
	Status              string     `db:"status"`
	CreatedBy           string     `db:"created_by"`
	CreatedAt           time.Time  `db:"created_at"`
	SubmittedBy         *string    `db:"submitted_by"`
	SubmittedAt         *time.Time `db:"submitted_at"`
	ApprovedBy          *string    `db:"approved_by"`
	ApprovedAt          *time.Time `db:"approved_at"`
	RejectedBy          *string    `db:"rejected_by"`
	RejectedAt          *time.Time `db:"rejected_at"`
	RejectionReason     *string    `db:"rejection_reason"`
	Traceparent         *string    `db:"traceparent"`
	PostedEntryID       *string    `db:"posted_journal_entry_id"`
}

// WorkflowLine is the journal_workflow_lines row shape.
type WorkflowLine struct {
	WorkflowID  string `db:"workflow_id"`
	AccountCode string `db:"account_code"`
	Amount      int64  `db:"amount_cents"`
	IsCredit    bool   `db:"is_credit"`
	Dimensions  []byte `db:"dimensions"`
	SortOrder   int    `db:"sort_order"`
}
