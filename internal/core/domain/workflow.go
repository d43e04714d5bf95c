package domain

import "time"

// WorkflowStatus is the approval lifecycle of a manually entered draft.
// REJECTED is terminal; APPROVED is frozen once the resulting ledger entry id
// is recorded.
type WorkflowStatus string

const (
	WorkflowDraft           WorkflowStatus = "DRAFT"
	WorkflowPendingApproval WorkflowStatus = "PENDING_APPROVAL"
	WorkflowApproved        WorkflowStatus = "APPROVED"
	WorkflowRejected        WorkflowStatus = "REJECTED"
)

// WorkflowLine mirrors a DraftLine inside a stored workflow record. SortOrder
// preserves the submitted line order across reloads.
type WorkflowLine struct {
	AccountCode string            `json:"accountCode"`
	Amount      int64             `json:"amount"`
	IsCredit    bool              `json:"isCredit"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
	SortOrder   int               `json:"sortOrder"`
}

// Workflow is the mutable pre-ledger record of a manual journal entry. Lines
// are held by value; the record is persisted as a unit.
type Workflow struct {
	WorkflowID          string         `json:"workflowID"`
	TenantID            string         `json:"tenantID"`
	SourceEventID       string         `json:"sourceEventID"`
	PostingDate         time.Time      `json:"postingDate"`
	Description         string         `json:"description"`
	ReferenceID         string         `json:"referenceID,omitempty"`
	TransactionCurrency string         `json:"transactionCurrency"`
	Status              WorkflowStatus `json:"status"`
	CreatedBy           string         `json:"createdBy"`
	CreatedAt           time.Time      `json:"createdAt"`
	SubmittedBy         string         `json:"submittedBy,omitempty"`
	SubmittedAt         *time.Time     `json:"submittedAt,omitempty"`
	ApprovedBy          string         `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time     `json:"approvedAt,omitempty"`
	RejectedBy          string         `json:"rejectedBy,omitempty"`
	RejectedAt          *time.Time     `json:"rejectedAt,omitempty"`
	RejectionReason     string         `json:"rejectionReason,omitempty"`
	Traceparent         string         `json:"traceparent,omitempty"`
	PostedEntryID       *string        `json:"postedEntryID,omitempty"`
	Lines               []WorkflowLine `json:"lines,omitempty"`
}
