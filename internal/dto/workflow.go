package dto

import "github.com/finstack/fisledger/internal/core/domain"

// SubmitWorkflowRequest moves a draft into the approval queue.
type SubmitWorkflowRequest struct {
	SubmittedBy string `json:"submittedBy" binding:"required"`
}

// ApproveWorkflowRequest posts an approved draft to the ledger.
type ApproveWorkflowRequest struct {
	ApprovedBy string `json:"approvedBy" binding:"required"`
}

// RejectWorkflowRequest terminates a pending draft. A reason is mandatory.
type RejectWorkflowRequest struct {
	RejectedBy string `json:"rejectedBy" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
}

// WorkflowActionResponse reports the outcome of a workflow transition.
type WorkflowActionResponse struct {
	WorkflowID    string                `json:"workflowId"`
	Status        domain.WorkflowStatus `json:"status"`
	PostedEntryID *string               `json:"postedJournalEntryId,omitempty"`
	Message       string                `json:"message"`
}
