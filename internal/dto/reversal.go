package dto

import "time"

// ReversalRequest asks for a compensating entry against a posted original.
// EventID is the caller-chosen idempotency key of the reversal itself.
type ReversalRequest struct {
	EventID   string `json:"eventId" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
	CreatedBy string `json:"createdBy" binding:"required"`
}

// CorrectionRequest reverses an original entry and posts a replacement as one
// logical operation.
type CorrectionRequest struct {
	EventID             string             `json:"eventId" binding:"required"`
	ReversalEventID     string             `json:"reversalEventId" binding:"required"`
	PostingDate         time.Time          `json:"postingDate" binding:"required"`
	Description         string             `json:"description"`
	ReferenceID         string             `json:"referenceId"`
	TransactionCurrency string             `json:"transactionCurrency" binding:"required,len=3"`
	CreatedBy           string             `json:"createdBy" binding:"required"`
	Lines               []EntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ReversalResponse reports the compensating entries that were posted.
type ReversalResponse struct {
	ReversalEntryID    string  `json:"reversalJournalEntryId"`
	OriginalEntryID    string  `json:"originalJournalEntryId"`
	ReplacementEntryID *string `json:"replacementJournalEntryId,omitempty"`
	Status             string  `json:"status"`
	Message            string  `json:"message"`
}
