package dto

import (
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// EntryLineRequest is one debit or credit in a posting request. Amounts are
// minor currency units (cents), strictly positive.
type EntryLineRequest struct {
	AccountCode string            `json:"accountCode" binding:"required"`
	Amount      int64             `json:"amountCents" binding:"required,gt=0"`
	BaseAmount  int64             `json:"baseAmountCents" binding:"omitempty,gt=0"`
	IsCredit    bool              `json:"isCredit"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
}

// CreateEntryRequest is the validated-event intake shape: a source event id
// unique per tenant plus pre-resolved lines. The exchange rate arrives already
// resolved; this service performs no conversion math.
type CreateEntryRequest struct {
	SourceEventID       string             `json:"eventId" binding:"required"`
	PostingDate         time.Time          `json:"postingDate" binding:"required"`
	Description         string             `json:"description"`
	ReferenceID         string             `json:"referenceId"`
	TransactionCurrency string             `json:"transactionCurrency" binding:"required,len=3"`
	ExchangeRate        *decimal.Decimal   `json:"exchangeRate"`
	AutoReverse         bool               `json:"autoReverse"`
	CreatedBy           string             `json:"createdBy" binding:"required"`
	Lines               []EntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// EntryLineResponse mirrors a persisted ledger line.
type EntryLineResponse struct {
	AccountCode string            `json:"accountCode"`
	Amount      int64             `json:"amountCents"`
	BaseAmount  int64             `json:"baseAmountCents"`
	IsCredit    bool              `json:"isCredit"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
}

// EntryResponse is the caller-visible shape of a posted ledger entry.
type EntryResponse struct {
	EntryID             string              `json:"journalEntryId"`
	TenantID            string              `json:"tenantId"`
	SourceEventID       string              `json:"eventId"`
	PostingDate         time.Time           `json:"postingDate"`
	Description         string              `json:"description,omitempty"`
	ReferenceID         string              `json:"referenceId,omitempty"`
	Status              domain.EntryStatus  `json:"status"`
	ReversalOfID        *string             `json:"reversalOfId,omitempty"`
	SequenceNumber      int64               `json:"sequenceNumber"`
	FiscalYear          int                 `json:"fiscalYear"`
	TransactionCurrency string              `json:"transactionCurrency"`
	BaseCurrency        string              `json:"baseCurrency"`
	ExchangeRate        decimal.Decimal     `json:"exchangeRate"`
	CreatedBy           string              `json:"createdBy"`
	CreatedAt           time.Time           `json:"createdAt"`
	PreviousHash        string              `json:"previousHash"`
	Hash                string              `json:"hash"`
	LineCount           int                 `json:"lineCount"`
	Lines               []EntryLineResponse `json:"lines,omitempty"`
}

// ListEntriesParams carries pagination inputs for entry listing.
type ListEntriesParams struct {
	Limit     int
	NextToken *string
}

// ListEntriesResponse is one page of entries plus the continuation token.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ToEntryResponse converts a domain entry, lines included when loaded.
func ToEntryResponse(entry *domain.LedgerEntry) EntryResponse {
	resp := EntryResponse{
		EntryID:             entry.EntryID,
		TenantID:            entry.TenantID,
		SourceEventID:       entry.SourceEventID,
		PostingDate:         entry.PostingDate,
		Description:         entry.Description,
		ReferenceID:         entry.ReferenceID,
		Status:              entry.Status,
		ReversalOfID:        entry.ReversalOfID,
		SequenceNumber:      entry.SequenceNumber,
		FiscalYear:          entry.FiscalYear,
		TransactionCurrency: entry.TransactionCurrency,
		BaseCurrency:        entry.BaseCurrency,
		ExchangeRate:        entry.ExchangeRate,
		CreatedBy:           entry.CreatedBy,
		CreatedAt:           entry.CreatedAt,
		PreviousHash:        entry.PreviousHash,
		Hash:                entry.Hash,
		LineCount:           len(entry.Lines),
	}
	for _, line := range entry.Lines {
		resp.Lines = append(resp.Lines, EntryLineResponse{
			AccountCode: line.AccountCode,
			Amount:      line.Amount,
			BaseAmount:  line.BaseAmount,
			IsCredit:    line.IsCredit,
			Dimensions:  line.Dimensions,
		})
	}
	return resp
}
