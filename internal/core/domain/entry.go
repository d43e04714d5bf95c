package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates why a ledger entry exists.
type EntryStatus string

const (
	Posted     EntryStatus = "POSTED"
	Reversal   EntryStatus = "REVERSAL"
	Correction EntryStatus = "CORRECTION"
)

// LedgerLine is a single debit or credit within a LedgerEntry. Amounts are in
// minor currency units and always positive; direction is carried by IsCredit.
// A line never exists without its parent entry.
type LedgerLine struct {
	LineID      string            `json:"lineID"`
	AccountCode string            `json:"accountCode"`
	Amount      int64             `json:"amount"`
	BaseAmount  int64             `json:"baseAmount"`
	IsCredit    bool              `json:"isCredit"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
}

// LedgerEntry is one immutable double-entry transaction. Entries are never
// updated or deleted after commit; the hash chain fields make retroactive
// edits detectable.
//
// Lines are held by value: the entry is an explicit aggregate, constructed and
// persisted as a unit.
type LedgerEntry struct {
	EntryID             string          `json:"entryID"`
	TenantID            string          `json:"tenantID"`
	SourceEventID       string          `json:"sourceEventID"`
	PostingDate         time.Time       `json:"postingDate"`
	Description         string          `json:"description"`
	ReferenceID         string          `json:"referenceID,omitempty"`
	Status              EntryStatus     `json:"status"`
	ReversalOfID        *string         `json:"reversalOfID,omitempty"`
	SequenceNumber      int64           `json:"sequenceNumber"`
	FiscalYear          int             `json:"fiscalYear"`
	TransactionCurrency string          `json:"transactionCurrency"`
	BaseCurrency        string          `json:"baseCurrency"`
	ExchangeRate        decimal.Decimal `json:"exchangeRate"`
	AutoReverse         bool            `json:"autoReverse"`
	CreatedBy           string          `json:"createdBy"`
	CreatedAt           time.Time       `json:"createdAt"`
	PreviousHash        string          `json:"previousHash"`
	Hash                string          `json:"hash"`
	Lines               []LedgerLine    `json:"lines,omitempty"`
}

// TotalDebits sums the debit lines in transaction currency minor units.
func (e LedgerEntry) TotalDebits() int64 {
	var total int64
	for _, line := range e.Lines {
		if !line.IsCredit {
			total += line.Amount
		}
	}
	return total
}
