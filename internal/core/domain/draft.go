package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DraftLine is one prospective debit or credit. Amount is in minor units of
// the draft's transaction currency and must be strictly positive.
type DraftLine struct {
	AccountCode string
	Amount      int64
	BaseAmount  int64
	IsCredit    bool
	Dimensions  map[string]string
}

// DraftEntry is an ephemeral, not-yet-persisted journal entry. It is what the
// validator checks and what ledger persistence turns into a LedgerEntry.
type DraftEntry struct {
	TenantID            string
	SourceEventID       string
	PostingDate         time.Time
	Description         string
	ReferenceID         string
	Status              EntryStatus
	ReversalOfID        *string
	TransactionCurrency string
	BaseCurrency        string
	ExchangeRate        decimal.Decimal
	AutoReverse         bool
	CreatedBy           string
	Lines               []DraftLine
}

// TotalDebits sums the debit lines in minor units.
func (d DraftEntry) TotalDebits() int64 {
	var total int64
	for _, line := range d.Lines {
		if !line.IsCredit {
			total += line.Amount
		}
	}
	return total
}

// TotalCredits sums the credit lines in minor units.
func (d DraftEntry) TotalCredits() int64 {
	var total int64
	for _, line := range d.Lines {
		if line.IsCredit {
			total += line.Amount
		}
	}
	return total
}

// BalanceDelta returns the signed balance effect of a single line. The sign
// convention is uniform across all account types: debits increase a balance,
// credits decrease it. Direction is a property of the line, not the account.
func BalanceDelta(line DraftLine) int64 {
	if line.IsCredit {
		return -line.Amount
	}
	return line.Amount
}
