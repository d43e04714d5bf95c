package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the journal_entries row shape.
type LedgerEntry struct {
	EntryID             string          `db:"journal_entry_id"`
	TenantID            string          `db:"tenant_id"`
	SourceEventID       string          `db:"event_id"`
	PostingDate         time.Time       `db:"posting_date"`
	Description         string          `db:"description"`
	ReferenceID         string          `db:"reference_id"`
	Status              string          `db:"status"`
	ReversalOfID        *string         `db:"reversal_of_id"`
	SequenceNumber      int64           `db:"sequence_number"`
	FiscalYear          int             `db:"fiscal_year"`
	TransactionCurrency string          `db:"transaction_currency"`
	BaseCurrency        string          `db:"base_currency"`
	ExchangeRate        decimal.Decimal `db:"exchange_rate"`
	AutoReverse         bool            `db:"auto_reverse"`
	CreatedBy           string          `db:"created_by"`
	CreatedAt           time.Time       `db:"created_at"`
	PreviousHash        string          `db:"previous_hash"`
	Hash                string          `db:"hash"`
}

// LedgerLine is the journal_lines row shape. Dimensions are stored as jsonb.
type LedgerLine struct {
	LineID      string `db:"line_id"`
	EntryID     string `db:"journal_entry_id"`
	AccountCode string `db:"account_code"`
	Amount      int64  `db:"amount_cents"`
	BaseAmount  int64  `db:"base_amount_cents"`
	IsCredit    bool   `db:"is_credit"`
	Dimensions  []byte `db:"dimensions"`
	SortOrder   int    `db:"sort_order"`
}
