package mapping

import (
	"encoding/json"

	"github.com/finstack/fisledger/internal/core/domain"
	"github.com/finstack/fisledger/internal/models"
)

// ToModelLedgerEntry converts a domain entry header for persistence.
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:             d.EntryID,
		TenantID:            d.TenantID,
		SourceEventID:       d.SourceEventID,
		PostingDate:         d.PostingDate,
		Description:         d.Description,
		ReferenceID:         d.ReferenceID,
		Status:              string(d.Status),
		ReversalOfID:        d.ReversalOfID,
		SequenceNumber:      d.SequenceNumber,
		FiscalYear:          d.FiscalYear,
		TransactionCurrency: d.TransactionCurrency,
		BaseCurrency:        d.BaseCurrency,
		ExchangeRate:        d.ExchangeRate,
		AutoReverse:         d.AutoReverse,
		CreatedBy:           d.CreatedBy,
		CreatedAt:           d.CreatedAt,
		PreviousHash:        d.PreviousHash,
		Hash:                d.Hash,
	}
}

// ToDomainLedgerEntry converts a row back to the domain header (no lines).
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:             m.EntryID,
		TenantID:            m.TenantID,
		SourceEventID:       m.SourceEventID,
		PostingDate:         m.PostingDate,
		Description:         m.Description,
		ReferenceID:         m.ReferenceID,
		Status:              domain.EntryStatus(m.Status),
		ReversalOfID:        m.ReversalOfID,
		SequenceNumber:      m.SequenceNumber,
		FiscalYear:          m.FiscalYear,
		TransactionCurrency: m.TransactionCurrency,
		BaseCurrency:        m.BaseCurrency,
		ExchangeRate:        m.ExchangeRate,
		AutoReverse:         m.AutoReverse,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		PreviousHash:        m.PreviousHash,
		Hash:                m.Hash,
	}
}

// MarshalDimensions encodes line dimension tags for the jsonb column. Empty
// maps persist as NULL.
func MarshalDimensions(dims map[string]string) ([]byte, error) {
	if len(dims) == 0 {
		return nil, nil
	}
	return json.Marshal(dims)
}

// UnmarshalDimensions decodes the jsonb column, tolerating NULL.
func UnmarshalDimensions(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var dims map[string]string
	if err := json.Unmarshal(raw, &dims); err != nil {
		return nil, err
	}
	return dims, nil
}

// ToDomainLedgerLine converts a line row.
func ToDomainLedgerLine(m models.LedgerLine) (domain.LedgerLine, error) {
	dims, err := UnmarshalDimensions(m.Dimensions)
	if err != nil {
		return domain.LedgerLine{}, err
	}
	return domain.LedgerLine{
		LineID:      m.LineID,
		AccountCode: m.AccountCode,
		Amount:      m.Amount,
		BaseAmount:  m.BaseAmount,
		IsCredit:    m.IsCredit,
		Dimensions:  dims,
	}, nil
}
