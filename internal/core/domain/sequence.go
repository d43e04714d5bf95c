package domain

// SequenceCounter holds the next entry number for one (tenant, fiscal year)
// pair. Mutated only under an exclusive row lock held for the duration of a
// single allocation.
type SequenceCounter struct {
	TenantID   string `json:"tenantID"`
	FiscalYear int    `json:"fiscalYear"`
	NextValue  int64  `json:"nextValue"`
}

// SequenceInitialValue is assigned to lazily created counter rows.
const SequenceInitialValue int64 = 1
