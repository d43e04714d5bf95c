package dto

import (
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
)

// IntegrityCheckResponse reports the offline hash chain verification and the
// accounting equation check for one tenant.
type IntegrityCheckResponse struct {
	TenantID        string                       `json:"tenantId"`
	ChainLength     int                          `json:"chainLength"`
	ChainIntact     bool                         `json:"chainIntact"`
	BrokenAtEntryID string                       `json:"brokenAtEntryId,omitempty"`
	BalancesByType  map[domain.AccountType]int64 `json:"balancesByType"`
	EquationDelta   int64                        `json:"equationDelta"`
	Balanced        bool                         `json:"balanced"`
}

// AutoReversalRequest triggers reversals for a just-closed period when the
// next period opens. Period CRUD itself is external; the caller supplies the
// resolved boundaries.
type AutoReversalRequest struct {
	PriorPeriodStart time.Time `json:"priorPeriodStart" binding:"required"`
	PriorPeriodEnd   time.Time `json:"priorPeriodEnd" binding:"required"`
	NewPeriodStart   time.Time `json:"newPeriodStart" binding:"required"`
	CreatedBy        string    `json:"createdBy" binding:"required"`
}

// AutoReversalResponse reports how many reversals were generated.
type AutoReversalResponse struct {
	ReversalCount int `json:"reversalCount"`
}
