package domain

import "time"

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Account is a posting target within a tenant's chart of accounts. Account
// CRUD lives outside this service; the posting core only reads accounts and
// mutates Balance through the balance locker.
type Account struct {
	AccountID    string      `json:"accountID"`
	TenantID     string      `json:"tenantID"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	AccountType  AccountType `json:"accountType"`
	CurrencyCode string      `json:"currencyCode"`
	IsActive     bool        `json:"isActive"`
	Balance      int64       `json:"balance"` // minor units, locker-owned
	CreatedAt    time.Time   `json:"createdAt"`
}

// Tenant is the owning business entity of a ledger. Tenant CRUD is external;
// the core only resolves base currency and active state.
type Tenant struct {
	TenantID     string `json:"tenantID"`
	Name         string `json:"name"`
	BaseCurrency string `json:"baseCurrency"`
	IsActive     bool   `json:"isActive"`
}
