package services

import (
	"context"
	"fmt"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
)

var (
	ErrEntryMinLines       = fmt.Errorf("%w: entry must have at least one debit and one credit line", apperrors.ErrValidation)
	ErrEntryUnbalanced     = fmt.Errorf("%w: total debits must equal total credits", apperrors.ErrValidation)
	ErrBaseUnbalanced      = fmt.Errorf("%w: base-currency debits must equal base-currency credits", apperrors.ErrValidation)
	ErrAmountNotPositive   = fmt.Errorf("%w: line amounts must be strictly positive", apperrors.ErrValidation)
	ErrAccountUnknown      = fmt.Errorf("%w: account not found", apperrors.ErrValidation)
	ErrAccountInactive     = fmt.Errorf("%w: account is inactive", apperrors.ErrValidation)
	ErrCurrencyMismatch    = fmt.Errorf("%w: account currency does not match entry currency", apperrors.ErrValidation)
	ErrTenantInactive      = fmt.Errorf("%w: tenant is not active", apperrors.ErrValidation)
	ErrExchangeRateMissing = fmt.Errorf("%w: exchange rate required for foreign-currency entries", apperrors.ErrValidation)
)

// entryValidator runs the structural and referential checks on a draft before
// it is allowed anywhere near the ledger. Request binding catches the shape
// errors on the HTTP path, but the queue path has no binding layer, so every
// rule is re-checked here.
type entryValidator struct {
	accountRepo portsrepo.AccountRepositoryFacade
}

func newEntryValidator(accountRepo portsrepo.AccountRepositoryFacade) *entryValidator {
	return &entryValidator{accountRepo: accountRepo}
}

// Validate checks the draft against the double-entry rules and the chart of
// accounts. The first violated rule is returned.
func (v *entryValidator) Validate(ctx context.Context, tenant domain.Tenant, draft domain.DraftEntry) error {
	if !tenant.IsActive {
		return fmt.Errorf("%w: tenant %s", ErrTenantInactive, tenant.TenantID)
	}

	var debits, credits int
	for _, line := range draft.Lines {
		if line.Amount <= 0 || line.BaseAmount <= 0 {
			return fmt.Errorf("%w: account %s", ErrAmountNotPositive, line.AccountCode)
		}
		if line.IsCredit {
			credits++
		} else {
			debits++
		}
	}
	if debits < 1 || credits < 1 {
		return ErrEntryMinLines
	}

	if draft.TotalDebits() != draft.TotalCredits() {
		return fmt.Errorf("%w: debits %d, credits %d", ErrEntryUnbalanced, draft.TotalDebits(), draft.TotalCredits())
	}

	var baseDebits, baseCredits int64
	for _, line := range draft.Lines {
		if line.IsCredit {
			baseCredits += line.BaseAmount
		} else {
			baseDebits += line.BaseAmount
		}
	}
	if baseDebits != baseCredits {
		return fmt.Errorf("%w: debits %d, credits %d", ErrBaseUnbalanced, baseDebits, baseCredits)
	}

	if draft.TransactionCurrency != draft.BaseCurrency && draft.ExchangeRate.IsZero() {
		return ErrExchangeRateMissing
	}

	codes := make([]string, 0, len(draft.Lines))
	seen := make(map[string]bool, len(draft.Lines))
	for _, line := range draft.Lines {
		if !seen[line.AccountCode] {
			seen[line.AccountCode] = true
			codes = append(codes, line.AccountCode)
		}
	}
	accounts, err := v.accountRepo.FindByTenantAndCodes(ctx, draft.TenantID, codes)
	if err != nil {
		return err
	}
	for _, code := range codes {
		account, ok := accounts[code]
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountUnknown, code)
		}
		if !account.IsActive {
			return fmt.Errorf("%w: %s", ErrAccountInactive, code)
		}
		if account.CurrencyCode != draft.TransactionCurrency && account.CurrencyCode != draft.BaseCurrency {
			return fmt.Errorf("%w: account %s holds %s", ErrCurrencyMismatch, code, account.CurrencyCode)
		}
	}

	return nil
}
