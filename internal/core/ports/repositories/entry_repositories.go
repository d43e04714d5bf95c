package repositories

import (
	"context"
	"time"

	"github.com/finstack/fisledger/internal/core/domain"
)

// EntryRepositoryFacade owns the immutable ledger entry aggregate. PersistEntry
// is the single write path: one database transaction covering sequence
// allocation, hash chain linkage, entry+line insertion, balance mutation and
// the outbox record. Partial state is never observable.
type EntryRepositoryFacade interface {
	// PersistEntry completes and stores the given entry. The caller supplies
	// EntryID, CreatedAt, Lines and all business fields; the repository fills
	// SequenceNumber, PreviousHash and Hash inside the transaction and writes
	// the outbox event atomically with the entry. Balance deltas are applied
	// per line through the balance locker in sorted account-code order.
	PersistEntry(ctx context.Context, entry domain.LedgerEntry, outbox domain.OutboxEvent) (*domain.LedgerEntry, error)

	// FindEntryByID loads an entry with its lines.
	FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error)

	// ExistsByTenantAndEventID reports whether a posted entry already carries
	// the given source event id.
	ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error)

	// ExistsReversalOf reports whether any entry reverses the given entry.
	ExistsReversalOf(ctx context.Context, tenantID, entryID string) (bool, error)

	// LatestHash returns the hash of the tenant's most recent entry, or the
	// genesis value when the chain is empty.
	LatestHash(ctx context.Context, tenantID string) (string, error)

	// FindAutoReverseEntries returns entries flagged auto-reverse posted in
	// [from, to], lines included, oldest first.
	FindAutoReverseEntries(ctx context.Context, tenantID string, from, to time.Time) ([]domain.LedgerEntry, error)

	// ListEntriesByCreation streams the tenant's full chain ordered by
	// creation, lines excluded. Used for offline hash chain verification.
	ListEntriesByCreation(ctx context.Context, tenantID string) ([]domain.LedgerEntry, error)

	// ListEntries returns a page of entries for a tenant, newest first, with a
	// token for the next page.
	ListEntries(ctx context.Context, tenantID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)
}
