package pgsql

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/finstack/fisledger/internal/apperrors"
	"github.com/finstack/fisledger/internal/core/domain"
	portsrepo "github.com/finstack/fisledger/internal/core/ports/repositories"
	"github.com/finstack/fisledger/internal/models"
	"github.com/finstack/fisledger/internal/utils/mapping"
	"github.com/finstack/fisledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxEntryRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountRepositoryFacade
}

// newPgxEntryRepository creates a new repository for ledger entry and line data.
func newPgxEntryRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountRepositoryFacade) portsrepo.EntryRepositoryFacade {
	return &PgxEntryRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
	}
}

// Ensure PgxEntryRepository implements portsrepo.EntryRepositoryFacade
var _ portsrepo.EntryRepositoryFacade = (*PgxEntryRepository)(nil)

const entryColumns = `journal_entry_id, tenant_id, event_id, posting_date, description, reference_id, status,
       reversal_of_id, sequence_number, fiscal_year, transaction_currency, base_currency, exchange_rate,
       auto_reverse, created_by, created_at, previous_hash, hash`

// PersistEntry writes an entry, its lines, the balance mutations and the
// outbox record in one database transaction. Sequence number, creation time,
// previous hash and hash are assigned inside the transaction; the caller
// supplies the entry ID.
func (r *PgxEntryRepository) PersistEntry(ctx context.Context, entry domain.LedgerEntry, outbox domain.OutboxEvent) (*domain.LedgerEntry, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	// 1. Lock the tenant row. All postings for the tenant serialize here,
	// across fiscal years, so there is exactly one writer extending the
	// chain at a time.
	if err := r.lockTenantChain(ctx, tx, entry.TenantID); err != nil {
		return nil, err
	}

	// 2. Stamp the creation time under the lock. Entries are therefore
	// ordered by created_at in the same order they take the lock, which is
	// the order the chain head query walks.
	entry.CreatedAt = time.Now().UTC()

	// 3. Allocate the per-tenant, per-fiscal-year sequence number.
	seq, err := r.nextSequenceInTx(ctx, tx, entry.TenantID, entry.FiscalYear)
	if err != nil {
		return nil, err
	}
	entry.SequenceNumber = seq

	// 4. Read the tenant's chain head inside the same transaction.
	prevHash, err := r.latestHashInTx(ctx, tx, entry.TenantID)
	if err != nil {
		return nil, err
	}
	entry.PreviousHash = prevHash
	entry.Hash = domain.ComputeEntryHash(entry.EntryID, prevHash, entry.CreatedAt)

	// 5. Insert the entry header.
	modelEntry := mapping.ToModelLedgerEntry(entry)
	entryQuery := `
		INSERT INTO journal_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err = tx.Exec(ctx, entryQuery,
		modelEntry.EntryID,
		modelEntry.TenantID,
		modelEntry.SourceEventID,
		modelEntry.PostingDate,
		modelEntry.Description,
		modelEntry.ReferenceID,
		modelEntry.Status,
		modelEntry.ReversalOfID,
		modelEntry.SequenceNumber,
		modelEntry.FiscalYear,
		modelEntry.TransactionCurrency,
		modelEntry.BaseCurrency,
		modelEntry.ExchangeRate,
		modelEntry.AutoReverse,
		modelEntry.CreatedBy,
		modelEntry.CreatedAt,
		modelEntry.PreviousHash,
		modelEntry.Hash,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to insert journal entry "+modelEntry.EntryID, err)
	}

	// 6. Insert the lines as a batch.
	batch := &pgx.Batch{}
	lineQuery := `
		INSERT INTO journal_lines (line_id, journal_entry_id, account_code, amount_cents, base_amount_cents, is_credit, dimensions, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for i, line := range entry.Lines {
		dims, dimErr := mapping.MarshalDimensions(line.Dimensions)
		if dimErr != nil {
			return nil, apperrors.NewAppError(500, "failed to encode dimensions for line "+line.LineID, dimErr)
		}
		batch.Queue(lineQuery,
			line.LineID,
			entry.EntryID,
			line.AccountCode,
			line.Amount,
			line.BaseAmount,
			line.IsCredit,
			dims,
			i,
		)
	}
	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to execute line batch for entry "+modelEntry.EntryID, err)
	}

	// 7. Apply balance deltas. Deltas are aggregated per account and applied
	// in ascending account-code order so concurrent postings touching the
	// same accounts acquire row locks in a consistent order.
	deltas := make(map[string]int64, len(entry.Lines))
	for _, line := range entry.Lines {
		deltas[line.AccountCode] += domain.BalanceDelta(domain.DraftLine{Amount: line.Amount, IsCredit: line.IsCredit})
	}
	codes := make([]string, 0, len(deltas))
	for code := range deltas {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if err := r.accountRepo.UpdateBalanceInTx(ctx, tx, entry.TenantID, code, deltas[code]); err != nil {
			return nil, err
		}
	}

	// 8. Record the outbox event so publishing shares the entry's commit fate.
	outboxQuery := `
		INSERT INTO outbox_events (outbox_id, tenant_id, event_type, aggregate_type, aggregate_id, payload, traceparent, published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8);
	`
	_, err = tx.Exec(ctx, outboxQuery,
		outbox.OutboxID,
		outbox.TenantID,
		outbox.EventType,
		outbox.AggregateType,
		outbox.AggregateID,
		outbox.Payload,
		outbox.Traceparent,
		outbox.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to insert outbox event for entry "+modelEntry.EntryID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	return &entry, nil
}

// lockTenantChain takes the tenant row lock that serializes chain writers.
func (r *PgxEntryRepository) lockTenantChain(ctx context.Context, tx pgx.Tx, tenantID string) error {
	query := `
		SELECT tenant_id FROM tenants
		WHERE tenant_id = $1
		FOR UPDATE;
	`
	var id string
	if err := tx.QueryRow(ctx, query, tenantID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return apperrors.NewAppError(500, "failed to lock tenant "+tenantID, err)
	}
	return nil
}

// nextSequenceInTx allocates the next sequence value for (tenant, fiscalYear).
// The counter row is created lazily; SELECT ... FOR UPDATE serializes
// concurrent allocators on the same counter.
func (r *PgxEntryRepository) nextSequenceInTx(ctx context.Context, tx pgx.Tx, tenantID string, fiscalYear int) (int64, error) {
	insertQuery := `
		INSERT INTO journal_sequences (tenant_id, fiscal_year, next_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, fiscal_year) DO NOTHING;
	`
	if _, err := tx.Exec(ctx, insertQuery, tenantID, fiscalYear, domain.SequenceInitialValue); err != nil {
		return 0, apperrors.NewAppError(500, "failed to seed sequence counter for tenant "+tenantID, err)
	}

	var next int64
	selectQuery := `
		SELECT next_value FROM journal_sequences
		WHERE tenant_id = $1 AND fiscal_year = $2
		FOR UPDATE;
	`
	if err := tx.QueryRow(ctx, selectQuery, tenantID, fiscalYear).Scan(&next); err != nil {
		return 0, apperrors.NewAppError(500, "failed to lock sequence counter for tenant "+tenantID, err)
	}

	updateQuery := `
		UPDATE journal_sequences SET next_value = next_value + 1
		WHERE tenant_id = $1 AND fiscal_year = $2;
	`
	if _, err := tx.Exec(ctx, updateQuery, tenantID, fiscalYear); err != nil {
		return 0, apperrors.NewAppError(500, "failed to advance sequence counter for tenant "+tenantID, err)
	}
	return next, nil
}

func (r *PgxEntryRepository) latestHashInTx(ctx context.Context, tx pgx.Tx, tenantID string) (string, error) {
	query := `
		SELECT hash FROM journal_entries
		WHERE tenant_id = $1
		ORDER BY created_at DESC, journal_entry_id DESC
		LIMIT 1;
	`
	var hash string
	err := tx.QueryRow(ctx, query, tenantID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GenesisHash, nil
	}
	if err != nil {
		return "", apperrors.NewAppError(500, "failed to read chain head for tenant "+tenantID, err)
	}
	return hash, nil
}

// LatestHash returns the tenant's current chain head, or the genesis marker
// when the tenant has no entries.
func (r *PgxEntryRepository) LatestHash(ctx context.Context, tenantID string) (string, error) {
	query := `
		SELECT hash FROM journal_entries
		WHERE tenant_id = $1
		ORDER BY created_at DESC, journal_entry_id DESC
		LIMIT 1;
	`
	var hash string
	err := r.Pool.QueryRow(ctx, query, tenantID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GenesisHash, nil
	}
	if err != nil {
		return "", apperrors.NewAppError(500, "failed to read chain head for tenant "+tenantID, err)
	}
	return hash, nil
}

// FindEntryByID retrieves an entry with its lines.
func (r *PgxEntryRepository) FindEntryByID(ctx context.Context, tenantID, entryID string) (*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND journal_entry_id = $2;
	`
	modelEntry, err := scanEntryRow(r.Pool.QueryRow(ctx, query, tenantID, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find journal entry "+entryID, err)
	}

	entry := mapping.ToDomainLedgerEntry(modelEntry)
	lines, err := r.findLinesByEntryIDs(ctx, []string{entryID})
	if err != nil {
		return nil, err
	}
	entry.Lines = lines[entryID]
	return &entry, nil
}

// ExistsByTenantAndEventID reports whether an entry was already posted for the
// given source event.
func (r *PgxEntryRepository) ExistsByTenantAndEventID(ctx context.Context, tenantID, sourceEventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE tenant_id = $1 AND event_id = $2);`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, tenantID, sourceEventID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check entry existence for event "+sourceEventID, err)
	}
	return exists, nil
}

// ExistsReversalOf reports whether a reversal entry already targets entryID.
func (r *PgxEntryRepository) ExistsReversalOf(ctx context.Context, tenantID, entryID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE tenant_id = $1 AND reversal_of_id = $2);`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, tenantID, entryID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check reversal existence for entry "+entryID, err)
	}
	return exists, nil
}

// FindAutoReverseEntries returns posted entries flagged for automatic
// reversal with a posting date inside [from, to].
func (r *PgxEntryRepository) FindAutoReverseEntries(ctx context.Context, tenantID string, from, to time.Time) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1 AND auto_reverse = TRUE AND status = $2
		  AND posting_date >= $3 AND posting_date <= $4
		ORDER BY created_at ASC, journal_entry_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID, string(domain.Posted), from, to)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query auto-reverse entries for tenant "+tenantID, err)
	}
	defer rows.Close()

	entries, err := r.collectEntriesWithLines(ctx, rows)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListEntriesByCreation returns the tenant's full entry history in chain
// order, headers only. Used for hash chain verification.
func (r *PgxEntryRepository) ListEntriesByCreation(ctx context.Context, tenantID string) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1
		ORDER BY created_at ASC, journal_entry_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query entries for tenant "+tenantID, err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		m, err := scanEntryRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan entry row", err)
		}
		entries = append(entries, mapping.ToDomainLedgerEntry(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating entry rows for tenant "+tenantID, err)
	}
	return entries, nil
}

// ListEntries retrieves a paginated list of entries for a tenant using
// token-based pagination, newest first.
func (r *PgxEntryRepository) ListEntries(ctx context.Context, tenantID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + entryColumns + `
		FROM journal_entries
		WHERE tenant_id = $1`
	orderByClause := `ORDER BY created_at DESC, journal_entry_id DESC`

	args := []interface{}{tenantID}
	cursorClause := ""
	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastEntryID, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		// Tuple comparison is concise and efficient in Postgres
		cursorClause = `AND (created_at, journal_entry_id) < ($2, $3)`
		args = append(args, lastCreatedAt, lastEntryID)
	}
	args = append(args, fetchLimit)
	limitClause := "LIMIT $" + strconv.Itoa(len(args))

	query := baseQuery + "\n\t\t" + cursorClause + "\n\t\t" + orderByClause + "\n\t\t" + limitClause + ";"
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query entries for tenant "+tenantID, err)
	}
	defer rows.Close()

	modelEntries := make([]models.LedgerEntry, 0, fetchLimit)
	for rows.Next() {
		m, scanErr := scanEntryRow(rows)
		if scanErr != nil {
			return nil, nil, apperrors.NewAppError(500, "failed to scan entry row", scanErr)
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(500, "error iterating entry rows for tenant "+tenantID, err)
	}

	// Determine the next token
	var nextTokenVal *string
	results := modelEntries
	if len(modelEntries) > limit {
		lastEntry := modelEntries[limit-1]
		token := pagination.EncodeToken(lastEntry.CreatedAt, lastEntry.EntryID)
		nextTokenVal = &token
		results = modelEntries[:limit]
	}

	entryIDs := make([]string, len(results))
	for i, m := range results {
		entryIDs[i] = m.EntryID
	}
	linesByEntry, err := r.findLinesByEntryIDs(ctx, entryIDs)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]domain.LedgerEntry, len(results))
	for i, m := range results {
		entries[i] = mapping.ToDomainLedgerEntry(m)
		entries[i].Lines = linesByEntry[m.EntryID]
	}
	return entries, nextTokenVal, nil
}

// collectEntriesWithLines scans header rows and attaches lines in one extra query.
func (r *PgxEntryRepository) collectEntriesWithLines(ctx context.Context, rows pgx.Rows) ([]domain.LedgerEntry, error) {
	var modelEntries []models.LedgerEntry
	for rows.Next() {
		m, err := scanEntryRow(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan entry row", err)
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating entry rows", err)
	}

	entryIDs := make([]string, len(modelEntries))
	for i, m := range modelEntries {
		entryIDs[i] = m.EntryID
	}
	linesByEntry, err := r.findLinesByEntryIDs(ctx, entryIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, len(modelEntries))
	for i, m := range modelEntries {
		entries[i] = mapping.ToDomainLedgerEntry(m)
		entries[i].Lines = linesByEntry[m.EntryID]
	}
	return entries, nil
}

// findLinesByEntryIDs retrieves all lines for the given entry IDs, keyed by
// entry ID and ordered by sort_order within each entry.
func (r *PgxEntryRepository) findLinesByEntryIDs(ctx context.Context, entryIDs []string) (map[string][]domain.LedgerLine, error) {
	if len(entryIDs) == 0 {
		return map[string][]domain.LedgerLine{}, nil
	}
	query := `
		SELECT line_id, journal_entry_id, account_code, amount_cents, base_amount_cents, is_credit, dimensions, sort_order
		FROM journal_lines
		WHERE journal_entry_id = ANY($1)
		ORDER BY journal_entry_id, sort_order;
	`
	rows, err := r.Pool.Query(ctx, query, entryIDs)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query journal lines", err)
	}
	defer rows.Close()

	linesByEntry := make(map[string][]domain.LedgerLine, len(entryIDs))
	for rows.Next() {
		var m models.LedgerLine
		if err := rows.Scan(&m.LineID, &m.EntryID, &m.AccountCode, &m.Amount, &m.BaseAmount, &m.IsCredit, &m.Dimensions, &m.SortOrder); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan journal line row", err)
		}
		line, err := mapping.ToDomainLedgerLine(m)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to decode dimensions for line "+m.LineID, err)
		}
		linesByEntry[m.EntryID] = append(linesByEntry[m.EntryID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating journal line rows", err)
	}
	return linesByEntry, nil
}

// scanEntryRow scans a single header row selected with entryColumns.
func scanEntryRow(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.TenantID,
		&m.SourceEventID,
		&m.PostingDate,
		&m.Description,
		&m.ReferenceID,
		&m.Status,
		&m.ReversalOfID,
		&m.SequenceNumber,
		&m.FiscalYear,
		&m.TransactionCurrency,
		&m.BaseCurrency,
		&m.ExchangeRate,
		&m.AutoReverse,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.PreviousHash,
		&m.Hash,
	)
	return m, err
}
