package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// LedgerRepository handles ledger entry persistence. Entries are append-only:
// nothing here deletes a row, and updates touch only status and description.
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(q Querier) *LedgerRepository {
	return &LedgerRepository{q: q}
}

var _ service.LedgerStore = (*LedgerRepository)(nil)

const ledgerColumns = `id, transaction_id, user_id, type, amount, status, description, source_id, created_at`

func scanLedgerEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var (
		e           model.LedgerEntry
		entryType   string
		entryStatus string
	)
	err := row.Scan(
		&e.ID,
		&e.TransactionID,
		&e.UserID,
		&entryType,
		&e.Amount,
		&entryStatus,
		&e.Description,
		&e.SourceID,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}
	e.Type = model.LedgerType(entryType)
	e.Status = model.LedgerStatus(entryStatus)
	return &e, nil
}

// Create appends a ledger entry. The transaction_id UNIQUE constraint makes
// a duplicate append fail loudly instead of double-recording an event.
func (r *LedgerRepository) Create(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO ledger_entries (transaction_id, user_id, type, amount, status, description, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + ledgerColumns

	return scanLedgerEntry(r.q.QueryRow(ctx, query,
		entry.TransactionID,
		entry.UserID,
		string(entry.Type),
		entry.Amount,
		string(entry.Status),
		entry.Description,
		entry.SourceID,
	))
}

// GetBySource retrieves the ledger entry recorded for a source request,
// e.g. the reservation entry of a withdrawal request.
func (r *LedgerRepository) GetBySource(ctx context.Context, t model.LedgerType, sourceID int64) (*model.LedgerEntry, error) {
	const query = `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE type = $1 AND source_id = $2`
	return scanLedgerEntry(r.q.QueryRow(ctx, query, string(t), sourceID))
}

// SetStatus resolves an entry, optionally replacing its description.
func (r *LedgerRepository) SetStatus(ctx context.Context, id int64, status model.LedgerStatus, description string) error {
	const query = `
		UPDATE ledger_entries
		SET status = $2,
		    description = CASE WHEN $3 = '' THEN description ELSE $3 END
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, id, string(status), description)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListByUser retrieves a user's ledger entries, newest first.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return out, nil
}

// SumCompletedByUser totals a user's completed entries of one type, e.g.
// lifetime approved deposits or paid-out winnings.
func (r *LedgerRepository) SumCompletedByUser(ctx context.Context, userID int64, t model.LedgerType) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1 AND type = $2 AND status = 'completed'
	`
	var total int64
	if err := r.q.QueryRow(ctx, query, userID, string(t)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return total, nil
}

// ReconstructBalance computes the balance implied by the user's ledger:
// credits minus debits over non-cancelled entries. Used by reconciliation
// to cross-check the stored balance.
func (r *LedgerRepository) ReconstructBalance(ctx context.Context, userID int64) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(
			CASE
				WHEN status = 'cancelled' THEN 0
				WHEN type IN ('deposit', 'win', 'refund', 'admin_credit') THEN amount
				WHEN type IN ('withdrawal', 'admin_debit') THEN -amount
				ELSE 0
			END
		), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`
	var balance int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to reconstruct balance: %w", err)
	}
	return balance, nil
}
