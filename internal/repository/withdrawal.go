package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// WithdrawalRepository handles withdrawal request persistence.
type WithdrawalRepository struct {
	q Querier
}

// NewWithdrawalRepository creates a new WithdrawalRepository instance.
func NewWithdrawalRepository(q Querier) *WithdrawalRepository {
	return &WithdrawalRepository{q: q}
}

var _ service.WithdrawalStore = (*WithdrawalRepository)(nil)

const withdrawalColumns = `id, user_id, amount, iban, iban_holder_name, status,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	cancelled_at, admin_notes, created_at`

func scanWithdrawal(row pgx.Row) (*model.WithdrawalRequest, error) {
	var (
		w      model.WithdrawalRequest
		status string
	)
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.IBAN,
		&w.IBANHolderName,
		&status,
		&w.ApprovedBy,
		&w.ApprovedAt,
		&w.RejectedBy,
		&w.RejectedAt,
		&w.RejectionReason,
		&w.CancelledAt,
		&w.AdminNotes,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
	}
	w.Status = model.NormalizeWithdrawalStatus(status)
	return &w, nil
}

// Create inserts a new withdrawal request. Called only from the unit of
// work that also debits the reservation.
func (r *WithdrawalRepository) Create(ctx context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	const query = `
		INSERT INTO withdrawal_requests (user_id, amount, iban, iban_holder_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + withdrawalColumns

	return scanWithdrawal(r.q.QueryRow(ctx, query,
		req.UserID, req.Amount, req.IBAN, req.IBANHolderName, string(req.Status)))
}

// GetByID retrieves a withdrawal request without locking.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	return scanWithdrawal(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a withdrawal request and locks the row for the
// enclosing transaction.
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	const query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`
	return scanWithdrawal(r.q.QueryRow(ctx, query, id))
}

// Update writes the mutable fields of a withdrawal request.
func (r *WithdrawalRepository) Update(ctx context.Context, req *model.WithdrawalRequest) error {
	const query = `
		UPDATE withdrawal_requests
		SET status = $2, approved_by = $3, approved_at = $4, rejected_by = $5,
		    rejected_at = $6, rejection_reason = $7, cancelled_at = $8, admin_notes = $9
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		req.ID,
		string(model.NormalizeWithdrawalStatus(string(req.Status))),
		req.ApprovedBy,
		req.ApprovedAt,
		req.RejectedBy,
		req.RejectedAt,
		req.RejectionReason,
		req.CancelledAt,
		req.AdminNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListByStatus retrieves withdrawal requests in a given status, newest
// first.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status model.WithdrawalStatus, limit int) ([]*model.WithdrawalRequest, error) {
	const query = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []*model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return out, nil
}
