package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// DepositRepository handles deposit request persistence.
type DepositRepository struct {
	q Querier
}

// NewDepositRepository creates a new DepositRepository instance.
func NewDepositRepository(q Querier) *DepositRepository {
	return &DepositRepository{q: q}
}

var _ service.DepositStore = (*DepositRepository)(nil)

const depositColumns = `id, user_id, amount, adjusted_amount, payment_method, status,
	approved_by, approved_at, cancelled_by, cancelled_at, admin_notes, created_at`

func scanDeposit(row pgx.Row) (*model.DepositRequest, error) {
	var (
		d      model.DepositRequest
		status string
	)
	err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Amount,
		&d.AdjustedAmount,
		&d.PaymentMethod,
		&status,
		&d.ApprovedBy,
		&d.ApprovedAt,
		&d.CancelledBy,
		&d.CancelledAt,
		&d.AdminNotes,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan deposit request: %w", err)
	}
	// Legacy rows carry uppercase statuses; canonical form is lowercase.
	d.Status = model.NormalizeDepositStatus(status)
	return &d, nil
}

// Create inserts a new deposit request.
func (r *DepositRepository) Create(ctx context.Context, req *model.DepositRequest) (*model.DepositRequest, error) {
	const query = `
		INSERT INTO deposit_requests (user_id, amount, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + depositColumns

	return scanDeposit(r.q.QueryRow(ctx, query, req.UserID, req.Amount, req.PaymentMethod, string(req.Status)))
}

// GetByID retrieves a deposit request without locking.
func (r *DepositRepository) GetByID(ctx context.Context, id int64) (*model.DepositRequest, error) {
	const query = `SELECT ` + depositColumns + ` FROM deposit_requests WHERE id = $1`
	return scanDeposit(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a deposit request and locks the row for the
// enclosing transaction, so a concurrent approval on the same request
// blocks here and then observes the updated status.
func (r *DepositRepository) GetForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error) {
	const query = `SELECT ` + depositColumns + ` FROM deposit_requests WHERE id = $1 FOR UPDATE`
	return scanDeposit(r.q.QueryRow(ctx, query, id))
}

// Update writes the mutable fields of a deposit request. Status is always
// stored in its normalized lowercase form.
func (r *DepositRepository) Update(ctx context.Context, req *model.DepositRequest) error {
	const query = `
		UPDATE deposit_requests
		SET status = $2, adjusted_amount = $3, approved_by = $4, approved_at = $5,
		    cancelled_by = $6, cancelled_at = $7, admin_notes = $8
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query,
		req.ID,
		string(model.NormalizeDepositStatus(string(req.Status))),
		req.AdjustedAmount,
		req.ApprovedBy,
		req.ApprovedAt,
		req.CancelledBy,
		req.CancelledAt,
		req.AdminNotes,
	)
	if err != nil {
		return fmt.Errorf("failed to update deposit request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListByStatus retrieves deposit requests in a given status, newest first.
func (r *DepositRepository) ListByStatus(ctx context.Context, status model.DepositStatus, limit int) ([]*model.DepositRequest, error) {
	const query = `
		SELECT ` + depositColumns + `
		FROM deposit_requests
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit requests: %w", err)
	}
	defer rows.Close()

	var out []*model.DepositRequest
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit requests: %w", err)
	}
	return out, nil
}
