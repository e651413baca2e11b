package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// BetRepository handles bet persistence.
type BetRepository struct {
	q Querier
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(q Querier) *BetRepository {
	return &BetRepository{q: q}
}

var _ service.BetStore = (*BetRepository)(nil)

const betColumns = `id, user_id, market_name, stake, potential_win, status, win_amount, settled_at, created_at`

func scanBet(row pgx.Row) (*model.Bet, error) {
	var (
		b      model.Bet
		status string
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.MarketName,
		&b.Stake,
		&b.PotentialWin,
		&status,
		&b.WinAmount,
		&b.SettledAt,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan bet: %w", err)
	}
	b.Status = model.BetStatus(status)
	return &b, nil
}

// Create inserts a bet. Bet placement is handled upstream; this exists so
// settlement tests and backfills can seed bets through the same store.
func (r *BetRepository) Create(ctx context.Context, bet *model.Bet) (*model.Bet, error) {
	const query = `
		INSERT INTO bets (user_id, market_name, stake, potential_win, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + betColumns

	return scanBet(r.q.QueryRow(ctx, query,
		bet.UserID, bet.MarketName, bet.Stake, bet.PotentialWin, string(bet.Status)))
}

// GetByID retrieves a bet without locking.
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*model.Bet, error) {
	const query = `SELECT ` + betColumns + ` FROM bets WHERE id = $1`
	return scanBet(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a bet and locks the row for the enclosing
// transaction, serializing concurrent settlement attempts.
func (r *BetRepository) GetForUpdate(ctx context.Context, id int64) (*model.Bet, error) {
	const query = `SELECT ` + betColumns + ` FROM bets WHERE id = $1 FOR UPDATE`
	return scanBet(r.q.QueryRow(ctx, query, id))
}

// Update writes the settlement fields of a bet.
func (r *BetRepository) Update(ctx context.Context, bet *model.Bet) error {
	const query = `
		UPDATE bets
		SET status = $2, win_amount = $3, settled_at = $4
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, bet.ID, string(bet.Status), bet.WinAmount, bet.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to update bet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// ListPendingByUser retrieves a user's unsettled bets, oldest first.
func (r *BetRepository) ListPendingByUser(ctx context.Context, userID int64, limit int) ([]*model.Bet, error) {
	const query = `
		SELECT ` + betColumns + `
		FROM bets
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := r.q.Query(ctx, query, userID, string(model.BetPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	var out []*model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return out, nil
}
