package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// UserRepository handles user persistence and is the only writer of the
// balance column. Balance mutations use server-side arithmetic under a
// FOR UPDATE lock so concurrent transactions on the same user serialize.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

var (
	_ service.UserStore    = (*UserRepository)(nil)
	_ service.UserResolver = (*UserRepository)(nil)
)

const userColumns = `id, username, email, balance, total_winnings, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Balance,
		&u.TotalWinnings,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user. Used by wiring and tests; the engine itself
// never creates users.
func (r *UserRepository) Create(ctx context.Context, username, email string, balance int64) (*model.User, error) {
	const query = `
		INSERT INTO users (username, email, balance, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + userColumns

	return scanUser(r.q.QueryRow(ctx, query, username, email, balance))
}

// GetByID retrieves a user without locking.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRow(ctx, query, id))
}

// GetForUpdate retrieves a user and locks the row for the enclosing
// transaction.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.q.QueryRow(ctx, query, id))
}

// Credit adds amount to the balance and returns the updated user.
func (r *UserRepository) Credit(ctx context.Context, id int64, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", service.ErrInvalidAmount)
	}
	const query = `
		UPDATE users
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.q.QueryRow(ctx, query, id, amount))
}

// Debit subtracts amount, failing if the balance would go negative. The
// WHERE clause makes the check and the mutation one statement.
func (r *UserRepository) Debit(ctx context.Context, id int64, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", service.ErrInvalidAmount)
	}
	const query = `
		UPDATE users
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, id, amount))
	if errors.Is(err, service.ErrNotFound) {
		// Row exists but the balance guard failed, or the user is gone.
		if _, lookupErr := r.GetByID(ctx, id); lookupErr == nil {
			return nil, service.ErrInsufficientFunds
		}
		return nil, service.ErrNotFound
	}
	return user, err
}

// DebitClamped subtracts min(amount, balance), flooring the balance at
// zero. Admin adjustment path only.
func (r *UserRepository) DebitClamped(ctx context.Context, id int64, amount int64) (*model.User, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", service.ErrInvalidAmount)
	}
	const query = `
		UPDATE users
		SET balance = GREATEST(balance - $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.q.QueryRow(ctx, query, id, amount))
}

// AddWinnings bumps the lifetime winnings counter.
func (r *UserRepository) AddWinnings(ctx context.Context, id int64, amount int64) error {
	const query = `
		UPDATE users
		SET total_winnings = total_winnings + $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to update winnings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// Resolve implements service.UserResolver: it maps an id, email, or
// username to exactly one user. Email and username columns are unique, so
// ambiguity can only arise from blank identifiers, which are rejected.
func (r *UserRepository) Resolve(ctx context.Context, ident service.Identifier) (*model.User, error) {
	if ident.Value == "" {
		return nil, fmt.Errorf("%w: empty identifier", service.ErrAmbiguousIdentifier)
	}

	var query string
	switch ident.Kind {
	case service.IdentifierID:
		id, err := strconv.ParseInt(ident.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed user id %q", service.ErrNotFound, ident.Value)
		}
		return r.GetByID(ctx, id)
	case service.IdentifierEmail:
		query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	case service.IdentifierUsername:
		query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	default:
		return nil, fmt.Errorf("%w: unknown identifier kind %q", service.ErrAmbiguousIdentifier, ident.Kind)
	}

	return scanUser(r.q.QueryRow(ctx, query, ident.Value))
}
