package service

import (
	"context"

	"betting-platform/internal/model"
)

// Tx is the set of stores visible inside one unit of work. All reads that
// inform a transition decision must go through these, never through a
// pool-level query, so the decision and the mutation share one transaction.
type Tx interface {
	Users() UserStore
	Deposits() DepositStore
	Withdrawals() WithdrawalStore
	Bets() BetStore
	Ledger() LedgerStore
}

// Transactor runs a function inside an atomic unit of work. The transaction
// commits iff fn returns nil; any error aborts it and leaves every
// participating record unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserStore mutates user balances. Credit and Debit are the only code paths
// allowed to change a stored balance, and they are callable only inside an
// active unit of work.
type UserStore interface {
	// GetForUpdate loads a user and locks the row for the transaction.
	GetForUpdate(ctx context.Context, id int64) (*model.User, error)

	// Credit adds amount to the balance and returns the updated user.
	Credit(ctx context.Context, id int64, amount int64) (*model.User, error)

	// Debit subtracts amount, failing with ErrInsufficientFunds if the
	// balance would go negative.
	Debit(ctx context.Context, id int64, amount int64) (*model.User, error)

	// DebitClamped subtracts min(amount, balance), flooring at zero. Used
	// only by the admin adjustment path.
	DebitClamped(ctx context.Context, id int64, amount int64) (*model.User, error)

	// AddWinnings bumps the lifetime winnings counter.
	AddWinnings(ctx context.Context, id int64, amount int64) error
}

// DepositStore persists deposit requests.
type DepositStore interface {
	Create(ctx context.Context, req *model.DepositRequest) (*model.DepositRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.DepositRequest, error)
	Update(ctx context.Context, req *model.DepositRequest) error
}

// WithdrawalStore persists withdrawal requests.
type WithdrawalStore interface {
	Create(ctx context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error)
	GetForUpdate(ctx context.Context, id int64) (*model.WithdrawalRequest, error)
	Update(ctx context.Context, req *model.WithdrawalRequest) error
}

// BetStore persists bets. Placement is external; the engine only settles.
type BetStore interface {
	Create(ctx context.Context, bet *model.Bet) (*model.Bet, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Bet, error)
	Update(ctx context.Context, bet *model.Bet) error
}

// LedgerStore appends and resolves ledger entries. Entries are never
// deleted; only status and description change as the source request
// resolves.
type LedgerStore interface {
	Create(ctx context.Context, entry *model.LedgerEntry) (*model.LedgerEntry, error)
	GetBySource(ctx context.Context, t model.LedgerType, sourceID int64) (*model.LedgerEntry, error)
	SetStatus(ctx context.Context, id int64, status model.LedgerStatus, description string) error
}
