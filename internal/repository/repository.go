// Package repository provides the PostgreSQL data access layer and the
// unit-of-work coordinator for the balance engine.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"betting-platform/internal/service"
)

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code runs pooled or transaction-scoped.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager implements service.Transactor on a pgx connection pool. Every
// mutating engine operation runs through WithinTx; reads that inform a
// transition decision happen on the transaction-scoped stores, never on
// the pool.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager instance.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

var _ service.Transactor = (*TxManager)(nil)

// WithinTx runs fn inside one database transaction, committing iff fn
// returns nil. Row-level FOR UPDATE locks in the stores serialize
// concurrent operations on the same user or request; a serialization
// failure or deadlock surfaces as service.ErrTxConflict and is safe to
// retry from scratch, because every transition re-checks its precondition
// inside the transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	ptx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapTxError(err)
	}
	defer func() {
		_ = ptx.Rollback(ctx)
	}()

	if err := fn(&txStores{q: ptx}); err != nil {
		return err
	}

	if err := ptx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

// txStores exposes transaction-scoped stores over one pgx.Tx.
type txStores struct {
	q Querier
}

var _ service.Tx = (*txStores)(nil)

func (t *txStores) Users() service.UserStore             { return NewUserRepository(t.q) }
func (t *txStores) Deposits() service.DepositStore       { return NewDepositRepository(t.q) }
func (t *txStores) Withdrawals() service.WithdrawalStore { return NewWithdrawalRepository(t.q) }
func (t *txStores) Bets() service.BetStore               { return NewBetRepository(t.q) }
func (t *txStores) Ledger() service.LedgerStore          { return NewLedgerRepository(t.q) }

// mapTxError translates transient store-level conflicts into the engine's
// retryable error.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return fmt.Errorf("%w: %s", service.ErrTxConflict, pgErr.Code)
		}
	}
	return err
}
