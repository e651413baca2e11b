package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Migrate applies the balance engine schema. Statements are idempotent so
// the function is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	// Migration 1: users table. The engine owns the balance column; the
	// CHECK constraint is the last line of defense behind the in-transaction
	// validation.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(255) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			total_winnings BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table ready")

	// Migration 2: deposit requests
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS deposit_requests (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			adjusted_amount BIGINT,
			payment_method VARCHAR(50) NOT NULL DEFAULT 'bank_transfer',
			status VARCHAR(30) NOT NULL DEFAULT 'pending',
			approved_by BIGINT,
			approved_at TIMESTAMPTZ,
			cancelled_by BIGINT,
			cancelled_at TIMESTAMPTZ,
			admin_notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_deposit_requests_user ON deposit_requests(user_id);
		CREATE INDEX IF NOT EXISTS idx_deposit_requests_status ON deposit_requests(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: deposit_requests table ready")

	// Migration 3: withdrawal requests
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			iban VARCHAR(34) NOT NULL,
			iban_holder_name VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(30) NOT NULL DEFAULT 'pending',
			approved_by BIGINT,
			approved_at TIMESTAMPTZ,
			rejected_by BIGINT,
			rejected_at TIMESTAMPTZ,
			rejection_reason TEXT,
			cancelled_at TIMESTAMPTZ,
			admin_notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_user ON withdrawal_requests(user_id);
		CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status ON withdrawal_requests(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: withdrawal_requests table ready")

	// Migration 4: ledger. One row per balance-affecting event, written in
	// the same transaction as the balance mutation.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			transaction_id VARCHAR(64) NOT NULL UNIQUE,
			user_id BIGINT NOT NULL REFERENCES users(id),
			type VARCHAR(30) NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			status VARCHAR(30) NOT NULL DEFAULT 'pending',
			description TEXT NOT NULL DEFAULT '',
			source_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_source ON ledger_entries(type, source_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: ledger_entries table ready")

	// Migration 5: bets. Placement happens outside the engine; settlement
	// is the only mutation performed here.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bets (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			market_name VARCHAR(255) NOT NULL DEFAULT '',
			stake BIGINT NOT NULL CHECK (stake > 0),
			potential_win BIGINT NOT NULL CHECK (potential_win >= 0),
			status VARCHAR(30) NOT NULL DEFAULT 'pending',
			win_amount BIGINT,
			settled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bets_user ON bets(user_id);
		CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: bets table ready")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
