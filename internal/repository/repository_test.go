// Integration tests for the PostgreSQL data access layer. Tests use
// testcontainers-go to spin up a PostgreSQL container and skip when Docker
// is unavailable.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"betting-platform/internal/model"
	"betting-platform/internal/pkg/db"
	"betting-platform/internal/service"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, runs the engine migrations and
// returns a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func TestUserRepositoryBalanceMutations(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)

	user, err := users.Create(ctx, "alice", "alice@example.com", 100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), user.Balance)

	updated, err := users.Credit(ctx, user.ID, 50_000)
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), updated.Balance)

	updated, err = users.Debit(ctx, user.ID, 30_000)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), updated.Balance)

	// Overdraft is refused, balance untouched.
	_, err = users.Debit(ctx, user.ID, 200_000)
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)
	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120_000), got.Balance)

	// Clamped debit floors at zero.
	updated, err = users.DebitClamped(ctx, user.ID, 200_000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Balance)

	require.NoError(t, users.AddWinnings(ctx, user.ID, 75_000))
	got, err = users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(75_000), got.TotalWinnings)
}

func TestUserRepositoryResolve(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	created, err := users.Create(ctx, "bob", "Bob@Example.com", 0)
	require.NoError(t, err)

	byID, err := users.Resolve(ctx, service.ByID(created.ID))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	// Email matching is case-insensitive.
	byEmail, err := users.Resolve(ctx, service.ByEmail("bob@example.com"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byName, err := users.Resolve(ctx, service.ByUsername("bob"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = users.Resolve(ctx, service.ByUsername("nobody"))
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = users.Resolve(ctx, service.ByID(999_999))
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDepositRepositoryLifecycleAndNormalization(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	deposits := NewDepositRepository(pool)

	user, err := users.Create(ctx, "carol", "carol@example.com", 0)
	require.NoError(t, err)

	req, err := deposits.Create(ctx, &model.DepositRequest{
		UserID:        user.ID,
		Amount:        100_000,
		PaymentMethod: "bank_transfer",
		Status:        model.DepositPending,
	})
	require.NoError(t, err)
	assert.NotZero(t, req.ID)

	// Legacy uppercase status rows come back normalized.
	_, err = pool.Exec(ctx, `UPDATE deposit_requests SET status = 'PENDING' WHERE id = $1`, req.ID)
	require.NoError(t, err)
	got, err := deposits.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DepositPending, got.Status)

	got.Status = model.DepositApproved
	require.NoError(t, deposits.Update(ctx, got))

	listed, err := deposits.ListByStatus(ctx, model.DepositApproved, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, req.ID, listed[0].ID)

	_, err = deposits.GetByID(ctx, 424242)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLedgerRepositoryReplay(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	ledger := NewLedgerRepository(pool)

	user, err := users.Create(ctx, "dave", "dave@example.com", 0)
	require.NoError(t, err)

	entries := []*model.LedgerEntry{
		{TransactionID: "DEP-t1", UserID: user.ID, Type: model.LedgerTypeDeposit, Amount: 100_000, Status: model.LedgerStatusCompleted, SourceID: 1},
		{TransactionID: "WD-t2", UserID: user.ID, Type: model.LedgerTypeWithdrawal, Amount: 30_000, Status: model.LedgerStatusPending, SourceID: 1},
		{TransactionID: "WIN-t3", UserID: user.ID, Type: model.LedgerTypeWin, Amount: 25_000, Status: model.LedgerStatusCompleted, SourceID: 1},
		{TransactionID: "WD-t4", UserID: user.ID, Type: model.LedgerTypeWithdrawal, Amount: 10_000, Status: model.LedgerStatusCancelled, SourceID: 2},
	}
	for _, e := range entries {
		_, err := ledger.Create(ctx, e)
		require.NoError(t, err)
	}

	// 100000 - 30000 + 25000; the cancelled reservation is neutral.
	replayed, err := ledger.ReconstructBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(95_000), replayed)

	total, err := ledger.SumCompletedByUser(ctx, user.ID, model.LedgerTypeDeposit)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), total)

	listed, err := ledger.ListByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, listed, 4)

	// Duplicate transaction ids are refused by the unique constraint.
	_, err = ledger.Create(ctx, &model.LedgerEntry{
		TransactionID: "DEP-t1", UserID: user.ID, Type: model.LedgerTypeDeposit,
		Amount: 1, Status: model.LedgerStatusCompleted,
	})
	assert.Error(t, err)
}

func TestBetRepositoryLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	bets := NewBetRepository(pool)

	user, err := users.Create(ctx, "grace", "grace@example.com", 0)
	require.NoError(t, err)

	first, err := bets.Create(ctx, &model.Bet{
		UserID:       user.ID,
		MarketName:   "match winner",
		Stake:        50_000,
		PotentialWin: 125_000,
		Status:       model.BetPending,
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := bets.Create(ctx, &model.Bet{
		UserID:       user.ID,
		MarketName:   "total goals",
		Stake:        20_000,
		PotentialWin: 60_000,
		Status:       model.BetPending,
	})
	require.NoError(t, err)

	got, err := bets.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BetPending, got.Status)
	assert.Equal(t, int64(50_000), got.Stake)

	// Settling the first bet removes it from the pending list.
	now := time.Now()
	win := int64(125_000)
	got.Status = model.BetWon
	got.WinAmount = &win
	got.SettledAt = &now
	require.NoError(t, bets.Update(ctx, got))

	pending, err := bets.ListPendingByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = bets.GetByID(ctx, 424242)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestTxManagerRollsBackOnError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	tm := NewTxManager(pool)

	user, err := users.Create(ctx, "erin", "erin@example.com", 100_000)
	require.NoError(t, err)

	// A failing step after a successful credit must undo the credit.
	err = tm.WithinTx(ctx, func(tx service.Tx) error {
		if _, err := tx.Users().Credit(ctx, user.ID, 50_000); err != nil {
			return err
		}
		_, err := tx.Users().Debit(ctx, user.ID, 1_000_000)
		return err
	})
	assert.ErrorIs(t, err, service.ErrInsufficientFunds)

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got.Balance)
}

func TestTxManagerCommitsAtomicUnit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := NewUserRepository(pool)
	ledger := NewLedgerRepository(pool)
	tm := NewTxManager(pool)

	user, err := users.Create(ctx, "frank", "frank@example.com", 0)
	require.NoError(t, err)

	err = tm.WithinTx(ctx, func(tx service.Tx) error {
		if _, err := tx.Users().Credit(ctx, user.ID, 100_000); err != nil {
			return err
		}
		_, err := tx.Ledger().Create(ctx, &model.LedgerEntry{
			TransactionID: "DEP-atomic",
			UserID:        user.ID,
			Type:          model.LedgerTypeDeposit,
			Amount:        100_000,
			Status:        model.LedgerStatusCompleted,
		})
		return err
	})
	require.NoError(t, err)

	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got.Balance)

	replayed, err := ledger.ReconstructBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Balance, replayed)
}
