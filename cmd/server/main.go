// Package main is the entry point for the balance engine server.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"betting-platform/internal/config"
	"betting-platform/internal/pkg/db"
	"betting-platform/internal/pkg/metrics"
	"betting-platform/internal/repository"
	"betting-platform/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	log.Info().Msg("Running database migrations...")
	if err := db.Migrate(ctx, dbPool.Pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize unit-of-work coordinator and pool-level repositories
	txManager := repository.NewTxManager(dbPool.Pool)
	userRepo := repository.NewUserRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)

	// Post-commit hooks. The audit sink logs structured records; bonus and
	// notification delivery are wired here when those subsystems come online.
	hooks := &service.Hooks{
		Audit: service.LogAuditSink{},
	}

	// Initialize services
	depositService := service.NewDepositService(txManager, hooks,
		cfg.Deposit.MinAmount, cfg.Deposit.MaxAmount)
	withdrawalService := service.NewWithdrawalService(txManager, hooks,
		cfg.Withdrawal.MinAmount, cfg.Withdrawal.MaxAmount)
	settlementService := service.NewSettlementService(txManager, hooks)
	adjustmentService := service.NewAdjustmentService(txManager, userRepo, hooks)

	log.Info().
		Int64("deposit_min", cfg.Deposit.MinAmount).
		Int64("deposit_max", cfg.Deposit.MaxAmount).
		Int64("withdrawal_min", cfg.Withdrawal.MinAmount).
		Int64("withdrawal_max", cfg.Withdrawal.MaxAmount).
		Msg("Balance engine services initialized")

	// Start metrics and health server. /debug/reconcile cross-checks a
	// stored balance against its ledger replay; the /debug ops endpoints
	// drive the engine flows until the full admin transport mounts.
	handlers := opsHandlers(depositService, withdrawalService, settlementService, adjustmentService)
	handlers["/debug/reconcile"] = reconcileHandler(userRepo, ledgerRepo)
	metricsServer := metrics.StartServer(cfg.Metrics.ListenAddr, dbPool.HealthCheck, handlers)
	log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("Metrics server started")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics server shutdown failed")
	}

	log.Info().Msg("Server stopped gracefully")
}

// reconcileHandler serves the ledger invariant check: for ?user_id=N it
// reports the stored balance, the balance replayed from the ledger, and
// whether they agree.
func reconcileHandler(users *repository.UserRepository, ledger *repository.LedgerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}

		user, err := users.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		replayed, err := ledger.ReconstructBalance(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id":          userID,
			"stored_balance":   user.Balance,
			"replayed_balance": replayed,
			"consistent":       user.Balance == replayed,
		})
	})
}
