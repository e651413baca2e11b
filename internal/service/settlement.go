package service

import (
	"context"
	"fmt"
	"time"

	"betting-platform/internal/model"
)

// SettlementService resolves pending bets. Settlement is terminal and
// single-effect: the pending-only precondition inside the transaction
// guarantees at most one credit and one ledger entry per bet.
type SettlementService struct {
	tm    Transactor
	hooks *Hooks
}

// NewSettlementService creates a new SettlementService instance.
func NewSettlementService(tm Transactor, hooks *Hooks) *SettlementService {
	return &SettlementService{tm: tm, hooks: hooks}
}

// Settle resolves one bet.
//
//   - won: credits winAmount (defaulting to the bet's potential win) and
//     records it on the bet.
//   - lost: no balance effect.
//   - cancelled/refunded: credits the stake back.
func (s *SettlementService) Settle(ctx context.Context, betID int64, outcome model.BetStatus, winAmount *int64, adminID int64) (*model.Bet, error) {
	if !model.ValidSettlementOutcome(outcome) {
		observeOp("bet_settle", ErrInvalidState)
		return nil, fmt.Errorf("%w: invalid settlement outcome %q", ErrInvalidState, outcome)
	}
	if winAmount != nil && *winAmount <= 0 {
		observeOp("bet_settle", ErrInvalidAmount)
		return nil, fmt.Errorf("%w: win amount must be positive", ErrInvalidAmount)
	}

	var (
		bet      *model.Bet
		credited int64
	)
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		bet, err = tx.Bets().GetForUpdate(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status != model.BetPending {
			return fmt.Errorf("%w: bet %d is %s, not pending", ErrInvalidState, betID, bet.Status)
		}

		now := time.Now()
		bet.Status = outcome
		bet.SettledAt = &now

		switch outcome {
		case model.BetWon:
			finalWin := bet.PotentialWin
			if winAmount != nil {
				finalWin = *winAmount
			}
			bet.WinAmount = &finalWin
			credited = finalWin

			if _, err := tx.Users().Credit(ctx, bet.UserID, finalWin); err != nil {
				return err
			}
			if err := tx.Users().AddWinnings(ctx, bet.UserID, finalWin); err != nil {
				return err
			}
			if _, err := tx.Ledger().Create(ctx, &model.LedgerEntry{
				TransactionID: newTransactionID("WIN"),
				UserID:        bet.UserID,
				Type:          model.LedgerTypeWin,
				Amount:        finalWin,
				Status:        model.LedgerStatusCompleted,
				Description:   fmt.Sprintf("Bet Win - %s", marketLabel(bet)),
				SourceID:      bet.ID,
			}); err != nil {
				return err
			}

		case model.BetCancelled, model.BetRefunded:
			credited = bet.Stake

			if _, err := tx.Users().Credit(ctx, bet.UserID, bet.Stake); err != nil {
				return err
			}
			kind := "Cancellation"
			if outcome == model.BetRefunded {
				kind = "Refund"
			}
			if _, err := tx.Ledger().Create(ctx, &model.LedgerEntry{
				TransactionID: newTransactionID("REF"),
				UserID:        bet.UserID,
				Type:          model.LedgerTypeRefund,
				Amount:        bet.Stake,
				Status:        model.LedgerStatusCompleted,
				Description:   fmt.Sprintf("Bet %s - %s", kind, marketLabel(bet)),
				SourceID:      bet.ID,
			}); err != nil {
				return err
			}
		}
		// lost: status flip only, nothing credited

		return tx.Bets().Update(ctx, bet)
	})
	observeOp("bet_settle", err)
	if err != nil {
		return nil, err
	}
	if credited > 0 {
		switch outcome {
		case model.BetWon:
			observeMutation(string(model.LedgerTypeWin), credited)
		default:
			observeMutation(string(model.LedgerTypeRefund), credited)
		}
	}

	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "settle_bet",
		TargetType:  "bet",
		TargetID:    bet.ID,
		Description: fmt.Sprintf("Settled bet from pending to %s", outcome),
		Before:      map[string]any{"status": string(model.BetPending)},
		After:       map[string]any{"status": string(outcome), "win_amount": bet.WinAmount},
	})
	if outcome == model.BetWon || outcome == model.BetLost {
		n := Notification{
			UserID:   bet.UserID,
			Type:     "bet_lost",
			Title:    "Bet Lost",
			Message:  "Your bet has been settled as lost.",
			Metadata: map[string]any{"bet_id": bet.ID, "stake": bet.Stake},
		}
		if outcome == model.BetWon {
			n.Type = "bet_won"
			n.Title = "Bet Won!"
			n.Message = fmt.Sprintf("Congratulations! You won %d on your bet.", credited)
			n.Metadata["win_amount"] = credited
		}
		s.hooks.notify(ctx, n)
	}

	return bet, nil
}

// SettlementSummary reports a bulk settlement run. Bets that were already
// settled are skipped, never failing the batch.
type SettlementSummary struct {
	Settled   int
	Skipped   int
	Won       int
	Lost      int
	Cancelled int
	Refunded  int
}

// BulkSettle settles each bet in its own guarded transaction and tallies
// the results.
func (s *SettlementService) BulkSettle(ctx context.Context, betIDs []int64, outcome model.BetStatus, adminID int64) (SettlementSummary, error) {
	if !model.ValidSettlementOutcome(outcome) {
		return SettlementSummary{}, fmt.Errorf("%w: invalid settlement outcome %q", ErrInvalidState, outcome)
	}

	var sum SettlementSummary
	for _, id := range betIDs {
		if _, err := s.Settle(ctx, id, outcome, nil, adminID); err != nil {
			if isSkippable(err) {
				sum.Skipped++
				continue
			}
			return sum, err
		}
		sum.Settled++
		switch outcome {
		case model.BetWon:
			sum.Won++
		case model.BetLost:
			sum.Lost++
		case model.BetCancelled:
			sum.Cancelled++
		case model.BetRefunded:
			sum.Refunded++
		}
	}
	return sum, nil
}

func marketLabel(bet *model.Bet) string {
	if bet.MarketName != "" {
		return bet.MarketName
	}
	return "Bet Settlement"
}
