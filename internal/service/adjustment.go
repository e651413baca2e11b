package service

import (
	"context"
	"fmt"

	"betting-platform/internal/model"
)

// AdjustmentDirection selects credit or debit for an admin adjustment.
type AdjustmentDirection string

// Adjustment directions.
const (
	AdjustCredit AdjustmentDirection = "credit"
	AdjustDebit  AdjustmentDirection = "debit"
)

// AdjustmentService applies direct admin credits/debits outside of any
// request flow, for support and manual corrections.
type AdjustmentService struct {
	tm       Transactor
	resolver UserResolver
	hooks    *Hooks
}

// NewAdjustmentService creates a new AdjustmentService instance.
func NewAdjustmentService(tm Transactor, resolver UserResolver, hooks *Hooks) *AdjustmentService {
	return &AdjustmentService{tm: tm, resolver: resolver, hooks: hooks}
}

// AdjustmentResult reports an applied adjustment.
type AdjustmentResult struct {
	UserID        int64
	Direction     AdjustmentDirection
	Applied       int64
	BalanceBefore int64
	BalanceAfter  int64
	Entry         *model.LedgerEntry
}

// Adjust credits or debits a user addressed by id, email, or username.
// Credits add |amount|. Debits subtract min(|amount|, balance): the balance
// is clamped at zero rather than failing, unlike the strict
// insufficient-funds rule used for withdrawal reservations.
func (s *AdjustmentService) Adjust(ctx context.Context, ident Identifier, amount int64, direction AdjustmentDirection, adminID int64, description *string) (*AdjustmentResult, error) {
	if amount == 0 {
		observeOp("admin_adjust", ErrInvalidAmount)
		return nil, fmt.Errorf("%w: amount must be non-zero", ErrInvalidAmount)
	}
	if amount < 0 {
		amount = -amount
	}
	if direction != AdjustCredit && direction != AdjustDebit {
		observeOp("admin_adjust", ErrInvalidState)
		return nil, fmt.Errorf("%w: direction must be credit or debit", ErrInvalidState)
	}

	// Resolution to exactly one user is a precondition of the mutation.
	target, err := s.resolver.Resolve(ctx, ident)
	if err != nil {
		observeOp("admin_adjust", err)
		return nil, err
	}

	res := &AdjustmentResult{UserID: target.ID, Direction: direction}
	err = s.tm.WithinTx(ctx, func(tx Tx) error {
		user, err := tx.Users().GetForUpdate(ctx, target.ID)
		if err != nil {
			return err
		}
		res.BalanceBefore = user.Balance

		var (
			updated   *model.User
			entryType model.LedgerType
		)
		if direction == AdjustCredit {
			entryType = model.LedgerTypeAdminCredit
			res.Applied = amount
			updated, err = tx.Users().Credit(ctx, user.ID, amount)
		} else {
			entryType = model.LedgerTypeAdminDebit
			res.Applied = amount
			if res.Applied > user.Balance {
				res.Applied = user.Balance
			}
			updated, err = tx.Users().DebitClamped(ctx, user.ID, amount)
		}
		if err != nil {
			return err
		}
		res.BalanceAfter = updated.Balance

		if res.Applied == 0 {
			// Debit against an empty balance: nothing moved, so no entry.
			return nil
		}

		desc := fmt.Sprintf("Admin %s by admin", direction)
		if description != nil && *description != "" {
			desc = *description
		}
		res.Entry, err = tx.Ledger().Create(ctx, &model.LedgerEntry{
			TransactionID: newTransactionID("ADJ"),
			UserID:        user.ID,
			Type:          entryType,
			Amount:        res.Applied,
			Status:        model.LedgerStatusCompleted,
			Description:   desc,
		})
		return err
	})
	observeOp("admin_adjust", err)
	if err != nil {
		return nil, err
	}
	if res.Applied > 0 {
		observeMutation(string(res.entryType()), res.Applied)
	}

	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "update_user_balance",
		TargetType:  "user",
		TargetID:    res.UserID,
		Description: fmt.Sprintf("Admin %sed %d to user balance", direction, res.Applied),
		Before:      map[string]any{"balance": res.BalanceBefore},
		After:       map[string]any{"balance": res.BalanceAfter},
		Metadata:    map[string]any{"amount": res.Applied, "direction": string(direction)},
	})

	return res, nil
}

func (r *AdjustmentResult) entryType() model.LedgerType {
	if r.Direction == AdjustCredit {
		return model.LedgerTypeAdminCredit
	}
	return model.LedgerTypeAdminDebit
}
