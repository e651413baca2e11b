package service

import (
	"context"
	"fmt"
	"time"

	"betting-platform/internal/model"
)

// WithdrawalService governs the withdrawal request lifecycle:
// pending → approved | rejected | cancelled.
//
// The amount is reserved (debited) when the request is created, before any
// admin review, so the user sees the balance change immediately. Approval
// therefore must NOT debit again; it only completes the ledger entry.
// Rejection and cancellation refund the exact reserved amount. Changing
// this to debit-on-approve without removing the create-time debit would
// double-debit every approved withdrawal.
type WithdrawalService struct {
	tm        Transactor
	hooks     *Hooks
	minAmount int64
	maxAmount int64
}

// NewWithdrawalService creates a new WithdrawalService instance.
func NewWithdrawalService(tm Transactor, hooks *Hooks, minAmount, maxAmount int64) *WithdrawalService {
	return &WithdrawalService{
		tm:        tm,
		hooks:     hooks,
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// Create validates bounds and balance, then atomically debits the amount,
// creates the pending request, and writes the pending ledger entry. This is
// the reservation point.
func (s *WithdrawalService) Create(ctx context.Context, userID, amount int64, iban, holderName string) (*model.WithdrawalRequest, error) {
	if amount < s.minAmount || amount > s.maxAmount {
		observeOp("withdrawal_create", ErrInvalidAmount)
		return nil, fmt.Errorf("%w: amount %d outside [%d, %d]", ErrInvalidAmount, amount, s.minAmount, s.maxAmount)
	}
	if iban == "" {
		observeOp("withdrawal_create", ErrInvalidState)
		return nil, fmt.Errorf("%w: no IBAN on file", ErrInvalidState)
	}

	var created *model.WithdrawalRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		user, err := tx.Users().GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if user.Balance < amount {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, user.Balance, amount)
		}

		if _, err := tx.Users().Debit(ctx, userID, amount); err != nil {
			return err
		}

		created, err = tx.Withdrawals().Create(ctx, &model.WithdrawalRequest{
			UserID:         userID,
			Amount:         amount,
			IBAN:           iban,
			IBANHolderName: holderName,
			Status:         model.WithdrawalPending,
		})
		if err != nil {
			return err
		}

		_, err = tx.Ledger().Create(ctx, &model.LedgerEntry{
			TransactionID: newTransactionID("WD"),
			UserID:        userID,
			Type:          model.LedgerTypeWithdrawal,
			Amount:        amount,
			Status:        model.LedgerStatusPending,
			Description:   fmt.Sprintf("Withdrawal request created (ID: %d)", created.ID),
			SourceID:      created.ID,
		})
		return err
	})
	observeOp("withdrawal_create", err)
	if err != nil {
		return nil, err
	}
	observeMutation(string(model.LedgerTypeWithdrawal), amount)
	return created, nil
}

// Approve marks a pending withdrawal approved. The balance was already
// reserved at creation; only the paired ledger entry flips to completed.
func (s *WithdrawalService) Approve(ctx context.Context, requestID, adminID int64, notes *string) (*model.WithdrawalRequest, error) {
	var req *model.WithdrawalRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Withdrawals().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %d is %s, not pending", ErrInvalidState, requestID, req.Status)
		}

		now := time.Now()
		req.Status = model.WithdrawalApproved
		req.ApprovedBy = &adminID
		req.ApprovedAt = &now
		req.AdminNotes = notes
		if err := tx.Withdrawals().Update(ctx, req); err != nil {
			return err
		}

		entry, err := tx.Ledger().GetBySource(ctx, model.LedgerTypeWithdrawal, req.ID)
		if err != nil {
			return err
		}
		return tx.Ledger().SetStatus(ctx, entry.ID, model.LedgerStatusCompleted,
			fmt.Sprintf("Withdrawal approved (ID: %d)", req.ID))
	})
	observeOp("withdrawal_approve", err)
	if err != nil {
		return nil, err
	}

	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "approve_withdrawal",
		TargetType:  "withdrawal",
		TargetID:    req.ID,
		Description: fmt.Sprintf("Approved withdrawal of %d for user %d", req.Amount, req.UserID),
		Metadata:    map[string]any{"iban": req.IBAN},
	})
	s.hooks.notify(ctx, Notification{
		UserID:   req.UserID,
		Type:     "withdrawal_approved",
		Title:    "Withdrawal Approved",
		Message:  fmt.Sprintf("Your withdrawal request of %d has been approved and will be processed.", req.Amount),
		Metadata: map[string]any{"withdrawal_id": req.ID, "amount": req.Amount},
	})

	return req, nil
}

// Reject refunds the reserved amount and terminates the request.
func (s *WithdrawalService) Reject(ctx context.Context, requestID, adminID int64, reason, notes *string) (*model.WithdrawalRequest, error) {
	var (
		req           *model.WithdrawalRequest
		balanceBefore int64
		balanceAfter  int64
	)
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Withdrawals().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %d is %s, not pending", ErrInvalidState, requestID, req.Status)
		}

		user, err := tx.Users().GetForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		balanceBefore = user.Balance

		updated, err := tx.Users().Credit(ctx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		balanceAfter = updated.Balance

		now := time.Now()
		req.Status = model.WithdrawalRejected
		req.RejectedBy = &adminID
		req.RejectedAt = &now
		req.RejectionReason = reason
		req.AdminNotes = notes
		if err := tx.Withdrawals().Update(ctx, req); err != nil {
			return err
		}

		entry, err := tx.Ledger().GetBySource(ctx, model.LedgerTypeWithdrawal, req.ID)
		if err != nil {
			return err
		}
		return tx.Ledger().SetStatus(ctx, entry.ID, model.LedgerStatusCancelled,
			fmt.Sprintf("Withdrawal rejected (ID: %d)", req.ID))
	})
	observeOp("withdrawal_reject", err)
	if err != nil {
		return nil, err
	}
	observeMutation(string(model.LedgerTypeRefund), req.Amount)

	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "reject_withdrawal",
		TargetType:  "withdrawal",
		TargetID:    req.ID,
		Description: fmt.Sprintf("Rejected withdrawal of %d for user %d", req.Amount, req.UserID),
		Before:      map[string]any{"status": string(model.WithdrawalPending), "balance": balanceBefore},
		After:       map[string]any{"status": string(model.WithdrawalRejected), "balance": balanceAfter},
		Metadata:    map[string]any{"rejection_reason": req.RejectionReason},
	})
	s.hooks.notify(ctx, Notification{
		UserID:   req.UserID,
		Type:     "withdrawal_rejected",
		Title:    "Withdrawal Rejected",
		Message:  fmt.Sprintf("Your withdrawal request of %d was rejected; the amount has been returned to your balance.", req.Amount),
		Metadata: map[string]any{"withdrawal_id": req.ID},
	})

	return req, nil
}

// Cancel lets the requesting user withdraw a still-pending request,
// refunding the reserved amount.
func (s *WithdrawalService) Cancel(ctx context.Context, requestID, userID int64) (*model.WithdrawalRequest, error) {
	var req *model.WithdrawalRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Withdrawals().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return fmt.Errorf("%w: withdrawal %d", ErrNotFound, requestID)
		}
		if req.Status != model.WithdrawalPending {
			return fmt.Errorf("%w: withdrawal %d is %s, not pending", ErrInvalidState, requestID, req.Status)
		}

		if _, err := tx.Users().Credit(ctx, req.UserID, req.Amount); err != nil {
			return err
		}

		now := time.Now()
		req.Status = model.WithdrawalCancelled
		req.CancelledAt = &now
		if err := tx.Withdrawals().Update(ctx, req); err != nil {
			return err
		}

		entry, err := tx.Ledger().GetBySource(ctx, model.LedgerTypeWithdrawal, req.ID)
		if err != nil {
			return err
		}
		return tx.Ledger().SetStatus(ctx, entry.ID, model.LedgerStatusCancelled,
			fmt.Sprintf("Withdrawal cancelled (ID: %d)", req.ID))
	})
	observeOp("withdrawal_cancel", err)
	if err != nil {
		return nil, err
	}
	observeMutation(string(model.LedgerTypeRefund), req.Amount)
	return req, nil
}

// BulkApprove approves each request in its own guarded transaction.
func (s *WithdrawalService) BulkApprove(ctx context.Context, requestIDs []int64, adminID int64) (BulkResult, error) {
	var res BulkResult
	for _, id := range requestIDs {
		if _, err := s.Approve(ctx, id, adminID, nil); err != nil {
			if isSkippable(err) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Applied++
	}
	return res, nil
}

// BulkReject rejects each request in its own guarded transaction.
func (s *WithdrawalService) BulkReject(ctx context.Context, requestIDs []int64, adminID int64, reason *string) (BulkResult, error) {
	var res BulkResult
	for _, id := range requestIDs {
		if _, err := s.Reject(ctx, id, adminID, reason, nil); err != nil {
			if isSkippable(err) {
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Applied++
	}
	return res, nil
}
