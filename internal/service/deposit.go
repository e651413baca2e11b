package service

import (
	"context"
	"fmt"
	"time"

	"betting-platform/internal/model"
)

// DepositService governs the deposit request lifecycle:
// pending → waiting_for_payment → payment_submitted → approved, with
// cancellation available from any non-terminal state. The balance is
// credited exactly once, at approval.
type DepositService struct {
	tm        Transactor
	hooks     *Hooks
	minAmount int64
	maxAmount int64
}

// NewDepositService creates a new DepositService instance.
func NewDepositService(tm Transactor, hooks *Hooks, minAmount, maxAmount int64) *DepositService {
	return &DepositService{
		tm:        tm,
		hooks:     hooks,
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// Create submits a new deposit request. No balance effect and no ledger
// entry until approval.
func (s *DepositService) Create(ctx context.Context, userID, amount int64, paymentMethod string) (*model.DepositRequest, error) {
	if amount < s.minAmount || amount > s.maxAmount {
		observeOp("deposit_create", ErrInvalidAmount)
		return nil, fmt.Errorf("%w: amount %d outside [%d, %d]", ErrInvalidAmount, amount, s.minAmount, s.maxAmount)
	}

	var created *model.DepositRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		if _, err := tx.Users().GetForUpdate(ctx, userID); err != nil {
			return err
		}
		req := &model.DepositRequest{
			UserID:        userID,
			Amount:        amount,
			PaymentMethod: paymentMethod,
			Status:        model.DepositPending,
		}
		var err error
		created, err = tx.Deposits().Create(ctx, req)
		return err
	})
	observeOp("deposit_create", err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// MarkWaitingForPayment moves a pending request into the bank-details
// sub-flow once the admin has shared payment instructions.
func (s *DepositService) MarkWaitingForPayment(ctx context.Context, requestID, adminID int64) (*model.DepositRequest, error) {
	var req *model.DepositRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Deposits().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != model.DepositPending {
			return fmt.Errorf("%w: deposit %d is %s, not pending", ErrInvalidState, requestID, req.Status)
		}
		req.Status = model.DepositWaitingForPayment
		return tx.Deposits().Update(ctx, req)
	})
	observeOp("deposit_mark_waiting", err)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// SubmitPaymentProof records that the user reports having paid.
func (s *DepositService) SubmitPaymentProof(ctx context.Context, requestID, userID int64) (*model.DepositRequest, error) {
	var req *model.DepositRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Deposits().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return fmt.Errorf("%w: deposit %d", ErrNotFound, requestID)
		}
		if req.Status != model.DepositWaitingForPayment {
			return fmt.Errorf("%w: deposit %d is %s, not waiting_for_payment", ErrInvalidState, requestID, req.Status)
		}
		req.Status = model.DepositPaymentSubmitted
		return tx.Deposits().Update(ctx, req)
	})
	observeOp("deposit_submit_proof", err)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve credits the request's final amount and stamps the approver.
// The in-transaction status check makes a second concurrent approval
// observe the new status and fail with ErrInvalidState, so a request is
// credited at most once.
func (s *DepositService) Approve(ctx context.Context, requestID, adminID int64, adjustedAmount *int64, notes *string) (*model.DepositRequest, error) {
	if adjustedAmount != nil && *adjustedAmount <= 0 {
		observeOp("deposit_approve", ErrInvalidAmount)
		return nil, fmt.Errorf("%w: adjusted amount must be positive", ErrInvalidAmount)
	}

	var (
		req           *model.DepositRequest
		finalAmount   int64
		balanceBefore int64
		balanceAfter  int64
	)
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Deposits().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.Approvable() {
			return fmt.Errorf("%w: deposit %d is %s", ErrInvalidState, requestID, req.Status)
		}

		user, err := tx.Users().GetForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		balanceBefore = user.Balance

		now := time.Now()
		req.Status = model.DepositApproved
		req.AdjustedAmount = adjustedAmount
		req.ApprovedBy = &adminID
		req.ApprovedAt = &now
		req.AdminNotes = notes
		if err := tx.Deposits().Update(ctx, req); err != nil {
			return err
		}

		finalAmount = req.FinalAmount()
		updated, err := tx.Users().Credit(ctx, req.UserID, finalAmount)
		if err != nil {
			return err
		}
		balanceAfter = updated.Balance

		_, err = tx.Ledger().Create(ctx, &model.LedgerEntry{
			TransactionID: newTransactionID("DEP"),
			UserID:        req.UserID,
			Type:          model.LedgerTypeDeposit,
			Amount:        finalAmount,
			Status:        model.LedgerStatusCompleted,
			Description:   fmt.Sprintf("Deposit approved - %s", req.PaymentMethod),
			SourceID:      req.ID,
		})
		return err
	})
	observeOp("deposit_approve", err)
	if err != nil {
		return nil, err
	}
	observeMutation(string(model.LedgerTypeDeposit), finalAmount)

	s.hooks.depositApproved(ctx, req.UserID, finalAmount, req.ID)
	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "approve_deposit",
		TargetType:  "deposit",
		TargetID:    req.ID,
		Description: fmt.Sprintf("Approved deposit of %d for user %d", finalAmount, req.UserID),
		Before:      map[string]any{"status": string(model.DepositPending), "balance": balanceBefore},
		After:       map[string]any{"status": string(model.DepositApproved), "balance": balanceAfter},
		Metadata:    map[string]any{"original_amount": req.Amount, "final_amount": finalAmount},
	})
	s.hooks.notify(ctx, Notification{
		UserID:   req.UserID,
		Type:     "deposit_approved",
		Title:    "Deposit Approved",
		Message:  fmt.Sprintf("Your deposit of %d has been approved and added to your account.", finalAmount),
		Metadata: map[string]any{"deposit_id": req.ID, "amount": finalAmount},
	})

	return req, nil
}

// Cancel terminates a request that has not been approved yet. The amount
// was never credited, so there is no balance effect and no ledger entry to
// touch.
func (s *DepositService) Cancel(ctx context.Context, requestID, adminID int64, notes *string) (*model.DepositRequest, error) {
	var req *model.DepositRequest
	err := s.tm.WithinTx(ctx, func(tx Tx) error {
		var err error
		req, err = tx.Deposits().GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status.IsTerminal() {
			return fmt.Errorf("%w: deposit %d is %s", ErrInvalidState, requestID, req.Status)
		}
		now := time.Now()
		req.Status = model.DepositCancelled
		req.CancelledBy = &adminID
		req.CancelledAt = &now
		req.AdminNotes = notes
		return tx.Deposits().Update(ctx, req)
	})
	observeOp("deposit_cancel", err)
	if err != nil {
		return nil, err
	}

	s.hooks.recordAudit(ctx, AuditRecord{
		ActorID:     adminID,
		Action:      "cancel_deposit",
		TargetType:  "deposit",
		TargetID:    req.ID,
		Description: fmt.Sprintf("Cancelled deposit of %d for user %d", req.Amount, req.UserID),
	})
	s.hooks.notify(ctx, Notification{
		UserID:  req.UserID,
		Type:    "deposit_cancelled",
		Title:   "Deposit Cancelled",
		Message: "Your deposit request has been cancelled.",
	})

	return req, nil
}

// BulkResult summarizes a bulk operation. Items failing their own
// precondition are skipped; they never abort items already applied.
type BulkResult struct {
	Applied int
	Skipped int
}

// BulkApprove approves each request in its own guarded transaction.
func (s *DepositService) BulkApprove(ctx context.Context, requestIDs []int64, adminID int64) (BulkResult, error) {
	var res BulkResult
	for _, id := range requestIDs {
		if _, err := s.Approve(ctx, id, adminID, nil, nil); err != nil {
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

// BulkCancel cancels each request in its own guarded transaction.
func (s *DepositService) BulkCancel(ctx context.Context, requestIDs []int64, adminID int64, notes *string) (BulkResult, error) {
	var res BulkResult
	for _, id := range requestIDs {
		if _, err := s.Cancel(ctx, id, adminID, notes); err != nil {
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
