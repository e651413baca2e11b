package model

import "strings"

// DepositStatus is the lifecycle state of a deposit request.
type DepositStatus string

// Deposit request statuses. Approved and cancelled are terminal.
const (
	DepositPending           DepositStatus = "pending"
	DepositWaitingForPayment DepositStatus = "waiting_for_payment"
	DepositPaymentSubmitted  DepositStatus = "payment_submitted"
	DepositApproved          DepositStatus = "approved"
	DepositCancelled         DepositStatus = "cancelled"
)

// NormalizeDepositStatus maps a raw stored status to its canonical lowercase
// form. Legacy records carry uppercase variants ("PENDING", "Approved");
// normalization happens here, at read/construction time, never in a storage
// hook.
func NormalizeDepositStatus(raw string) DepositStatus {
	return DepositStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// IsTerminal reports whether no further transitions are allowed.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositApproved || s == DepositCancelled
}

// Approvable reports whether an admin may approve a request in this state.
func (s DepositStatus) Approvable() bool {
	switch s {
	case DepositPending, DepositWaitingForPayment, DepositPaymentSubmitted:
		return true
	default:
		return false
	}
}

// WithdrawalStatus is the lifecycle state of a withdrawal request.
type WithdrawalStatus string

// Withdrawal request statuses. Everything but pending is terminal.
const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// NormalizeWithdrawalStatus maps a raw stored status to canonical lowercase.
func NormalizeWithdrawalStatus(raw string) WithdrawalStatus {
	return WithdrawalStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// IsTerminal reports whether no further transitions are allowed.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalApproved || s == WithdrawalRejected || s == WithdrawalCancelled
}

// BetStatus is the lifecycle state of a bet.
type BetStatus string

// Bet statuses. Everything but pending is terminal.
const (
	BetPending   BetStatus = "pending"
	BetWon       BetStatus = "won"
	BetLost      BetStatus = "lost"
	BetCancelled BetStatus = "cancelled"
	BetRefunded  BetStatus = "refunded"
)

// ValidSettlementOutcome reports whether s is a legal settlement target.
func ValidSettlementOutcome(s BetStatus) bool {
	switch s {
	case BetWon, BetLost, BetCancelled, BetRefunded:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the bet has been settled.
func (s BetStatus) IsTerminal() bool {
	return s != BetPending
}

// LedgerType categorizes balance-affecting events.
type LedgerType string

// Ledger entry types.
const (
	LedgerTypeDeposit     LedgerType = "deposit"
	LedgerTypeWithdrawal  LedgerType = "withdrawal"
	LedgerTypeWin         LedgerType = "win"
	LedgerTypeRefund      LedgerType = "refund"
	LedgerTypeAdminCredit LedgerType = "admin_credit"
	LedgerTypeAdminDebit  LedgerType = "admin_debit"
)

// LedgerStatus mirrors the lifecycle of the entry's source request.
type LedgerStatus string

// Ledger entry statuses.
const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusCancelled LedgerStatus = "cancelled"
)
