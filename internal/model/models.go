// Package model defines the data models for the betting platform balance engine.
package model

import "time"

// User represents a platform user account. The balance engine is the
// exclusive writer of Balance; every other subsystem only reads it.
type User struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	Email         string    `db:"email"`
	Balance       int64     `db:"balance"`
	TotalWinnings int64     `db:"total_winnings"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// DepositRequest represents a user-submitted deposit awaiting admin review.
// The requested amount is credited only on approval; a still-pending request
// has no balance effect and no ledger entry.
type DepositRequest struct {
	ID             int64         `db:"id"`
	UserID         int64         `db:"user_id"`
	Amount         int64         `db:"amount"`
	AdjustedAmount *int64        `db:"adjusted_amount"`
	PaymentMethod  string        `db:"payment_method"`
	Status         DepositStatus `db:"status"`
	ApprovedBy     *int64        `db:"approved_by"`
	ApprovedAt     *time.Time    `db:"approved_at"`
	CancelledBy    *int64        `db:"cancelled_by"`
	CancelledAt    *time.Time    `db:"cancelled_at"`
	AdminNotes     *string       `db:"admin_notes"`
	CreatedAt      time.Time     `db:"created_at"`
}

// FinalAmount returns the amount to credit on approval: the admin-adjusted
// amount when one was recorded, otherwise the originally requested amount.
func (d *DepositRequest) FinalAmount() int64 {
	if d.AdjustedAmount != nil && *d.AdjustedAmount > 0 {
		return *d.AdjustedAmount
	}
	return d.Amount
}

// WithdrawalRequest represents a withdrawal awaiting admin review. The
// amount is reserved (debited) from the user balance at creation time;
// approval never touches the balance again, rejection/cancellation refunds it.
type WithdrawalRequest struct {
	ID              int64            `db:"id"`
	UserID          int64            `db:"user_id"`
	Amount          int64            `db:"amount"`
	IBAN            string           `db:"iban"`
	IBANHolderName  string           `db:"iban_holder_name"`
	Status          WithdrawalStatus `db:"status"`
	ApprovedBy      *int64           `db:"approved_by"`
	ApprovedAt      *time.Time       `db:"approved_at"`
	RejectedBy      *int64           `db:"rejected_by"`
	RejectedAt      *time.Time       `db:"rejected_at"`
	RejectionReason *string          `db:"rejection_reason"`
	CancelledAt     *time.Time       `db:"cancelled_at"`
	AdminNotes      *string          `db:"admin_notes"`
	CreatedAt       time.Time        `db:"created_at"`
}

// LedgerEntry is the canonical record of a single balance-affecting event.
// Exactly one entry exists per event; it is written in the same database
// transaction as the balance mutation. Only Status and Description change
// afterwards, and only as the source request resolves.
type LedgerEntry struct {
	ID            int64        `db:"id"`
	TransactionID string       `db:"transaction_id"`
	UserID        int64        `db:"user_id"`
	Type          LedgerType   `db:"type"`
	Amount        int64        `db:"amount"`
	Status        LedgerStatus `db:"status"`
	Description   string       `db:"description"`
	SourceID      int64        `db:"source_id"`
	CreatedAt     time.Time    `db:"created_at"`
}

// SignedAmount returns the entry's contribution to the user balance:
// positive for credits, negative for debits, zero for cancelled entries.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Status == LedgerStatusCancelled {
		return 0
	}
	switch e.Type {
	case LedgerTypeDeposit, LedgerTypeWin, LedgerTypeRefund, LedgerTypeAdminCredit:
		return e.Amount
	case LedgerTypeWithdrawal, LedgerTypeAdminDebit:
		return -e.Amount
	default:
		return 0
	}
}

// Bet represents a wager. The stake is deducted at placement time (outside
// this engine); settlement is the only engine-governed mutation and is
// terminal.
type Bet struct {
	ID           int64      `db:"id"`
	UserID       int64      `db:"user_id"`
	MarketName   string     `db:"market_name"`
	Stake        int64      `db:"stake"`
	PotentialWin int64      `db:"potential_win"`
	Status       BetStatus  `db:"status"`
	WinAmount    *int64     `db:"win_amount"`
	SettledAt    *time.Time `db:"settled_at"`
	CreatedAt    time.Time  `db:"created_at"`
}
