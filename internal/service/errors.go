// Package service implements the balance transaction engine: deposit
// approval, withdrawal reservation and review, bet settlement, and direct
// admin adjustments. Every balance mutation is paired with exactly one
// ledger entry inside one atomic unit of work.
package service

import "errors"

// Engine error taxonomy. All are surfaced to the immediate caller; none are
// retried internally.
var (
	// ErrNotFound is returned when a request, user, or bet does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a status precondition fails, e.g.
	// approving an already-approved request.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidAmount is returned for non-positive amounts or amounts
	// outside the configured bounds.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when a withdrawal reservation
	// exceeds the user's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAmbiguousIdentifier is returned when a user identifier resolves
	// to more than one user.
	ErrAmbiguousIdentifier = errors.New("ambiguous user identifier")

	// ErrTxConflict is returned when the store reports a transient commit
	// conflict. Every transition is guarded by an in-transaction
	// precondition check, so the caller may safely retry from scratch.
	ErrTxConflict = errors.New("transaction conflict")
)

// isSkippable reports whether a per-item bulk failure should be counted and
// skipped rather than aborting the remaining items.
func isSkippable(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound)
}
