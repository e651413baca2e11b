package service

import (
	"errors"

	"betting-platform/internal/pkg/metrics"
)

// observeOp records the outcome of one engine operation.
func observeOp(operation string, err error) {
	metrics.Operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAmbiguousIdentifier):
		return "ambiguous"
	case errors.Is(err, ErrTxConflict):
		return "conflict"
	default:
		return "error"
	}
}

// observeMutation records an applied balance delta.
func observeMutation(entryType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	metrics.BalanceMutations.WithLabelValues(entryType).Observe(float64(amount))
}
