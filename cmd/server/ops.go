package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"betting-platform/internal/model"
	"betting-platform/internal/service"
)

// opsHandlers exposes the engine's admin operations on the debug listener
// so operators can drive the flows before the full admin transport mounts.
// Each endpoint takes a JSON POST body and returns the affected record.
func opsHandlers(
	deposits *service.DepositService,
	withdrawals *service.WithdrawalService,
	settlements *service.SettlementService,
	adjustments *service.AdjustmentService,
) map[string]http.Handler {
	return map[string]http.Handler{
		"/debug/deposits/approve": postJSON(func(r *http.Request, in struct {
			RequestID      int64   `json:"request_id"`
			AdminID        int64   `json:"admin_id"`
			AdjustedAmount *int64  `json:"adjusted_amount"`
			Notes          *string `json:"notes"`
		}) (any, error) {
			return deposits.Approve(r.Context(), in.RequestID, in.AdminID, in.AdjustedAmount, in.Notes)
		}),
		"/debug/deposits/cancel": postJSON(func(r *http.Request, in struct {
			RequestID int64   `json:"request_id"`
			AdminID   int64   `json:"admin_id"`
			Notes     *string `json:"notes"`
		}) (any, error) {
			return deposits.Cancel(r.Context(), in.RequestID, in.AdminID, in.Notes)
		}),
		"/debug/withdrawals/approve": postJSON(func(r *http.Request, in struct {
			RequestID int64   `json:"request_id"`
			AdminID   int64   `json:"admin_id"`
			Notes     *string `json:"notes"`
		}) (any, error) {
			return withdrawals.Approve(r.Context(), in.RequestID, in.AdminID, in.Notes)
		}),
		"/debug/withdrawals/reject": postJSON(func(r *http.Request, in struct {
			RequestID int64   `json:"request_id"`
			AdminID   int64   `json:"admin_id"`
			Reason    *string `json:"reason"`
			Notes     *string `json:"notes"`
		}) (any, error) {
			return withdrawals.Reject(r.Context(), in.RequestID, in.AdminID, in.Reason, in.Notes)
		}),
		"/debug/bets/settle": postJSON(func(r *http.Request, in struct {
			BetID     int64  `json:"bet_id"`
			Outcome   string `json:"outcome"`
			WinAmount *int64 `json:"win_amount"`
			AdminID   int64  `json:"admin_id"`
		}) (any, error) {
			return settlements.Settle(r.Context(), in.BetID, model.BetStatus(in.Outcome), in.WinAmount, in.AdminID)
		}),
		"/debug/adjust": postJSON(func(r *http.Request, in struct {
			Identifier  string  `json:"identifier"`
			Amount      int64   `json:"amount"`
			Direction   string  `json:"direction"`
			AdminID     int64   `json:"admin_id"`
			Description *string `json:"description"`
		}) (any, error) {
			return adjustments.Adjust(r.Context(), service.ParseIdentifier(in.Identifier),
				in.Amount, service.AdjustmentDirection(in.Direction), in.AdminID, in.Description)
		}),
	}
}

// postJSON decodes a JSON POST body into Req, invokes fn, and writes the
// result or an engine error mapped to its HTTP status.
func postJSON[Req any](fn func(r *http.Request, req Req) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		out, err := fn(r, req)
		if err != nil {
			http.Error(w, err.Error(), opsStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}

// opsStatus maps the engine error taxonomy onto HTTP statuses.
func opsStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrAmbiguousIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrTxConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
