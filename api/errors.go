package api

import (
	"errors"
	"net/http"

	"github.com/warp/wallet-engine/ledger"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeNotFound              = "not_found"
	CodeValidation            = "validation_error"
	CodeInsufficientFunds     = "insufficient_funds"
	CodeIrrecoverableReversal = "irrecoverable_reversal"
	CodeConflict              = "concurrent_modification"
	CodeBadRequest            = "bad_request"
)

// statusFor maps a service error to its HTTP status and code.
//
//	NotFound               404
//	Validation             400
//	InsufficientFunds      422
//	IrrecoverableReversal  409
//	ConcurrentModification 409
//	anything else          500
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, CodeInsufficientFunds
	case errors.Is(err, ledger.ErrIrrecoverableReversal):
		return http.StatusConflict, CodeIrrecoverableReversal
	case errors.Is(err, ledger.ErrConcurrentModification):
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, ""
	}
}

// writeServiceError renders err with its mapped status. Internal errors are
// logged and hidden from the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Printf("[API] internal error: %v", err)
		writeError(w, status, "Internal server error", nil)
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var (
		verr *ledger.ValidationError
		ferr *ledger.InsufficientFundsError
		rerr *ledger.ReversalError
	)
	switch {
	case errors.As(err, &verr):
		resp.Details = map[string]string{"field": verr.Field}
	case errors.As(err, &ferr):
		resp.Details = map[string]string{
			"wallet_id": string(ferr.WalletID),
			"available": ledger.FormatMoney(ferr.Available),
			"requested": ledger.FormatMoney(ferr.Requested),
			"shortfall": ledger.FormatMoney(ferr.Shortfall),
		}
	case errors.As(err, &rerr):
		resp.Details = map[string]string{
			"kind":      rerr.Kind,
			"wallet_id": string(rerr.WalletID),
		}
	}
	writeJSON(w, status, resp)
}
