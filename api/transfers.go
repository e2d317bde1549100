package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

func transferParam(r *http.Request) ledger.TransferID {
	return ledger.TransferID(chi.URLParam(r, "id"))
}

// ListTransfers returns transfers touching any of the caller's wallets,
// newest first.
// GET /api/transfers?source_wallet_id=&target_wallet_id=&wallet_id=&min_amount=&max_amount=&date_from=&date_to=&offset=&limit=
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := finance.TransferFilter{
		SourceWalletID: ledger.WalletID(q.Get("source_wallet_id")),
		TargetWalletID: ledger.WalletID(q.Get("target_wallet_id")),
		WalletID:       ledger.WalletID(q.Get("wallet_id")),
	}
	var err error
	if f.Amounts, err = amountRange(r); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if f.Dates, err = timeRange(r, "date_from", "date_to"); err != nil {
		h.writeServiceError(w, err)
		return
	}
	win, err := parseWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	transfers, total, err := h.svc.ListTransfers(r.Context(), UserFrom(r.Context()), f, win)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDTO[TransferDTO]{
		Items: toTransferDTOs(transfers), Total: total, Offset: win.Offset, Limit: win.Limit,
	})
}

// POST /api/transfers
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTransfer(r.Context(), UserFrom(r.Context()), finance.CreateTransferInput{
		SourceWalletID: req.SourceWalletID,
		TargetWalletID: req.TargetWalletID,
		Amount:         req.Amount,
		Description:    req.Description,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", location("transfers", string(t.ID)))
	writeJSON(w, http.StatusCreated, toTransferDTO(*t))
}

// GET /api/transfers/summary
func (h *Handler) TransferSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.TransferSummary(r.Context(), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferSummaryDTO(sum))
}

// GET /api/transfers/{id}
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTransfer(r.Context(), transferParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(*t))
}

// DeleteTransfer undoes both balance movements. 409 if the target wallet
// no longer holds the money.
// DELETE /api/transfers/{id}
func (h *Handler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransfer(r.Context(), transferParam(r), UserFrom(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
