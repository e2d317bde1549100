package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

func debtParam(r *http.Request) ledger.DebtID { return ledger.DebtID(chi.URLParam(r, "id")) }

// GET /api/debts?wallet_id=&type=&is_paid=&borrower=&overdue=&offset=&limit=
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := finance.DebtFilter{
		WalletID:  ledger.WalletID(q.Get("wallet_id")),
		Direction: ledger.DebtDirection(q.Get("type")),
		Borrower:  q.Get("borrower"),
	}
	paid, err := queryBool(r, "is_paid")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	f.Paid = paid
	overdue, err := queryBool(r, "overdue")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	f.OverdueOnly = overdue != nil && *overdue
	win, err := parseWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	debts, total, err := h.svc.ListDebts(r.Context(), UserFrom(r.Context()), f, win)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDTO[DebtDTO]{
		Items: toDebtDTOs(debts), Total: total, Offset: win.Offset, Limit: win.Limit,
	})
}

// POST /api/debts
func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CreateDebt(r.Context(), UserFrom(r.Context()), finance.CreateDebtInput{
		WalletID:    req.WalletID,
		Amount:      req.Amount,
		Borrower:    req.Borrower,
		Direction:   req.Type,
		DueDate:     req.DueDate,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", location("debts", string(d.ID)))
	writeJSON(w, http.StatusCreated, toDebtDTO(*d))
}

// GET /api/debts/summary
func (h *Handler) DebtSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.DebtSummary(r.Context(), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtSummaryDTO(sum))
}

// GET /api/debts/{id}
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDebt(r.Context(), debtParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

// PUT /api/debts/{id}
func (h *Handler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	var req UpdateDebtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.UpdateDebt(r.Context(), debtParam(r), UserFrom(r.Context()), finance.DebtPatch{
		Amount:       req.Amount,
		Borrower:     req.Borrower,
		Direction:    req.Type,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Description:  req.Description,
		Paid:         req.IsPaid,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

// MarkDebtPaid sets the paid flag; an empty body means paid.
// POST /api/debts/{id}/paid
func (h *Handler) MarkDebtPaid(w http.ResponseWriter, r *http.Request) {
	paid := true
	if r.ContentLength != 0 {
		var req MarkPaidRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.IsPaid != nil {
			paid = *req.IsPaid
		}
	}
	d, err := h.svc.MarkDebtPaid(r.Context(), debtParam(r), UserFrom(r.Context()), paid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

// DELETE /api/debts/{id}
func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDebt(r.Context(), debtParam(r), UserFrom(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
