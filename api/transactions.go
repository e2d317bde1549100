package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

// Routes:
//
//	GET    /api/transactions            filter, sort, page
//	POST   /api/transactions
//	POST   /api/transactions/bulk       1..100 items, all or nothing
//	GET    /api/transactions/summary    same filters as the list
//	GET    /api/transactions/{id}
//	PUT    /api/transactions/{id}
//	DELETE /api/transactions/{id}

func transactionParam(r *http.Request) ledger.TransactionID {
	return ledger.TransactionID(chi.URLParam(r, "id"))
}

// transactionFilter reads wallet_id, type, category, start_date, end_date,
// min_amount, max_amount and search.
func transactionFilter(r *http.Request) (finance.TransactionFilter, error) {
	q := r.URL.Query()
	f := finance.TransactionFilter{
		WalletID:  ledger.WalletID(q.Get("wallet_id")),
		Direction: ledger.Direction(q.Get("type")),
		Category:  ledger.Category(q.Get("category")),
		Search:    q.Get("search"),
	}
	var err error
	if f.Dates, err = timeRange(r, "start_date", "end_date"); err != nil {
		return f, err
	}
	if f.Amounts, err = amountRange(r); err != nil {
		return f, err
	}
	return f, nil
}

// GET /api/transactions?page=&size=&sort_by=&sort_order=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	size, err := queryInt(r, "size", finance.DefaultPageSize)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	order := finance.TransactionSort{Field: finance.SortField(r.URL.Query().Get("sort_by"))}
	switch r.URL.Query().Get("sort_order") {
	case "", "desc":
	case "asc":
		order.Asc = true
	default:
		h.writeServiceError(w, ledger.Invalid("sort_order", "must be asc or desc"))
		return
	}

	list, err := h.svc.ListTransactions(r.Context(), UserFrom(r.Context()), f, order, finance.Page{Page: page, Size: size})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransactionListDTO{
		Transactions: toTransactionDTOs(list.Transactions),
		Total:        list.Total,
		Page:         list.Page,
		Size:         list.Size,
		TotalPages:   list.TotalPages,
	})
}

// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.svc.CreateTransaction(r.Context(), UserFrom(r.Context()), req.input())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Location", location("transactions", string(tx.ID)))
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// BulkCreateTransactions records every item or none of them.
// POST /api/transactions/bulk
func (h *Handler) BulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req BulkTransactionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inputs := make([]finance.CreateTransactionInput, len(req.Transactions))
	for i, item := range req.Transactions {
		inputs[i] = item.input()
	}

	created, err := h.svc.BulkCreateTransactions(r.Context(), UserFrom(r.Context()), inputs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(created))
}

// GET /api/transactions/summary
func (h *Handler) TransactionSummary(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	sum, err := h.svc.TransactionSummary(r.Context(), UserFrom(r.Context()), f)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionSummaryDTO(sum))
}

// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.GetTransaction(r.Context(), transactionParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// UpdateTransaction reverses the old effect and applies the new one.
// PUT /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.svc.UpdateTransaction(r.Context(), transactionParam(r), UserFrom(r.Context()), req.patch())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), transactionParam(r), UserFrom(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
