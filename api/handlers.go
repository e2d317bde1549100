/*
handlers.go - HTTP API handlers for the wallet engine

PURPOSE:
  Exposes the finance services via REST API. Handles HTTP request and
  response, JSON serialization, and delegates everything else to
  finance.Service. Handlers never touch a store directly.

ENDPOINTS (all under /api, all require an authenticated user):
  Wallets:
    GET    /wallets                        List (offset, limit, type)
    POST   /wallets                        Create
    GET    /wallets/summary                Totals by type
    GET    /wallets/{id}                   Get
    PUT    /wallets/{id}                   Update name/type
    DELETE /wallets/{id}                   Delete (balance must be zero)
    POST   /wallets/{id}/balance           add | subtract | set
    GET    /wallets/{id}/transactions      Wallet transactions
    GET    /wallets/{id}/transfers         Wallet transfers
    GET    /wallets/{id}/transfers/summary Sent/received for one wallet
    GET    /wallets/{id}/debts             Wallet debts

  Transactions, transfers, debts: see transactions.go, transfers.go and
  debts.go.

REQUEST FLOW:
  1. Resolve the user from the request context (auth.go)
  2. Decode the body into a closed request type (unknown fields rejected)
  3. Call the finance service
  4. Serialize the DTO, or map the error (errors.go)

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

// maxBodyBytes caps request bodies; a full bulk request fits easily.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

type Handler struct {
	svc    *finance.Service
	logger *log.Logger
}

// NewHandler creates a handler over svc. A nil logger discards.
func NewHandler(svc *finance.Service, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{svc: svc, logger: logger}
}

// Health reports liveness. It is mounted outside the auth group.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// ListWallets returns the caller's wallets, oldest first.
// GET /api/wallets?offset=&limit=&type=
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := UserFrom(ctx)

	win, err := parseWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if typ := r.URL.Query().Get("type"); typ != "" {
		wallets, err := h.svc.WalletsByType(ctx, user, ledger.WalletType(typ))
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ListDTO[WalletDTO]{
			Items: toWalletDTOs(wallets), Total: len(wallets), Limit: len(wallets),
		})
		return
	}

	wallets, total, err := h.svc.ListWallets(ctx, user, win)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDTO[WalletDTO]{
		Items: toWalletDTOs(wallets), Total: total, Offset: win.Offset, Limit: win.Limit,
	})
}

// CreateWallet creates a wallet for the caller.
// POST /api/wallets
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.svc.CreateWallet(r.Context(), UserFrom(r.Context()), finance.CreateWalletInput{
		Name:           req.Name,
		Type:           req.Type,
		InitialBalance: req.Balance,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(*wallet))
}

// GET /api/wallets/{id}
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.GetWallet(r.Context(), walletParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// UpdateWallet changes name and/or type. The balance is not writable here.
// PUT /api/wallets/{id}
func (h *Handler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req UpdateWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.svc.UpdateWallet(r.Context(), walletParam(r), UserFrom(r.Context()), finance.UpdateWalletInput{
		Name: req.Name,
		Type: req.Type,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// DELETE /api/wallets/{id}
func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteWallet(r.Context(), walletParam(r), UserFrom(r.Context())); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateBalance applies a direct add, subtract or set.
// POST /api/wallets/{id}/balance
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.svc.UpdateBalance(r.Context(), walletParam(r), UserFrom(r.Context()), req.Operation, req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wallet))
}

// GET /api/wallets/summary
func (h *Handler) WalletSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.WalletSummary(r.Context(), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletSummaryDTO(sum))
}

// GET /api/wallets/{id}/transactions?offset=&limit=
func (h *Handler) WalletTransactions(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	txs, total, err := h.svc.WalletTransactions(r.Context(), walletParam(r), UserFrom(r.Context()), win)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDTO[TransactionDTO]{
		Items: toTransactionDTOs(txs), Total: total, Offset: win.Offset, Limit: win.Limit,
	})
}

// GET /api/wallets/{id}/transfers
func (h *Handler) WalletTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.WalletTransfers(r.Context(), walletParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTOs(transfers))
}

// GET /api/wallets/{id}/transfers/summary
func (h *Handler) WalletTransferSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.WalletTransferSummary(r.Context(), walletParam(r), UserFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletTransferSummaryDTO(sum))
}

// GET /api/wallets/{id}/debts?offset=&limit=
func (h *Handler) WalletDebts(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	debts, total, err := h.svc.ListDebts(r.Context(), UserFrom(r.Context()), finance.DebtFilter{WalletID: walletParam(r)}, win)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDTO[DebtDTO]{
		Items: toDebtDTOs(debts), Total: total, Offset: win.Offset, Limit: win.Limit,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func walletParam(r *http.Request) ledger.WalletID { return ledger.WalletID(chi.URLParam(r, "id")) }

// decodeJSON decodes exactly one JSON object into dst. On failure it writes
// a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: CodeBadRequest, Details: err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: CodeBadRequest, Details: "trailing data after JSON object"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// parseWindow reads offset and limit. skip is accepted as an alias for
// offset.
func parseWindow(r *http.Request) (finance.Window, error) {
	q := r.URL.Query()
	offsetKey := "offset"
	if q.Get(offsetKey) == "" && q.Get("skip") != "" {
		offsetKey = "skip"
	}
	offset, err := queryInt(r, offsetKey, 0)
	if err != nil {
		return finance.Window{}, err
	}
	limit, err := queryInt(r, "limit", finance.DefaultLimit)
	if err != nil {
		return finance.Window{}, err
	}
	if offset < 0 {
		return finance.Window{}, ledger.Invalid(offsetKey, "must not be negative")
	}
	if limit < 1 || limit > finance.MaxLimit {
		return finance.Window{}, ledger.Invalid("limit", "must be between 1 and %d", finance.MaxLimit)
	}
	return finance.Window{Offset: offset, Limit: limit}, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ledger.Invalid(key, "not an integer: %q", raw)
	}
	return n, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := ledger.ParseMoney(key, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// queryTime accepts RFC 3339 or a plain date (midnight UTC).
func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, ledger.Invalid(key, "not a date: %q", raw)
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, ledger.Invalid(key, "not a boolean: %q", raw)
	}
	return &b, nil
}

func amountRange(r *http.Request) (finance.AmountRange, error) {
	lo, err := queryDecimal(r, "min_amount")
	if err != nil {
		return finance.AmountRange{}, err
	}
	hi, err := queryDecimal(r, "max_amount")
	if err != nil {
		return finance.AmountRange{}, err
	}
	return finance.AmountRange{Min: lo, Max: hi}, nil
}

func timeRange(r *http.Request, fromKey, toKey string) (finance.TimeRange, error) {
	from, err := queryTime(r, fromKey)
	if err != nil {
		return finance.TimeRange{}, err
	}
	to, err := queryTime(r, toKey)
	if err != nil {
		return finance.TimeRange{}, err
	}
	return finance.TimeRange{From: from, To: to}, nil
}

func location(kind, id string) string { return fmt.Sprintf("/api/%s/%s", kind, id) }
