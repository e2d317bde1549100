/*
handlers_test.go - HTTP tests against the real router

Each test builds a router over an in-memory store and drives it with
httptest, authenticating with real signed tokens.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/api"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
	"github.com/warp/wallet-engine/ledger/store"
)

const (
	alice ledger.UserID = "alice"
	bob   ledger.UserID = "bob"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	auth   *api.Authenticator
}

func newTestServer(t *testing.T, devHeader bool) *testServer {
	t.Helper()
	auth := &api.Authenticator{Secret: []byte("test-secret"), Issuer: "wallet-test", DevHeader: devHeader}
	svc := finance.NewService(store.NewTxMemory())
	router := api.NewRouter(api.NewHandler(svc, nil), api.RouterOptions{
		AllowedOrigins: []string{"http://localhost:5173"},
		Auth:           auth,
	})
	return &testServer{t: t, router: router, auth: auth}
}

func (s *testServer) token(user ledger.UserID) string {
	s.t.Helper()
	tok, err := s.auth.IssueToken(user, time.Hour, time.Now())
	require.NoError(s.t, err)
	return tok
}

// do sends body (marshalled unless it is already a string) as user.
func (s *testServer) do(user ledger.UserID, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) wallet(user ledger.UserID, typ, balance string) api.WalletDTO {
	s.t.Helper()
	rec := s.do(user, http.MethodPost, "/api/wallets", map[string]any{"name": "W " + typ, "type": typ, "balance": balance})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.WalletDTO](s.t, rec)
}

func (s *testServer) balance(user ledger.UserID, id string) string {
	s.t.Helper()
	rec := s.do(user, http.MethodGet, "/api/wallets/"+id, nil)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[api.WalletDTO](s.t, rec).Balance
}

// =============================================================================
// AUTH
// =============================================================================

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do("", http.MethodGet, "/api/wallets", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := &api.Authenticator{Secret: []byte("test-secret"), Issuer: "someone-else"}
	tok, err := other.IssueToken(alice, time.Hour, time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong issuer")

	expired, err := s.auth.IssueToken(alice, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "expired")
}

func TestAuth_DevHeader(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		s := newTestServer(t, enabled)
		req := httptest.NewRequest(http.MethodGet, "/api/wallets", nil)
		req.Header.Set(api.DevUserHeader, "alice")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if enabled {
			assert.Equal(t, http.StatusOK, rec.Code)
		} else {
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	}
}

func TestAuthenticator_RoundTrip(t *testing.T) {
	a := &api.Authenticator{Secret: []byte("k"), Issuer: "iss"}
	tok, err := a.IssueToken("u-1", time.Minute, time.Now())
	require.NoError(t, err)

	user, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("u-1"), user)

	_, err = (&api.Authenticator{Secret: []byte("other"), Issuer: "iss"}).ParseToken(tok)
	assert.Error(t, err)

	assert.Equal(t, ledger.UserID("u-2"), api.UserFrom(api.WithUser(context.Background(), "u-2")))
}

// =============================================================================
// WALLETS
// =============================================================================

func TestWalletEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	w := s.wallet(alice, "checking", "1000")
	assert.Equal(t, "1000.00", w.Balance)
	assert.Equal(t, "alice", w.UserID)

	// overdraw: 422 with details
	rec := s.do(alice, http.MethodPost, "/api/wallets/"+w.ID+"/balance", map[string]any{"operation": "subtract", "amount": "1500.00"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errResp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, api.CodeInsufficientFunds, errResp.Code)
	assert.Equal(t, "500.00", errResp.Details.(map[string]any)["shortfall"])
	assert.Equal(t, "1000.00", s.balance(alice, w.ID))

	rec = s.do(alice, http.MethodPost, "/api/wallets/"+w.ID+"/balance", map[string]any{"operation": "add", "amount": 0.5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000.50", decode[api.WalletDTO](t, rec).Balance)

	// another user sees nothing
	assert.Equal(t, http.StatusNotFound, s.do(bob, http.MethodGet, "/api/wallets/"+w.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(bob, http.MethodDelete, "/api/wallets/"+w.ID, nil).Code)

	rec = s.do(alice, http.MethodPut, "/api/wallets/"+w.ID, map[string]any{"name": "Main"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Main", decode[api.WalletDTO](t, rec).Name)

	rec = s.do(alice, http.MethodDelete, "/api/wallets/"+w.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "non-zero balance")

	rec = s.do(alice, http.MethodPost, "/api/wallets/"+w.ID+"/balance", map[string]any{"operation": "set", "amount": "0"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNoContent, s.do(alice, http.MethodDelete, "/api/wallets/"+w.ID, nil).Code)
}

func TestCreateWallet_RejectsBadBodies(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(alice, http.MethodPost, "/api/wallets", `{"name":"x","type":"cash","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, api.CodeBadRequest, decode[api.ErrorResponse](t, rec).Code)

	rec = s.do(alice, http.MethodPost, "/api/wallets", `{"name":"x","type":"cash"} {}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(alice, http.MethodPost, "/api/wallets", map[string]any{"name": "x", "type": "cash", "balance": "-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, api.CodeValidation, resp.Code)
	assert.Equal(t, "balance", resp.Details.(map[string]any)["field"])
}

func TestWalletListAndSummary(t *testing.T) {
	s := newTestServer(t, false)
	s.wallet(alice, "checking", "10")
	s.wallet(alice, "savings", "5.25")
	s.wallet(alice, "savings", "1")

	rec := s.do(alice, http.MethodGet, "/api/wallets?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[api.ListDTO[api.WalletDTO]](t, rec)
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Items, 2)

	rec = s.do(alice, http.MethodGet, "/api/wallets?type=savings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[api.ListDTO[api.WalletDTO]](t, rec).Items, 2)

	assert.Equal(t, http.StatusBadRequest, s.do(alice, http.MethodGet, "/api/wallets?limit=0", nil).Code)

	rec = s.do(alice, http.MethodGet, "/api/wallets/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[api.WalletSummaryDTO](t, rec)
	assert.Equal(t, "16.25", sum.TotalBalance)
	assert.Equal(t, "6.25", sum.WalletsByType["savings"].Total)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactionEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	w := s.wallet(alice, "checking", "1000.00")

	rec := s.do(alice, http.MethodPost, "/api/transactions", map[string]any{
		"wallet_id": w.ID, "type": "income", "amount": "500.00", "category": "salary",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "/api/transactions/"+tx.ID, rec.Header().Get("Location"))
	assert.Equal(t, "1500.00", s.balance(alice, w.ID))

	rec = s.do(alice, http.MethodPut, "/api/transactions/"+tx.ID, map[string]any{"amount": "200.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1200.00", s.balance(alice, w.ID))

	rec = s.do(alice, http.MethodGet, "/api/transactions?type=income&size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[api.TransactionListDTO](t, rec)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "200.00", list.Transactions[0].Amount)

	rec = s.do(alice, http.MethodGet, "/api/transactions/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "200.00", decode[api.TransactionSummaryDTO](t, rec).NetAmount)

	assert.Equal(t, http.StatusBadRequest, s.do(alice, http.MethodGet, "/api/transactions?sort_order=up", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(alice, http.MethodGet, "/api/transactions?start_date=yesterday", nil).Code)

	assert.Equal(t, http.StatusNotFound, s.do(bob, http.MethodDelete, "/api/transactions/"+tx.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(alice, http.MethodDelete, "/api/transactions/"+tx.ID, nil).Code)
	assert.Equal(t, "1000.00", s.balance(alice, w.ID))
}

func TestBulkTransactions_AllOrNothing(t *testing.T) {
	s := newTestServer(t, false)
	a := s.wallet(alice, "checking", "100.00")
	b := s.wallet(alice, "checking", "10.00")

	rec := s.do(alice, http.MethodPost, "/api/transactions/bulk", map[string]any{"transactions": []map[string]any{
		{"wallet_id": a.ID, "type": "income", "amount": "50.00"},
		{"wallet_id": b.ID, "type": "expense", "amount": "10.01"},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, "100.00", s.balance(alice, a.ID))

	rec = s.do(alice, http.MethodGet, "/api/transactions", nil)
	assert.Zero(t, decode[api.TransactionListDTO](t, rec).Total)

	rec = s.do(alice, http.MethodPost, "/api/transactions/bulk", map[string]any{"transactions": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(alice, http.MethodPost, "/api/transactions/bulk", map[string]any{"transactions": []map[string]any{
		{"wallet_id": a.ID, "type": "expense", "amount": "60.00"},
		{"wallet_id": b.ID, "type": "income", "amount": "5.00"},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]api.TransactionDTO](t, rec), 2)
	assert.Equal(t, "40.00", s.balance(alice, a.ID))
	assert.Equal(t, "15.00", s.balance(alice, b.ID))
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransferEndpoints_IrrecoverableReversal(t *testing.T) {
	s := newTestServer(t, false)
	a := s.wallet(alice, "checking", "1000.00")
	b := s.wallet(alice, "checking", "500.00")

	rec := s.do(alice, http.MethodPost, "/api/transfers", map[string]any{
		"source_wallet_id": a.ID, "target_wallet_id": b.ID, "amount": "300.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tr := decode[api.TransferDTO](t, rec)

	rec = s.do(alice, http.MethodPost, "/api/transactions", map[string]any{
		"wallet_id": b.ID, "type": "expense", "amount": "750.00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(alice, http.MethodDelete, "/api/transfers/"+tr.ID, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, api.CodeIrrecoverableReversal, decode[api.ErrorResponse](t, rec).Code)
	assert.Equal(t, "700.00", s.balance(alice, a.ID))
	assert.Equal(t, "50.00", s.balance(alice, b.ID))

	rec = s.do(alice, http.MethodGet, "/api/wallets/"+b.ID+"/transfers/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "300.00", decode[api.WalletTransferSummaryDTO](t, rec).NetAmount)

	rec = s.do(alice, http.MethodGet, "/api/transfers?wallet_id="+a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.ListDTO[api.TransferDTO]](t, rec).Total)

	rec = s.do(alice, http.MethodPost, "/api/transfers", map[string]any{
		"source_wallet_id": a.ID, "target_wallet_id": a.ID, "amount": "1.00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DEBTS
// =============================================================================

func TestDebtEndpoints(t *testing.T) {
	s := newTestServer(t, false)
	w := s.wallet(alice, "cash", "20.00")

	rec := s.do(alice, http.MethodPost, "/api/debts", map[string]any{
		"wallet_id": w.ID, "amount": "75.00", "borrower": "Sam", "type": "owed",
		"due_date": "2020-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode[api.DebtDTO](t, rec)
	assert.False(t, d.IsPaid)
	require.NotNil(t, d.DueDate)

	rec = s.do(alice, http.MethodGet, "/api/debts?overdue=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.ListDTO[api.DebtDTO]](t, rec).Total)

	rec = s.do(alice, http.MethodPost, "/api/debts/"+d.ID+"/paid", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[api.DebtDTO](t, rec).IsPaid)

	rec = s.do(alice, http.MethodPost, "/api/debts/"+d.ID+"/paid", map[string]any{"is_paid": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.DebtDTO](t, rec).IsPaid)

	rec = s.do(alice, http.MethodGet, "/api/debts/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[api.DebtSummaryDTO](t, rec)
	assert.Equal(t, "75.00", sum.NetPosition)
	assert.Equal(t, 1, sum.OverdueDebts)

	rec = s.do(alice, http.MethodGet, "/api/wallets/"+w.ID+"/debts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[api.ListDTO[api.DebtDTO]](t, rec).Total)

	assert.Equal(t, "20.00", s.balance(alice, w.ID), "debts never move money")
	assert.Equal(t, http.StatusNotFound, s.do(bob, http.MethodGet, "/api/debts/"+d.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(alice, http.MethodDelete, "/api/debts/"+d.ID, nil).Code)
}
