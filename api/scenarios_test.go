/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario leaves the books in the expected state, and
	that the routes only exist when enabled.
*/
package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
	"github.com/warp/wallet-engine/ledger/store"
)

const demoUser ledger.UserID = "demo"

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(finance.NewService(store.NewTxMemory()), nil)
}

func walletsOfType(t *testing.T, h *Handler, typ ledger.WalletType) []ledger.Wallet {
	t.Helper()
	ws, err := h.svc.WalletsByType(context.Background(), demoUser, typ)
	require.NoError(t, err)
	return ws
}

func assertBalance(t *testing.T, want string, w ledger.Wallet) {
	t.Helper()
	assert.True(t, ledger.MustMoney(want).Equal(w.Balance), "%s: want %s, got %s", w.Name, want, w.Balance)
}

func TestScenario_Starter(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the starter scenario
	// THEN: Three wallets exist with balances reflecting income, spending and the transfer

	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadStarterScenario(ctx, demoUser, time.Now().UTC()))

	checking := walletsOfType(t, h, ledger.WalletChecking)
	savings := walletsOfType(t, h, ledger.WalletSavings)
	cash := walletsOfType(t, h, ledger.WalletCash)
	require.Len(t, checking, 1)
	require.Len(t, savings, 1)
	require.Len(t, cash, 1)

	assertBalance(t, "3390.85", checking[0])
	assertBalance(t, "5500.00", savings[0])
	assertBalance(t, "61.50", cash[0])

	list, err := h.svc.ListTransactions(ctx, demoUser, finance.TransactionFilter{}, finance.TransactionSort{}, finance.Page{Page: 1, Size: 50})
	require.NoError(t, err)
	assert.Equal(t, 6, list.Total)

	transfers, total, err := h.svc.ListTransfers(ctx, demoUser, finance.TransferFilter{}, finance.Window{Limit: finance.DefaultLimit})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, savings[0].ID, transfers[0].TargetWalletID)
}

func TestScenario_CreditCard(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the credit-card scenario
	// THEN: The card is negative after spending and the payment is reflected on both sides

	h := setupTestHandler(t)
	require.NoError(t, h.loadCreditCardScenario(context.Background(), demoUser, time.Now().UTC()))

	card := walletsOfType(t, h, ledger.WalletCredit)
	checking := walletsOfType(t, h, ledger.WalletChecking)
	require.Len(t, card, 1)
	require.Len(t, checking, 1)

	assertBalance(t, "-405.10", card[0])
	assertBalance(t, "300.00", checking[0])
}

func TestScenario_Debts(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Loading the debts scenario
	// THEN: Debts are recorded without touching the wallet balance

	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.loadDebtsScenario(ctx, demoUser, time.Now().UTC()))

	cash := walletsOfType(t, h, ledger.WalletCash)
	require.Len(t, cash, 1)
	assertBalance(t, "150.00", cash[0])

	sum, err := h.svc.DebtSummary(ctx, demoUser)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalDebts)
	assert.Equal(t, 1, sum.PaidDebts)
	assert.Equal(t, 2, sum.UnpaidDebts)
	assert.Equal(t, 1, sum.OverdueDebts)
	assert.True(t, ledger.MustMoney("105.00").Equal(sum.NetPosition), sum.NetPosition.String())
}

func TestScenario_LoadTwiceIsAdditive(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, h.loadStarterScenario(ctx, demoUser, now))
	require.NoError(t, h.loadStarterScenario(ctx, demoUser, now))

	assert.Len(t, walletsOfType(t, h, ledger.WalletChecking), 2)
}

func TestScenarioRoutes(t *testing.T) {
	auth := &Authenticator{Issuer: "wallet-test", DevHeader: true}
	h := setupTestHandler(t)

	send := func(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set(DevUserHeader, string(demoUser))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("not mounted by default", func(t *testing.T) {
		router := NewRouter(h, RouterOptions{Auth: auth})
		rec := send(router, http.MethodGet, "/api/scenarios", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list and load", func(t *testing.T) {
		router := NewRouter(h, RouterOptions{Auth: auth, Scenarios: true})

		rec := send(router, http.MethodGet, "/api/scenarios", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"credit-card"`)

		rec = send(router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"debts"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, walletsOfType(t, h, ledger.WalletCash), 1)

		rec = send(router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"lottery-win"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "lottery-win")
	})
}
