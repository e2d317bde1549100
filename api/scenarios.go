/*
scenarios.go - Demo data for local development

PURPOSE:
  Seeds the calling user's books with a small, realistic data set so the
  frontend has something to show. Every scenario goes through the finance
  service, so the seeded balances obey the same rules as real traffic.

SCENARIOS:
  starter          Checking, savings and cash wallets with a month of
                   salary, rent and groceries, plus a savings transfer
  credit-card      A credit wallet run into negative balance and paid down
  debts            Money lent and borrowed, one paid and one overdue

  Loading is additive. Loading the same scenario twice creates a second
  copy of its wallets.

ENDPOINTS:
  GET  /api/scenarios        List scenarios
  POST /api/scenarios/load   {"scenario_id": "starter"}

  The routes are only mounted when server.demo_scenarios is set.

SEE ALSO:
  - server.go: Route registration
  - finance/: The operations used to build each scenario
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "starter",
		Name:        "Starter Month",
		Description: "Checking, savings and cash with a month of income, spending and a savings transfer",
	},
	{
		ID:          "credit-card",
		Name:        "Credit Card",
		Description: "Credit wallet spent below zero and partly paid down from checking",
	},
	{
		ID:          "debts",
		Name:        "Debts",
		Description: "Money lent and borrowed, one settled and one overdue",
	},
}

type scenarioLoader func(h *Handler, ctx context.Context, user ledger.UserID, now time.Time) error

var scenarioLoaders = map[string]scenarioLoader{
	"starter":     (*Handler).loadStarterScenario,
	"credit-card": (*Handler).loadCreditCardScenario,
	"debts":       (*Handler).loadDebtsScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the caller's books with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Unknown scenario", Code: CodeBadRequest, Details: map[string]string{"scenario_id": req.ScenarioID}})
		return
	}

	user := UserFrom(r.Context())
	if err := load(h, r.Context(), user, time.Now().UTC()); err != nil {
		h.writeServiceError(w, fmt.Errorf("load scenario %s: %w", req.ScenarioID, err))
		return
	}
	h.logger.Printf("[Scenarios] loaded %s for %s", req.ScenarioID, user)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStarterScenario(ctx context.Context, user ledger.UserID, now time.Time) error {
	checking, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Everyday Checking", Type: ledger.WalletChecking, InitialBalance: ledger.MustMoney("2000.00"),
	})
	if err != nil {
		return err
	}
	savings, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Rainy Day Savings", Type: ledger.WalletSavings, InitialBalance: ledger.MustMoney("5000.00"),
	})
	if err != nil {
		return err
	}
	cash, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Wallet Cash", Type: ledger.WalletCash, InitialBalance: ledger.MustMoney("80.00"),
	})
	if err != nil {
		return err
	}

	// Each expense must fit the opening balance on its own.
	monthAgo := now.AddDate(0, -1, 0)
	_, err = h.svc.BulkCreateTransactions(ctx, user, []finance.CreateTransactionInput{
		{WalletID: checking.ID, Direction: ledger.Income, Amount: ledger.MustMoney("3200.00"), Category: ledger.CategorySalary, Note: "Monthly salary", Date: at(monthAgo, 0)},
		{WalletID: checking.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("1450.00"), Category: ledger.CategoryHousing, Note: "Rent", Date: at(monthAgo, 1)},
		{WalletID: checking.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("96.40"), Category: ledger.CategoryUtilities, Note: "Electricity", Date: at(monthAgo, 5)},
		{WalletID: checking.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("212.75"), Category: ledger.CategoryFood, Note: "Groceries", Date: at(monthAgo, 7)},
		{WalletID: cash.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("18.50"), Category: ledger.CategoryEntertain, Note: "Cinema", Date: at(monthAgo, 12)},
		{WalletID: checking.ID, Direction: ledger.Income, Amount: ledger.MustMoney("450.00"), Category: ledger.CategoryFreelance, Note: "Logo design", Date: at(monthAgo, 20)},
	})
	if err != nil {
		return err
	}

	_, err = h.svc.CreateTransfer(ctx, user, finance.CreateTransferInput{
		SourceWalletID: checking.ID,
		TargetWalletID: savings.ID,
		Amount:         ledger.MustMoney("500.00"),
		Description:    "Monthly savings",
	})
	return err
}

func (h *Handler) loadCreditCardScenario(ctx context.Context, user ledger.UserID, now time.Time) error {
	checking, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Salary Account", Type: ledger.WalletChecking, InitialBalance: ledger.MustMoney("900.00"),
	})
	if err != nil {
		return err
	}
	card, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Travel Card", Type: ledger.WalletCredit,
	})
	if err != nil {
		return err
	}

	monthAgo := now.AddDate(0, -1, 0)
	_, err = h.svc.BulkCreateTransactions(ctx, user, []finance.CreateTransactionInput{
		{WalletID: card.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("640.00"), Category: ledger.CategoryTravel, Note: "Flights", Date: at(monthAgo, 2)},
		{WalletID: card.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("310.20"), Category: ledger.CategoryTravel, Note: "Hotel", Date: at(monthAgo, 9)},
		{WalletID: card.ID, Direction: ledger.Expense, Amount: ledger.MustMoney("54.90"), Category: ledger.CategoryShopping, Note: "Adapter and sunscreen", Date: at(monthAgo, 10)},
	})
	if err != nil {
		return err
	}

	_, err = h.svc.CreateTransfer(ctx, user, finance.CreateTransferInput{
		SourceWalletID: checking.ID,
		TargetWalletID: card.ID,
		Amount:         ledger.MustMoney("600.00"),
		Description:    "Card payment",
	})
	return err
}

func (h *Handler) loadDebtsScenario(ctx context.Context, user ledger.UserID, now time.Time) error {
	cash, err := h.svc.CreateWallet(ctx, user, finance.CreateWalletInput{
		Name: "Pocket Money", Type: ledger.WalletCash, InitialBalance: ledger.MustMoney("150.00"),
	})
	if err != nil {
		return err
	}

	lastWeek := now.AddDate(0, 0, -7)
	nextMonth := now.AddDate(0, 1, 0)
	inputs := []finance.CreateDebtInput{
		{WalletID: cash.ID, Amount: ledger.MustMoney("120.00"), Borrower: "Sam", Direction: ledger.DebtOwed, DueDate: &lastWeek, Description: "Concert tickets"},
		{WalletID: cash.ID, Amount: ledger.MustMoney("45.00"), Borrower: "Jordan", Direction: ledger.DebtGiven, DueDate: &nextMonth, Description: "Dinner split"},
		{WalletID: cash.ID, Amount: ledger.MustMoney("30.00"), Borrower: "Riley", Direction: ledger.DebtOwed, Description: "Taxi"},
	}
	var settled *ledger.Debt
	for _, in := range inputs {
		d, err := h.svc.CreateDebt(ctx, user, in)
		if err != nil {
			return err
		}
		if in.Borrower == "Riley" {
			settled = d
		}
	}
	_, err = h.svc.MarkDebtPaid(ctx, settled.ID, user, true)
	return err
}

// at returns a pointer to base shifted by days.
func at(base time.Time, days int) *time.Time {
	t := base.AddDate(0, 0, days)
	return &t
}
