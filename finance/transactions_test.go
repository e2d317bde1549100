package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
	"github.com/warp/wallet-engine/ledger/store"
)

func TestTransaction_Scenario3_CreateUpdateDelete(t *testing.T) {
	// GIVEN: wallet at 1000.00
	// WHEN: income 500.00 is recorded, changed to 200.00, then deleted
	// THEN: 1500.00 -> 1200.00 -> 1000.00
	forEachBackend(t, func(t *testing.T, svc *finance.Service) {
		ctx := context.Background()
		w := mustWallet(t, svc, alice, ledger.WalletChecking, "1000.00")

		tx, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
			WalletID: w.ID, Direction: ledger.Income, Amount: money("500.00"), Category: ledger.CategorySalary,
		})
		require.NoError(t, err)
		assertMoney(t, "1500.00", balanceOf(t, svc, w.ID, alice))

		updated, err := svc.UpdateTransaction(ctx, tx.ID, alice, finance.TransactionPatch{Amount: ptr(money("200.00"))})
		require.NoError(t, err)
		assertMoney(t, "200.00", updated.Amount)
		assert.Equal(t, ledger.CategorySalary, updated.Category)
		assertMoney(t, "1200.00", balanceOf(t, svc, w.ID, alice))

		require.NoError(t, svc.DeleteTransaction(ctx, tx.ID, alice))
		assertMoney(t, "1000.00", balanceOf(t, svc, w.ID, alice))
		_, err = svc.GetTransaction(ctx, tx.ID, alice)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	})
}

func TestCreateTransaction_Atomicity(t *testing.T) {
	// GIVEN: checking wallet with 100.00
	// WHEN: an expense of 100.01 is recorded
	// THEN: InsufficientFunds and no transaction row exists
	forEachBackend(t, func(t *testing.T, svc *finance.Service) {
		ctx := context.Background()
		w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

		_, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
			WalletID: w.ID, Direction: ledger.Expense, Amount: money("100.01"),
		})
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		list, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{}, finance.TransactionSort{}, finance.Page{})
		require.NoError(t, err)
		assert.Zero(t, list.Total, "no orphan record")
		assertMoney(t, "100.00", balanceOf(t, svc, w.ID, alice))
	})
}

func TestCreateTransaction_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

	bad := []finance.CreateTransactionInput{
		{WalletID: w.ID, Direction: "refund", Amount: money("1.00")},
		{WalletID: w.ID, Direction: ledger.Income, Amount: money("0.00")},
		{WalletID: w.ID, Direction: ledger.Income, Amount: money("-1.00")},
		{WalletID: w.ID, Direction: ledger.Income, Amount: money("1.00"), Category: "lottery"},
		{Direction: ledger.Income, Amount: money("1.00")},
	}
	for _, in := range bad {
		_, err := svc.CreateTransaction(ctx, alice, in)
		assert.ErrorIs(t, err, ledger.ErrValidation)
	}

	_, err := svc.CreateTransaction(ctx, bob, finance.CreateTransactionInput{
		WalletID: w.ID, Direction: ledger.Income, Amount: money("1.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateTransaction_DirectionFlip(t *testing.T) {
	// GIVEN: wallet 100.00 + income 50.00 = 150.00
	// WHEN: the income becomes an expense of 50.00
	// THEN: 150.00 - 50.00 - 50.00 = 50.00
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")
	tx, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
		WalletID: w.ID, Direction: ledger.Income, Amount: money("50.00"),
	})
	require.NoError(t, err)

	_, err = svc.UpdateTransaction(ctx, tx.ID, alice, finance.TransactionPatch{Direction: ptr(ledger.Expense)})
	require.NoError(t, err)
	assertMoney(t, "50.00", balanceOf(t, svc, w.ID, alice))
}

func TestUpdateTransaction_FinalBalanceNegative_RollsBack(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "0.00")
	tx, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
		WalletID: w.ID, Direction: ledger.Income, Amount: money("500.00"), Note: "bonus",
	})
	require.NoError(t, err)
	_, err = svc.DebitWallet(ctx, w.ID, alice, money("400.00"))
	require.NoError(t, err)

	_, err = svc.UpdateTransaction(ctx, tx.ID, alice, finance.TransactionPatch{
		Amount: ptr(money("200.00")), Note: ptr("smaller bonus"),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := svc.GetTransaction(ctx, tx.ID, alice)
	require.NoError(t, err)
	assertMoney(t, "500.00", got.Amount)
	assert.Equal(t, "bonus", got.Note, "field changes roll back too")
	assertMoney(t, "100.00", balanceOf(t, svc, w.ID, alice))
}

func TestDeleteTransaction_IrrecoverableReversal(t *testing.T) {
	// GIVEN: an income of 500.00 that has since been spent
	// WHEN: deleting the income
	// THEN: the delete is refused and the record stays
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "0.00")
	tx, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
		WalletID: w.ID, Direction: ledger.Income, Amount: money("500.00"),
	})
	require.NoError(t, err)
	_, err = svc.DebitWallet(ctx, w.ID, alice, money("450.00"))
	require.NoError(t, err)

	err = svc.DeleteTransaction(ctx, tx.ID, alice)
	assert.ErrorIs(t, err, ledger.ErrIrrecoverableReversal)

	_, err = svc.GetTransaction(ctx, tx.ID, alice)
	assert.NoError(t, err)
	assertMoney(t, "50.00", balanceOf(t, svc, w.ID, alice))
}

func TestDeleteTransaction_ForeignIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "0.00")
	tx, err := svc.CreateTransaction(ctx, alice, finance.CreateTransactionInput{
		WalletID: w.ID, Direction: ledger.Income, Amount: money("5.00"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteTransaction(ctx, tx.ID, bob), ledger.ErrNotFound)
	assertMoney(t, "5.00", balanceOf(t, svc, w.ID, alice))
}

// =============================================================================
// BULK
// =============================================================================

func TestBulkCreate_NetPerWallet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *finance.Service) {
		ctx := context.Background()
		a := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")
		b := mustWallet(t, svc, alice, ledger.WalletSavings, "0.00")

		created, err := svc.BulkCreateTransactions(ctx, alice, []finance.CreateTransactionInput{
			{WalletID: a.ID, Direction: ledger.Expense, Amount: money("60.00")},
			{WalletID: a.ID, Direction: ledger.Expense, Amount: money("30.00")},
			{WalletID: a.ID, Direction: ledger.Income, Amount: money("10.00")},
			{WalletID: b.ID, Direction: ledger.Income, Amount: money("25.50")},
		})
		require.NoError(t, err)
		assert.Len(t, created, 4)
		assertMoney(t, "20.00", balanceOf(t, svc, a.ID, alice))
		assertMoney(t, "25.50", balanceOf(t, svc, b.ID, alice))
	})
}

func TestBulkCreate_AllOrNothing(t *testing.T) {
	// GIVEN: two wallets, and a batch whose last expense overdraws one
	// THEN: no wallet changes and no rows exist
	forEachBackend(t, func(t *testing.T, svc *finance.Service) {
		ctx := context.Background()
		a := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")
		b := mustWallet(t, svc, alice, ledger.WalletChecking, "10.00")

		_, err := svc.BulkCreateTransactions(ctx, alice, []finance.CreateTransactionInput{
			{WalletID: a.ID, Direction: ledger.Income, Amount: money("50.00")},
			{WalletID: b.ID, Direction: ledger.Expense, Amount: money("10.01")},
		})
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		assertMoney(t, "100.00", balanceOf(t, svc, a.ID, alice))
		assertMoney(t, "10.00", balanceOf(t, svc, b.ID, alice))
		list, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{}, finance.TransactionSort{}, finance.Page{})
		require.NoError(t, err)
		assert.Zero(t, list.Total)
	})
}

func TestBulkCreate_NetOverdraftRejected(t *testing.T) {
	// Each expense fits the starting balance alone, together they do not.
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	a := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

	_, err := svc.BulkCreateTransactions(ctx, alice, []finance.CreateTransactionInput{
		{WalletID: a.ID, Direction: ledger.Expense, Amount: money("60.00")},
		{WalletID: a.ID, Direction: ledger.Expense, Amount: money("60.00")},
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assertMoney(t, "100.00", balanceOf(t, svc, a.ID, alice))
}

func TestBulkCreate_ForeignWalletIsValidationError(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	mine := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")
	theirs := mustWallet(t, svc, bob, ledger.WalletChecking, "100.00")

	_, err := svc.BulkCreateTransactions(ctx, alice, []finance.CreateTransactionInput{
		{WalletID: mine.ID, Direction: ledger.Income, Amount: money("1.00")},
		{WalletID: theirs.ID, Direction: ledger.Income, Amount: money("1.00")},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	assert.Contains(t, err.Error(), "transactions[1].wallet_id")
	assertMoney(t, "100.00", balanceOf(t, svc, mine.ID, alice))
}

func TestBulkCreate_SizeLimits(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "0.00")

	_, err := svc.BulkCreateTransactions(ctx, alice, nil)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	batch := make([]finance.CreateTransactionInput, finance.MaxBulkSize+1)
	for i := range batch {
		batch[i] = finance.CreateTransactionInput{WalletID: w.ID, Direction: ledger.Income, Amount: money("1.00")}
	}
	_, err = svc.BulkCreateTransactions(ctx, alice, batch)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	created, err := svc.BulkCreateTransactions(ctx, alice, batch[:finance.MaxBulkSize])
	require.NoError(t, err)
	assert.Len(t, created, finance.MaxBulkSize)
	assertMoney(t, "100.00", balanceOf(t, svc, w.ID, alice))
}

// =============================================================================
// QUERIES
// =============================================================================

func seedTransactions(t *testing.T, svc *finance.Service) (ledger.WalletID, ledger.WalletID) {
	t.Helper()
	ctx := context.Background()
	a := mustWallet(t, svc, alice, ledger.WalletChecking, "1000.00")
	b := mustWallet(t, svc, alice, ledger.WalletCash, "100.00")
	day := func(d int) *time.Time { return ptr(time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC)) }

	inputs := []finance.CreateTransactionInput{
		{WalletID: a.ID, Direction: ledger.Income, Amount: money("3000.00"), Category: ledger.CategorySalary, Date: day(1)},
		{WalletID: a.ID, Direction: ledger.Expense, Amount: money("1200.00"), Category: ledger.CategoryHousing, Note: "Rent February", Date: day(2)},
		{WalletID: a.ID, Direction: ledger.Expense, Amount: money("45.10"), Category: ledger.CategoryFood, Note: "groceries", Date: day(5)},
		{WalletID: b.ID, Direction: ledger.Expense, Amount: money("12.90"), Category: ledger.CategoryFood, Date: day(6)},
		{WalletID: b.ID, Direction: ledger.Income, Amount: money("20.00"), Note: "found money", Date: day(7)},
	}
	for _, in := range inputs {
		_, err := svc.CreateTransaction(ctx, alice, in)
		require.NoError(t, err)
	}
	// noise from another user
	other := mustWallet(t, svc, bob, ledger.WalletChecking, "0.00")
	_, err := svc.CreateTransaction(ctx, bob, finance.CreateTransactionInput{WalletID: other.ID, Direction: ledger.Income, Amount: money("1.00")})
	require.NoError(t, err)
	return a.ID, b.ID
}

func TestListTransactions_FilterSortPage(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	a, b := seedTransactions(t, svc)

	all, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{}, finance.TransactionSort{}, finance.Page{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
	assert.Equal(t, 3, all.TotalPages)
	require.Len(t, all.Transactions, 2)
	assert.Equal(t, "found money", all.Transactions[0].Note, "newest date first")

	last, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{}, finance.TransactionSort{}, finance.Page{Page: 3, Size: 2})
	require.NoError(t, err)
	assert.Len(t, last.Transactions, 1)

	food, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{Category: ledger.CategoryFood},
		finance.TransactionSort{Field: finance.SortByAmount, Asc: true}, finance.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, food.Total)
	assertMoney(t, "12.90", food.Transactions[0].Amount)

	walletB, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{WalletID: b, Direction: ledger.Income}, finance.TransactionSort{}, finance.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, walletB.Total)

	search, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{Search: "RENT"}, finance.TransactionSort{}, finance.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, search.Total)

	ranged, err := svc.ListTransactions(ctx, alice, finance.TransactionFilter{
		WalletID: a,
		Amounts:  finance.AmountRange{Min: ptr(money("40.00")), Max: ptr(money("1200.00"))},
		Dates:    finance.TimeRange{From: ptr(time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC))},
	}, finance.TransactionSort{}, finance.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, ranged.Total)

	_, err = svc.ListTransactions(ctx, alice, finance.TransactionFilter{}, finance.TransactionSort{Field: "note"}, finance.Page{})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.ListTransactions(ctx, bob, finance.TransactionFilter{WalletID: a}, finance.TransactionSort{}, finance.Page{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestTransactionSummary(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	seedTransactions(t, svc)

	sum, err := svc.TransactionSummary(ctx, alice, finance.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.TotalTransactions)
	assertMoney(t, "3020.00", sum.TotalIncome)
	assertMoney(t, "1258.00", sum.TotalExpenses)
	assertMoney(t, "1762.00", sum.NetAmount)

	assert.Equal(t, 2, sum.ByCategory[string(ledger.CategoryFood)].Count)
	assertMoney(t, "58.00", sum.ByCategory[string(ledger.CategoryFood)].Total)
	assert.Equal(t, 1, sum.ByCategory[finance.UncategorizedKey].Count)
	assert.Equal(t, 3, sum.ByType[ledger.Expense].Count)
	assertMoney(t, "3020.00", sum.ByType[ledger.Income].Total)
}

func TestWalletTransactions(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewTxMemory())
	_, b := seedTransactions(t, svc)

	txs, total, err := svc.WalletTransactions(ctx, b, alice, finance.Window{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, txs, 2)

	_, _, err = svc.WalletTransactions(ctx, b, bob, finance.Window{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
