/*
Package storetest is the conformance suite every ledger.TxStore runs.

USAGE:
  func TestMemoryStore(t *testing.T) {
      suite.Run(t, &storetest.Suite{
          NewStore: func(t *testing.T) ledger.TxStore { return store.NewTxMemory() },
      })
  }

COVERS:
  - round-trips for every record type, decimals kept to the cent
  - SaveBalance version check
  - WithTx commit, rollback on error, rollback on panic
  - wallet delete cascades
*/
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/warp/wallet-engine/ledger"
)

type Suite struct {
	suite.Suite

	// NewStore returns an empty store. Cleanup is registered on t.
	NewStore func(t *testing.T) ledger.TxStore

	store ledger.TxStore
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
}

func (s *Suite) wallet(owner ledger.UserID, typ ledger.WalletType, balance string) ledger.Wallet {
	w := ledger.Wallet{
		ID:        ledger.NewWalletID(),
		Name:      "Wallet " + string(typ),
		Type:      typ,
		Balance:   ledger.MustMoney(balance),
		OwnerID:   owner,
		Version:   1,
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.CreateWallet(s.ctx, w))
	return w
}

// =============================================================================
// WALLETS
// =============================================================================

func (s *Suite) TestWalletRoundTrip() {
	w := s.wallet("user-1", ledger.WalletChecking, "1000.10")

	got, err := s.store.GetWallet(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(w.Name, got.Name)
	s.Equal(w.Type, got.Type)
	s.Equal(w.OwnerID, got.OwnerID)
	s.Equal(int64(1), got.Version)
	s.True(w.Balance.Equal(got.Balance), "balance %s", got.Balance)
	s.True(w.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestGetWallet_MissingIsNil() {
	got, err := s.store.GetWallet(s.ctx, "does-not-exist")
	s.NoError(err)
	s.Nil(got)
}

func (s *Suite) TestListWallets_ByOwnerOldestFirst() {
	first := s.wallet("user-1", ledger.WalletCash, "1.00")
	s.now = s.now.Add(time.Minute)
	second := s.wallet("user-1", ledger.WalletSavings, "2.00")
	s.wallet("user-2", ledger.WalletCash, "3.00")

	list, err := s.store.ListWallets(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(first.ID, list[0].ID)
	s.Equal(second.ID, list[1].ID)
}

func (s *Suite) TestSaveBalance_VersionCheck() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")

	s.Require().NoError(s.store.SaveBalance(s.ctx, w.ID, ledger.MustMoney("25.50"), 1, s.now))
	err := s.store.SaveBalance(s.ctx, w.ID, ledger.MustMoney("99.00"), 1, s.now)
	s.ErrorIs(err, ledger.ErrConcurrentModification)

	got, err := s.store.GetWallet(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version)
	s.Equal("25.50", ledger.FormatMoney(got.Balance))
}

func (s *Suite) TestUpdateWalletDetails_KeepsBalance() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")
	later := s.now.Add(time.Hour)

	s.Require().NoError(s.store.UpdateWalletDetails(s.ctx, w.ID, "Renamed", ledger.WalletSavings, later))

	got, err := s.store.GetWallet(s.ctx, w.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal(ledger.WalletSavings, got.Type)
	s.Equal("10.00", ledger.FormatMoney(got.Balance))
	s.Equal(int64(1), got.Version)
}

func (s *Suite) TestDeleteWallet_Cascades() {
	a := s.wallet("user-1", ledger.WalletChecking, "0.00")
	b := s.wallet("user-1", ledger.WalletChecking, "0.00")

	tx := ledger.Transaction{ID: ledger.NewTransactionID(), Direction: ledger.Income, Amount: ledger.MustMoney("5.00"),
		Date: s.now, WalletID: a.ID, CreatedAt: s.now, UpdatedAt: s.now}
	tr := ledger.Transfer{ID: ledger.NewTransferID(), Amount: ledger.MustMoney("1.00"),
		SourceWalletID: b.ID, TargetWalletID: a.ID, CreatedAt: s.now}
	d := ledger.Debt{ID: ledger.NewDebtID(), Amount: ledger.MustMoney("3.00"), Borrower: "Sam",
		Direction: ledger.DebtOwed, WalletID: a.ID, CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateTransaction(s.ctx, tx))
	s.Require().NoError(s.store.CreateTransfer(s.ctx, tr))
	s.Require().NoError(s.store.CreateDebt(s.ctx, d))

	s.Require().NoError(s.store.DeleteWallet(s.ctx, a.ID))

	gotTx, err := s.store.GetTransaction(s.ctx, tx.ID)
	s.NoError(err)
	s.Nil(gotTx)
	gotTr, err := s.store.GetTransfer(s.ctx, tr.ID)
	s.NoError(err)
	s.Nil(gotTr)
	gotDebt, err := s.store.GetDebt(s.ctx, d.ID)
	s.NoError(err)
	s.Nil(gotDebt)

	still, err := s.store.GetWallet(s.ctx, b.ID)
	s.NoError(err)
	s.NotNil(still)
}

// =============================================================================
// RECORDS
// =============================================================================

func (s *Suite) TestTransactionRoundTripAndList() {
	w := s.wallet("user-1", ledger.WalletChecking, "0.00")
	older := ledger.Transaction{ID: ledger.NewTransactionID(), Direction: ledger.Expense, Amount: ledger.MustMoney("12.34"),
		Category: ledger.CategoryFood, CategoryRef: "cat-9", Note: "lunch", Date: s.now.Add(-24 * time.Hour),
		WalletID: w.ID, CreatedAt: s.now, UpdatedAt: s.now}
	newer := ledger.Transaction{ID: ledger.NewTransactionID(), Direction: ledger.Income, Amount: ledger.MustMoney("100.00"),
		Date: s.now, WalletID: w.ID, CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateTransaction(s.ctx, older))
	s.Require().NoError(s.store.CreateTransaction(s.ctx, newer))

	got, err := s.store.GetTransaction(s.ctx, older.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(ledger.Expense, got.Direction)
	s.Equal("12.34", ledger.FormatMoney(got.Amount))
	s.Equal(ledger.CategoryFood, got.Category)
	s.Equal("cat-9", got.CategoryRef)
	s.Equal("lunch", got.Note)
	s.True(older.Date.Equal(got.Date))

	got.Amount = ledger.MustMoney("20.00")
	got.Note = ""
	s.Require().NoError(s.store.UpdateTransaction(s.ctx, *got))
	again, err := s.store.GetTransaction(s.ctx, older.ID)
	s.Require().NoError(err)
	s.Equal("20.00", ledger.FormatMoney(again.Amount))
	s.Equal("", again.Note)

	list, err := s.store.ListTransactions(s.ctx, []ledger.WalletID{w.ID})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID, "newest date first")

	s.Require().NoError(s.store.DeleteTransaction(s.ctx, newer.ID))
	list, err = s.store.ListTransactions(s.ctx, []ledger.WalletID{w.ID})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *Suite) TestTransferRoundTripAndList() {
	a := s.wallet("user-1", ledger.WalletChecking, "0.00")
	b := s.wallet("user-2", ledger.WalletChecking, "0.00")
	c := s.wallet("user-3", ledger.WalletChecking, "0.00")
	tr := ledger.Transfer{ID: ledger.NewTransferID(), Amount: ledger.MustMoney("300.00"),
		SourceWalletID: a.ID, TargetWalletID: b.ID, Description: "rent share", CreatedAt: s.now}
	s.Require().NoError(s.store.CreateTransfer(s.ctx, tr))

	got, err := s.store.GetTransfer(s.ctx, tr.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(a.ID, got.SourceWalletID)
	s.Equal(b.ID, got.TargetWalletID)
	s.Equal("300.00", ledger.FormatMoney(got.Amount))
	s.Equal("rent share", got.Description)

	viaTarget, err := s.store.ListTransfers(s.ctx, []ledger.WalletID{b.ID})
	s.Require().NoError(err)
	s.Len(viaTarget, 1)
	none, err := s.store.ListTransfers(s.ctx, []ledger.WalletID{c.ID})
	s.Require().NoError(err)
	s.Empty(none)

	s.Require().NoError(s.store.DeleteTransfer(s.ctx, tr.ID))
	gone, err := s.store.GetTransfer(s.ctx, tr.ID)
	s.NoError(err)
	s.Nil(gone)
}

func (s *Suite) TestDebtRoundTrip() {
	w := s.wallet("user-1", ledger.WalletChecking, "0.00")
	due := s.now.Add(72 * time.Hour)
	d := ledger.Debt{ID: ledger.NewDebtID(), Amount: ledger.MustMoney("45.00"), Borrower: "Alex",
		Direction: ledger.DebtGiven, DueDate: &due, Description: "concert tickets",
		WalletID: w.ID, CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateDebt(s.ctx, d))

	got, err := s.store.GetDebt(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Require().NotNil(got.DueDate)
	s.True(due.Equal(*got.DueDate))
	s.False(got.Paid)

	got.Paid = true
	got.DueDate = nil
	s.Require().NoError(s.store.UpdateDebt(s.ctx, *got))
	again, err := s.store.GetDebt(s.ctx, d.ID)
	s.Require().NoError(err)
	s.True(again.Paid)
	s.Nil(again.DueDate)

	list, err := s.store.ListDebts(s.ctx, []ledger.WalletID{w.ID})
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(s.store.DeleteDebt(s.ctx, d.ID))
	list, err = s.store.ListDebts(s.ctx, []ledger.WalletID{w.ID})
	s.Require().NoError(err)
	s.Empty(list)
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

func (s *Suite) TestWithTx_Commit() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")
	tx := ledger.Transaction{ID: ledger.NewTransactionID(), Direction: ledger.Income, Amount: ledger.MustMoney("5.00"),
		Date: s.now, WalletID: w.ID, CreatedAt: s.now, UpdatedAt: s.now}

	err := s.store.WithTx(s.ctx, func(st ledger.Store) error {
		if err := st.CreateTransaction(s.ctx, tx); err != nil {
			return err
		}
		return st.SaveBalance(s.ctx, w.ID, ledger.MustMoney("15.00"), w.Version, s.now)
	})
	s.Require().NoError(err)

	got, _ := s.store.GetWallet(s.ctx, w.ID)
	s.Equal("15.00", ledger.FormatMoney(got.Balance))
	gotTx, _ := s.store.GetTransaction(s.ctx, tx.ID)
	s.NotNil(gotTx)
}

func (s *Suite) TestWithTx_RollbackOnError() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")
	tx := ledger.Transaction{ID: ledger.NewTransactionID(), Direction: ledger.Expense, Amount: ledger.MustMoney("50.00"),
		Date: s.now, WalletID: w.ID, CreatedAt: s.now, UpdatedAt: s.now}
	boom := errors.New("boom")

	err := s.store.WithTx(s.ctx, func(st ledger.Store) error {
		if err := st.CreateTransaction(s.ctx, tx); err != nil {
			return err
		}
		if err := st.SaveBalance(s.ctx, w.ID, ledger.MustMoney("-40.00"), w.Version, s.now); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, _ := s.store.GetWallet(s.ctx, w.ID)
	s.Equal("10.00", ledger.FormatMoney(got.Balance))
	s.Equal(int64(1), got.Version)
	gotTx, _ := s.store.GetTransaction(s.ctx, tx.ID)
	s.Nil(gotTx, "record must not survive a rolled back unit of work")
}

func (s *Suite) TestWithTx_RollbackOnPanic() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")

	s.Panics(func() {
		_ = s.store.WithTx(s.ctx, func(st ledger.Store) error {
			if err := st.SaveBalance(s.ctx, w.ID, ledger.MustMoney("0.00"), w.Version, s.now); err != nil {
				return err
			}
			panic("unexpected")
		})
	})

	got, _ := s.store.GetWallet(s.ctx, w.ID)
	s.Equal("10.00", ledger.FormatMoney(got.Balance))
}

func (s *Suite) TestWithTx_ReadsOwnWrites() {
	w := s.wallet("user-1", ledger.WalletChecking, "10.00")

	err := s.store.WithTx(s.ctx, func(st ledger.Store) error {
		if err := st.SaveBalance(s.ctx, w.ID, ledger.MustMoney("11.00"), w.Version, s.now); err != nil {
			return err
		}
		got, err := st.GetWallet(s.ctx, w.ID)
		if err != nil {
			return err
		}
		s.Equal("11.00", ledger.FormatMoney(got.Balance))
		s.Equal(int64(2), got.Version)
		return nil
	})
	s.NoError(err)
}
