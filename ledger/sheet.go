/*
sheet.go - Balance mutation engine

PURPOSE:
  A Sheet is the working copy of every wallet balance a unit of work
  touches. Operations shift balances on the sheet; nothing reaches the
  store until Commit, which validates the final state of every touched
  wallet and only then writes the new balances.

OPERATIONS:
  Credit(w, a)            balance += a
  Debit(w, a)             balance -= a           (checked)
  Set(w, a)               balance  = a           a >= 0, even for credit
  ApplyTransaction(t)     income +a, expense -a  (checked)
  ReverseTransaction(t)   inverse of the above   (checked as reversal)
  ApplyTransfer(t)        source -a, target +a   (checked)
  ReverseTransfer(t)      source +a, target -a   (checked as reversal)

CHECKING:
  Checks run once, in Commit, against the FINAL balance of each wallet.
  Updating a transaction is therefore "reverse old, apply new, check once":
  an intermediate negative balance is fine as long as the end state holds.

  A wallet that ends negative (and is not a credit wallet) yields:
  - *ReversalError        if the last operation on it was a reversal
  - *InsufficientFundsError otherwise

ATOMICITY:
  Commit runs inside the caller's WithTx. If Check fails nothing is written;
  if a SaveBalance fails the caller's transaction rolls back the others.

EXAMPLE:
  sheet := ledger.NewSheet(wallet)
  sheet.ReverseTransaction(old)
  sheet.ApplyTransaction(updated)
  muts, err := sheet.Commit(ctx, store, now)

SEE ALSO:
  - finance/transactions.go, finance/transfers.go: Lifecycle managers
  - store.go: SaveBalance and the version check
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// OPERATIONS
// =============================================================================

type Op string

const (
	OpCredit             Op = "credit"
	OpDebit              Op = "debit"
	OpSet                Op = "set"
	OpApplyTransaction   Op = "transaction"
	OpReverseTransaction Op = "transaction_reversal"
	OpTransferOut        Op = "transfer_out"
	OpTransferIn         Op = "transfer_in"
	OpReverseTransferOut Op = "transfer_reversal_out" // source gets the amount back
	OpReverseTransferIn  Op = "transfer_reversal_in"  // target gives it back
)

// Mutation is one committed (or about to be committed) balance change.
type Mutation struct {
	WalletID WalletID
	Before   decimal.Decimal
	After    decimal.Decimal
	Version  int64 // version the balance was read at
	Ops      []Op
}

func (m Mutation) Delta() decimal.Decimal { return m.After.Sub(m.Before) }

// BalanceWriter is the slice of the store a Sheet needs.
type BalanceWriter interface {
	SaveBalance(ctx context.Context, id WalletID, balance decimal.Decimal, version int64, at time.Time) error
}

// =============================================================================
// SHEET
// =============================================================================

type Sheet struct {
	entries map[WalletID]*sheetEntry
	order   []WalletID
}

type sheetEntry struct {
	wallet  Wallet
	balance decimal.Decimal
	ops     []Op
}

// NewSheet returns a sheet tracking the given wallets.
func NewSheet(wallets ...Wallet) *Sheet {
	s := &Sheet{entries: make(map[WalletID]*sheetEntry)}
	for _, w := range wallets {
		s.Track(w)
	}
	return s
}

// Track adds a wallet snapshot. Tracking the same wallet twice keeps the
// first snapshot so earlier shifts are not lost.
func (s *Sheet) Track(w Wallet) {
	if _, ok := s.entries[w.ID]; ok {
		return
	}
	s.entries[w.ID] = &sheetEntry{wallet: w, balance: w.Balance}
	s.order = append(s.order, w.ID)
}

// Balance returns the projected balance of a tracked wallet.
func (s *Sheet) Balance(id WalletID) (decimal.Decimal, bool) {
	e, ok := s.entries[id]
	if !ok {
		return decimal.Zero, false
	}
	return e.balance, true
}

// Wallet returns the tracked wallet with its projected balance.
func (s *Sheet) Wallet(id WalletID) (Wallet, bool) {
	e, ok := s.entries[id]
	if !ok {
		return Wallet{}, false
	}
	w := e.wallet
	if e.dirty() {
		w.Balance = e.balance
		w.Version++
	}
	return w, true
}

func (s *Sheet) shift(id WalletID, delta decimal.Decimal, op Op) error {
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("ledger: wallet %s not tracked on sheet", id)
	}
	e.balance = e.balance.Add(delta)
	e.ops = append(e.ops, op)
	return nil
}

func (s *Sheet) Credit(id WalletID, amount decimal.Decimal) error {
	if err := CheckPositive("amount", amount); err != nil {
		return err
	}
	return s.shift(id, amount, OpCredit)
}

func (s *Sheet) Debit(id WalletID, amount decimal.Decimal) error {
	if err := CheckPositive("amount", amount); err != nil {
		return err
	}
	return s.shift(id, amount.Neg(), OpDebit)
}

// Set overwrites the balance. Negative values are rejected for every wallet
// type, credit included.
func (s *Sheet) Set(id WalletID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Invalid("amount", "balance cannot be negative")
	}
	if err := CheckScale("amount", amount); err != nil {
		return err
	}
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("ledger: wallet %s not tracked on sheet", id)
	}
	e.balance = amount
	e.ops = append(e.ops, OpSet)
	return nil
}

func (s *Sheet) ApplyTransaction(tx Transaction) error {
	if !tx.Direction.Valid() {
		return Invalid("type", "must be income or expense")
	}
	if err := CheckPositive("amount", tx.Amount); err != nil {
		return err
	}
	return s.shift(tx.WalletID, tx.Effect(), OpApplyTransaction)
}

func (s *Sheet) ReverseTransaction(tx Transaction) error {
	return s.shift(tx.WalletID, tx.Effect().Neg(), OpReverseTransaction)
}

func (s *Sheet) ApplyTransfer(t Transfer) error {
	if t.SourceWalletID == t.TargetWalletID {
		return Invalid("target_wallet_id", "source and target wallets cannot be the same")
	}
	if err := CheckPositive("amount", t.Amount); err != nil {
		return err
	}
	if err := s.shift(t.SourceWalletID, t.Amount.Neg(), OpTransferOut); err != nil {
		return err
	}
	return s.shift(t.TargetWalletID, t.Amount, OpTransferIn)
}

func (s *Sheet) ReverseTransfer(t Transfer) error {
	if err := s.shift(t.TargetWalletID, t.Amount.Neg(), OpReverseTransferIn); err != nil {
		return err
	}
	return s.shift(t.SourceWalletID, t.Amount, OpReverseTransferOut)
}

// Check validates the final balance of every touched wallet.
func (s *Sheet) Check() error {
	for _, id := range s.order {
		e := s.entries[id]
		if len(e.ops) == 0 || CanHold(e.wallet.Type, e.balance) {
			continue
		}
		return e.violation()
	}
	return nil
}

// Mutations lists the balance changes the sheet would write, in tracking
// order. Wallets whose balance ends where it started are skipped.
func (s *Sheet) Mutations() []Mutation {
	var muts []Mutation
	for _, id := range s.order {
		e := s.entries[id]
		if !e.dirty() {
			continue
		}
		muts = append(muts, Mutation{
			WalletID: id,
			Before:   e.wallet.Balance,
			After:    Cents(e.balance),
			Version:  e.wallet.Version,
			Ops:      append([]Op(nil), e.ops...),
		})
	}
	return muts
}

// Commit checks the sheet and writes every changed balance through w.
func (s *Sheet) Commit(ctx context.Context, w BalanceWriter, at time.Time) ([]Mutation, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	muts := s.Mutations()
	for _, m := range muts {
		if err := w.SaveBalance(ctx, m.WalletID, m.After, m.Version, at); err != nil {
			return nil, err
		}
	}
	return muts, nil
}

func (e *sheetEntry) dirty() bool {
	return len(e.ops) > 0 && !e.balance.Equal(e.wallet.Balance)
}

func (e *sheetEntry) violation() error {
	switch e.ops[len(e.ops)-1] {
	case OpReverseTransferIn:
		return &ReversalError{Kind: "transfer", Side: "target", WalletID: e.wallet.ID, Balance: e.balance}
	case OpReverseTransaction:
		return &ReversalError{Kind: "transaction", WalletID: e.wallet.ID, Balance: e.balance}
	}
	requested := e.wallet.Balance.Sub(e.balance)
	return &InsufficientFundsError{
		WalletID:  e.wallet.ID,
		Available: e.wallet.Balance,
		Requested: requested,
		Shortfall: e.balance.Neg(),
	}
}
