/*
transactions.go - Transaction Lifecycle Manager

PURPOSE:
  Creates, updates and deletes income/expense records and drives the
  balance engine with the right sign:

    Create:  insert row, apply +amount (income) / -amount (expense)
    Update:  reverse old effect, patch fields, apply new effect
    Delete:  reverse effect, delete row
    Bulk:    pre-check every expense, insert all rows, one net write per wallet

  The engine checks only the final balance of each wallet, so an update
  that passes through a negative intermediate value is fine as long as
  it ends in a valid state.

STATE MACHINE:
  Proposed -> Created -> [Updated]* -> Deleted

SEE ALSO:
  - ledger/sheet.go: Balance mutation engine
  - transfers.go: The two-wallet counterpart
*/
package finance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

const (
	MaxNoteLength   = 1000
	MaxSearchLength = 255
	MaxBulkSize     = 100

	// UncategorizedKey groups transactions without a category in summaries.
	UncategorizedKey = "uncategorized"
)

// =============================================================================
// INPUTS
// =============================================================================

type CreateTransactionInput struct {
	WalletID    ledger.WalletID
	Direction   ledger.Direction
	Amount      decimal.Decimal
	Category    ledger.Category
	CategoryRef string
	Note        string
	Date        *time.Time // defaults to now
}

func (in CreateTransactionInput) Validate() error {
	if in.WalletID == "" {
		return ledger.Invalid("wallet_id", "required")
	}
	if !in.Direction.Valid() {
		return ledger.Invalid("type", "must be income or expense")
	}
	if err := ledger.CheckPositive("amount", in.Amount); err != nil {
		return err
	}
	return validateTransactionDetails(in.Category, in.CategoryRef, in.Note)
}

// TransactionPatch is a partial update. Nil fields are left alone.
type TransactionPatch struct {
	Direction   *ledger.Direction
	Amount      *decimal.Decimal
	Category    *ledger.Category
	CategoryRef *string
	Note        *string
	Date        *time.Time
}

func (p TransactionPatch) Validate() error {
	if p.Direction != nil && !p.Direction.Valid() {
		return ledger.Invalid("type", "must be income or expense")
	}
	if p.Amount != nil {
		if err := ledger.CheckPositive("amount", *p.Amount); err != nil {
			return err
		}
	}
	var (
		cat  ledger.Category
		ref  string
		note string
	)
	if p.Category != nil {
		cat = *p.Category
	}
	if p.CategoryRef != nil {
		ref = *p.CategoryRef
	}
	if p.Note != nil {
		note = *p.Note
	}
	return validateTransactionDetails(cat, ref, note)
}

func (p TransactionPatch) apply(tx *ledger.Transaction) {
	if p.Direction != nil {
		tx.Direction = *p.Direction
	}
	if p.Amount != nil {
		tx.Amount = ledger.Cents(*p.Amount)
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.CategoryRef != nil {
		tx.CategoryRef = *p.CategoryRef
	}
	if p.Note != nil {
		tx.Note = *p.Note
	}
	if p.Date != nil {
		tx.Date = p.Date.UTC()
	}
}

func validateTransactionDetails(cat ledger.Category, ref, note string) error {
	if !cat.Valid() {
		return ledger.Invalid("category", "unknown category %q", cat)
	}
	if len(ref) > 100 {
		return ledger.Invalid("category_id", "too long")
	}
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return ledger.Invalid("note", "must be at most %d characters", MaxNoteLength)
	}
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// CreateTransaction inserts the record and applies its effect in one unit
// of work. An expense that would overdraw a non-credit wallet leaves no
// record behind.
func (s *Service) CreateTransaction(ctx context.Context, owner ledger.UserID, in CreateTransactionInput) (*ledger.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created ledger.Transaction
	err := s.run(ctx, "create_transaction", func(u *unit) error {
		w, err := ownedWallet(ctx, u, in.WalletID, owner, "wallet")
		if err != nil {
			return err
		}
		created = newTransaction(in, u.at)
		if err := u.CreateTransaction(ctx, created); err != nil {
			return err
		}
		sheet := ledger.NewSheet(*w)
		if err := sheet.ApplyTransaction(created); err != nil {
			return err
		}
		return u.commit(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func newTransaction(in CreateTransactionInput, at time.Time) ledger.Transaction {
	date := at
	if in.Date != nil {
		date = in.Date.UTC()
	}
	return ledger.Transaction{
		ID:          ledger.NewTransactionID(),
		Direction:   in.Direction,
		Amount:      ledger.Cents(in.Amount),
		Category:    in.Category,
		CategoryRef: in.CategoryRef,
		Note:        in.Note,
		Date:        date,
		WalletID:    in.WalletID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

// UpdateTransaction reverses the old effect, applies the patch and the new
// effect, and checks the wallet's final balance once.
func (s *Service) UpdateTransaction(ctx context.Context, id ledger.TransactionID, owner ledger.UserID, patch TransactionPatch) (*ledger.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated ledger.Transaction
	err := s.run(ctx, "update_transaction", func(u *unit) error {
		old, w, err := ownedTransaction(ctx, u, id, owner)
		if err != nil {
			return err
		}
		updated = *old
		patch.apply(&updated)
		updated.UpdatedAt = u.at

		sheet := ledger.NewSheet(*w)
		if err := sheet.ReverseTransaction(*old); err != nil {
			return err
		}
		if err := sheet.ApplyTransaction(updated); err != nil {
			return err
		}
		if err := u.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		return u.commit(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteTransaction reverses the effect and removes the record. Reversing
// an income the wallet has since spent fails with a *ledger.ReversalError
// unless the wallet is a credit wallet. This is stricter than a plain
// not-found contract: the API answers such deletes with 409
// irrecoverable_reversal, the same as a transfer whose target was spent.
func (s *Service) DeleteTransaction(ctx context.Context, id ledger.TransactionID, owner ledger.UserID) error {
	return s.run(ctx, "delete_transaction", func(u *unit) error {
		tx, w, err := ownedTransaction(ctx, u, id, owner)
		if err != nil {
			return err
		}
		sheet := ledger.NewSheet(*w)
		if err := sheet.ReverseTransaction(*tx); err != nil {
			return err
		}
		if err := u.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return u.commit(ctx, sheet)
	})
}

// BulkCreateTransactions creates 1..MaxBulkSize transactions atomically.
//
// Before anything is written, every wallet must be owned by the caller and
// every expense must fit the starting balance of its non-credit wallet on
// its own. The net effect per wallet is then applied with one balance
// write per wallet and checked again.
func (s *Service) BulkCreateTransactions(ctx context.Context, owner ledger.UserID, inputs []CreateTransactionInput) ([]ledger.Transaction, error) {
	if len(inputs) == 0 || len(inputs) > MaxBulkSize {
		return nil, ledger.Invalid("transactions", "must contain 1 to %d items", MaxBulkSize)
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}

	var created []ledger.Transaction
	err := s.run(ctx, "bulk_create_transactions", func(u *unit) error {
		sheet := ledger.NewSheet()
		for i, in := range inputs {
			w, ok := sheet.Wallet(in.WalletID)
			if !ok {
				owned, err := ownedWallet(ctx, u, in.WalletID, owner, "wallet")
				if err != nil {
					if ledger.IsNotFound(err) {
						return ledger.Invalid(fmt.Sprintf("transactions[%d].wallet_id", i), "wallet not found or not owned by user")
					}
					return err
				}
				sheet.Track(*owned)
				w = *owned
			}
			if in.Direction == ledger.Expense && !ledger.CanHold(w.Type, w.Balance.Sub(in.Amount)) {
				return &ledger.InsufficientFundsError{
					WalletID:  w.ID,
					Available: w.Balance,
					Requested: in.Amount,
					Shortfall: in.Amount.Sub(w.Balance),
				}
			}
		}

		created = make([]ledger.Transaction, 0, len(inputs))
		for _, in := range inputs {
			tx := newTransaction(in, u.at)
			if err := u.CreateTransaction(ctx, tx); err != nil {
				return err
			}
			if err := sheet.ApplyTransaction(tx); err != nil {
				return err
			}
			created = append(created, tx)
		}
		return u.commit(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// QUERIES
// =============================================================================

type TransactionFilter struct {
	WalletID  ledger.WalletID
	Direction ledger.Direction
	Category  ledger.Category
	Dates     TimeRange
	Amounts   AmountRange
	Search    string // substring of the note, case-insensitive
}

func (f TransactionFilter) Validate() error {
	if f.Direction != "" && !f.Direction.Valid() {
		return ledger.Invalid("type", "must be income or expense")
	}
	if f.Category != "" && !f.Category.Valid() {
		return ledger.Invalid("category", "unknown category %q", f.Category)
	}
	if len(f.Search) > MaxSearchLength {
		return ledger.Invalid("search", "must be at most %d characters", MaxSearchLength)
	}
	if err := f.Dates.validate("start_date"); err != nil {
		return err
	}
	return f.Amounts.validate()
}

func (f TransactionFilter) matches(tx ledger.Transaction) bool {
	switch {
	case f.Direction != "" && tx.Direction != f.Direction:
		return false
	case f.Category != "" && tx.Category != f.Category:
		return false
	case !f.Dates.contains(tx.Date):
		return false
	case !f.Amounts.contains(tx.Amount):
		return false
	case f.Search != "" && !containsFold(tx.Note, f.Search):
		return false
	}
	return true
}

type SortField string

const (
	SortByDate      SortField = "date"
	SortByAmount    SortField = "amount"
	SortByCreatedAt SortField = "created_at"
)

type TransactionSort struct {
	Field SortField // default date
	Asc   bool      // default newest/largest first
}

// Page is a 1-based page of Size items.
type Page struct {
	Page int
	Size int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

type TransactionList struct {
	Transactions []ledger.Transaction
	Total        int
	Page         int
	Size         int
	TotalPages   int
}

func (s *Service) GetTransaction(ctx context.Context, id ledger.TransactionID, owner ledger.UserID) (*ledger.Transaction, error) {
	tx, _, err := ownedTransaction(ctx, s.store, id, owner)
	return tx, err
}

// ListTransactions filters, sorts and pages the caller's transactions.
func (s *Service) ListTransactions(ctx context.Context, owner ledger.UserID, f TransactionFilter, order TransactionSort, p Page) (*TransactionList, error) {
	matched, err := s.filterTransactions(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	if err := sortTransactions(matched, order); err != nil {
		return nil, err
	}

	p = p.normalize()
	list := &TransactionList{
		Total:      len(matched),
		Page:       p.Page,
		Size:       p.Size,
		TotalPages: (len(matched) + p.Size - 1) / p.Size,
	}
	list.Transactions = window(matched, Window{Offset: (p.Page - 1) * p.Size, Limit: p.Size})
	return list, nil
}

// WalletTransactions lists one wallet's transactions, newest first.
func (s *Service) WalletTransactions(ctx context.Context, walletID ledger.WalletID, owner ledger.UserID, w Window) ([]ledger.Transaction, int, error) {
	if _, err := s.ResolveOwnedWallet(ctx, walletID, owner); err != nil {
		return nil, 0, err
	}
	txs, err := s.store.ListTransactions(ctx, []ledger.WalletID{walletID})
	if err != nil {
		return nil, 0, err
	}
	return window(txs, w), len(txs), nil
}

func (s *Service) filterTransactions(ctx context.Context, owner ledger.UserID, f TransactionFilter) ([]ledger.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ids, err := ownedWalletIDs(ctx, s.store, owner, f.WalletID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	matched := make([]ledger.Transaction, 0, len(all))
	for _, tx := range all {
		if f.matches(tx) {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

func sortTransactions(txs []ledger.Transaction, order TransactionSort) error {
	var less func(a, b ledger.Transaction) bool
	switch order.Field {
	case "", SortByDate:
		less = func(a, b ledger.Transaction) bool { return a.Date.Before(b.Date) }
	case SortByAmount:
		less = func(a, b ledger.Transaction) bool { return a.Amount.LessThan(b.Amount) }
	case SortByCreatedAt:
		less = func(a, b ledger.Transaction) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return ledger.Invalid("sort_by", "must be date, amount or created_at")
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if order.Asc {
			return less(txs[i], txs[j])
		}
		return less(txs[j], txs[i])
	})
	return nil
}

// =============================================================================
// SUMMARY
// =============================================================================

type TransactionSummary struct {
	TotalTransactions int
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	NetAmount         decimal.Decimal
	ByCategory        map[string]Total
	ByType            map[ledger.Direction]Total
}

// TransactionSummary aggregates the caller's matching transactions.
func (s *Service) TransactionSummary(ctx context.Context, owner ledger.UserID, f TransactionFilter) (*TransactionSummary, error) {
	matched, err := s.filterTransactions(ctx, owner, f)
	if err != nil {
		return nil, err
	}

	sum := &TransactionSummary{
		TotalTransactions: len(matched),
		TotalIncome:       decimal.Zero,
		TotalExpenses:     decimal.Zero,
		ByCategory:        make(map[string]Total),
		ByType:            make(map[ledger.Direction]Total),
	}
	for _, tx := range matched {
		switch tx.Direction {
		case ledger.Income:
			sum.TotalIncome = sum.TotalIncome.Add(tx.Amount)
		case ledger.Expense:
			sum.TotalExpenses = sum.TotalExpenses.Add(tx.Amount)
		}

		key := strings.TrimSpace(string(tx.Category))
		if key == "" {
			key = UncategorizedKey
		}
		c := sum.ByCategory[key]
		c.add(tx.Amount)
		sum.ByCategory[key] = c

		t := sum.ByType[tx.Direction]
		t.add(tx.Amount)
		sum.ByType[tx.Direction] = t
	}
	sum.NetAmount = sum.TotalIncome.Sub(sum.TotalExpenses)
	return sum, nil
}
