/*
Package ledger provides the core wallet balance model.

PURPOSE:
  This package contains the records a personal-finance ledger is made of
  (wallets, transactions, transfers, debts), the money helpers used for all
  arithmetic, the error taxonomy, the store contract, and the balance
  mutation engine (sheet.go) that is the only code allowed to change a
  wallet's cached balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Wallet: an account with a cached balance and an optimistic version
  - Transaction: a signed income/expense entry against one wallet
  - Transfer: a paired debit/credit between two wallets
  - Debt: an informational record, never touches a balance
  - Typed identifiers so wallet and transaction IDs cannot be mixed

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal with two fractional digits, never float64
  2. One writer: balances only change through a Sheet
  3. Ownership: a Wallet has exactly one owner; everything else is owned
     through its wallet

SEE ALSO:
  - sheet.go: Balance mutation engine
  - store.go: Persistence contract and unit of work
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type WalletID string
type TransactionID string
type TransferID string
type DebtID string

// =============================================================================
// WALLET - Account with a cached balance
// =============================================================================

// WalletType is an open set of account tags. Only WalletCredit has special
// meaning to the engine.
type WalletType string

const (
	WalletChecking WalletType = "checking"
	WalletSavings  WalletType = "savings"
	WalletCash     WalletType = "cash"
	WalletCredit   WalletType = "credit"
)

// AllowsNegative reports whether a wallet of this type may carry a negative
// balance (a credit line).
func (t WalletType) AllowsNegative() bool { return t == WalletCredit }

type Wallet struct {
	ID      WalletID
	Name    string
	Type    WalletType
	Balance decimal.Decimal
	OwnerID UserID

	// Version increments on every balance write. A write carrying a stale
	// version fails with ErrConcurrentModification.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanHold reports whether balance is acceptable for a wallet of type t.
func CanHold(t WalletType, balance decimal.Decimal) bool {
	return t.AllowsNegative() || !balance.IsNegative()
}

// =============================================================================
// TRANSACTION - Income or expense against one wallet
// =============================================================================

type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

func (d Direction) Valid() bool { return d == Income || d == Expense }

// Signed returns the effect of amount on a wallet balance.
func (d Direction) Signed(amount decimal.Decimal) decimal.Decimal {
	if d == Expense {
		return amount.Neg()
	}
	return amount
}

// Category is the built-in category enum. The empty value means uncategorized.
type Category string

const (
	CategorySalary       Category = "salary"
	CategoryFreelance    Category = "freelance"
	CategoryInvestment   Category = "investment"
	CategoryGift         Category = "gift"
	CategoryRefund       Category = "refund"
	CategoryOtherIncome  Category = "other_income"
	CategoryFood         Category = "food"
	CategoryTransport    Category = "transport"
	CategoryHousing      Category = "housing"
	CategoryUtilities    Category = "utilities"
	CategoryEntertain    Category = "entertainment"
	CategoryHealthcare   Category = "healthcare"
	CategoryEducation    Category = "education"
	CategoryShopping     Category = "shopping"
	CategoryTravel       Category = "travel"
	CategoryInsurance    Category = "insurance"
	CategoryTaxes        Category = "taxes"
	CategoryDebtPayment  Category = "debt_payment"
	CategoryOtherExpense Category = "other_expense"
)

var categories = map[Category]bool{
	CategorySalary: true, CategoryFreelance: true, CategoryInvestment: true,
	CategoryGift: true, CategoryRefund: true, CategoryOtherIncome: true,
	CategoryFood: true, CategoryTransport: true, CategoryHousing: true,
	CategoryUtilities: true, CategoryEntertain: true, CategoryHealthcare: true,
	CategoryEducation: true, CategoryShopping: true, CategoryTravel: true,
	CategoryInsurance: true, CategoryTaxes: true, CategoryDebtPayment: true,
	CategoryOtherExpense: true,
}

// Valid accepts the empty category.
func (c Category) Valid() bool { return c == "" || categories[c] }

type Transaction struct {
	ID        TransactionID
	Direction Direction
	Amount    decimal.Decimal
	Category  Category

	// CategoryRef points at a user-defined category. Category CRUD lives
	// outside this module, so it is carried as an opaque reference.
	CategoryRef string

	Note     string
	Date     time.Time
	WalletID WalletID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Effect is the signed delta this transaction applies to its wallet.
func (t Transaction) Effect() decimal.Decimal { return t.Direction.Signed(t.Amount) }

// =============================================================================
// TRANSFER - Immutable wallet-to-wallet movement
// =============================================================================

type Transfer struct {
	ID             TransferID
	Amount         decimal.Decimal
	SourceWalletID WalletID
	TargetWalletID WalletID
	Description    string
	CreatedAt      time.Time
}

// Involves reports whether id is either endpoint.
func (t Transfer) Involves(id WalletID) bool {
	return t.SourceWalletID == id || t.TargetWalletID == id
}

// =============================================================================
// DEBT - Informational, no balance effect
// =============================================================================

type DebtDirection string

const (
	DebtOwed  DebtDirection = "owed"  // someone owes the user
	DebtGiven DebtDirection = "given" // the user owes someone
)

func (d DebtDirection) Valid() bool { return d == DebtOwed || d == DebtGiven }

type Debt struct {
	ID          DebtID
	Amount      decimal.Decimal
	Borrower    string
	Direction   DebtDirection
	Paid        bool
	DueDate     *time.Time
	Description string
	WalletID    WalletID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overdue is true for unpaid debts whose due date has passed.
func (d Debt) Overdue(now time.Time) bool {
	return !d.Paid && d.DueDate != nil && d.DueDate.Before(now)
}
