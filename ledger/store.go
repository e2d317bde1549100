/*
store.go - Persistence contract and unit of work

PURPOSE:
  Defines the interface between the finance services and the database.
  The store is a thin record keeper: it has no business rules beyond the
  constraints a schema can express (primary keys, foreign keys, cascades,
  the optimistic wallet version).

KEY INTERFACES:
  Store:   CRUD primitives for wallets, transactions, transfers, debts
  TxStore: Store + WithTx, the scoped unit of work

BALANCE WRITES:
  Wallet balances are never written through CreateWallet/UpdateWalletDetails.
  The only balance write is SaveBalance, and only Sheet.Commit calls it.
  SaveBalance carries the version the caller read; a mismatch means another
  unit of work got there first and yields ErrConcurrentModification.

ATOMICITY:
  WithTx(fn) commits iff fn returns nil. Any error or panic inside fn rolls
  back every write made through the Store handed to fn. Code inside fn must
  use that Store, never the outer one.

MISSING ROWS:
  Get* methods return (nil, nil) when the row does not exist. Ownership is
  decided above the store.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory, snapshot + restore
  - store/sqlite/sqlite.go: database/sql (mattn/go-sqlite3 or modernc sqlite)
  - store/postgres/postgres.go: pgx pool, SELECT ... FOR UPDATE

SEE ALSO:
  - sheet.go: The only caller of SaveBalance
  - ledger/storetest: Conformance suite every implementation runs
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - CRUD primitives
// =============================================================================

type WalletStore interface {
	CreateWallet(ctx context.Context, w Wallet) error
	GetWallet(ctx context.Context, id WalletID) (*Wallet, error)

	// ListWallets returns the owner's wallets, oldest first.
	ListWallets(ctx context.Context, owner UserID) ([]Wallet, error)

	UpdateWalletDetails(ctx context.Context, id WalletID, name string, typ WalletType, at time.Time) error

	// SaveBalance writes a new balance if the stored version still equals
	// version, and bumps the version.
	SaveBalance(ctx context.Context, id WalletID, balance decimal.Decimal, version int64, at time.Time) error

	// DeleteWallet removes the wallet and cascades to its transactions,
	// debts and every transfer touching it.
	DeleteWallet(ctx context.Context, id WalletID) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// ListTransactions returns transactions of the given wallets, newest
	// date first.
	ListTransactions(ctx context.Context, wallets []WalletID) ([]Transaction, error)
}

type TransferStore interface {
	CreateTransfer(ctx context.Context, t Transfer) error
	GetTransfer(ctx context.Context, id TransferID) (*Transfer, error)
	DeleteTransfer(ctx context.Context, id TransferID) error

	// ListTransfers returns transfers with either endpoint in wallets,
	// newest first.
	ListTransfers(ctx context.Context, wallets []WalletID) ([]Transfer, error)
}

type DebtStore interface {
	CreateDebt(ctx context.Context, d Debt) error
	GetDebt(ctx context.Context, id DebtID) (*Debt, error)
	UpdateDebt(ctx context.Context, d Debt) error
	DeleteDebt(ctx context.Context, id DebtID) error

	// ListDebts returns debts of the given wallets, newest first.
	ListDebts(ctx context.Context, wallets []WalletID) ([]Debt, error)
}

// Store is everything a unit of work can read and write.
type Store interface {
	WalletStore
	TransactionStore
	TransferStore
	DebtStore
}

// =============================================================================
// TRANSACTIONAL STORE - Scoped unit of work
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error (or panics), the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
