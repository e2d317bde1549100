/*
Package sqlite provides a SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Persists wallets, transactions, transfers and debts in SQLite. The
  same schema runs on PostgreSQL (store/postgres) with dialect changes
  only.

DRIVERS:
  Two database/sql drivers are registered and either can be selected:
  - "sqlite3": github.com/mattn/go-sqlite3 (cgo)
  - "sqlite":  modernc.org/sqlite (pure Go, used where cgo is off)

KEY TABLES:
  wallets:      cached balance + optimistic version, indexed by owner
  transactions: income/expense entries, FK wallet ON DELETE CASCADE
  transfers:    source/target FKs ON DELETE CASCADE, CHECK source <> target
  debts:        informational records, FK wallet ON DELETE CASCADE

MONEY AND TIME:
  Decimals are stored as TEXT so no float ever touches a balance.
  Timestamps are stored as fixed-width UTC text, so lexical order is
  chronological order and ORDER BY works on the raw column.

CONCURRENCY:
  The pool is capped at one connection (required for ":memory:", where
  every connection would otherwise see its own empty database). A
  sync.RWMutex serializes writers. SaveBalance compares the version
  column and returns ledger.ErrConcurrentModification on mismatch.

USAGE:
  store, err := sqlite.New("sqlite3", "./data/wallets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := finance.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
	_ "modernc.org/sqlite"
)

const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite database with the given driver.
// Use ":memory:" for an in-memory database.
func New(driver, dbPath string) (*Store, error) {
	dsn, err := dataSource(driver, dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func dataSource(driver, dbPath string) (string, error) {
	switch driver {
	case DriverCGO:
		return dbPath + "?_foreign_keys=on&_journal_mode=WAL", nil
	case DriverPureGo:
		return dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", nil
	default:
		return "", fmt.Errorf("unknown sqlite driver %q", driver)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		balance TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_owner
		ON wallets(owner_id, created_at);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		category_ref TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Wallet history listing (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_date
		ON transactions(wallet_id, date DESC);

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		source_wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		target_wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		CHECK (source_wallet_id <> target_wallet_id)
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_source
		ON transfers(source_wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transfers_target
		ON transfers(target_wallet_id);

	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		borrower TEXT NOT NULL,
		direction TEXT NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		due_date TEXT,
		description TEXT NOT NULL DEFAULT '',
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_debts_wallet
		ON debts(wallet_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKED STORE (ledger.Store interface)
// =============================================================================

func (s *Store) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateWallet(ctx, w)
}

func (s *Store) GetWallet(ctx context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetWallet(ctx, id)
}

func (s *Store) ListWallets(ctx context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListWallets(ctx, owner)
}

func (s *Store) UpdateWalletDetails(ctx context.Context, id ledger.WalletID, name string, typ ledger.WalletType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateWalletDetails(ctx, id, name, typ, at)
}

func (s *Store) SaveBalance(ctx context.Context, id ledger.WalletID, balance decimal.Decimal, version int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.SaveBalance(ctx, id, balance, version, at)
}

func (s *Store) DeleteWallet(ctx context.Context, id ledger.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteWallet(ctx, id)
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateTransaction(ctx, tx)
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetTransaction(ctx, id)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateTransaction(ctx, tx)
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteTransaction(ctx, id)
}

func (s *Store) ListTransactions(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListTransactions(ctx, wallets)
}

func (s *Store) CreateTransfer(ctx context.Context, t ledger.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateTransfer(ctx, t)
}

func (s *Store) GetTransfer(ctx context.Context, id ledger.TransferID) (*ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetTransfer(ctx, id)
}

func (s *Store) DeleteTransfer(ctx context.Context, id ledger.TransferID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteTransfer(ctx, id)
}

func (s *Store) ListTransfers(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListTransfers(ctx, wallets)
}

func (s *Store) CreateDebt(ctx context.Context, d ledger.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.CreateDebt(ctx, d)
}

func (s *Store) GetDebt(ctx context.Context, id ledger.DebtID) (*ledger.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.GetDebt(ctx, id)
}

func (s *Store) UpdateDebt(ctx context.Context, d ledger.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.UpdateDebt(ctx, d)
}

func (s *Store) DeleteDebt(ctx context.Context, id ledger.DebtID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return queries{s.db}.DeleteDebt(ctx, id)
}

func (s *Store) ListDebts(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queries{s.db}.ListDebts(ctx, wallets)
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// QUERIES - shared by *sql.DB and *sql.Tx, no locking
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const walletColumns = `id, name, type, balance, owner_id, version, created_at, updated_at`

func (qs queries) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	if w.Version == 0 {
		w.Version = 1
	}
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO wallets (`+walletColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Type, w.Balance.String(), w.OwnerID, w.Version,
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("wallet %s already exists", w.ID)
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (qs queries) GetWallet(ctx context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	w, err := scanWallet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (qs queries) ListWallets(ctx context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE owner_id = ? ORDER BY created_at ASC, id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	var wallets []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (qs queries) UpdateWalletDetails(ctx context.Context, id ledger.WalletID, name string, typ ledger.WalletType, at time.Time) error {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE wallets SET name = ?, type = ?, updated_at = ? WHERE id = ?`,
		name, typ, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return expectRow(res, "wallet", string(id))
}

func (qs queries) SaveBalance(ctx context.Context, id ledger.WalletID, balance decimal.Decimal, version int64, at time.Time) error {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE wallets SET balance = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		balance.String(), formatTime(at), id, version)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	if err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("wallet %s does not exist", id)
	}
	return ledger.ErrConcurrentModification
}

func (qs queries) DeleteWallet(ctx context.Context, id ledger.WalletID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return expectRow(res, "wallet", string(id))
}

func scanWallet(row scanner) (ledger.Wallet, error) {
	var (
		w         ledger.Wallet
		balance   string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Type, &balance, &w.OwnerID, &w.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return w, err
		}
		return w, fmt.Errorf("failed to scan wallet: %w", err)
	}
	var err error
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return w, fmt.Errorf("wallet %s: bad balance %q: %w", w.ID, balance, err)
	}
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return w, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, type, amount, category, category_ref, note, date, wallet_id, created_at, updated_at`

func (qs queries) CreateTransaction(ctx context.Context, tx ledger.Transaction) error {
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Direction, tx.Amount.String(), tx.Category, tx.CategoryRef, tx.Note,
		formatTime(tx.Date), tx.WalletID, formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (qs queries) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (qs queries) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, amount = ?, category = ?, category_ref = ?, note = ?, date = ?, wallet_id = ?, updated_at = ?
		 WHERE id = ?`,
		tx.Direction, tx.Amount.String(), tx.Category, tx.CategoryRef, tx.Note,
		formatTime(tx.Date), tx.WalletID, formatTime(tx.UpdatedAt), tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectRow(res, "transaction", string(tx.ID))
}

func (qs queries) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectRow(res, "transaction", string(id))
}

func (qs queries) ListTransactions(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Transaction, error) {
	if len(wallets) == 0 {
		return nil, nil
	}
	in, args := inClause(wallets)
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE wallet_id IN (`+in+`)
		 ORDER BY date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx        ledger.Transaction
		amount    string
		date      string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&tx.ID, &tx.Direction, &amount, &tx.Category, &tx.CategoryRef, &tx.Note,
		&date, &tx.WalletID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("transaction %s: bad amount %q: %w", tx.ID, amount, err)
	}
	tx.Date = parseTime(date)
	tx.CreatedAt = parseTime(createdAt)
	tx.UpdatedAt = parseTime(updatedAt)
	return tx, nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

const transferColumns = `id, amount, source_wallet_id, target_wallet_id, description, created_at`

func (qs queries) CreateTransfer(ctx context.Context, t ledger.Transfer) error {
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO transfers (`+transferColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.String(), t.SourceWalletID, t.TargetWalletID, t.Description, formatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("transfer %s already exists", t.ID)
		}
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

func (qs queries) GetTransfer(ctx context.Context, id ledger.TransferID) (*ledger.Transfer, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (qs queries) DeleteTransfer(ctx context.Context, id ledger.TransferID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM transfers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}
	return expectRow(res, "transfer", string(id))
}

func (qs queries) ListTransfers(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Transfer, error) {
	if len(wallets) == 0 {
		return nil, nil
	}
	in, args := inClause(wallets)
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers
		 WHERE source_wallet_id IN (`+in+`) OR target_wallet_id IN (`+in+`)
		 ORDER BY created_at DESC, id DESC`, append(args, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransfer(row scanner) (ledger.Transfer, error) {
	var (
		t         ledger.Transfer
		amount    string
		createdAt string
	)
	err := row.Scan(&t.ID, &amount, &t.SourceWalletID, &t.TargetWalletID, &t.Description, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan transfer: %w", err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("transfer %s: bad amount %q: %w", t.ID, amount, err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// =============================================================================
// DEBTS
// =============================================================================

const debtColumns = `id, amount, borrower, direction, paid, due_date, description, wallet_id, created_at, updated_at`

func (qs queries) CreateDebt(ctx context.Context, d ledger.Debt) error {
	_, err := qs.q.ExecContext(ctx,
		`INSERT INTO debts (`+debtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Amount.String(), d.Borrower, d.Direction, d.Paid, nullTime(d.DueDate),
		d.Description, d.WalletID, formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("debt %s already exists", d.ID)
		}
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func (qs queries) GetDebt(ctx context.Context, id ledger.DebtID) (*ledger.Debt, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (qs queries) UpdateDebt(ctx context.Context, d ledger.Debt) error {
	res, err := qs.q.ExecContext(ctx,
		`UPDATE debts
		 SET amount = ?, borrower = ?, direction = ?, paid = ?, due_date = ?, description = ?, wallet_id = ?, updated_at = ?
		 WHERE id = ?`,
		d.Amount.String(), d.Borrower, d.Direction, d.Paid, nullTime(d.DueDate),
		d.Description, d.WalletID, formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	return expectRow(res, "debt", string(d.ID))
}

func (qs queries) DeleteDebt(ctx context.Context, id ledger.DebtID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	return expectRow(res, "debt", string(id))
}

func (qs queries) ListDebts(ctx context.Context, wallets []ledger.WalletID) ([]ledger.Debt, error) {
	if len(wallets) == 0 {
		return nil, nil
	}
	in, args := inClause(wallets)
	rows, err := qs.q.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts
		 WHERE wallet_id IN (`+in+`)
		 ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDebt(row scanner) (ledger.Debt, error) {
	var (
		d         ledger.Debt
		amount    string
		dueDate   sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&d.ID, &amount, &d.Borrower, &d.Direction, &d.Paid, &dueDate,
		&d.Description, &d.WalletID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan debt: %w", err)
	}
	if d.Amount, err = decimal.NewFromString(amount); err != nil {
		return d, fmt.Errorf("debt %s: bad amount %q: %w", d.ID, amount, err)
	}
	if dueDate.Valid {
		due := parseTime(dueDate.String)
		d.DueDate = &due
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func inClause(ids []ledger.WalletID) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

func expectRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s does not exist", entity, id)
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
