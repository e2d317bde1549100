// Package store provides an in-memory ledger.TxStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state memoryState
}

type memoryState struct {
	wallets      map[ledger.WalletID]ledger.Wallet
	transactions map[ledger.TransactionID]ledger.Transaction
	transfers    map[ledger.TransferID]ledger.Transfer
	debts        map[ledger.DebtID]ledger.Debt
}

func newState() memoryState {
	return memoryState{
		wallets:      make(map[ledger.WalletID]ledger.Wallet),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		transfers:    make(map[ledger.TransferID]ledger.Transfer),
		debts:        make(map[ledger.DebtID]ledger.Debt),
	}
}

func NewMemory() *Memory {
	return &Memory{state: newState()}
}

// =============================================================================
// WALLETS
// =============================================================================

func (m *Memory) CreateWallet(_ context.Context, w ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createWallet(w)
}

func (m *Memory) GetWallet(_ context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getWallet(id), nil
}

func (m *Memory) ListWallets(_ context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listWallets(owner), nil
}

func (m *Memory) UpdateWalletDetails(_ context.Context, id ledger.WalletID, name string, typ ledger.WalletType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateWalletDetails(id, name, typ, at)
}

func (m *Memory) SaveBalance(_ context.Context, id ledger.WalletID, balance decimal.Decimal, version int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.saveBalance(id, balance, version, at)
}

func (m *Memory) DeleteWallet(_ context.Context, id ledger.WalletID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteWallet(id)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) CreateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createTransaction(tx)
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getTransaction(id), nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateTransaction(tx)
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteTransaction(id)
}

func (m *Memory) ListTransactions(_ context.Context, wallets []ledger.WalletID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listTransactions(wallets), nil
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (m *Memory) CreateTransfer(_ context.Context, t ledger.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createTransfer(t)
}

func (m *Memory) GetTransfer(_ context.Context, id ledger.TransferID) (*ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getTransfer(id), nil
}

func (m *Memory) DeleteTransfer(_ context.Context, id ledger.TransferID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteTransfer(id)
}

func (m *Memory) ListTransfers(_ context.Context, wallets []ledger.WalletID) ([]ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listTransfers(wallets), nil
}

// =============================================================================
// DEBTS
// =============================================================================

func (m *Memory) CreateDebt(_ context.Context, d ledger.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.createDebt(d)
}

func (m *Memory) GetDebt(_ context.Context, id ledger.DebtID) (*ledger.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getDebt(id), nil
}

func (m *Memory) UpdateDebt(_ context.Context, d ledger.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.updateDebt(d)
}

func (m *Memory) DeleteDebt(_ context.Context, id ledger.DebtID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.deleteDebt(id)
}

func (m *Memory) ListDebts(_ context.Context, wallets []ledger.WalletID) ([]ledger.Debt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.listDebts(wallets), nil
}

// =============================================================================
// STATE OPERATIONS - caller holds the lock
// =============================================================================

func (s *memoryState) createWallet(w ledger.Wallet) error {
	if _, ok := s.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	if w.Version == 0 {
		w.Version = 1
	}
	s.wallets[w.ID] = w
	return nil
}

func (s *memoryState) getWallet(id ledger.WalletID) *ledger.Wallet {
	w, ok := s.wallets[id]
	if !ok {
		return nil
	}
	return &w
}

func (s *memoryState) listWallets(owner ledger.UserID) []ledger.Wallet {
	var out []ledger.Wallet
	for _, w := range s.wallets {
		if w.OwnerID == owner {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *memoryState) updateWalletDetails(id ledger.WalletID, name string, typ ledger.WalletType, at time.Time) error {
	w, ok := s.wallets[id]
	if !ok {
		return fmt.Errorf("wallet %s does not exist", id)
	}
	w.Name, w.Type, w.UpdatedAt = name, typ, at
	s.wallets[id] = w
	return nil
}

func (s *memoryState) saveBalance(id ledger.WalletID, balance decimal.Decimal, version int64, at time.Time) error {
	w, ok := s.wallets[id]
	if !ok {
		return fmt.Errorf("wallet %s does not exist", id)
	}
	if w.Version != version {
		return ledger.ErrConcurrentModification
	}
	w.Balance, w.Version, w.UpdatedAt = balance, version+1, at
	s.wallets[id] = w
	return nil
}

func (s *memoryState) deleteWallet(id ledger.WalletID) error {
	if _, ok := s.wallets[id]; !ok {
		return fmt.Errorf("wallet %s does not exist", id)
	}
	delete(s.wallets, id)
	for txID, tx := range s.transactions {
		if tx.WalletID == id {
			delete(s.transactions, txID)
		}
	}
	for debtID, d := range s.debts {
		if d.WalletID == id {
			delete(s.debts, debtID)
		}
	}
	for trID, t := range s.transfers {
		if t.Involves(id) {
			delete(s.transfers, trID)
		}
	}
	return nil
}

func (s *memoryState) createTransaction(tx ledger.Transaction) error {
	if _, ok := s.wallets[tx.WalletID]; !ok {
		return fmt.Errorf("transaction %s: wallet %s does not exist", tx.ID, tx.WalletID)
	}
	if _, ok := s.transactions[tx.ID]; ok {
		return fmt.Errorf("transaction %s already exists", tx.ID)
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *memoryState) getTransaction(id ledger.TransactionID) *ledger.Transaction {
	tx, ok := s.transactions[id]
	if !ok {
		return nil
	}
	return &tx
}

func (s *memoryState) updateTransaction(tx ledger.Transaction) error {
	if _, ok := s.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %s does not exist", tx.ID)
	}
	s.transactions[tx.ID] = tx
	return nil
}

func (s *memoryState) deleteTransaction(id ledger.TransactionID) error {
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %s does not exist", id)
	}
	delete(s.transactions, id)
	return nil
}

func (s *memoryState) listTransactions(wallets []ledger.WalletID) []ledger.Transaction {
	in := walletSet(wallets)
	var out []ledger.Transaction
	for _, tx := range s.transactions {
		if in[tx.WalletID] {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (s *memoryState) createTransfer(t ledger.Transfer) error {
	if t.SourceWalletID == t.TargetWalletID {
		return fmt.Errorf("transfer %s: source and target are the same wallet", t.ID)
	}
	for _, id := range []ledger.WalletID{t.SourceWalletID, t.TargetWalletID} {
		if _, ok := s.wallets[id]; !ok {
			return fmt.Errorf("transfer %s: wallet %s does not exist", t.ID, id)
		}
	}
	if _, ok := s.transfers[t.ID]; ok {
		return fmt.Errorf("transfer %s already exists", t.ID)
	}
	s.transfers[t.ID] = t
	return nil
}

func (s *memoryState) getTransfer(id ledger.TransferID) *ledger.Transfer {
	t, ok := s.transfers[id]
	if !ok {
		return nil
	}
	return &t
}

func (s *memoryState) deleteTransfer(id ledger.TransferID) error {
	if _, ok := s.transfers[id]; !ok {
		return fmt.Errorf("transfer %s does not exist", id)
	}
	delete(s.transfers, id)
	return nil
}

func (s *memoryState) listTransfers(wallets []ledger.WalletID) []ledger.Transfer {
	in := walletSet(wallets)
	var out []ledger.Transfer
	for _, t := range s.transfers {
		if in[t.SourceWalletID] || in[t.TargetWalletID] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *memoryState) createDebt(d ledger.Debt) error {
	if _, ok := s.wallets[d.WalletID]; !ok {
		return fmt.Errorf("debt %s: wallet %s does not exist", d.ID, d.WalletID)
	}
	if _, ok := s.debts[d.ID]; ok {
		return fmt.Errorf("debt %s already exists", d.ID)
	}
	s.debts[d.ID] = d
	return nil
}

func (s *memoryState) getDebt(id ledger.DebtID) *ledger.Debt {
	d, ok := s.debts[id]
	if !ok {
		return nil
	}
	return &d
}

func (s *memoryState) updateDebt(d ledger.Debt) error {
	if _, ok := s.debts[d.ID]; !ok {
		return fmt.Errorf("debt %s does not exist", d.ID)
	}
	if _, ok := s.wallets[d.WalletID]; !ok {
		return fmt.Errorf("debt %s: wallet %s does not exist", d.ID, d.WalletID)
	}
	s.debts[d.ID] = d
	return nil
}

func (s *memoryState) deleteDebt(id ledger.DebtID) error {
	if _, ok := s.debts[id]; !ok {
		return fmt.Errorf("debt %s does not exist", id)
	}
	delete(s.debts, id)
	return nil
}

func (s *memoryState) listDebts(wallets []ledger.WalletID) []ledger.Debt {
	in := walletSet(wallets)
	var out []ledger.Debt
	for _, d := range s.debts {
		if in[d.WalletID] {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func walletSet(ids []ledger.WalletID) map[ledger.WalletID]bool {
	set := make(map[ledger.WalletID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The store lock is held for the whole of fn, so units of work are serial.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.state.clone()
	committed := false
	defer func() {
		if !committed {
			tm.state = snapshot
		}
	}()

	if err := fn(&txMemoryView{state: &tm.state}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s memoryState) clone() memoryState {
	c := newState()
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.debts {
		c.debts[k] = v
	}
	return c
}

// txMemoryView is the Store handed to WithTx callbacks. It skips locking:
// WithTx already holds the write lock.
type txMemoryView struct {
	state *memoryState
}

func (v *txMemoryView) CreateWallet(_ context.Context, w ledger.Wallet) error {
	return v.state.createWallet(w)
}

func (v *txMemoryView) GetWallet(_ context.Context, id ledger.WalletID) (*ledger.Wallet, error) {
	return v.state.getWallet(id), nil
}

func (v *txMemoryView) ListWallets(_ context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	return v.state.listWallets(owner), nil
}

func (v *txMemoryView) UpdateWalletDetails(_ context.Context, id ledger.WalletID, name string, typ ledger.WalletType, at time.Time) error {
	return v.state.updateWalletDetails(id, name, typ, at)
}

func (v *txMemoryView) SaveBalance(_ context.Context, id ledger.WalletID, balance decimal.Decimal, version int64, at time.Time) error {
	return v.state.saveBalance(id, balance, version, at)
}

func (v *txMemoryView) DeleteWallet(_ context.Context, id ledger.WalletID) error {
	return v.state.deleteWallet(id)
}

func (v *txMemoryView) CreateTransaction(_ context.Context, tx ledger.Transaction) error {
	return v.state.createTransaction(tx)
}

func (v *txMemoryView) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return v.state.getTransaction(id), nil
}

func (v *txMemoryView) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	return v.state.updateTransaction(tx)
}

func (v *txMemoryView) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	return v.state.deleteTransaction(id)
}

func (v *txMemoryView) ListTransactions(_ context.Context, wallets []ledger.WalletID) ([]ledger.Transaction, error) {
	return v.state.listTransactions(wallets), nil
}

func (v *txMemoryView) CreateTransfer(_ context.Context, t ledger.Transfer) error {
	return v.state.createTransfer(t)
}

func (v *txMemoryView) GetTransfer(_ context.Context, id ledger.TransferID) (*ledger.Transfer, error) {
	return v.state.getTransfer(id), nil
}

func (v *txMemoryView) DeleteTransfer(_ context.Context, id ledger.TransferID) error {
	return v.state.deleteTransfer(id)
}

func (v *txMemoryView) ListTransfers(_ context.Context, wallets []ledger.WalletID) ([]ledger.Transfer, error) {
	return v.state.listTransfers(wallets), nil
}

func (v *txMemoryView) CreateDebt(_ context.Context, d ledger.Debt) error {
	return v.state.createDebt(d)
}

func (v *txMemoryView) GetDebt(_ context.Context, id ledger.DebtID) (*ledger.Debt, error) {
	return v.state.getDebt(id), nil
}

func (v *txMemoryView) UpdateDebt(_ context.Context, d ledger.Debt) error {
	return v.state.updateDebt(d)
}

func (v *txMemoryView) DeleteDebt(_ context.Context, id ledger.DebtID) error {
	return v.state.deleteDebt(id)
}

func (v *txMemoryView) ListDebts(_ context.Context, wallets []ledger.WalletID) ([]ledger.Debt, error) {
	return v.state.listDebts(wallets), nil
}
