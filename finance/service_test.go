package finance_test

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
	"github.com/warp/wallet-engine/ledger/store"
	"github.com/warp/wallet-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	alice ledger.UserID = "alice"
	bob   ledger.UserID = "bob"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return ledger.MustMoney(s) }

func ptr[T any](v T) *T { return &v }

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, ledger.FormatMoney(got))
}

type backend struct {
	name string
	open func(t *testing.T) ledger.TxStore
}

// backends returns every store the service tests run against.
func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) ledger.TxStore { return store.NewTxMemory() }},
		{"sqlite", func(t *testing.T) ledger.TxStore {
			s, err := sqlite.New(sqlite.DriverPureGo, ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

// tickingClock advances one second per reading so records get distinct,
// ordered timestamps.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newService(st ledger.TxStore, opts ...finance.Option) *finance.Service {
	clock := &tickingClock{now: testNow}
	opts = append([]finance.Option{finance.WithClock(clock.Now)}, opts...)
	return finance.NewService(st, opts...)
}

// forEachBackend runs fn once per store implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, svc *finance.Service)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newService(b.open(t)))
		})
	}
}

func mustWallet(t *testing.T, svc *finance.Service, owner ledger.UserID, typ ledger.WalletType, balance string) *ledger.Wallet {
	t.Helper()
	w, err := svc.CreateWallet(context.Background(), owner, finance.CreateWalletInput{
		Name: "Wallet " + string(typ), Type: typ, InitialBalance: money(balance),
	})
	require.NoError(t, err)
	return w
}

func balanceOf(t *testing.T, svc *finance.Service, id ledger.WalletID, owner ledger.UserID) decimal.Decimal {
	t.Helper()
	w, err := svc.GetWallet(context.Background(), id, owner)
	require.NoError(t, err)
	return w.Balance
}

// =============================================================================
// RETRIES AND LOGGING
// =============================================================================

// conflictingStore fails the first n units of work with a version conflict.
type conflictingStore struct {
	ledger.TxStore
	mu        sync.Mutex
	conflicts int
	attempts  int
}

func (c *conflictingStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	c.mu.Lock()
	c.attempts++
	conflict := c.conflicts > 0
	if conflict {
		c.conflicts--
	}
	c.mu.Unlock()

	if conflict {
		return c.TxStore.WithTx(ctx, func(st ledger.Store) error {
			if err := fn(st); err != nil {
				return err
			}
			return ledger.ErrConcurrentModification
		})
	}
	return c.TxStore.WithTx(ctx, fn)
}

func TestService_RetriesConcurrentModification(t *testing.T) {
	// GIVEN: a store whose first two units of work lose a version race
	// WHEN: crediting a wallet
	// THEN: the credit is applied exactly once after the third attempt
	mem := store.NewTxMemory()
	svc := newService(mem)
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

	cs := &conflictingStore{TxStore: mem, conflicts: 2}
	retrying := newService(cs, finance.WithMaxRetries(3))

	got, err := retrying.CreditWallet(context.Background(), w.ID, alice, money("25.00"))
	require.NoError(t, err)
	assertMoney(t, "125.00", got.Balance)
	assert.Equal(t, 3, cs.attempts)
	assertMoney(t, "125.00", balanceOf(t, svc, w.ID, alice))
}

func TestService_GivesUpAfterMaxRetries(t *testing.T) {
	mem := store.NewTxMemory()
	svc := newService(mem)
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

	cs := &conflictingStore{TxStore: mem, conflicts: 10}
	retrying := newService(cs, finance.WithMaxRetries(1))

	_, err := retrying.DebitWallet(context.Background(), w.ID, alice, money("10.00"))
	assert.ErrorIs(t, err, ledger.ErrConcurrentModification)
	assert.Equal(t, 2, cs.attempts)
	assertMoney(t, "100.00", balanceOf(t, svc, w.ID, alice))
}

func TestService_DomainErrorsAreNotRetried(t *testing.T) {
	mem := store.NewTxMemory()
	svc := newService(mem)
	w := mustWallet(t, svc, alice, ledger.WalletChecking, "10.00")

	cs := &conflictingStore{TxStore: mem}
	retrying := newService(cs)

	_, err := retrying.DebitWallet(context.Background(), w.ID, alice, money("50.00"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, 1, cs.attempts)
}

func TestService_LogsCommittedMutations(t *testing.T) {
	var buf bytes.Buffer
	svc := newService(store.NewTxMemory(), finance.WithLogger(log.New(&buf, "", 0)))
	w := mustWallet(t, svc, alice, ledger.WalletSavings, "10.00")

	_, err := svc.CreditWallet(context.Background(), w.ID, alice, money("5.00"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "op=credit_wallet wallet="+string(w.ID)+" before=10.00 after=15.00")

	buf.Reset()
	_, err = svc.DebitWallet(context.Background(), w.ID, alice, money("500.00"))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "op=debit_wallet rejected")
	assert.NotContains(t, buf.String(), "after=")
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestService_ConcurrentDebits_NeverOverdraw(t *testing.T) {
	// GIVEN: a checking wallet with 100.00
	// WHEN: 20 goroutines each debit 10.00 at once
	// THEN: exactly 10 succeed and the balance ends at 0.00
	forEachBackend(t, func(t *testing.T, svc *finance.Service) {
		w := mustWallet(t, svc, alice, ledger.WalletChecking, "100.00")

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.DebitWallet(context.Background(), w.ID, alice, money("10.00"))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else if assert.ErrorIs(t, err, ledger.ErrInsufficientFunds) {
					rejected++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)
		assert.Equal(t, 10, rejected)
		assertMoney(t, "0.00", balanceOf(t, svc, w.ID, alice))
	})
}
