/*
Package finance implements the wallet, transaction, transfer and debt
operations on top of the ledger.

PURPOSE:
  This is the layer the HTTP API calls. Every operation:
  1. Opens exactly one unit of work (ledger.TxStore.WithTx)
  2. Resolves the caller's wallets through the ownership guard
  3. Writes its records and drives a ledger.Sheet for balance changes
  4. Commits the sheet, which checks every touched wallet's final balance

  If any step fails the unit of work rolls back: no record without its
  balance effect, no balance effect without its record.

RETRIES:
  A unit of work that loses an optimistic version race
  (ledger.ErrConcurrentModification) is re-run from scratch, up to
  MaxRetries times. Domain failures (not found, validation, insufficient
  funds) are returned immediately and never retried.

  A retry is the concurrency control for two writers racing on one
  wallet, not a second attempt at a rejected mutation. Each attempt reads
  the wallets afresh and re-checks every invariant, so a mutation the
  engine refused is never resubmitted.

LOGGING:
  Committed balance changes are logged as
    [Ledger] op=<op> wallet=<id> before=<x> after=<y> ops=<engine ops>
  Rejected operations are logged with their reason.

FILES:
  - guard.go:        Ownership checks
  - wallets.go:      Wallet CRUD, direct balance operations, summary
  - transactions.go: Transaction Lifecycle Manager + queries
  - transfers.go:    Transfer Lifecycle Manager + queries
  - debts.go:        Debt records (never touch balances)
  - query.go:        Paging and shared filter helpers
*/
package finance

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/warp/wallet-engine/ledger"
)

// DefaultMaxRetries is the number of extra attempts a unit of work gets
// after a concurrent modification.
const DefaultMaxRetries = 3

// Service exposes every finance operation.
type Service struct {
	store      ledger.TxStore
	logger     *log.Logger
	now        func() time.Time
	maxRetries int
}

type Option func(*Service)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

func NewService(store ledger.TxStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     log.New(io.Discard, "", 0),
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// UNIT OF WORK
// =============================================================================

// unit is the Store handed to an operation, plus the balance mutations it
// committed. Mutations are logged only once the unit of work commits.
type unit struct {
	ledger.Store
	at        time.Time
	mutations []ledger.Mutation
}

// commit checks the sheet and writes its balances through the unit.
func (u *unit) commit(ctx context.Context, sheet *ledger.Sheet) error {
	muts, err := sheet.Commit(ctx, u.Store, u.at)
	if err != nil {
		return err
	}
	u.mutations = append(u.mutations, muts...)
	return nil
}

// run executes fn in a unit of work, retrying on concurrent modification.
func (s *Service) run(ctx context.Context, op string, fn func(u *unit) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		u := &unit{at: s.now()}
		err = s.store.WithTx(ctx, func(st ledger.Store) error {
			u.Store = st
			return fn(u)
		})
		if err == nil {
			s.logMutations(op, u.mutations)
			return nil
		}
		if !ledger.IsRetryable(err) {
			break
		}
		s.logger.Printf("[Ledger] op=%s attempt=%d conflict, retrying", op, attempt+1)
	}

	if ledger.IsClientError(err) || ledger.IsNotFound(err) {
		s.logger.Printf("[Ledger] op=%s rejected: %v", op, err)
	} else {
		s.logger.Printf("[Ledger] op=%s failed: %v", op, err)
	}
	return err
}

func (s *Service) logMutations(op string, muts []ledger.Mutation) {
	for _, m := range muts {
		s.logger.Printf("[Ledger] op=%s wallet=%s before=%s after=%s ops=%v",
			op, m.WalletID, ledger.FormatMoney(m.Before), ledger.FormatMoney(m.After), m.Ops)
	}
}
