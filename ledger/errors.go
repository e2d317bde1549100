/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All domain errors in one place. Callers match them with errors.Is against
  the sentinels, or errors.As against the structured types when they need
  the details (which wallet, how much is missing).

ERROR CATEGORIES:
  1. NotFound - entity missing OR not owned by the caller. The two are
     deliberately indistinguishable.
  2. Validation - structurally invalid input
  3. InsufficientFunds - a forward debit would overdraw a non-credit wallet
  4. IrrecoverableReversal - undoing a transaction/transfer would overdraw
  5. ConcurrentModification - a wallet changed under the unit of work

None of these leave partial writes: they are raised inside a unit of work
and cause it to roll back.

SEE ALSO:
  - sheet.go: Raises InsufficientFunds and IrrecoverableReversal
  - api/errors.go: Maps errors to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an entity does not exist or is not owned
	// by the acting user.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for structurally invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a debit would push a non-credit
	// wallet below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIrrecoverableReversal is returned when undoing a previously applied
	// effect would push a non-credit wallet below zero.
	ErrIrrecoverableReversal = errors.New("irrecoverable reversal")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that a wallet was written by someone else since it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind of entity that could not be resolved.
type NotFoundError struct {
	Entity string // "wallet", "source wallet", "transaction", ...
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found or not owned by user", e.Entity)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError provides details about a balance shortage.
type InsufficientFundsError struct {
	WalletID  WalletID
	Available decimal.Decimal
	Requested decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet %s: available %s, requested %s, shortfall %s",
		e.WalletID, FormatMoney(e.Available), FormatMoney(e.Requested), FormatMoney(e.Shortfall))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// ReversalError is raised when deleting a transfer or transaction would
// leave a non-credit wallet negative.
type ReversalError struct {
	Kind     string // "transfer" or "transaction"
	Side     string // "target" for transfers, empty for transactions
	WalletID WalletID
	Balance  decimal.Decimal // balance the reversal would produce
}

func (e *ReversalError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("cannot reverse %s: insufficient funds in wallet", e.Kind)
	}
	return fmt.Sprintf("cannot reverse %s: insufficient funds in %s wallet", e.Kind, e.Side)
}

func (e *ReversalError) Unwrap() error { return ErrIrrecoverableReversal }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the whole unit of work may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to the caller's input or
// the current state of their wallets.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrIrrecoverableReversal)
}

// IsNotFound returns true if the error indicates a missing or foreign entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
