package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits every stored amount carries.
const Scale = 2

// ParseMoney parses a decimal string with at most two fractional digits.
func ParseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid(field, "not a decimal amount: %q", s)
	}
	if err := CheckScale(field, d); err != nil {
		return decimal.Zero, err
	}
	return Cents(d), nil
}

// MustMoney parses s and panics on error. For tests and constants.
func MustMoney(s string) decimal.Decimal {
	d, err := ParseMoney("amount", s)
	if err != nil {
		panic(err)
	}
	return d
}

// CheckScale rejects amounts that cannot be represented in cents exactly.
func CheckScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Round(Scale)) {
		return Invalid(field, "at most %d decimal places allowed", Scale)
	}
	return nil
}

// CheckPositive validates an amount that must be > 0.
func CheckPositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return Invalid(field, "must be greater than zero")
	}
	return CheckScale(field, d)
}

// Cents normalizes d to the canonical scale.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(Scale) }

// FormatMoney renders d with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string { return d.StringFixed(Scale) }

// =============================================================================
// ID GENERATION
// =============================================================================

func NewWalletID() WalletID           { return WalletID(uuid.NewString()) }
func NewTransactionID() TransactionID { return TransactionID(uuid.NewString()) }
func NewTransferID() TransferID       { return TransferID(uuid.NewString()) }
func NewDebtID() DebtID               { return DebtID(uuid.NewString()) }
