package finance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Window is an offset/limit slice of a list.
type Window struct {
	Offset int
	Limit  int
}

func (w Window) normalize() Window {
	if w.Offset < 0 {
		w.Offset = 0
	}
	if w.Limit <= 0 {
		w.Limit = DefaultLimit
	}
	if w.Limit > MaxLimit {
		w.Limit = MaxLimit
	}
	return w
}

func window[T any](items []T, w Window) []T {
	w = w.normalize()
	if w.Offset >= len(items) {
		return []T{}
	}
	end := w.Offset + w.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[w.Offset:end]
}

// AmountRange is an inclusive range; nil bounds are open.
type AmountRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

func (r AmountRange) contains(d decimal.Decimal) bool {
	if r.Min != nil && d.LessThan(*r.Min) {
		return false
	}
	if r.Max != nil && d.GreaterThan(*r.Max) {
		return false
	}
	return true
}

func (r AmountRange) validate() error {
	if r.Min != nil && r.Min.IsNegative() {
		return ledger.Invalid("min_amount", "must not be negative")
	}
	if r.Max != nil && r.Max.IsNegative() {
		return ledger.Invalid("max_amount", "must not be negative")
	}
	if r.Min != nil && r.Max != nil && r.Min.GreaterThan(*r.Max) {
		return ledger.Invalid("min_amount", "must not exceed max_amount")
	}
	return nil
}

// TimeRange is an inclusive range; nil bounds are open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

func (r TimeRange) validate(field string) error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return ledger.Invalid(field, "start must not be after end")
	}
	return nil
}

// containsFold reports whether substr is in s, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Total is a count and a sum.
type Total struct {
	Count int
	Total decimal.Decimal
}

func (t *Total) add(d decimal.Decimal) {
	t.Count++
	t.Total = t.Total.Add(d)
}
