package finance

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

// Debts are informational. Nothing in this file touches a wallet balance;
// the wallet is only checked for ownership.

type CreateDebtInput struct {
	WalletID    ledger.WalletID
	Amount      decimal.Decimal
	Borrower    string
	Direction   ledger.DebtDirection
	DueDate     *time.Time
	Description string
}

func (in CreateDebtInput) Validate() error {
	if in.WalletID == "" {
		return ledger.Invalid("wallet_id", "required")
	}
	if err := ledger.CheckPositive("amount", in.Amount); err != nil {
		return err
	}
	if err := validateBorrower(in.Borrower); err != nil {
		return err
	}
	if !in.Direction.Valid() {
		return ledger.Invalid("type", "must be owed or given")
	}
	return validateDescription(in.Description)
}

// DebtPatch is a partial update. Nil fields are left alone; ClearDueDate
// removes the due date.
type DebtPatch struct {
	Amount       *decimal.Decimal
	Borrower     *string
	Direction    *ledger.DebtDirection
	DueDate      *time.Time
	ClearDueDate bool
	Description  *string
	Paid         *bool
}

func (p DebtPatch) Validate() error {
	if p.Amount != nil {
		if err := ledger.CheckPositive("amount", *p.Amount); err != nil {
			return err
		}
	}
	if p.Borrower != nil {
		if err := validateBorrower(*p.Borrower); err != nil {
			return err
		}
	}
	if p.Direction != nil && !p.Direction.Valid() {
		return ledger.Invalid("type", "must be owed or given")
	}
	if p.Description != nil {
		return validateDescription(*p.Description)
	}
	return nil
}

func (p DebtPatch) apply(d *ledger.Debt) {
	if p.Amount != nil {
		d.Amount = ledger.Cents(*p.Amount)
	}
	if p.Borrower != nil {
		d.Borrower = strings.TrimSpace(*p.Borrower)
	}
	if p.Direction != nil {
		d.Direction = *p.Direction
	}
	if p.ClearDueDate {
		d.DueDate = nil
	} else if p.DueDate != nil {
		due := p.DueDate.UTC()
		d.DueDate = &due
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Paid != nil {
		d.Paid = *p.Paid
	}
}

func validateBorrower(b string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(b))
	if n == 0 || utf8.RuneCountInString(b) > 100 {
		return ledger.Invalid("borrower", "must be 1 to 100 characters")
	}
	return nil
}

func validateDescription(d string) error {
	if utf8.RuneCountInString(d) > MaxDescriptionLength {
		return ledger.Invalid("description", "must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// =============================================================================
// CRUD
// =============================================================================

func (s *Service) CreateDebt(ctx context.Context, owner ledger.UserID, in CreateDebtInput) (*ledger.Debt, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created ledger.Debt
	err := s.run(ctx, "create_debt", func(u *unit) error {
		if _, err := ownedWallet(ctx, u, in.WalletID, owner, "wallet"); err != nil {
			return err
		}
		created = ledger.Debt{
			ID:          ledger.NewDebtID(),
			Amount:      ledger.Cents(in.Amount),
			Borrower:    strings.TrimSpace(in.Borrower),
			Direction:   in.Direction,
			Description: in.Description,
			WalletID:    in.WalletID,
			CreatedAt:   u.at,
			UpdatedAt:   u.at,
		}
		if in.DueDate != nil {
			due := in.DueDate.UTC()
			created.DueDate = &due
		}
		return u.CreateDebt(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Service) GetDebt(ctx context.Context, id ledger.DebtID, owner ledger.UserID) (*ledger.Debt, error) {
	return ownedDebt(ctx, s.store, id, owner)
}

func (s *Service) UpdateDebt(ctx context.Context, id ledger.DebtID, owner ledger.UserID, patch DebtPatch) (*ledger.Debt, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated ledger.Debt
	err := s.run(ctx, "update_debt", func(u *unit) error {
		d, err := ownedDebt(ctx, u, id, owner)
		if err != nil {
			return err
		}
		updated = *d
		patch.apply(&updated)
		updated.UpdatedAt = u.at
		return u.UpdateDebt(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MarkDebtPaid sets the paid flag.
func (s *Service) MarkDebtPaid(ctx context.Context, id ledger.DebtID, owner ledger.UserID, paid bool) (*ledger.Debt, error) {
	return s.UpdateDebt(ctx, id, owner, DebtPatch{Paid: &paid})
}

func (s *Service) DeleteDebt(ctx context.Context, id ledger.DebtID, owner ledger.UserID) error {
	return s.run(ctx, "delete_debt", func(u *unit) error {
		if _, err := ownedDebt(ctx, u, id, owner); err != nil {
			return err
		}
		return u.DeleteDebt(ctx, id)
	})
}

// =============================================================================
// QUERIES
// =============================================================================

type DebtFilter struct {
	WalletID    ledger.WalletID
	Direction   ledger.DebtDirection
	Paid        *bool
	Borrower    string // substring, case-insensitive
	OverdueOnly bool
}

func (f DebtFilter) matches(d ledger.Debt, now time.Time) bool {
	switch {
	case f.Direction != "" && d.Direction != f.Direction:
		return false
	case f.Paid != nil && d.Paid != *f.Paid:
		return false
	case f.Borrower != "" && !containsFold(d.Borrower, f.Borrower):
		return false
	case f.OverdueOnly && !d.Overdue(now):
		return false
	}
	return true
}

// ListDebts returns one window of the caller's matching debts, newest
// first, and the number of matches.
func (s *Service) ListDebts(ctx context.Context, owner ledger.UserID, f DebtFilter, w Window) ([]ledger.Debt, int, error) {
	if f.Direction != "" && !f.Direction.Valid() {
		return nil, 0, ledger.Invalid("type", "must be owed or given")
	}
	ids, err := ownedWalletIDs(ctx, s.store, owner, f.WalletID)
	if err != nil {
		return nil, 0, err
	}
	all, err := s.store.ListDebts(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	matched := make([]ledger.Debt, 0, len(all))
	for _, d := range all {
		if f.matches(d, now) {
			matched = append(matched, d)
		}
	}
	return window(matched, w), len(matched), nil
}

type DebtSummary struct {
	TotalDebts       int
	TotalAmountOwed  decimal.Decimal // others owe the user
	TotalAmountGiven decimal.Decimal // the user owes others
	NetPosition      decimal.Decimal // owed - given
	PaidDebts        int
	UnpaidDebts      int
	OverdueDebts     int
	ByType           map[ledger.DebtDirection]Total
}

// DebtSummary totals the caller's debts, paid ones included.
func (s *Service) DebtSummary(ctx context.Context, owner ledger.UserID) (*DebtSummary, error) {
	ids, err := ownedWalletIDs(ctx, s.store, owner, "")
	if err != nil {
		return nil, err
	}
	debts, err := s.store.ListDebts(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sum := &DebtSummary{
		TotalDebts:       len(debts),
		TotalAmountOwed:  decimal.Zero,
		TotalAmountGiven: decimal.Zero,
		ByType:           make(map[ledger.DebtDirection]Total),
	}
	for _, d := range debts {
		t := sum.ByType[d.Direction]
		t.add(d.Amount)
		sum.ByType[d.Direction] = t

		switch d.Direction {
		case ledger.DebtOwed:
			sum.TotalAmountOwed = sum.TotalAmountOwed.Add(d.Amount)
		case ledger.DebtGiven:
			sum.TotalAmountGiven = sum.TotalAmountGiven.Add(d.Amount)
		}
		if d.Paid {
			sum.PaidDebts++
		} else {
			sum.UnpaidDebts++
		}
		if d.Overdue(now) {
			sum.OverdueDebts++
		}
	}
	sum.NetPosition = sum.TotalAmountOwed.Sub(sum.TotalAmountGiven)
	return sum, nil
}
