package finance

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

// =============================================================================
// INPUTS
// =============================================================================

type CreateWalletInput struct {
	Name           string
	Type           ledger.WalletType
	InitialBalance decimal.Decimal
}

func (in CreateWalletInput) Validate() error {
	if err := validateWalletName(in.Name); err != nil {
		return err
	}
	if err := validateWalletType(in.Type); err != nil {
		return err
	}
	if err := ledger.CheckScale("balance", in.InitialBalance); err != nil {
		return err
	}
	if !ledger.CanHold(in.Type, in.InitialBalance) {
		return ledger.Invalid("balance", "negative balance on non-credit wallet")
	}
	return nil
}

// UpdateWalletInput changes wallet details. Nil fields are left alone.
type UpdateWalletInput struct {
	Name *string
	Type *ledger.WalletType
}

func (in UpdateWalletInput) Validate() error {
	if in.Name != nil {
		if err := validateWalletName(*in.Name); err != nil {
			return err
		}
	}
	if in.Type != nil {
		if err := validateWalletType(*in.Type); err != nil {
			return err
		}
	}
	return nil
}

func validateWalletName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 || utf8.RuneCountInString(name) > 100 {
		return ledger.Invalid("name", "must be 1 to 100 characters")
	}
	return nil
}

// Wallet types are an open set; the known ones are listed in ledger.
func validateWalletType(t ledger.WalletType) error {
	if n := len(t); n == 0 || n > 50 {
		return ledger.Invalid("type", "must be 1 to 50 characters")
	}
	return nil
}

// BalanceOp selects a direct balance operation.
type BalanceOp string

const (
	BalanceAdd      BalanceOp = "add"
	BalanceSubtract BalanceOp = "subtract"
	BalanceSet      BalanceOp = "set"
)

// =============================================================================
// WALLET CRUD
// =============================================================================

func (s *Service) CreateWallet(ctx context.Context, owner ledger.UserID, in CreateWalletInput) (*ledger.Wallet, error) {
	if owner == "" {
		return nil, ledger.Invalid("owner", "required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created ledger.Wallet
	err := s.run(ctx, "create_wallet", func(u *unit) error {
		created = ledger.Wallet{
			ID:        ledger.NewWalletID(),
			Name:      strings.TrimSpace(in.Name),
			Type:      in.Type,
			Balance:   ledger.Cents(in.InitialBalance),
			OwnerID:   owner,
			Version:   1,
			CreatedAt: u.at,
			UpdatedAt: u.at,
		}
		return u.CreateWallet(ctx, created)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("[Ledger] op=create_wallet wallet=%s type=%s balance=%s", created.ID, created.Type, ledger.FormatMoney(created.Balance))
	return &created, nil
}

func (s *Service) GetWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID) (*ledger.Wallet, error) {
	return s.ResolveOwnedWallet(ctx, id, owner)
}

// ListWallets returns one window of the owner's wallets, oldest first, and
// the total number of wallets.
func (s *Service) ListWallets(ctx context.Context, owner ledger.UserID, w Window) ([]ledger.Wallet, int, error) {
	wallets, err := s.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, 0, err
	}
	return window(wallets, w), len(wallets), nil
}

func (s *Service) WalletsByType(ctx context.Context, owner ledger.UserID, typ ledger.WalletType) ([]ledger.Wallet, error) {
	wallets, err := s.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := []ledger.Wallet{}
	for _, w := range wallets {
		if w.Type == typ {
			out = append(out, w)
		}
	}
	return out, nil
}

// UpdateWallet changes name and/or type. The balance is never touched, and
// a type change that the current balance does not allow is rejected.
func (s *Service) UpdateWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID, in UpdateWalletInput) (*ledger.Wallet, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *ledger.Wallet
	err := s.run(ctx, "update_wallet", func(u *unit) error {
		w, err := ownedWallet(ctx, u, id, owner, "wallet")
		if err != nil {
			return err
		}
		name, typ := w.Name, w.Type
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			typ = *in.Type
		}
		if !ledger.CanHold(typ, w.Balance) {
			return ledger.Invalid("type", "wallet with balance %s cannot become %s", ledger.FormatMoney(w.Balance), typ)
		}
		if err := u.UpdateWalletDetails(ctx, id, name, typ, u.at); err != nil {
			return err
		}
		updated, err = u.GetWallet(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteWallet removes a wallet whose balance is exactly zero. Its
// transactions, debts and transfers go with it.
func (s *Service) DeleteWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID) error {
	return s.run(ctx, "delete_wallet", func(u *unit) error {
		w, err := ownedWallet(ctx, u, id, owner, "wallet")
		if err != nil {
			return err
		}
		if !w.Balance.IsZero() {
			return ledger.Invalid("balance", "balance must be zero to delete wallet (current balance %s)", ledger.FormatMoney(w.Balance))
		}
		return u.DeleteWallet(ctx, id)
	})
}

// =============================================================================
// DIRECT BALANCE OPERATIONS
// =============================================================================

// CreditWallet adds amount to the balance.
func (s *Service) CreditWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID, amount decimal.Decimal) (*ledger.Wallet, error) {
	return s.adjust(ctx, "credit_wallet", id, owner, func(sheet *ledger.Sheet) error {
		return sheet.Credit(id, amount)
	})
}

// DebitWallet subtracts amount from the balance. Non-credit wallets cannot
// go below zero.
func (s *Service) DebitWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID, amount decimal.Decimal) (*ledger.Wallet, error) {
	return s.adjust(ctx, "debit_wallet", id, owner, func(sheet *ledger.Sheet) error {
		return sheet.Debit(id, amount)
	})
}

// SetWalletBalance overwrites the balance. Negative amounts are rejected
// for every wallet type.
func (s *Service) SetWalletBalance(ctx context.Context, id ledger.WalletID, owner ledger.UserID, amount decimal.Decimal) (*ledger.Wallet, error) {
	return s.adjust(ctx, "set_wallet_balance", id, owner, func(sheet *ledger.Sheet) error {
		return sheet.Set(id, amount)
	})
}

// UpdateBalance dispatches an add, subtract or set operation.
func (s *Service) UpdateBalance(ctx context.Context, id ledger.WalletID, owner ledger.UserID, op BalanceOp, amount decimal.Decimal) (*ledger.Wallet, error) {
	switch op {
	case BalanceAdd:
		return s.CreditWallet(ctx, id, owner, amount)
	case BalanceSubtract:
		return s.DebitWallet(ctx, id, owner, amount)
	case BalanceSet:
		return s.SetWalletBalance(ctx, id, owner, amount)
	default:
		return nil, ledger.Invalid("operation", "must be add, subtract or set")
	}
}

func (s *Service) adjust(ctx context.Context, op string, id ledger.WalletID, owner ledger.UserID, apply func(*ledger.Sheet) error) (*ledger.Wallet, error) {
	var result ledger.Wallet
	err := s.run(ctx, op, func(u *unit) error {
		w, err := ownedWallet(ctx, u, id, owner, "wallet")
		if err != nil {
			return err
		}
		sheet := ledger.NewSheet(*w)
		if err := apply(sheet); err != nil {
			return err
		}
		if err := u.commit(ctx, sheet); err != nil {
			return err
		}
		result, _ = sheet.Wallet(id)
		if len(u.mutations) > 0 {
			result.UpdatedAt = u.at
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

type WalletSummary struct {
	TotalWallets     int
	TotalBalance     decimal.Decimal
	ByType           map[ledger.WalletType]Total
	MostRecentWallet *ledger.Wallet
}

func (s *Service) WalletSummary(ctx context.Context, owner ledger.UserID) (*WalletSummary, error) {
	wallets, err := s.store.ListWallets(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("wallet summary: %w", err)
	}

	sum := &WalletSummary{
		TotalWallets: len(wallets),
		TotalBalance: decimal.Zero,
		ByType:       make(map[ledger.WalletType]Total),
	}
	for i, w := range wallets {
		sum.TotalBalance = sum.TotalBalance.Add(w.Balance)
		t := sum.ByType[w.Type]
		t.add(w.Balance)
		sum.ByType[w.Type] = t
		if sum.MostRecentWallet == nil || !w.CreatedAt.Before(sum.MostRecentWallet.CreatedAt) {
			sum.MostRecentWallet = &wallets[i]
		}
	}
	return sum, nil
}
