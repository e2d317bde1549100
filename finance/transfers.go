/*
transfers.go - Transfer Lifecycle Manager

PURPOSE:
  Moves money between two wallets of the same user.

    Create:  source -amount, target +amount, insert row
    Delete:  target -amount, source +amount, delete row

  Both balance writes and the record write are one unit of work. On
  create the source is checked (unless credit); on delete the target is
  checked (unless credit), because the reversal takes money back out of
  it and it may have been spent in the meantime.

STATE MACHINE:
  Proposed -> Created -> Deleted (transfers are never updated)

ACCESS:
  Creating requires owning BOTH wallets. Reading and deleting require
  owning EITHER endpoint.
*/
package finance

import (
	"context"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/ledger"
)

const (
	MaxDescriptionLength = 500
	RecentTransfersCount = 5
)

type CreateTransferInput struct {
	SourceWalletID ledger.WalletID
	TargetWalletID ledger.WalletID
	Amount         decimal.Decimal
	Description    string
}

func (in CreateTransferInput) Validate() error {
	if in.SourceWalletID == "" {
		return ledger.Invalid("source_wallet_id", "required")
	}
	if in.TargetWalletID == "" {
		return ledger.Invalid("target_wallet_id", "required")
	}
	if in.SourceWalletID == in.TargetWalletID {
		return ledger.Invalid("target_wallet_id", "source and target wallets cannot be the same")
	}
	if err := ledger.CheckPositive("amount", in.Amount); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return ledger.Invalid("description", "must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// CreateTransfer debits the source, credits the target and records the
// transfer atomically.
func (s *Service) CreateTransfer(ctx context.Context, owner ledger.UserID, in CreateTransferInput) (*ledger.Transfer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created ledger.Transfer
	err := s.run(ctx, "create_transfer", func(u *unit) error {
		source, err := ownedWallet(ctx, u, in.SourceWalletID, owner, "source wallet")
		if err != nil {
			return err
		}
		target, err := ownedWallet(ctx, u, in.TargetWalletID, owner, "target wallet")
		if err != nil {
			return err
		}

		created = ledger.Transfer{
			ID:             ledger.NewTransferID(),
			Amount:         ledger.Cents(in.Amount),
			SourceWalletID: source.ID,
			TargetWalletID: target.ID,
			Description:    in.Description,
			CreatedAt:      u.at,
		}
		sheet := ledger.NewSheet(*source, *target)
		if err := sheet.ApplyTransfer(created); err != nil {
			return err
		}
		if err := u.CreateTransfer(ctx, created); err != nil {
			return err
		}
		return u.commit(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTransfer reverses a transfer the caller can see. If the target has
// since spent the money, the delete fails with a *ledger.ReversalError and
// nothing changes.
func (s *Service) DeleteTransfer(ctx context.Context, id ledger.TransferID, owner ledger.UserID) error {
	return s.run(ctx, "delete_transfer", func(u *unit) error {
		t, wallets, err := visibleTransfer(ctx, u, id, owner)
		if err != nil {
			return err
		}
		sheet := ledger.NewSheet(wallets...)
		if err := sheet.ReverseTransfer(*t); err != nil {
			return err
		}
		if err := u.DeleteTransfer(ctx, id); err != nil {
			return err
		}
		return u.commit(ctx, sheet)
	})
}

// =============================================================================
// QUERIES
// =============================================================================

type TransferFilter struct {
	SourceWalletID ledger.WalletID
	TargetWalletID ledger.WalletID
	WalletID       ledger.WalletID // either side
	Amounts        AmountRange
	Dates          TimeRange // on CreatedAt
}

func (f TransferFilter) Validate() error {
	if err := f.Dates.validate("date_from"); err != nil {
		return err
	}
	return f.Amounts.validate()
}

func (f TransferFilter) matches(t ledger.Transfer) bool {
	switch {
	case f.SourceWalletID != "" && t.SourceWalletID != f.SourceWalletID:
		return false
	case f.TargetWalletID != "" && t.TargetWalletID != f.TargetWalletID:
		return false
	case f.WalletID != "" && !t.Involves(f.WalletID):
		return false
	case !f.Amounts.contains(t.Amount):
		return false
	case !f.Dates.contains(t.CreatedAt):
		return false
	}
	return true
}

func (s *Service) GetTransfer(ctx context.Context, id ledger.TransferID, owner ledger.UserID) (*ledger.Transfer, error) {
	t, _, err := visibleTransfer(ctx, s.store, id, owner)
	return t, err
}

// ListTransfers returns one window of the caller's matching transfers,
// newest first, and the number of matches.
func (s *Service) ListTransfers(ctx context.Context, owner ledger.UserID, f TransferFilter, w Window) ([]ledger.Transfer, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	all, err := s.userTransfers(ctx, owner)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]ledger.Transfer, 0, len(all))
	for _, t := range all {
		if f.matches(t) {
			matched = append(matched, t)
		}
	}
	return window(matched, w), len(matched), nil
}

// WalletTransfers lists transfers touching one owned wallet.
func (s *Service) WalletTransfers(ctx context.Context, walletID ledger.WalletID, owner ledger.UserID) ([]ledger.Transfer, error) {
	if _, err := s.ResolveOwnedWallet(ctx, walletID, owner); err != nil {
		return nil, err
	}
	return s.store.ListTransfers(ctx, []ledger.WalletID{walletID})
}

func (s *Service) userTransfers(ctx context.Context, owner ledger.UserID) ([]ledger.Transfer, error) {
	ids, err := ownedWalletIDs(ctx, s.store, owner, "")
	if err != nil {
		return nil, err
	}
	return s.store.ListTransfers(ctx, ids)
}

// =============================================================================
// SUMMARIES
// =============================================================================

// WalletFlow is money sent and received by one wallet.
type WalletFlow struct {
	Sent     decimal.Decimal
	Received decimal.Decimal
	Count    int
}

type TransferSummary struct {
	TotalTransfers         int
	TotalAmountTransferred decimal.Decimal
	ByWallet               map[ledger.WalletID]WalletFlow
	RecentTransfers        []ledger.Transfer
}

// TransferSummary aggregates every transfer the caller is involved in.
// ByWallet only carries the caller's own wallets.
func (s *Service) TransferSummary(ctx context.Context, owner ledger.UserID) (*TransferSummary, error) {
	ids, err := ownedWalletIDs(ctx, s.store, owner, "")
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfers(ctx, ids)
	if err != nil {
		return nil, err
	}

	owned := make(map[ledger.WalletID]bool, len(ids))
	for _, id := range ids {
		owned[id] = true
	}

	sum := &TransferSummary{
		TotalTransfers:         len(transfers),
		TotalAmountTransferred: decimal.Zero,
		ByWallet:               make(map[ledger.WalletID]WalletFlow),
	}
	for _, t := range transfers {
		sum.TotalAmountTransferred = sum.TotalAmountTransferred.Add(t.Amount)
		if owned[t.SourceWalletID] {
			f := sum.ByWallet[t.SourceWalletID]
			f.Sent = f.Sent.Add(t.Amount)
			f.Count++
			sum.ByWallet[t.SourceWalletID] = f
		}
		if owned[t.TargetWalletID] {
			f := sum.ByWallet[t.TargetWalletID]
			f.Received = f.Received.Add(t.Amount)
			f.Count++
			sum.ByWallet[t.TargetWalletID] = f
		}
	}
	sum.RecentTransfers = window(transfers, Window{Limit: RecentTransfersCount})
	return sum, nil
}

type WalletTransferSummary struct {
	WalletID      ledger.WalletID
	WalletName    string
	TotalSent     decimal.Decimal
	TotalReceived decimal.Decimal
	NetAmount     decimal.Decimal // received - sent
	TransferCount int
}

func (s *Service) WalletTransferSummary(ctx context.Context, walletID ledger.WalletID, owner ledger.UserID) (*WalletTransferSummary, error) {
	w, err := s.ResolveOwnedWallet(ctx, walletID, owner)
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfers(ctx, []ledger.WalletID{walletID})
	if err != nil {
		return nil, err
	}

	sum := &WalletTransferSummary{
		WalletID:      w.ID,
		WalletName:    w.Name,
		TotalSent:     decimal.Zero,
		TotalReceived: decimal.Zero,
		TransferCount: len(transfers),
	}
	for _, t := range transfers {
		if t.SourceWalletID == walletID {
			sum.TotalSent = sum.TotalSent.Add(t.Amount)
		}
		if t.TargetWalletID == walletID {
			sum.TotalReceived = sum.TotalReceived.Add(t.Amount)
		}
	}
	sum.NetAmount = sum.TotalReceived.Sub(sum.TotalSent)
	return sum, nil
}
