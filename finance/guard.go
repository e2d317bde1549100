package finance

import (
	"context"

	"github.com/warp/wallet-engine/ledger"
)

// =============================================================================
// OWNERSHIP GUARD
// =============================================================================
//
// Missing and foreign entities produce the same *ledger.NotFoundError.
// Callers never learn whether an ID exists under another user.

// ResolveOwnedWallet returns the wallet if owner owns it.
func (s *Service) ResolveOwnedWallet(ctx context.Context, id ledger.WalletID, owner ledger.UserID) (*ledger.Wallet, error) {
	return ownedWallet(ctx, s.store, id, owner, "wallet")
}

func ownedWallet(ctx context.Context, st ledger.Store, id ledger.WalletID, owner ledger.UserID, entity string) (*ledger.Wallet, error) {
	if id == "" || owner == "" {
		return nil, &ledger.NotFoundError{Entity: entity, ID: string(id)}
	}
	w, err := st.GetWallet(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil || w.OwnerID != owner {
		return nil, &ledger.NotFoundError{Entity: entity, ID: string(id)}
	}
	return w, nil
}

// ownedTransaction resolves a transaction through its wallet.
func ownedTransaction(ctx context.Context, st ledger.Store, id ledger.TransactionID, owner ledger.UserID) (*ledger.Transaction, *ledger.Wallet, error) {
	notFound := &ledger.NotFoundError{Entity: "transaction", ID: string(id)}
	tx, err := st.GetTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if tx == nil {
		return nil, nil, notFound
	}
	w, err := ownedWallet(ctx, st, tx.WalletID, owner, "transaction")
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, nil, notFound
		}
		return nil, nil, err
	}
	return tx, w, nil
}

// visibleTransfer resolves a transfer the caller owns at least one side of.
// The endpoint wallets are returned for whichever sides exist.
func visibleTransfer(ctx context.Context, st ledger.Store, id ledger.TransferID, owner ledger.UserID) (*ledger.Transfer, []ledger.Wallet, error) {
	notFound := &ledger.NotFoundError{Entity: "transfer", ID: string(id)}
	t, err := st.GetTransfer(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if t == nil || owner == "" {
		return nil, nil, notFound
	}

	var (
		wallets []ledger.Wallet
		visible bool
	)
	for _, wid := range []ledger.WalletID{t.SourceWalletID, t.TargetWalletID} {
		w, err := st.GetWallet(ctx, wid)
		if err != nil {
			return nil, nil, err
		}
		if w == nil {
			continue
		}
		if w.OwnerID == owner {
			visible = true
		}
		wallets = append(wallets, *w)
	}
	if !visible {
		return nil, nil, notFound
	}
	return t, wallets, nil
}

// ownedDebt resolves a debt through its wallet.
func ownedDebt(ctx context.Context, st ledger.Store, id ledger.DebtID, owner ledger.UserID) (*ledger.Debt, error) {
	notFound := &ledger.NotFoundError{Entity: "debt", ID: string(id)}
	d, err := st.GetDebt(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, notFound
	}
	if _, err := ownedWallet(ctx, st, d.WalletID, owner, "debt"); err != nil {
		if ledger.IsNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}
	return d, nil
}

// ownedWalletIDs lists the caller's wallet IDs, optionally narrowed to one.
func ownedWalletIDs(ctx context.Context, st ledger.Store, owner ledger.UserID, only ledger.WalletID) ([]ledger.WalletID, error) {
	if only != "" {
		w, err := ownedWallet(ctx, st, only, owner, "wallet")
		if err != nil {
			return nil, err
		}
		return []ledger.WalletID{w.ID}, nil
	}
	wallets, err := st.ListWallets(ctx, owner)
	if err != nil {
		return nil, err
	}
	ids := make([]ledger.WalletID, len(wallets))
	for i, w := range wallets {
		ids[i] = w.ID
	}
	return ids, nil
}
