/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger model from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Requests accept amounts as JSON numbers or strings ("12.50"); both go
  through decimal.Decimal, never float64. Responses always render amounts
  as strings with exactly two decimals.

TIMES:
  RFC 3339 in both directions, UTC in responses.

VALIDATION:
  Request bodies are decoded with unknown fields disallowed. Field rules
  live in the finance inputs, not here.

SEE ALSO:
  - handlers.go: Uses these types
  - finance/: Input types the requests convert into
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/wallet-engine/finance"
	"github.com/warp/wallet-engine/ledger"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatOptTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ListDTO wraps an offset/limit window of items.
type ListDTO[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// TotalDTO is a count and sum for one group.
type TotalDTO struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

func toTotalDTO(t finance.Total) TotalDTO {
	return TotalDTO{Count: t.Count, Total: ledger.FormatMoney(t.Total)}
}

// =============================================================================
// WALLETS
// =============================================================================

type WalletDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toWalletDTO(w ledger.Wallet) WalletDTO {
	return WalletDTO{
		ID:        string(w.ID),
		Name:      w.Name,
		Type:      string(w.Type),
		Balance:   ledger.FormatMoney(w.Balance),
		UserID:    string(w.OwnerID),
		CreatedAt: formatTime(w.CreatedAt),
		UpdatedAt: formatTime(w.UpdatedAt),
	}
}

func toWalletDTOs(ws []ledger.Wallet) []WalletDTO {
	dtos := make([]WalletDTO, len(ws))
	for i, w := range ws {
		dtos[i] = toWalletDTO(w)
	}
	return dtos
}

type CreateWalletRequest struct {
	Name    string            `json:"name"`
	Type    ledger.WalletType `json:"type"`
	Balance decimal.Decimal   `json:"balance"`
}

type UpdateWalletRequest struct {
	Name *string            `json:"name"`
	Type *ledger.WalletType `json:"type"`
}

// BalanceRequest is a direct balance operation: add, subtract or set.
type BalanceRequest struct {
	Operation finance.BalanceOp `json:"operation"`
	Amount    decimal.Decimal   `json:"amount"`
}

type WalletSummaryDTO struct {
	TotalWallets     int                 `json:"total_wallets"`
	TotalBalance     string              `json:"total_balance"`
	WalletsByType    map[string]TotalDTO `json:"wallets_by_type"`
	MostRecentWallet *WalletDTO          `json:"most_recent_wallet"`
}

func toWalletSummaryDTO(s *finance.WalletSummary) WalletSummaryDTO {
	dto := WalletSummaryDTO{
		TotalWallets:  s.TotalWallets,
		TotalBalance:  ledger.FormatMoney(s.TotalBalance),
		WalletsByType: make(map[string]TotalDTO, len(s.ByType)),
	}
	for typ, t := range s.ByType {
		dto.WalletsByType[string(typ)] = toTotalDTO(t)
	}
	if s.MostRecentWallet != nil {
		w := toWalletDTO(*s.MostRecentWallet)
		dto.MostRecentWallet = &w
	}
	return dto
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID         string `json:"id"`
	WalletID   string `json:"wallet_id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Category   string `json:"category,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Note       string `json:"note,omitempty"`
	Date       string `json:"date"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:         string(tx.ID),
		WalletID:   string(tx.WalletID),
		Type:       string(tx.Direction),
		Amount:     ledger.FormatMoney(tx.Amount),
		Category:   string(tx.Category),
		CategoryID: tx.CategoryRef,
		Note:       tx.Note,
		Date:       formatTime(tx.Date),
		CreatedAt:  formatTime(tx.CreatedAt),
		UpdatedAt:  formatTime(tx.UpdatedAt),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

type CreateTransactionRequest struct {
	WalletID   ledger.WalletID  `json:"wallet_id"`
	Type       ledger.Direction `json:"type"`
	Amount     decimal.Decimal  `json:"amount"`
	Category   ledger.Category  `json:"category"`
	CategoryID string           `json:"category_id"`
	Note       string           `json:"note"`
	Date       *time.Time       `json:"date"`
}

func (r CreateTransactionRequest) input() finance.CreateTransactionInput {
	return finance.CreateTransactionInput{
		WalletID:    r.WalletID,
		Direction:   r.Type,
		Amount:      r.Amount,
		Category:    r.Category,
		CategoryRef: r.CategoryID,
		Note:        r.Note,
		Date:        r.Date,
	}
}

type UpdateTransactionRequest struct {
	Type       *ledger.Direction `json:"type"`
	Amount     *decimal.Decimal  `json:"amount"`
	Category   *ledger.Category  `json:"category"`
	CategoryID *string           `json:"category_id"`
	Note       *string           `json:"note"`
	Date       *time.Time        `json:"date"`
}

func (r UpdateTransactionRequest) patch() finance.TransactionPatch {
	return finance.TransactionPatch{
		Direction:   r.Type,
		Amount:      r.Amount,
		Category:    r.Category,
		CategoryRef: r.CategoryID,
		Note:        r.Note,
		Date:        r.Date,
	}
}

type BulkTransactionsRequest struct {
	Transactions []CreateTransactionRequest `json:"transactions"`
}

type TransactionListDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	Total        int              `json:"total"`
	Page         int              `json:"page"`
	Size         int              `json:"size"`
	TotalPages   int              `json:"total_pages"`
}

type TransactionSummaryDTO struct {
	TotalTransactions int                 `json:"total_transactions"`
	TotalIncome       string              `json:"total_income"`
	TotalExpenses     string              `json:"total_expenses"`
	NetAmount         string              `json:"net_amount"`
	ByCategory        map[string]TotalDTO `json:"by_category"`
	ByType            map[string]TotalDTO `json:"by_type"`
}

func toTransactionSummaryDTO(s *finance.TransactionSummary) TransactionSummaryDTO {
	dto := TransactionSummaryDTO{
		TotalTransactions: s.TotalTransactions,
		TotalIncome:       ledger.FormatMoney(s.TotalIncome),
		TotalExpenses:     ledger.FormatMoney(s.TotalExpenses),
		NetAmount:         ledger.FormatMoney(s.NetAmount),
		ByCategory:        make(map[string]TotalDTO, len(s.ByCategory)),
		ByType:            make(map[string]TotalDTO, len(s.ByType)),
	}
	for cat, t := range s.ByCategory {
		dto.ByCategory[cat] = toTotalDTO(t)
	}
	for dir, t := range s.ByType {
		dto.ByType[string(dir)] = toTotalDTO(t)
	}
	return dto
}

// =============================================================================
// TRANSFERS
// =============================================================================

type TransferDTO struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	SourceWalletID string `json:"source_wallet_id"`
	TargetWalletID string `json:"target_wallet_id"`
	Description    string `json:"description,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toTransferDTO(t ledger.Transfer) TransferDTO {
	return TransferDTO{
		ID:             string(t.ID),
		Amount:         ledger.FormatMoney(t.Amount),
		SourceWalletID: string(t.SourceWalletID),
		TargetWalletID: string(t.TargetWalletID),
		Description:    t.Description,
		CreatedAt:      formatTime(t.CreatedAt),
	}
}

func toTransferDTOs(ts []ledger.Transfer) []TransferDTO {
	dtos := make([]TransferDTO, len(ts))
	for i, t := range ts {
		dtos[i] = toTransferDTO(t)
	}
	return dtos
}

type CreateTransferRequest struct {
	SourceWalletID ledger.WalletID `json:"source_wallet_id"`
	TargetWalletID ledger.WalletID `json:"target_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
}

type WalletFlowDTO struct {
	Sent     string `json:"sent"`
	Received string `json:"received"`
	Count    int    `json:"count"`
}

type TransferSummaryDTO struct {
	TotalTransfers         int                      `json:"total_transfers"`
	TotalAmountTransferred string                   `json:"total_amount_transferred"`
	ByWallet               map[string]WalletFlowDTO `json:"by_wallet"`
	RecentTransfers        []TransferDTO            `json:"recent_transfers"`
}

func toTransferSummaryDTO(s *finance.TransferSummary) TransferSummaryDTO {
	dto := TransferSummaryDTO{
		TotalTransfers:         s.TotalTransfers,
		TotalAmountTransferred: ledger.FormatMoney(s.TotalAmountTransferred),
		ByWallet:               make(map[string]WalletFlowDTO, len(s.ByWallet)),
		RecentTransfers:        toTransferDTOs(s.RecentTransfers),
	}
	for id, f := range s.ByWallet {
		dto.ByWallet[string(id)] = WalletFlowDTO{
			Sent:     ledger.FormatMoney(f.Sent),
			Received: ledger.FormatMoney(f.Received),
			Count:    f.Count,
		}
	}
	return dto
}

type WalletTransferSummaryDTO struct {
	WalletID      string `json:"wallet_id"`
	WalletName    string `json:"wallet_name"`
	TotalSent     string `json:"total_sent"`
	TotalReceived string `json:"total_received"`
	NetAmount     string `json:"net_amount"`
	TransferCount int    `json:"transfer_count"`
}

func toWalletTransferSummaryDTO(s *finance.WalletTransferSummary) WalletTransferSummaryDTO {
	return WalletTransferSummaryDTO{
		WalletID:      string(s.WalletID),
		WalletName:    s.WalletName,
		TotalSent:     ledger.FormatMoney(s.TotalSent),
		TotalReceived: ledger.FormatMoney(s.TotalReceived),
		NetAmount:     ledger.FormatMoney(s.NetAmount),
		TransferCount: s.TransferCount,
	}
}

// =============================================================================
// DEBTS
// =============================================================================

type DebtDTO struct {
	ID          string  `json:"id"`
	WalletID    string  `json:"wallet_id"`
	Amount      string  `json:"amount"`
	Borrower    string  `json:"borrower"`
	Type        string  `json:"type"`
	IsPaid      bool    `json:"is_paid"`
	DueDate     *string `json:"due_date"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toDebtDTO(d ledger.Debt) DebtDTO {
	return DebtDTO{
		ID:          string(d.ID),
		WalletID:    string(d.WalletID),
		Amount:      ledger.FormatMoney(d.Amount),
		Borrower:    d.Borrower,
		Type:        string(d.Direction),
		IsPaid:      d.Paid,
		DueDate:     formatOptTime(d.DueDate),
		Description: d.Description,
		CreatedAt:   formatTime(d.CreatedAt),
		UpdatedAt:   formatTime(d.UpdatedAt),
	}
}

func toDebtDTOs(ds []ledger.Debt) []DebtDTO {
	dtos := make([]DebtDTO, len(ds))
	for i, d := range ds {
		dtos[i] = toDebtDTO(d)
	}
	return dtos
}

type CreateDebtRequest struct {
	WalletID    ledger.WalletID      `json:"wallet_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Borrower    string               `json:"borrower"`
	Type        ledger.DebtDirection `json:"type"`
	DueDate     *time.Time           `json:"due_date"`
	Description string               `json:"description"`
}

type UpdateDebtRequest struct {
	Amount       *decimal.Decimal      `json:"amount"`
	Borrower     *string               `json:"borrower"`
	Type         *ledger.DebtDirection `json:"type"`
	DueDate      *time.Time            `json:"due_date"`
	ClearDueDate bool                  `json:"clear_due_date"`
	Description  *string               `json:"description"`
	IsPaid       *bool                 `json:"is_paid"`
}

// MarkPaidRequest is optional; an empty body marks the debt paid.
type MarkPaidRequest struct {
	IsPaid *bool `json:"is_paid"`
}

type DebtSummaryDTO struct {
	TotalDebts       int                 `json:"total_debts"`
	TotalAmountOwed  string              `json:"total_amount_owed"`
	TotalAmountGiven string              `json:"total_amount_given"`
	NetPosition      string              `json:"net_position"`
	PaidDebts        int                 `json:"paid_debts"`
	UnpaidDebts      int                 `json:"unpaid_debts"`
	OverdueDebts     int                 `json:"overdue_debts"`
	ByType           map[string]TotalDTO `json:"by_type"`
}

func toDebtSummaryDTO(s *finance.DebtSummary) DebtSummaryDTO {
	dto := DebtSummaryDTO{
		TotalDebts:       s.TotalDebts,
		TotalAmountOwed:  ledger.FormatMoney(s.TotalAmountOwed),
		TotalAmountGiven: ledger.FormatMoney(s.TotalAmountGiven),
		NetPosition:      ledger.FormatMoney(s.NetPosition),
		PaidDebts:        s.PaidDebts,
		UnpaidDebts:      s.UnpaidDebts,
		OverdueDebts:     s.OverdueDebts,
		ByType:           make(map[string]TotalDTO, len(s.ByType)),
	}
	for dir, t := range s.ByType {
		dto.ByType[string(dir)] = toTotalDTO(t)
	}
	return dto
}

// =============================================================================
// SCENARIO DTOs
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
