package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

// WalletRepository is the wallet ledger. Credit and Debit are each atomic
// per wallet: the balance mutation and its Transaction row commit
// together, and concurrent callers against the same wallet are serialized
// (row lock in the Postgres implementation). Debit never leaves a
// negative balance; it fails with InsufficientFundsError instead.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error)

	// Credit adds amount (> 0) to the wallet and appends a ledger entry
	// with positive signed amount. apperrors.ErrWalletNotFound when the
	// user has no wallet.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error

	// Debit removes amount (> 0) from the wallet and appends a ledger
	// entry with negative signed amount.
	Debit(ctx context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error

	// AddFunds deposits into the wallet, creating it lazily on first use.
	AddFunds(ctx context.Context, userID string, amount decimal.Decimal) error

	// Transactions returns the user's ledger, newest first.
	Transactions(ctx context.Context, userID string) ([]entity.Transaction, error)

	// ReplayBalance recomputes the balance by summing the ledger. Audit
	// tool: the result must equal the cached Wallet.Balance.
	ReplayBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}
