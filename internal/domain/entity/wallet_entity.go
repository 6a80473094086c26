package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TxDeposit TransactionType = "DEPOSIT"
	TxBid     TransactionType = "BID"
	TxRefund  TransactionType = "REFUND"
)

// Wallet holds a user's spendable balance. The balance is a cached
// aggregate of the transaction ledger and is never negative after a
// committed operation; it stays reconcilable by replaying the ledger.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable, append-only ledger entry. Amount is signed:
// positive for credits (DEPOSIT, REFUND), negative for debits (BID).
// Every wallet balance mutation writes exactly one Transaction in the
// same database transaction.
type Transaction struct {
	ID          string
	WalletID    string
	UserID      string
	ProductID   string // optional auction reference, empty when not bid-related
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	CreatedAt   time.Time
}
