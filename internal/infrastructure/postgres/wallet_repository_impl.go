package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	"github.com/meta556-debug/bid2buy-try/internal/domain/repository"
)

// WalletRepository is the Postgres wallet ledger. Every balance mutation
// locks the wallet row (SELECT ... FOR UPDATE) and writes its Transaction
// in the same database transaction, so concurrent debits against a
// barely-funded wallet serialize and cannot both succeed.
type WalletRepository struct {
	pool *pgxpool.Pool
}

func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	w := &entity.Wallet{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID)
	if err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (r *WalletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	return r.mutate(ctx, userID, amount, typ, description, productID)
}

func (r *WalletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	return r.mutate(ctx, userID, amount.Neg(), typ, description, productID)
}

// mutate applies a signed delta to the wallet balance and appends the
// matching ledger entry atomically. delta < 0 requires sufficient funds.
func (r *WalletRepository) mutate(ctx context.Context, userID string, delta decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	if delta.IsZero() {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrInvalidInput)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := applyLedgerEntry(ctx, tx, userID, delta, typ, description, productID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// applyLedgerEntry is the shared core of wallet mutation, also used by
// the auction repository inside its escrow transaction. The caller owns
// the transaction.
func applyLedgerEntry(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	var walletID string
	var balance decimal.Decimal
	row := tx.QueryRow(ctx, `
		SELECT id, balance FROM wallets WHERE user_id = $1 FOR UPDATE
	`, userID)
	if err := row.Scan(&walletID, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrWalletNotFound
		}
		return fmt.Errorf("lock wallet: %w", err)
	}

	if delta.IsNegative() && balance.LessThan(delta.Neg()) {
		return &apperrors.InsufficientFundsError{Required: delta.Neg(), Balance: balance}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2
	`, delta, walletID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}

	var pid any
	if productID != "" {
		pid = productID
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (wallet_id, user_id, product_id, amount, type, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, walletID, userID, pid, delta, typ, description); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return nil
}

// AddFunds deposits into the wallet, creating it on first use as the
// original registration-less flow did.
func (r *WalletRepository) AddFunds(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrInvalidInput)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Upsert keeps the lazy-creation path race-free.
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}

	if err := applyLedgerEntry(ctx, tx, userID, amount, entity.TxDeposit, "Added funds to wallet", ""); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *WalletRepository) Transactions(ctx context.Context, userID string) ([]entity.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, wallet_id, user_id, COALESCE(product_id::text, ''), amount, type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []entity.Transaction
	for rows.Next() {
		var t entity.Transaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.UserID, &t.ProductID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *WalletRepository) ReplayBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1
	`, userID)
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("replay balance: %w", err)
	}
	return sum, nil
}

var _ repository.WalletRepository = (*WalletRepository)(nil)
