package application

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	repo "github.com/meta556-debug/bid2buy-try/internal/domain/repository"
)

// WalletService exposes deposits, balances and the transaction ledger.
type WalletService struct {
	Repo   repo.WalletRepository
	Logger *logrus.Logger
}

func NewWalletService(r repo.WalletRepository, logger *logrus.Logger) *WalletService {
	return &WalletService{Repo: r, Logger: logger}
}

type AddFundsResult struct {
	Wallet  *entity.Wallet `json:"wallet"`
	Message string         `json:"message"`
}

// AddFunds credits the caller's wallet, creating it if it does not exist yet.
func (s *WalletService) AddFunds(ctx context.Context, userID string, amount decimal.Decimal) (*AddFundsResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrInvalidInput)
	}
	if err := s.Repo.AddFunds(ctx, userID, amount.Round(2)); err != nil {
		return nil, err
	}
	w, err := s.Repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AddFundsResult{
		Wallet:  w,
		Message: fmt.Sprintf("Successfully added $%s to your wallet", amount.Round(2).StringFixed(2)),
	}, nil
}

func (s *WalletService) Balance(ctx context.Context, userID string) (*entity.Wallet, error) {
	return s.Repo.GetByUserID(ctx, userID)
}

func (s *WalletService) Transactions(ctx context.Context, userID string) ([]entity.Transaction, error) {
	return s.Repo.Transactions(ctx, userID)
}

type ReconcileResult struct {
	UserID   string          `json:"user_id"`
	Cached   decimal.Decimal `json:"cached_balance"`
	Replayed decimal.Decimal `json:"replayed_balance"`
	Match    bool            `json:"match"`
}

// Reconcile replays the ledger and compares the sum against the cached balance.
func (s *WalletService) Reconcile(ctx context.Context, userID string) (*ReconcileResult, error) {
	w, err := s.Repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	replayed, err := s.Repo.ReplayBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &ReconcileResult{
		UserID:   userID,
		Cached:   w.Balance,
		Replayed: replayed,
		Match:    w.Balance.Equal(replayed),
	}
	if !res.Match && s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"cached":   w.Balance.String(),
			"replayed": replayed.String(),
		}).Error("wallet balance drift detected")
	}
	return res, nil
}
