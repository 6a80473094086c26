package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/bidding"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	repo "github.com/meta556-debug/bid2buy-try/internal/domain/repository"
)

// memStore is an in-memory stand-in for Postgres used by the service
// tests. Its locking mirrors the row-lock serialization of the real
// repositories: every mutation holds the store mutex for the whole
// validate-debit-insert sequence.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*entity.User
	wallets  map[string]*entity.Wallet
	txs      []entity.Transaction
	auctions map[string]*entity.Auction
	bids     map[string][]entity.Bid
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*entity.User),
		wallets:  make(map[string]*entity.Wallet),
		auctions: make(map[string]*entity.Auction),
		bids:     make(map[string][]entity.Bid),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// appendLedger mutates the wallet and records the entry; callers hold mu.
func (s *memStore) appendLedger(userID string, delta decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	w, ok := s.wallets[userID]
	if !ok {
		return apperrors.ErrWalletNotFound
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return &apperrors.InsufficientFundsError{Required: delta.Neg(), Balance: w.Balance}
	}
	w.Balance = next
	s.txs = append(s.txs, entity.Transaction{
		ID:          s.nextID("tx"),
		WalletID:    w.ID,
		UserID:      userID,
		ProductID:   productID,
		Amount:      delta,
		Type:        typ,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return apperrors.ErrEmailTaken
		}
	}
	u.ID = r.s.nextID("user")
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = u
	r.s.wallets[u.ID] = &entity.Wallet{ID: r.s.nextID("wallet"), UserID: u.ID, Balance: decimal.Zero}
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *u
	cp.UpdatedAt = time.Now().UTC()
	r.s.users[u.ID] = &cp
	return nil
}

type memWalletRepo struct{ s *memStore }

func (r *memWalletRepo) GetByUserID(_ context.Context, userID string) (*entity.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[userID]
	if !ok {
		return nil, apperrors.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *memWalletRepo) Credit(_ context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.appendLedger(userID, amount, typ, description, productID)
}

func (r *memWalletRepo) Debit(_ context.Context, userID string, amount decimal.Decimal, typ entity.TransactionType, description, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.appendLedger(userID, amount.Neg(), typ, description, productID)
}

func (r *memWalletRepo) AddFunds(_ context.Context, userID string, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[userID]; !ok {
		r.s.wallets[userID] = &entity.Wallet{ID: r.s.nextID("wallet"), UserID: userID, Balance: decimal.Zero}
	}
	return r.s.appendLedger(userID, amount, entity.TxDeposit, "Added funds to wallet", "")
}

func (r *memWalletRepo) Transactions(_ context.Context, userID string) ([]entity.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Transaction
	for i := len(r.s.txs) - 1; i >= 0; i-- {
		if r.s.txs[i].UserID == userID {
			out = append(out, r.s.txs[i])
		}
	}
	return out, nil
}

func (r *memWalletRepo) ReplayBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, tx := range r.s.txs {
		if tx.UserID == userID {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

type memAuctionRepo struct{ s *memStore }

func (r *memAuctionRepo) Create(_ context.Context, a *entity.Auction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.nextID("prod")
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	a.Status = entity.StatusActive
	a.CurrentPrice = a.StartingPrice
	cp := *a
	r.s.auctions[a.ID] = &cp
	return nil
}

func (r *memAuctionRepo) GetByID(_ context.Context, id string) (*entity.Auction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.auctions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *a
	cp.BidCount = len(r.s.bids[id])
	return &cp, nil
}

func (r *memAuctionRepo) Bids(_ context.Context, productID string) ([]entity.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.sortedBids(productID), nil
}

// sortedBids returns a copy ordered amount desc, created_at asc; callers hold mu.
func (r *memAuctionRepo) sortedBids(productID string) []entity.Bid {
	bids := append([]entity.Bid(nil), r.s.bids[productID]...)
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Amount.Equal(bids[j].Amount) {
			return bids[i].Amount.GreaterThan(bids[j].Amount)
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return bids
}

func (r *memAuctionRepo) List(_ context.Context, f repo.ListFilters) ([]entity.Auction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	var out []entity.Auction
	for _, a := range r.s.auctions {
		if a.Status != entity.StatusActive || a.EndTime.Before(now) {
			continue
		}
		if f.Category != "" && f.Category != "all" && a.Category != f.Category {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memAuctionRepo) BySeller(_ context.Context, sellerID string) ([]entity.Auction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Auction
	for _, a := range r.s.auctions {
		if a.SellerID == sellerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memAuctionRepo) BidsByUser(_ context.Context, userID string) ([]entity.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.Bid
	for _, bids := range r.s.bids {
		for _, b := range bids {
			if b.UserID == userID {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (r *memAuctionRepo) PlaceBid(_ context.Context, productID, bidderID string, amount decimal.Decimal) (*entity.Bid, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.auctions[productID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if err := bidding.Validate(a, bidderID, amount, amount, time.Now().UTC()); err != nil {
		return nil, err
	}
	w, ok := r.s.wallets[bidderID]
	if !ok {
		return nil, apperrors.ErrWalletNotFound
	}
	if err := bidding.Validate(a, bidderID, amount, w.Balance, time.Now().UTC()); err != nil {
		return nil, err
	}
	escrow := bidding.EscrowAmount(amount)
	desc := fmt.Sprintf("Placed bid on %s", a.Title)
	if err := r.s.appendLedger(bidderID, escrow.Neg(), entity.TxBid, desc, productID); err != nil {
		return nil, err
	}
	b := entity.Bid{
		ID:        r.s.nextID("bid"),
		ProductID: productID,
		UserID:    bidderID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	r.s.bids[productID] = append(r.s.bids[productID], b)
	a.CurrentPrice = amount
	a.UpdatedAt = b.CreatedAt
	return &b, nil
}

func (r *memAuctionRepo) Close(_ context.Context, productID string) (*repo.ClosureResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.auctions[productID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if a.Status != entity.StatusActive {
		return nil, apperrors.ErrAlreadyEnded
	}
	settlement := bidding.Settle(r.sortedBids(productID))
	a.Status = entity.StatusEnded
	a.WinnerID = settlement.WinnerID
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &repo.ClosureResult{Auction: &cp, Settlement: settlement}, nil
}

func (r *memAuctionRepo) ExpiredActive(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for id, a := range r.s.auctions {
		if a.Status == entity.StatusActive && a.EndTime.Before(now) {
			out = append(out, id)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

var (
	_ repo.UserRepository    = (*memUserRepo)(nil)
	_ repo.WalletRepository  = (*memWalletRepo)(nil)
	_ repo.AuctionRepository = (*memAuctionRepo)(nil)
)
