package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/domain/bidding"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

// Sort keys for listing queries.
const (
	SortNewest     = "newest"
	SortEndingSoon = "ending-soon"
	SortPriceAsc   = "price-asc"
	SortPriceDesc  = "price-desc"
	SortMostBids   = "most-bids"
)

// Time-window filters relative to query time.
const (
	TimeEndingSoon = "ending-soon" // ends within 24h
	TimeToday      = "today"
	TimeThisWeek   = "this-week"
)

// ListFilters narrows the public auction listing. The listing is always
// restricted to ACTIVE auctions with a future end time; owner and bidder
// views use BySeller / BidsByUser instead.
type ListFilters struct {
	Category   string // exact match; empty or "all" means no filter
	Search     string // case-insensitive substring over title OR description
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	TimeFilter string
	Sort       string
}

// ClosureResult is the committed outcome of an ACTIVE -> ENDED transition.
// Refund fan-out happens after commit, one independent wallet credit per
// settlement refund.
type ClosureResult struct {
	Auction    *entity.Auction
	Settlement bidding.Settlement
}

// AuctionRepository persists listings and bids. PlaceBid and Close are the
// only mutators after Create; both run as single transactions scoped to
// the auction row.
type AuctionRepository interface {
	Create(ctx context.Context, a *entity.Auction) error
	GetByID(ctx context.Context, id string) (*entity.Auction, error)

	// Bids returns an auction's bids ordered amount desc.
	Bids(ctx context.Context, productID string) ([]entity.Bid, error)

	List(ctx context.Context, f ListFilters) ([]entity.Auction, error)
	BySeller(ctx context.Context, sellerID string) ([]entity.Auction, error)
	BidsByUser(ctx context.Context, userID string) ([]entity.Bid, error)

	// PlaceBid performs the escrow operation atomically: lock the auction
	// row, re-validate against locked state, debit the bidder's wallet by
	// the escrow fraction (BID ledger entry), insert the bid, advance
	// current_price. Either all effects commit or none do.
	PlaceBid(ctx context.Context, productID, bidderID string, amount decimal.Decimal) (*entity.Bid, error)

	// Close transitions ACTIVE -> ENDED, determining the winner from the
	// recorded bids. apperrors.ErrAlreadyEnded when not ACTIVE, which
	// guards refund idempotence.
	Close(ctx context.Context, productID string) (*ClosureResult, error)

	// ExpiredActive returns ids of ACTIVE auctions whose end time has
	// passed, for the optional deadline sweeper.
	ExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
}
