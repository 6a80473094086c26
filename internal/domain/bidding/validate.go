// Package bidding holds the pure decision logic for bid acceptance and
// auction settlement. Nothing here touches storage; callers re-evaluate
// these rules inside the same database transaction that applies them.
package bidding

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

// EscrowFraction is the share of a bid amount reserved from the bidder's
// wallet at bid time. The remainder is settled outside this system.
var EscrowFraction = decimal.NewFromFloat(0.5)

// EscrowAmount returns the wallet reservation for a bid, rounded to
// currency minor units.
func EscrowAmount(bid decimal.Decimal) decimal.Decimal {
	return bid.Mul(EscrowFraction).Round(2)
}

// Validate decides whether a bid may be accepted against the auction's
// current state and the bidder's wallet balance. Checks run in a fixed
// precedence order; the first failing rule wins even when several hold:
//
//	NotFound > AuctionClosed > SelfBid > BidTooLow > InsufficientFunds
//
// The deadline comparison makes closure lazy: a stored ACTIVE status past
// EndTime still rejects as closed.
func Validate(a *entity.Auction, bidderID string, amount, balance decimal.Decimal, now time.Time) error {
	if a == nil {
		return apperrors.ErrNotFound
	}
	if a.Status != entity.StatusActive {
		return apperrors.ErrAuctionClosed
	}
	if a.EndTime.Before(now) {
		return apperrors.ErrAuctionClosed
	}
	if a.SellerID == bidderID {
		return apperrors.ErrSelfBid
	}
	if amount.LessThanOrEqual(a.CurrentPrice) {
		return apperrors.ErrBidTooLow
	}
	if required := EscrowAmount(amount); balance.LessThan(required) {
		return &apperrors.InsufficientFundsError{Required: required, Balance: balance}
	}
	return nil
}
