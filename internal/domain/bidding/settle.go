package bidding

import (
	"github.com/shopspring/decimal"

	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
)

// Refund is a pending credit owed to a losing bidder after closure.
type Refund struct {
	BidID  string
	UserID string
	Amount decimal.Decimal
}

// Settlement is the outcome of closing one auction.
type Settlement struct {
	WinnerID   string // empty when the auction received no bids
	WinningBid *entity.Bid
	Refunds    []Refund
}

// Settle determines the winner and the refund fan-out for an auction's
// bids. The winner is the bidder of the highest-amount bid, earliest bid
// winning a tie. Every bid whose bidder is not the winner is refunded its
// escrowed fraction; the winner's escrow (including escrow from their own
// earlier, lower bids) is retained toward final settlement.
func Settle(bids []entity.Bid) Settlement {
	if len(bids) == 0 {
		return Settlement{}
	}

	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) ||
			(b.Amount.Equal(winning.Amount) && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}

	s := Settlement{WinnerID: winning.UserID, WinningBid: &winning}
	for _, b := range bids {
		if b.UserID == winning.UserID {
			continue
		}
		s.Refunds = append(s.Refunds, Refund{
			BidID:  b.ID,
			UserID: b.UserID,
			Amount: EscrowAmount(b.Amount),
		})
	}
	return s
}

// RefundTotal sums the settlement's pending refunds; audit helper used to
// check money conservation against the ledger.
func (s Settlement) RefundTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}
