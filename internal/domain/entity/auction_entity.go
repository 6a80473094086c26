package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is the persisted listing state. ENDED is terminal.
type AuctionStatus string

const (
	StatusActive AuctionStatus = "ACTIVE"
	StatusEnded  AuctionStatus = "ENDED"
)

// MediaType distinguishes image and video listings. It is a field, not a
// separate listing kind; all auctions share one shape.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Auction is a single listing (the "products" table). CurrentPrice equals
// the highest accepted bid amount, or StartingPrice while no bids exist,
// and is monotonically non-decreasing. WinnerID is set only at closure.
type Auction struct {
	ID            string
	SellerID      string
	SellerName    string // joined for display, not persisted on products
	WinnerID      string // empty until closure; empty after closure when no bids
	Title         string
	Description   string
	Category      string
	Condition     string
	Location      string
	StartingPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	MediaType     MediaType
	Images        []string
	VideoURL      string
	AIVerified    bool
	Status        AuctionStatus
	StartTime     time.Time
	EndTime       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	BidCount int // derived (count of bids), filled by queries
}

// Ended reports whether the auction is past its deadline or already
// flipped to ENDED. The persisted status alone is not authoritative
// because deadline closure is evaluated lazily.
func (a *Auction) Ended(now time.Time) bool {
	return a.Status != StatusActive || a.EndTime.Before(now)
}
