package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is immutable once created; bids are never edited or withdrawn and
// persist after auction closure as historical record.
type Bid struct {
	ID         string
	ProductID  string
	UserID     string
	BidderName string // joined for display
	Amount     decimal.Decimal
	CreatedAt  time.Time
}
