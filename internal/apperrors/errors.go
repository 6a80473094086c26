package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the auction domain. Handlers map these onto HTTP
// status codes; services wrap them with %w and callers match with errors.Is.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrNotFound        = errors.New("not found")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuctionClosed   = errors.New("auction has ended")
	ErrSelfBid         = errors.New("cannot bid on your own auction")
	ErrBidTooLow       = errors.New("bid amount must be higher than current price")
	ErrAlreadyEnded    = errors.New("auction has already ended")
	ErrEmailTaken      = errors.New("user with this email already exists")

	// ErrVerificationUnavailable is returned when the external moderation
	// service cannot produce a verdict. Auction creation proceeds unverified.
	ErrVerificationUnavailable = errors.New("verification service unavailable")
)

// InsufficientFundsError carries the amount the wallet is short of so the
// message can be rendered directly to the bidder.
type InsufficientFundsError struct {
	Required decimal.Decimal
	Balance  decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("You need at least $%s in your wallet to place this bid", e.Required.StringFixed(2))
}

// IsInsufficientFunds reports whether err is an InsufficientFundsError.
func IsInsufficientFunds(err error) bool {
	var ife *InsufficientFundsError
	return errors.As(err, &ife)
}
