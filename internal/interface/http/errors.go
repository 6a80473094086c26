package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
	"github.com/meta556-debug/bid2buy-try/pkg/response"
)

// writeError maps domain errors onto HTTP statuses and writes the error
// envelope. Unknown errors become a 500 with a generic message so
// internals never leak.
func writeError(c *gin.Context, err error) {
	var insufficient *apperrors.InsufficientFundsError

	switch {
	case errors.As(err, &insufficient):
		response.Fail(c, http.StatusUnprocessableEntity, insufficient.Error(), gin.H{
			"required": insufficient.Required.StringFixed(2),
			"balance":  insufficient.Balance.StringFixed(2),
		})
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrWalletNotFound):
		response.Fail(c, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, apperrors.ErrSelfBid):
		response.Fail(c, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, apperrors.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, apperrors.ErrAuctionClosed),
		errors.Is(err, apperrors.ErrBidTooLow),
		errors.Is(err, apperrors.ErrAlreadyEnded):
		response.Fail(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, apperrors.ErrEmailTaken):
		response.Fail(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, apperrors.ErrInvalidInput):
		response.Fail(c, http.StatusBadRequest, err.Error(), nil)
	default:
		response.Fail(c, http.StatusInternalServerError, "something went wrong", nil)
	}
}
