package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meta556-debug/bid2buy-try/internal/apperrors"
)

func writeErrorStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	writeError(c, err)
	return w.Code, w.Body.String()
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not_found", apperrors.ErrNotFound, http.StatusNotFound},
		{"wallet_not_found", apperrors.ErrWalletNotFound, http.StatusNotFound},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden},
		{"self_bid", apperrors.ErrSelfBid, http.StatusForbidden},
		{"unauthenticated", apperrors.ErrUnauthenticated, http.StatusUnauthorized},
		{"auction_closed", apperrors.ErrAuctionClosed, http.StatusConflict},
		{"bid_too_low", apperrors.ErrBidTooLow, http.StatusConflict},
		{"already_ended", apperrors.ErrAlreadyEnded, http.StatusConflict},
		{"email_taken", apperrors.ErrEmailTaken, http.StatusConflict},
		{"invalid_input", apperrors.ErrInvalidInput, http.StatusBadRequest},
		{"wrapped_forbidden", fmt.Errorf("%w: you can only end your own auctions", apperrors.ErrForbidden), http.StatusForbidden},
		{"unknown", errors.New("pg connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := writeErrorStatus(t, tc.err)
			require.Equal(t, tc.status, status)
		})
	}
}

func TestWriteErrorInsufficientFunds(t *testing.T) {
	err := &apperrors.InsufficientFundsError{
		Required: decimal.RequireFromString("40"),
		Balance:  decimal.RequireFromString("20"),
	}
	status, body := writeErrorStatus(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, body, `"required":"40.00"`)
	require.Contains(t, body, `"balance":"20.00"`)
}

func TestWriteErrorHidesInternals(t *testing.T) {
	_, body := writeErrorStatus(t, errors.New("pq: deadlock detected"))
	require.NotContains(t, body, "deadlock")
	require.Contains(t, body, "something went wrong")
}
