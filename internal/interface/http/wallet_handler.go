package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meta556-debug/bid2buy-try/internal/application"
	"github.com/meta556-debug/bid2buy-try/internal/interface/middleware"
	"github.com/meta556-debug/bid2buy-try/pkg/response"
	"github.com/meta556-debug/bid2buy-try/pkg/validation"
)

type WalletHandler struct {
	Svc    *application.WalletService
	Logger *logrus.Logger
}

func NewWalletHandler(svc *application.WalletService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{Svc: svc, Logger: logger}
}

type addFundsRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *WalletHandler) AddFunds(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req addFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.AddFunds(c.Request.Context(), uid, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, res.Message, nil)
}

func (h *WalletHandler) Balance(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	w, err := h.Svc.Balance(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, w, "wallet", nil)
}

func (h *WalletHandler) Transactions(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	txs, err := h.Svc.Transactions(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, txs, "transactions", nil)
}

func (h *WalletHandler) Reconcile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	res, err := h.Svc.Reconcile(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "wallet reconciled"
	if !res.Match {
		msg = "wallet balance drift detected"
	}
	response.Success(c, http.StatusOK, res, msg, nil)
}
