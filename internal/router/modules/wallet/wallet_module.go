package wallet

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meta556-debug/bid2buy-try/internal/container"
	handlers "github.com/meta556-debug/bid2buy-try/internal/interface/http"
	"github.com/meta556-debug/bid2buy-try/internal/interface/middleware"
	"github.com/meta556-debug/bid2buy-try/pkg/helpers"
)

// Module exposes the wallet under /api/wallet. Everything requires auth:
// balances and ledgers are always scoped to the caller.

type Module struct {
	Handler *handlers.WalletHandler
	JWT     *helpers.JWTManager
}

func New(h *handlers.WalletHandler, jwt *helpers.JWTManager) *Module {
	return &Module{Handler: h, JWT: jwt}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/wallet")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("", m.Handler.Balance)
		auth.POST("/funds", m.Handler.AddFunds)
		auth.GET("/transactions", m.Handler.Transactions)
		auth.GET("/reconcile", m.Handler.Reconcile)
	}
}
