package auction

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meta556-debug/bid2buy-try/internal/container"
	handlers "github.com/meta556-debug/bid2buy-try/internal/interface/http"
	"github.com/meta556-debug/bid2buy-try/internal/interface/middleware"
	"github.com/meta556-debug/bid2buy-try/pkg/helpers"
)

// Module exposes listings under /api/auctions.
// Public: GET /api/auctions, GET /api/auctions/search, GET /api/auctions/:id
// Protected: create, bid, end, my-listings, my-bids

type Module struct {
	Handler *handlers.AuctionHandler
	JWT     *helpers.JWTManager
}

func New(h *handlers.AuctionHandler, jwt *helpers.JWTManager) *Module {
	return &Module{Handler: h, JWT: jwt}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	browseLimiter := middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	pub := rg.Group("/auctions")
	pub.Use(browseLimiter)
	{
		pub.GET("", m.Handler.List)
		pub.GET("/search", m.Handler.Search)
		pub.GET("/:id", m.Handler.Get)
	}

	auth := rg.Group("/auctions")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("", m.Handler.Create)
		auth.POST("/:id/bids", m.Handler.PlaceBid)
		auth.POST("/:id/end", m.Handler.EndEarly)
	}

	me := rg.Group("/me")
	me.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		me.GET("/auctions", m.Handler.MyListings)
		me.GET("/bids", m.Handler.MyBids)
	}
}
