package router

import (
	"github.com/meta556-debug/bid2buy-try/internal/application"
	"github.com/meta556-debug/bid2buy-try/internal/container"
	pginfra "github.com/meta556-debug/bid2buy-try/internal/infrastructure/postgres"
	handlers "github.com/meta556-debug/bid2buy-try/internal/interface/http"
	auctionmodule "github.com/meta556-debug/bid2buy-try/internal/router/modules/auction"
	debugmodule "github.com/meta556-debug/bid2buy-try/internal/router/modules/debug"
	usermodule "github.com/meta556-debug/bid2buy-try/internal/router/modules/user"
	walletmodule "github.com/meta556-debug/bid2buy-try/internal/router/modules/wallet"
)

// Services groups the constructed application services so the caller can
// reuse them outside HTTP (the deadline sweeper).
type Services struct {
	Users    *application.UserService
	Wallets  *application.WalletService
	Auctions *application.AuctionService
}

func buildServices() Services {
	cfg := container.GetConfig()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	walletRepo := pginfra.NewWalletRepository(container.GetPGPool())
	auctionRepo := pginfra.NewAuctionRepository(container.GetPGPool())

	var pub application.JobPublisher
	if p := container.GetRabbitPub(); p != nil {
		pub = p
	}

	userSvc := application.NewUserService(
		userRepo,
		container.GetJWT(),
		container.GetGCS(),
		cfg.GCSBucket,
		container.GetRedis(),
		container.GetLogger(),
		pub,
	)

	walletSvc := application.NewWalletService(walletRepo, container.GetLogger())

	auctionSvc := application.NewAuctionService(application.AuctionService{
		Auctions:     auctionRepo,
		Wallets:      walletRepo,
		Users:        userRepo,
		GCS:          container.GetGCS(),
		GCSBucket:    cfg.GCSBucket,
		Redis:        container.GetRedis(),
		ES:           container.GetES(),
		ESIndex:      cfg.ESAuctionsIndex,
		Publisher:    pub,
		Logger:       container.GetLogger(),
		ListCacheTTL: cfg.ListingCacheTTL,
	})
	if v := container.GetVerifier(); v != nil {
		auctionSvc.Verifier = v
	}

	return Services{Users: userSvc, Wallets: walletSvc, Auctions: auctionSvc}
}

// InitModules builds all feature modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) Services {
	svcs := buildServices()
	cfg := container.GetConfig()

	userHandler := handlers.NewUserHandler(svcs.Users, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	walletHandler := handlers.NewWalletHandler(svcs.Wallets, container.GetLogger())
	auctionHandler := handlers.NewAuctionHandler(svcs.Auctions, container.GetLogger())

	r.Add(usermodule.New(userHandler, container.GetJWT()))
	r.Add(walletmodule.New(walletHandler, container.GetJWT()))
	r.Add(auctionmodule.New(auctionHandler, container.GetJWT()))
	r.Add(debugmodule.New(container.GetPGPool(), container.GetRedis()))
	return svcs
}
