package router

import (
	authsvc "bookbridge-backend/internal/application/auth"
	booklistsvc "bookbridge-backend/internal/application/booklists"
	cartsvc "bookbridge-backend/internal/application/carts"
	chatsvc "bookbridge-backend/internal/application/chat"
	checkoutsvc "bookbridge-backend/internal/application/checkout"
	deliverysvc "bookbridge-backend/internal/application/deliveries"
	directorysvc "bookbridge-backend/internal/application/directory"
	listsvc "bookbridge-backend/internal/application/listings"
	paysvc "bookbridge-backend/internal/application/payments"
	pricingsvc "bookbridge-backend/internal/application/pricing"
	reviewsvc "bookbridge-backend/internal/application/reviews"
	swapsvc "bookbridge-backend/internal/application/swaps"
	userssvc "bookbridge-backend/internal/application/users"
	walletsvc "bookbridge-backend/internal/application/wallets"
	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/infrastructure/database"
	authhandler "bookbridge-backend/internal/interfaces/handlers/auth"
	booklisthandler "bookbridge-backend/internal/interfaces/handlers/booklists"
	carthandler "bookbridge-backend/internal/interfaces/handlers/carts"
	chathandler "bookbridge-backend/internal/interfaces/handlers/chat"
	checkouthandler "bookbridge-backend/internal/interfaces/handlers/checkout"
	deliveryhandler "bookbridge-backend/internal/interfaces/handlers/deliveries"
	directoryhandler "bookbridge-backend/internal/interfaces/handlers/directory"
	healthhandler "bookbridge-backend/internal/interfaces/handlers/health"
	listhandler "bookbridge-backend/internal/interfaces/handlers/listings"
	payhandler "bookbridge-backend/internal/interfaces/handlers/payments"
	reviewhandler "bookbridge-backend/internal/interfaces/handlers/reviews"
	swaphandler "bookbridge-backend/internal/interfaces/handlers/swaps"
	userhandler "bookbridge-backend/internal/interfaces/handlers/users"
	wallethandler "bookbridge-backend/internal/interfaces/handlers/wallets"
	"bookbridge-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp wires middleware, services and routes into a Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{Rdb: rdb}
	if db != nil {
		hh.DB = &gormDBPinger{db: db}
	}
	app.Get("/health/json", hh.JSON)

	var userFinder authsvc.UserFinder
	if db != nil {
		userFinder = &authsvc.GormUserFinder{DB: db}
	}
	ah := &authhandler.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	if db != nil {
		// Users
		uh := &userhandler.Handlers{Service: &userssvc.Service{DB: db}}
		app.Post("/api/v1/users/register", uh.Register)
		ug := app.Group("/api/v1/users", middleware.RequireAuth())
		ug.Get("/me", uh.Me)
		ug.Patch("/me", uh.UpdateMe)
		ug.Get("/:user_id", uh.GetProfile)

		// Listings — browsing is public, mutations need auth
		lh := &listhandler.Handlers{Service: &listsvc.Service{DB: db}}
		app.Get("/api/v1/listings", lh.Search)
		app.Get("/api/v1/listings/mine", middleware.RequireAuth(), lh.MyListings)
		app.Get("/api/v1/listings/:listing_id", lh.GetListing)
		app.Post("/api/v1/listings", middleware.RequireAuth(), lh.CreateListing)
		app.Delete("/api/v1/listings/:listing_id", middleware.RequireAuth(), lh.Deactivate)

		// Cart
		ch := &carthandler.Handlers{Service: &cartsvc.Service{DB: db}}
		cg := app.Group("/api/v1/cart", middleware.RequireAuth())
		cg.Get("/", ch.GetCart)
		cg.Post("/items", ch.AddItem)
		cg.Delete("/items/:listing_id", ch.RemoveItem)

		// Checkout / orders
		coh := &checkouthandler.Handlers{Service: &checkoutsvc.Service{DB: db}}
		app.Post("/api/v1/checkout", middleware.RequireAuth(), coh.Checkout)
		app.Get("/api/v1/orders", middleware.RequireAuth(), coh.MyOrders)

		// Swaps
		sh := &swaphandler.Handlers{Service: &swapsvc.Service{DB: db}}
		sg := app.Group("/api/v1/swaps", middleware.RequireAuth())
		sg.Post("/", sh.Propose)
		sg.Get("/", sh.ListMine)
		sg.Post("/:swap_id/accept", sh.Accept)
		sg.Post("/:swap_id/reject", sh.Reject)

		// Deliveries, priced by Nominatim + OSRM
		pricer := &pricingsvc.Service{
			Geocoder: &pricingsvc.NominatimGeocoder{
				BaseURL:   cfg.NominatimBaseURL,
				Region:    cfg.GeocodeRegion,
				UserAgent: "bookbridge-backend/1.0",
			},
			Routes: &pricingsvc.OSRMClient{BaseURL: cfg.OSRMBaseURL},
			Region: cfg.GeocodeRegion,
		}
		ds := &deliverysvc.Service{DB: db, Pricing: pricer}
		dh := &deliveryhandler.Handlers{Service: ds}
		app.Get("/api/v1/deliveries/track/:code", dh.Track)
		dg := app.Group("/api/v1/deliveries", middleware.RequireAuth())
		dg.Get("/", dh.ListMine)
		dg.Get("/jobs", middleware.RequireRole(domain.RoleRider), dh.ListJobs)
		dg.Post("/:delivery_id/quote", dh.QuoteFee)
		dg.Post("/:delivery_id/accept", middleware.RequireRole(domain.RoleRider), dh.AcceptJob)
		dg.Patch("/:delivery_id/location", middleware.RequireRole(domain.RoleRider), dh.UpdateLocation)
		dg.Post("/:delivery_id/complete", dh.Complete)
		dg.Post("/:delivery_id/cancel", dh.Cancel)

		// Payments
		ps := &paysvc.Service{
			DB: db,
			Mpesa: paysvc.NewMpesaHTTPClient(
				cfg.MpesaBaseURL, cfg.MpesaConsumerKey, cfg.MpesaConsumerSecret,
				cfg.MpesaShortcode, cfg.MpesaPasskey, cfg.MpesaCallbackURL),
			Paystack: paysvc.NewPaystackHTTPClient(
				cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackCallbackURL),
			TestMode: cfg.PaymentTestMode,
		}
		ph := &payhandler.Handlers{Service: ps}
		app.Post("/api/v1/payments/mpesa/callback", ph.MpesaCallback)
		app.Get("/api/v1/payments/paystack/verify", ph.VerifyPaystack)
		pg := app.Group("/api/v1/payments", middleware.RequireAuth())
		pg.Post("/mpesa", ph.InitiateMpesa)
		pg.Post("/paystack", ph.InitiatePaystack)
		pg.Get("/delivery/:delivery_id", ph.GetForDelivery)

		// Wallet
		wh := &wallethandler.Handlers{Service: &walletsvc.Service{DB: db}}
		wg := app.Group("/api/v1/wallet", middleware.RequireAuth())
		wg.Get("/", wh.GetWallet)
		wg.Post("/withdraw", wh.Withdraw)
		wg.Get("/transactions", wh.Transactions)

		// Chat
		chh := &chathandler.Handlers{Service: &chatsvc.Service{DB: db}}
		chg := app.Group("/api/v1/chat", middleware.RequireAuth())
		chg.Get("/conversations", chh.ListConversations)
		chg.Post("/conversations", chh.StartConversation)
		chg.Get("/conversations/:conversation_id/messages", chh.ListMessages)
		chg.Post("/conversations/:conversation_id/messages", chh.SendMessage)

		// Reviews
		rh := &reviewhandler.Handlers{Service: &reviewsvc.Service{DB: db}}
		app.Get("/api/v1/reviews/seller/:seller_id", rh.ListForSeller)
		app.Post("/api/v1/reviews", middleware.RequireAuth(), rh.Create)

		// Book lists
		blh := &booklisthandler.Handlers{Service: &booklistsvc.Service{DB: db}}
		app.Get("/api/v1/booklists/school/:school_id", blh.ListForSchool)
		app.Get("/api/v1/booklists/:list_id", blh.Get)
		app.Post("/api/v1/booklists", middleware.RequireAuth(), middleware.RequireRole(domain.RoleSchool), blh.Create)
		app.Delete("/api/v1/booklists/:list_id", middleware.RequireAuth(), middleware.RequireRole(domain.RoleSchool), blh.Delete)

		// Directory
		dirh := &directoryhandler.Handlers{Service: &directorysvc.Service{DB: db}}
		app.Get("/api/v1/directory/schools", dirh.ListSchools)
		app.Get("/api/v1/directory/bookshops", dirh.ListBookshops)
		app.Get("/api/v1/directory/bookshops/:user_id/inventory", dirh.ShopInventory)
	}

	return app, db, rdb, nil
}
