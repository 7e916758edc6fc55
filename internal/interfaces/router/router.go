package router

import (
	"net/http"

	"savemyfoods-backend/internal/application/emails"
	"savemyfoods-backend/internal/application/expiry"
	healthsvc "savemyfoods-backend/internal/application/health"
	lesvc "savemyfoods-backend/internal/application/listingevents"
	listsvc "savemyfoods-backend/internal/application/listings"
	notifsvc "savemyfoods-backend/internal/application/notifications"
	uploadsvc "savemyfoods-backend/internal/application/uploads"
	"savemyfoods-backend/internal/config"
	"savemyfoods-backend/internal/infrastructure/database"
	"savemyfoods-backend/internal/infrastructure/store"
	authhandler "savemyfoods-backend/internal/interfaces/handlers/auth"
	healthhandler "savemyfoods-backend/internal/interfaces/handlers/health"
	lehandler "savemyfoods-backend/internal/interfaces/handlers/listingevents"
	listhandler "savemyfoods-backend/internal/interfaces/handlers/listings"
	notifhandler "savemyfoods-backend/internal/interfaces/handlers/notifications"
	uploadhandler "savemyfoods-backend/internal/interfaces/handlers/uploads"
	"savemyfoods-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateApp wires config into services and routes. A missing or unreachable database does not
// stop the app: listing routes answer 503 until it is back.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := middleware.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = client
	} else {
		log.Warn().Msg("REDIS_URL not set: sessions and request stats are disabled")
	}

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		opened, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("database open failed: listing store unavailable")
		} else if err := database.AutoMigrate(opened); err != nil {
			log.Error().Err(err).Msg("database migration failed: listing store unavailable")
		} else {
			db = opened
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set: listing store unavailable")
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}

	app.Use(middleware.Tracing())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Session(rdb, sessionCfg))
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		HealthAdminKey: cfg.HealthAdminKey,
		Targets: []healthsvc.Target{
			{Name: "expiry_estimator", URL: cfg.EstimatorEndpoint},
			{Name: "storage", URL: cfg.SupabaseURL},
		},
	}
	if db != nil {
		hh.DB = database.Pinger{DB: db}
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	ah := &authhandler.Handlers{Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	ns := &notifsvc.Service{DB: db, WindowHours: cfg.ExpiryAlertWindowHours}
	if cfg.BrevoAPIKey != "" {
		ns.Mailer = &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
	}

	ls := &listsvc.Service{
		Resolver: &expiry.Resolver{
			Endpoint: cfg.EstimatorEndpoint,
			APIKey:   cfg.EstimatorAPIKey,
			Timeout:  cfg.EstimatorTimeout,
		},
	}
	if db != nil {
		ls.Store = &store.GormStore{DB: db}
		ls.Notifier = ns
	}
	lh := &listhandler.Handlers{Service: ls}
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: db}}

	lg := app.Group("/api/v1/listings")
	lg.Get("/", lh.ListListings)
	lg.Get("/:listing_id", lh.GetListing)
	lg.Post("/", middleware.RequireAuth(), lh.CreateListing)
	lg.Post("/:listing_id/purchase", middleware.RequireAuth(), lh.PurchaseListing)
	lg.Get("/:listing_id/events", middleware.RequireAuth(), leh.ListForListing)

	nh := &notifhandler.Handlers{Service: ns, CronSecret: cfg.CronSecret}
	app.Post("/api/v1/notifications/expiring", nh.SweepExpiring)
	ng := app.Group("/api/v1/notifications", middleware.RequireAuth())
	ng.Get("/", nh.List)
	ng.Patch("/:id", nh.Mark)

	upsvc := &uploadsvc.Service{
		Client:      &uploadsvc.SupabaseClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
		SupabaseURL: cfg.SupabaseURL,
		Bucket:      cfg.ProductImageBucket,
	}
	uph := &uploadhandler.Handlers{Service: upsvc}
	upg := app.Group("/api/v1/uploads", middleware.RequireAuth())
	upg.Post("/product-image", uph.UploadProductImage)

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
