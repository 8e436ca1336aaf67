package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billister-api/cache"
	"billister-api/config"
	"billister-api/criteria"
	"billister-api/handlers"
	"billister-api/initializers"
	"billister-api/metrics"
	"billister-api/middleware"
	"billister-api/pkg/aidesc"
	"billister-api/pkg/appenv"
	"billister-api/pkg/logging"
	"billister-api/pkg/notify"
	"billister-api/pkg/plates"
	"billister-api/repository"
	"billister-api/scheduler"
	"billister-api/websocket"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		fatal("could not connect to database", err)
	}
	defer db.Close()

	if err := migrateUp(db); err != nil {
		fatal("migration failed", err)
	}
	if err := initializers.InitDefaults(ctx, db); err != nil {
		fatal("failed to initialize vehicle catalog", err)
	}

	listingsRepo := repository.NewListingsRepository(db)
	usersRepo := repository.NewUsersRepository(db)
	savedSearchesRepo := repository.NewSavedSearchesRepository(db)
	matchEventsRepo := repository.NewMatchEventsRepository(db)
	favoritesRepo := repository.NewFavoritesRepository(db)
	deviceTokensRepo := repository.NewDeviceTokensRepository(db)
	chatsRepo := repository.NewChatsRepository(db)
	vehiclesRepo := repository.NewVehiclesRepository(db)

	hub := websocket.NewHub()
	notifierOpts := []notify.Option{
		notify.WithRealtime(&notify.WSNotifier{Hub: hub}),
		notify.WithEvaluator(criteria.Engine{}),
	}
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(notify.AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange})
		if err != nil {
			fatal("failed to connect to message broker", err)
		}
		defer publisher.Close()
		notifierOpts = append(notifierOpts, notify.WithPublisher(publisher))
	}
	savedSearchNotifier := notify.NewSavedSearchNotifier(savedSearchesRepo, matchEventsRepo, notifierOpts...)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			fatal("failed to connect to redis", err)
		}
		defer rdb.Close()
	}
	catalog := cache.NewVehicleCatalog(vehiclesRepo, rdb, cfg.CatalogTTL)

	var descriptions aidesc.Generator = aidesc.Template{}
	if cfg.OpenAIKey != "" {
		descriptions = aidesc.NewOpenAI(aidesc.OpenAIConfig{APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel})
	}

	var plateLookup plates.Lookup = plates.Null{}
	if cfg.PlateLookupURL != "" {
		plateLookup = plates.NewHTTPLookup(cfg.PlateLookupURL)
	}

	var images handlers.ImageUploader
	if imageConf := initializers.LoadImageStoreConfig(); imageConf.Enabled() {
		store, err := initializers.NewImageStore(ctx, imageConf)
		if err != nil {
			fatal("failed to initialize image storage", err)
		}
		images = store
	} else {
		logger.Warn("image storage disabled, uploads will be rejected")
	}

	if cfg.SchedulerEnabled {
		jobs := scheduler.New(listingsRepo, matchEventsRepo, scheduler.Config{
			Spec:           cfg.SchedulerSpec,
			ViewRetention:  cfg.ViewRetention,
			EventRetention: cfg.EventRetention,
		})
		if err := jobs.Start(ctx); err != nil {
			fatal("failed to start scheduler", err)
		}
		defer jobs.Stop()
	}

	if cfg.Env == appenv.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())

	if len(cfg.TrustedProxies) > 0 {
		if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			fatal("invalid TRUSTED_PROXIES", err)
		}
	} else {
		_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	}

	r.Use(middleware.CORSMiddleware(middleware.CORSConfig{
		Production:       cfg.Env == appenv.Production,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: cfg.AllowCredentials,
	}))
	rateLimit := middleware.RateLimitConfig{
		Enabled:   cfg.RateLimitEnabled,
		RPS:       cfg.RateLimitRPS,
		Burst:     cfg.RateLimitBurst,
		Whitelist: cfg.RateLimitWhitelist,
	}
	r.Use(middleware.RateLimitMiddleware(rateLimit))

	jwtConfig := handlers.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	requireAuth := handlers.AuthMiddleware(jwtConfig)

	r.GET("/health", handlers.HealthCheck(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", requireAuth, websocket.ServeWS(hub))

	authHandler := handlers.NewAuthHandler(usersRepo, jwtConfig)
	listingsHandler := handlers.NewListingsHandler(listingsRepo, savedSearchNotifier, descriptions)
	imagesHandler := handlers.NewImagesHandler(listingsRepo, images)
	savedSearchesHandler := handlers.NewSavedSearchesHandler(savedSearchesRepo)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesRepo, listingsRepo)
	deviceTokensHandler := handlers.NewDeviceTokensHandler(deviceTokensRepo)
	chatsHandler := handlers.NewChatsHandler(chatsRepo, listingsRepo)
	vehiclesHandler := handlers.NewVehiclesHandler(catalog, plateLookup)
	notificationsHandler := handlers.NewNotificationsHandler(matchEventsRepo)

	api := r.Group("/api")

	authPublic := api.Group("/auth", middleware.RateLimitAuthMiddleware(rateLimit))
	authPublic.POST("/register", authHandler.Register)
	authPublic.POST("/login", authHandler.Login)

	listings := api.Group("/listings")
	{
		listings.GET("", listingsHandler.Search)
		listings.POST("/search", listingsHandler.SearchAdvanced)
		listings.GET("/nearby", listingsHandler.Nearby)
		listings.POST("/compare", listingsHandler.Compare)
		listings.GET("/mine", requireAuth, listingsHandler.Mine)
		listings.GET("/:id", listingsHandler.Get)
		listings.POST("/:id/view", handlers.OptionalAuthMiddleware(jwtConfig), listingsHandler.RegisterView)

		listings.POST("", requireAuth, listingsHandler.Create)
		listings.PATCH("/:id", requireAuth, listingsHandler.Update)
		listings.DELETE("/:id", requireAuth, listingsHandler.Delete)
		listings.POST("/:id/generate-description", requireAuth, listingsHandler.GenerateDescription)
		listings.POST("/:id/images", requireAuth, imagesHandler.Upload)
	}

	vehicles := api.Group("/vehicles")
	{
		vehicles.GET("/makes", vehiclesHandler.Makes)
		vehicles.GET("/makes/:makeId/models", vehiclesHandler.Models)
		vehicles.GET("/plate/:plate", vehiclesHandler.Plate)
	}

	auth := api.Group("", requireAuth)
	{
		auth.GET("/saved-searches", savedSearchesHandler.List)
		auth.POST("/saved-searches", savedSearchesHandler.Create)
		auth.POST("/saved-searches/from-criteria", savedSearchesHandler.CreateFromCriteria)
		auth.GET("/saved-searches/:id", savedSearchesHandler.Get)
		auth.PATCH("/saved-searches/:id", savedSearchesHandler.Update)
		auth.DELETE("/saved-searches/:id", savedSearchesHandler.Delete)

		auth.GET("/favorites", favoritesHandler.List)
		auth.POST("/favorites/:listingId", favoritesHandler.Add)
		auth.DELETE("/favorites/:listingId", favoritesHandler.Remove)

		auth.POST("/device-tokens", deviceTokensHandler.Upsert)
		auth.POST("/chats/start", chatsHandler.Start)

		auth.GET("/notifications", notificationsHandler.List)
		auth.POST("/notifications/mark-sent", notificationsHandler.MarkSent)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Env, "version", handlers.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server failed", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

func openDB(dbURL string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dbURL)
		if err == nil {
			err = db.Ping()
			if err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		slog.Warn("database connection failed, retrying in 2s", "attempt", i+1, "err", err)
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func migrateUp(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
