package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/application/orders"
	"github.com/channelsync/backend/internal/application/reconcile"
	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/channelsync/backend/internal/infrastructure/cache"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/connectors"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/ratelimit"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
	"github.com/channelsync/backend/internal/interfaces/http/router"
)

// Per-platform dispatch intervals for outbound API calls. Etsy publishes
// 10 requests/second per app; Shopify's GraphQL admin API is cost based and
// two calls per second stays comfortably under the bucket; the POS API has
// no published limit.
const (
	etsyRateInterval    = 100 * time.Millisecond
	etsyV3RateInterval  = 100 * time.Millisecond
	shopifyRateInterval = 500 * time.Millisecond
	posRateInterval     = 250 * time.Millisecond
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting channel sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Initialize stores and repositories
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	settingStore := persistence.NewGormSettingStore(db.DB)
	orderLog := persistence.NewGormOrderLog(db.DB)

	// OAuth states live in redis so an authorization started on one process
	// can complete on another. Fall back to process memory when redis is
	// unavailable.
	var states channel.OAuthStateStore
	redisStates, err := cache.NewRedisStateStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, keeping OAuth states in memory", zap.Error(err))
		states = cache.NewInMemoryStateStore()
	} else {
		defer func() {
			if err := redisStates.Close(); err != nil {
				log.Error("Error closing redis", zap.Error(err))
			}
		}()
		states = redisStates
		log.Info("Redis connected successfully")
	}

	// Build the configured connectors
	conns, err := buildConnectors(cfg, settingStore, log)
	if err != nil {
		log.Fatal("Failed to build connectors", zap.Error(err))
	}
	registry := channel.NewRegistry(conns...)
	for _, c := range registry.List() {
		log.Info("Connector configured",
			zap.String("platform", c.Platform().String()),
			zap.Bool("ready", c.Ready()))
	}

	// Application services
	engine := reconcile.NewEngine(ledgerRepo, registry, log)
	orderService := orders.NewService(registry, ledgerRepo, orderLog, settingStore, engine, log)

	// Start the order poll trigger
	trigger := scheduler.NewOrderPollTrigger(
		scheduler.OrderPollTriggerConfig{Interval: cfg.Poller.Interval},
		registry, settingStore, orderService, log,
	)
	if err := trigger.Start(context.Background()); err != nil {
		log.Fatal("Failed to start order poll trigger", zap.Error(err))
	}
	defer func() {
		if err := trigger.Stop(context.Background()); err != nil {
			log.Error("Error stopping order poll trigger", zap.Error(err))
		}
	}()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	connectorHandler := handler.NewConnectorHandler(registry, engine, states, settingStore, cfg.Poller.StateTTL, log)
	orderHandler := handler.NewOrderHandler(orderService, orderLog, log)

	router.NewRouter(ginEngine, log).
		Register(connectorHandler).
		Register(orderHandler).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// restorer is implemented by connectors that persist credentials
type restorer interface {
	Restore(ctx context.Context) error
}

// buildConnectors constructs an adapter for every platform with credentials
// configured and restores any persisted authorization.
func buildConnectors(cfg *config.Config, store channel.CredentialStore, log *zap.Logger) ([]channel.Connector, error) {
	apiBase := cfg.App.BaseURL + "/api/v1"
	var conns []channel.Connector

	if cfg.Connectors.Etsy.Enabled() {
		adapter, err := connectors.NewEtsyAdapter(&connectors.EtsyConfig{
			Keystring:    cfg.Connectors.Etsy.Keystring,
			SharedSecret: cfg.Connectors.Etsy.SharedSecret,
			Shop:         cfg.Connectors.Etsy.Shop,
			RedirectURI:  apiBase + "/channels/etsy/oauth",
		}, store, ratelimit.New(etsyRateInterval), log)
		if err != nil {
			return nil, err
		}
		conns = append(conns, adapter)
	}

	if cfg.Connectors.EtsyV3.Enabled() {
		adapter, err := connectors.NewEtsyV3Adapter(&connectors.EtsyV3Config{
			Keystring:    cfg.Connectors.EtsyV3.Keystring,
			SharedSecret: cfg.Connectors.EtsyV3.SharedSecret,
			Shop:         cfg.Connectors.EtsyV3.Shop,
			RedirectURI:  apiBase + "/channels/etsy3/oauth",
		}, store, ratelimit.New(etsyV3RateInterval), log)
		if err != nil {
			return nil, err
		}
		conns = append(conns, adapter)
	}

	if cfg.Connectors.Shopify.Enabled() {
		adapter, err := connectors.NewShopifyAdapter(&connectors.ShopifyConfig{
			Shop:               cfg.Connectors.Shopify.Shop,
			APIKey:             cfg.Connectors.Shopify.APIKey,
			SecretKey:          cfg.Connectors.Shopify.SecretKey,
			RedirectURI:        apiBase + "/channels/shopify/oauth",
			OrdersCreatedURL:   apiBase + "/hooks/shopify/orders/created",
			OrdersCancelledURL: apiBase + "/hooks/shopify/orders/cancelled",
		}, store, ratelimit.New(shopifyRateInterval), log)
		if err != nil {
			return nil, err
		}
		conns = append(conns, adapter)
	}

	if cfg.Connectors.POS.Enabled() {
		adapter, err := connectors.NewPOSAdapter(&connectors.POSConfig{
			Username:           cfg.Connectors.POS.Username,
			Password:           cfg.Connectors.POS.Password,
			BaseURL:            cfg.Connectors.POS.BaseURL,
			OrdersCreatedURL:   apiBase + "/hooks/pos/orders/created",
			OrdersCancelledURL: apiBase + "/hooks/pos/orders/cancelled",
		}, ratelimit.New(posRateInterval), log)
		if err != nil {
			return nil, err
		}
		conns = append(conns, adapter)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, c := range conns {
		r, ok := c.(restorer)
		if !ok {
			continue
		}
		if err := r.Restore(ctx); err != nil {
			log.Warn("Failed to restore credential",
				zap.String("platform", c.Platform().String()),
				zap.Error(err))
		}
	}

	return conns, nil
}
