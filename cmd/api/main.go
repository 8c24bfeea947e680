package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"partpay/financing-portal/financing-portal-backend/internal/auth"
	"partpay/financing-portal/financing-portal-backend/internal/config"
	"partpay/financing-portal/financing-portal-backend/internal/exports"
	"partpay/financing-portal/financing-portal-backend/internal/financing"
	"partpay/financing-portal/financing-portal-backend/internal/marketplace"
	"partpay/financing-portal/financing-portal-backend/internal/notifications"
	"partpay/financing-portal/financing-portal-backend/internal/notifications/websocket"
	"partpay/financing-portal/financing-portal-backend/internal/registry"
	"partpay/financing-portal/financing-portal-backend/internal/treasury"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	financingRepo, err := financing.NewRepository(db)
	if err != nil {
		logger.Fatal("Failed to migrate financing schema", zap.Error(err))
	}
	marketplaceRepo, err := marketplace.NewRepository(db)
	if err != nil {
		logger.Fatal("Failed to migrate marketplace schema", zap.Error(err))
	}

	transferClient := treasury.NewClient(treasury.ClientConfig{
		BaseURL: cfg.Treasury.BaseURL,
		APIKey:  cfg.Treasury.APIKey,
		Timeout: cfg.Treasury.Timeout,
	})
	var clock treasury.Clock
	if cfg.Treasury.UseSystemClock {
		clock = treasury.SystemClock{}
	} else {
		clock = treasury.NewOracleClock(cfg.Treasury.ClockURL, cfg.Treasury.Timeout)
	}
	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout)

	wsManager := websocket.NewManager(logger)
	notificationService, err := notifications.NewService(db, wsManager, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notifications", zap.Error(err))
	}
	defer notificationService.Close()

	financingConfig := financing.Config{
		StablecoinMint:       cfg.Financing.StablecoinMintID(),
		StablecoinDecimals:   cfg.Financing.StablecoinDecimals,
		CreditPointScale:     cfg.Financing.CreditPointScale,
		CompletionScoreDelta: cfg.Financing.CompletionScoreDelta,
		OverdueGraceSeconds:  cfg.Financing.OverdueGraceSeconds,
	}
	financingService := financing.NewService(
		financingRepo, transferClient, clock, registryClient,
		notificationService, logger, financingConfig,
	)
	marketplaceService := marketplace.NewService(marketplaceRepo, registryClient, financingService, logger)

	financingHandler := financing.NewHandler(financingService)
	marketplaceHandler := marketplace.NewHandler(marketplaceService)
	notificationHandler := notifications.NewHandler(notificationService, wsManager, logger)
	exportHandler := exports.NewHandler(financingService, uint8(cfg.Financing.StablecoinDecimals), logger)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Security.JWTSecret))
	{
		financingHandler.RegisterRoutes(api)
		marketplaceHandler.RegisterRoutes(api)
		notificationHandler.RegisterRoutes(api)
		exportHandler.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting financing portal API", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
