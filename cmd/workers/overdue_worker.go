package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"partpay/financing-portal/financing-portal-backend/internal/config"
	"partpay/financing-portal/financing-portal-backend/internal/financing"
	"partpay/financing-portal/financing-portal-backend/internal/registry"
	"partpay/financing-portal/financing-portal-backend/internal/treasury"
)

// OverdueWorker periodically scans open contracts and records defaults
// for payments past their grace window.
type OverdueWorker struct {
	financing financing.Service
	logger    *zap.Logger
	timeout   time.Duration
}

func NewOverdueWorker(financingService financing.Service, logger *zap.Logger) *OverdueWorker {
	return &OverdueWorker{
		financing: financingService,
		logger:    logger,
		timeout:   5 * time.Minute,
	}
}

// Run executes one overdue scan.
func (w *OverdueWorker) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	started := time.Now()
	defaulted, err := w.financing.ScanOverdueContracts(ctx)
	if err != nil {
		w.logger.Error("Overdue scan failed", zap.Error(err))
		return
	}

	w.logger.Info("Overdue scan completed",
		zap.Int("defaults_recorded", defaulted),
		zap.Duration("took", time.Since(started)))
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	repo, err := financing.NewRepository(db)
	if err != nil {
		logger.Fatal("Failed to migrate financing schema", zap.Error(err))
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

	financingService := financing.NewService(
		repo, transferClient, clock, registryClient,
		nil, logger, financing.Config{
			StablecoinMint:       cfg.Financing.StablecoinMintID(),
			StablecoinDecimals:   cfg.Financing.StablecoinDecimals,
			CreditPointScale:     cfg.Financing.CreditPointScale,
			CompletionScoreDelta: cfg.Financing.CompletionScoreDelta,
			OverdueGraceSeconds:  cfg.Financing.OverdueGraceSeconds,
		},
	)

	worker := NewOverdueWorker(financingService, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.Workers.OverdueScanSchedule, worker); err != nil {
		logger.Fatal("Invalid overdue scan schedule",
			zap.String("schedule", cfg.Workers.OverdueScanSchedule), zap.Error(err))
	}

	logger.Info("Starting overdue worker",
		zap.String("schedule", cfg.Workers.OverdueScanSchedule))
	scheduler.Start()

	// Run once on startup so restarts never miss a window.
	worker.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Stopping overdue worker")
	<-scheduler.Stop().Done()
}
