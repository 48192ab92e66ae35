package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ayo6706/invest-ledger/internal/api"
	"github.com/ayo6706/invest-ledger/internal/api/middleware"
	"github.com/ayo6706/invest-ledger/internal/config"
	"github.com/ayo6706/invest-ledger/internal/db"
	"github.com/ayo6706/invest-ledger/internal/events"
	"github.com/ayo6706/invest-ledger/internal/gateway"
	"github.com/ayo6706/invest-ledger/internal/idempotency"
	"github.com/ayo6706/invest-ledger/internal/observability"
	"github.com/ayo6706/invest-ledger/internal/repository"
	"github.com/ayo6706/invest-ledger/internal/service"
	"github.com/ayo6706/invest-ledger/internal/settings"
	"github.com/ayo6706/invest-ledger/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server, the batch scheduler and the reconciliation
// worker, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool)
	provider := settings.NewProvider(store.Queries(), redisClient, cfg.Engine, cfg.SettingsCacheTTL)
	if _, err := provider.Refresh(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	clock := service.NewClock(cfg.Location)
	ledger := service.NewLedgerService(store, publisher)
	accounts := service.NewAccountService(store)
	activations := service.NewActivationService(store, clock, cfg.BatchPageSize)
	commission := service.NewCommissionService(store, provider, clock, publisher, cfg.BatchPageSize)
	investments := service.NewInvestmentService(store, provider, clock, publisher, commission)
	profit := service.NewProfitService(store, provider, clock, publisher, cfg.BatchPageSize)
	withdrawals := service.NewWithdrawalService(store, provider, clock, gateway.NewMockBridge(), publisher)
	transfers := service.NewTransferService(store, ledger, provider)
	deposits := service.NewDepositService(store, provider, publisher)
	webhooks := service.NewWebhookService(deposits, cfg.WebhookHMACKey, cfg.WebhookSkipSignature)
	reconciliation := service.NewReconciliationService(store, ledger, activations, clock, cfg.TransferReplayGrace, cfg.BatchPageSize)

	scheduler, err := worker.NewScheduler(worker.ScheduleConfig{
		Location:     cfg.Location,
		Profit:       cfg.ProfitSchedule,
		ProfitBackup: cfg.ProfitBackupSchedule,
		Commission:   cfg.CommissionSchedule,
	}, clock, profit, commission, worker.NewRedisLocker(redisClient))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start()

	stopReconciliation := worker.NewReconciliationWorker(reconciliation).
		WithInterval(cfg.ReconciliationInterval).
		Run(ctx)

	router := api.NewRouter(cfg, logger, api.Deps{
		DB:             pool,
		Redis:          redisClient,
		Auth:           middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		Idempotency:    idempotency.NewStore(redisClient, store.Queries(), cfg.IdempotencyTTL),
		Settings:       provider,
		Batches:        scheduler,
		Accounts:       accounts,
		Activations:    activations,
		Investments:    investments,
		Withdrawals:    withdrawals,
		Transfers:      transfers,
		Profit:         profit,
		Reconciliation: reconciliation,
		Webhooks:       webhooks,
		Audit:          service.NewAuditService(store),
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("stopping batch scheduler")
	scheduler.Stop(shutdownCtx)
	logger.Info("stopping reconciliation worker")
	stopReconciliation()
	withdrawals.Wait()

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
