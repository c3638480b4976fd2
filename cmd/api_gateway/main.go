package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/data/mongo"
	"github.com/institute-backoffice/voucher-ledger/internal/data/postgres"
	"github.com/institute-backoffice/voucher-ledger/internal/data/redis"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/institute-backoffice/voucher-ledger/internal/logger"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	m := metrics.New("voucher_ledger")

	// Postgres runs pending migrations on connect
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	voucherRepo := postgres.NewVoucherRepository(log, postgresDB)
	counterRepo := postgres.NewCounterRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	rateRepo := postgres.NewExchangeRateRepository(log, postgresDB)
	directoryRepo := postgres.NewDirectoryRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())
	if err := statementRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure statement indexes", "error", err)
		os.Exit(1)
	}

	// Ledger core
	rateService := ledger.NewRateService(log, rateRepo, redis.NewRateCache(log, redisClient, cfg.ExchangeRate.CacheTTL))
	allocator := ledger.NewAllocator(log, counterRepo, &cfg.Ledger)
	writer, err := ledger.NewWriter(
		log,
		postgresDB,
		voucherRepo,
		outboxRepo,
		allocator,
		ledger.NewCurrencyResolver(rateService),
		&cfg.Ledger,
		m,
	)
	if err != nil {
		log.Error("Failed to initialize voucher writer", "error", err)
		os.Exit(1)
	}

	batchWriter, err := ledger.NewBatchWriter(log, writer, cfg.WorkerPool.Size)
	if err != nil {
		log.Error("Failed to initialize batch worker pool", "error", err)
		os.Exit(1)
	}

	orchestrator := ledger.NewOrchestrator(log, writer, postgresDB, voucherRepo, outboxRepo, m)

	var receipts ledger.ReceiptFinder = voucherRepo
	if cfg.Ledger.ReconcileSource == config.ReconcileSourceMongo {
		receipts = statementRepo
	}
	reader := ledger.NewReader(log, receipts, directoryRepo)

	// Initialize services
	services := api_gateway.Services{
		Vouchers:       service.NewVoucherService(log, writer, batchWriter, directoryRepo),
		Transfers:      service.NewTransferService(log, orchestrator, directoryRepo),
		Reconciliation: reader,
		Safes:          service.NewSafeService(log, voucherRepo, statementRepo, directoryRepo),
		Rates:          rateService,
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services, m)
	log.Info("REST server initialized", "reconcile_source", cfg.Ledger.ReconcileSource)

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before draining the pool they submit to
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	log.Info("Shutting down batch worker pool")
	batchWriter.Shutdown()

	postgresDB.Close()

	if err = redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
