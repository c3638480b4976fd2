package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/data/mongo"
	"github.com/institute-backoffice/voucher-ledger/internal/data/postgres"
	"github.com/institute-backoffice/voucher-ledger/internal/logger"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/messaging/consumers"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/messaging/producers"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/institute-backoffice/voucher-ledger/internal/voucher_projector/consumer"
	"github.com/institute-backoffice/voucher-ledger/internal/voucher_projector/outbox_poller"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("voucher_projector")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Voucher Projector",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	m := metrics.New("voucher_projector")

	// Initialize databases with app context
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

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	statementRepo := mongo.NewStatementRepository(log, mongoDB.Database())
	if err := statementRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure statement indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers
	eventProducer, err := producers.NewVoucherEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize voucher event producer", "error", err)
		os.Exit(1)
	}

	// dlqProducer is nil when no DLQ topic is configured; its methods then report ErrDLQDisabled
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	eventHandler := consumer.NewVoucherEventHandler(log, statementRepo, dlqProducer)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewKafkaRelay(outboxRepo, eventProducer, log),
		m,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 3)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.VoucherEventsTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
		go func() {
			log.Info("Starting metrics endpoint", "port", cfg.Server.Port, "path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if metricsServer != nil {
		if err = metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error stopping metrics endpoint", "error", err)
		}
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing voucher event producer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Voucher Projector shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Voucher Projector shutdown completed with errors")
	} else {
		log.Info("Voucher Projector shutdown completed successfully")
	}
}
