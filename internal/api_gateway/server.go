package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/handler"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
)

// Services groups what the HTTP layer calls into
type Services struct {
	Vouchers       service.VoucherService
	Transfers      service.TransferService
	Reconciliation service.ReconciliationService
	Safes          service.SafeService
	Rates          service.ExchangeRateService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services, m *metrics.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	h := handlers{
		vouchers:       handler.NewVoucherHandler(log, services.Vouchers),
		transfers:      handler.NewTransferHandler(log, services.Transfers),
		reconciliation: handler.NewReconciliationHandler(log, services.Reconciliation),
		safes:          handler.NewSafeHandler(log, services.Safes),
		rates:          handler.NewExchangeRateHandler(log, services.Rates),
	}

	setupRouter(log, httpRouter, h, m, cfg.Metrics)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server within the configured grace period
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
