package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/handler"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/middleware"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
)

type handlers struct {
	vouchers       *handler.VoucherHandler
	transfers      *handler.TransferHandler
	reconciliation *handler.ReconciliationHandler
	safes          *handler.SafeHandler
	rates          *handler.ExchangeRateHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h handlers,
	m *metrics.Metrics,
	metricsCfg config.MetricsConfig,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, "/health", metricsCfg.Path))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Metrics(m))

	// Every ledger call is attributed to an employee
	v1 := r.Group("/api/v1", middleware.RequireActor())
	{
		vouchers := v1.Group("/vouchers")
		{
			vouchers.POST("", h.vouchers.Create)
			vouchers.POST("/batch", h.vouchers.CreateBatch)
			vouchers.GET("/next-number", h.vouchers.NextNumber)
			vouchers.GET("/:id", h.vouchers.GetByID)
		}

		v1.POST("/transfers", h.transfers.Create)
		v1.GET("/reconciliation", h.reconciliation.Get)

		safes := v1.Group("/safes")
		{
			safes.GET("/:id/balance", h.safes.Balance)
			safes.GET("/:id/statement", h.safes.Statement)
		}

		v1.GET("/exchange-rate", h.rates.Get)
		v1.PUT("/exchange-rate", h.rates.Set)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	if metricsCfg.Enabled && m != nil {
		r.GET(metricsCfg.Path, gin.WrapH(m.Handler()))
	}
}
