package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/middleware"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
)

// ExchangeRateHandler reads and sets the institutional USD rate
type ExchangeRateHandler struct {
	rates  service.ExchangeRateService
	logger *slog.Logger
}

func NewExchangeRateHandler(logger *slog.Logger, rates service.ExchangeRateService) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		rates:  rates,
		logger: logger,
	}
}

func (h *ExchangeRateHandler) Get(c *gin.Context) {
	rate, err := h.rates.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, exchange.ErrRateNotSet) {
			RespondNotFound(c, "No exchange rate has been set")
			return
		}
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRateToResponse(rate))
}

// Set appends a new rate; vouchers already recorded keep their own rate
func (h *ExchangeRateHandler) Set(c *gin.Context) {
	var req SetExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rate, err := h.rates.SetRate(c.Request.Context(), req.Rate, middleware.GetActor(c))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, mapRateToResponse(rate))
}

func mapRateToResponse(rate *exchange.Rate) ExchangeRateResponse {
	return ExchangeRateResponse{
		Base:        string(rate.Base),
		Quote:       string(rate.Quote),
		Rate:        rate.Rate.String(),
		SetBy:       rate.SetBy.EmployeeName,
		EffectiveAt: formatTime(rate.EffectiveAt),
	}
}
