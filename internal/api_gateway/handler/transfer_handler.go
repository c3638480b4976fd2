package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/middleware"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// TransferHandler handles HTTP requests for safe to safe transfers
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create records both legs of a transfer
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	logger := h.logger.With("correlation_id", middleware.GetCorrelationID(c))
	currency, err := voucher.ParseCurrency(req.Currency)
	if err != nil {
		respondLedgerError(c, logger, err)
		return
	}

	cmd := service.TransferCommand{
		FromSafeID: uuid.MustParse(req.FromSafeID),
		ToSafeID:   uuid.MustParse(req.ToSafeID),
		Amount:     req.Amount,
		Currency:   currency,
		Memo:       req.Memo,
		Actor:      middleware.GetActor(c),
	}

	legOut, legIn, err := h.transferService.CreateTransfer(c.Request.Context(), cmd)
	if err != nil {
		respondLedgerError(c, logger, err)
		return
	}

	RespondCreated(c, TransferResponse{Out: legOut, In: legIn})
}
