package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// ReconciliationHandler answers "how much has this party paid"
type ReconciliationHandler struct {
	reconciliation service.ReconciliationService
	logger         *slog.Logger
}

func NewReconciliationHandler(logger *slog.Logger, reconciliation service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// Get reconciles a party's receipts against an optional course fee
func (h *ReconciliationHandler) Get(c *gin.Context) {
	var params ReconciliationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	q := ledger.ReconcileQuery{
		PartyName:     params.PartyName,
		ConvertToBase: params.Convert,
	}
	if params.Currency != "" {
		currency, err := voucher.ParseCurrency(params.Currency)
		if err != nil {
			respondLedgerError(c, h.logger, err)
			return
		}
		q.Currency = currency
	}
	if params.PartyID != "" {
		id := uuid.MustParse(params.PartyID)
		q.PartyID = &id
	}
	if params.CourseID != "" {
		id := uuid.MustParse(params.CourseID)
		q.CourseID = &id
	}
	if params.CourseFee != "" {
		fee, err := decimal.NewFromString(params.CourseFee)
		if err != nil {
			RespondBadRequest(c, "Invalid course_fee")
			return
		}
		q.CourseFee = &fee
	}

	balance, err := h.reconciliation.BalanceFor(c.Request.Context(), q)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, balance)
}
