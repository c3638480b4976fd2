package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
)

// SafeHandler serves derived safe views
type SafeHandler struct {
	safeService service.SafeService
	logger      *slog.Logger
}

func NewSafeHandler(logger *slog.Logger, safeService service.SafeService) *SafeHandler {
	return &SafeHandler{
		safeService: safeService,
		logger:      logger,
	}
}

// Balance returns the per-currency position of a safe
func (h *SafeHandler) Balance(c *gin.Context) {
	id, ok := h.safeID(c)
	if !ok {
		return
	}

	balance, err := h.safeService.Balance(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, balance)
}

// Statement returns a page of the safe's projected vouchers, newest first
func (h *SafeHandler) Statement(c *gin.Context) {
	id, ok := h.safeID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.safeService.Statement(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}
	if entries == nil {
		entries = []*statement.Entry{}
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

func (h *SafeHandler) safeID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid safe ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid safe ID")
		return uuid.Nil, false
	}
	return id, true
}
