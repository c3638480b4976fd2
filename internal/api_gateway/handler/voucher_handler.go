package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/middleware"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// VoucherHandler handles HTTP requests for voucher operations
type VoucherHandler struct {
	voucherService service.VoucherService
	logger         *slog.Logger
}

func NewVoucherHandler(logger *slog.Logger, voucherService service.VoucherService) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		logger:         logger,
	}
}

// Create records one voucher attributed to the calling employee
func (h *VoucherHandler) Create(c *gin.Context) {
	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	logger := h.logger.With("correlation_id", middleware.GetCorrelationID(c))
	draft, err := req.toDraft(middleware.GetActor(c))
	if err != nil {
		respondLedgerError(c, logger, err)
		return
	}

	v, err := h.voucherService.CreateVoucher(c.Request.Context(), draft)
	if err != nil {
		respondLedgerError(c, logger, err)
		return
	}

	RespondCreated(c, v)
}

// CreateBatch records many vouchers; the response lists every item's outcome
func (h *VoucherHandler) CreateBatch(c *gin.Context) {
	var req CreateVoucherBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid batch request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	actor := middleware.GetActor(c)
	items := make([]BatchItemResponse, len(req.Vouchers))
	var (
		drafts  []voucher.Draft
		indexes []int
	)
	failed := 0
	for i, item := range req.Vouchers {
		items[i].Index = i
		draft, err := item.toDraft(actor)
		if err != nil {
			failed++
			items[i].Error = batchItemError(err)
			continue
		}
		drafts = append(drafts, draft)
		indexes = append(indexes, i)
	}

	if len(drafts) > 0 {
		for _, r := range h.voucherService.CreateVouchers(c.Request.Context(), drafts) {
			item := &items[indexes[r.Index]]
			item.Voucher = r.Voucher
			if r.Err != nil {
				failed++
				item.Error = batchItemError(r.Err)
			}
		}
	}

	status := http.StatusCreated
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	RespondWithData(c, status, items)
}

// GetByID returns a voucher or 404
func (h *VoucherHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid voucher ID")
		return
	}

	v, err := h.voucherService.GetVoucher(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, v)
}

// NextNumber previews the next number of a kind's series
func (h *VoucherHandler) NextNumber(c *gin.Context) {
	kind, err := voucher.ParseKind(c.Query("kind"))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	next, err := h.voucherService.NextNumber(c.Request.Context(), kind)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	RespondOK(c, NextNumberResponse{Kind: string(kind), NextNumber: next, Advisory: true})
}
