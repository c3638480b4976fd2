package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// Error codes returned in the response envelope
const (
	CodeDistributionExceeded     = "DISTRIBUTION_EXCEEDED"
	CodeJournalUnbalanced        = "JOURNAL_UNBALANCED"
	CodeJournalTooFewLines       = "JOURNAL_TOO_FEW_LINES"
	CodeJournalZeroTotal         = "JOURNAL_ZERO_TOTAL"
	CodeValidationFailed         = "VALIDATION_FAILED"
	CodeInvalidTransferTarget    = "INVALID_TRANSFER_TARGET"
	CodeTransferPartiallyApplied = "TRANSFER_PARTIALLY_APPLIED"
	CodeNumberContention         = "NUMBER_CONTENTION"
	CodeInvalidExchangeRate      = "INVALID_EXCHANGE_RATE"
	CodeExchangeRateUnavailable  = "EXCHANGE_RATE_UNAVAILABLE"
)

type errorMapping struct {
	status  int
	code    string
	details map[string]interface{}
}

// classifyError maps a ledger error to its status and code; ok is false for unexpected errors
func classifyError(err error) (errorMapping, bool) {
	var (
		distErr     voucher.DistributionExceeded
		journalErr  voucher.JournalUnbalanced
		validErr    voucher.ValidationFailed
		targetErr   voucher.InvalidTransferTarget
		partialErr  voucher.TransferPartiallyApplied
		notFoundErr voucher.ErrVoucherNotFound
	)

	switch {
	case errors.As(err, &partialErr):
		details := map[string]interface{}{
			"orphan_voucher_id": partialErr.OrphanID.String(),
			"stage":             partialErr.Stage,
		}
		if partialErr.CounterpartID != uuid.Nil {
			details["counterpart_voucher_id"] = partialErr.CounterpartID.String()
		}
		return errorMapping{http.StatusConflict, CodeTransferPartiallyApplied, details}, true
	case errors.As(err, &distErr):
		return errorMapping{http.StatusUnprocessableEntity, CodeDistributionExceeded, map[string]interface{}{"excess": distErr.Excess.String()}}, true
	case errors.As(err, &journalErr):
		return errorMapping{http.StatusUnprocessableEntity, CodeJournalUnbalanced, map[string]interface{}{"difference": journalErr.Difference.String()}}, true
	case errors.Is(err, voucher.ErrJournalTooFewLines):
		return errorMapping{http.StatusUnprocessableEntity, CodeJournalTooFewLines, nil}, true
	case errors.Is(err, voucher.ErrJournalZeroTotal):
		return errorMapping{http.StatusUnprocessableEntity, CodeJournalZeroTotal, nil}, true
	case errors.As(err, &targetErr):
		return errorMapping{http.StatusBadRequest, CodeInvalidTransferTarget, map[string]interface{}{"safe_id": targetErr.SafeID.String()}}, true
	case errors.As(err, &validErr):
		var details map[string]interface{}
		if validErr.Field != "" {
			details = map[string]interface{}{"field": validErr.Field}
		}
		return errorMapping{http.StatusBadRequest, CodeValidationFailed, details}, true
	case errors.Is(err, voucher.ErrNumberContention):
		return errorMapping{http.StatusServiceUnavailable, CodeNumberContention, nil}, true
	case errors.Is(err, voucher.ErrInvalidExchangeRate):
		return errorMapping{http.StatusUnprocessableEntity, CodeInvalidExchangeRate, nil}, true
	case errors.Is(err, exchange.ErrRateNotSet):
		return errorMapping{http.StatusServiceUnavailable, CodeExchangeRateUnavailable, nil}, true
	case errors.As(err, &notFoundErr):
		return errorMapping{http.StatusNotFound, "NOT_FOUND", map[string]interface{}{"voucher_id": notFoundErr.ID.String()}}, true
	case errors.Is(err, directory.ErrSafeNotFound{}), errors.Is(err, directory.ErrPartyNotFound{}):
		return errorMapping{http.StatusNotFound, "NOT_FOUND", nil}, true
	}
	return errorMapping{}, false
}

// respondLedgerError writes the envelope for err. Unexpected errors become a 500 and are logged.
func respondLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	mapping, ok := classifyError(err)
	if !ok {
		logger.Error("Unexpected ledger error", "path", c.FullPath(), "error", err)
		RespondInternalError(c)
		return
	}

	if mapping.status >= http.StatusInternalServerError || mapping.code == CodeTransferPartiallyApplied {
		logger.Error("Ledger operation failed", "code", mapping.code, "error", err)
	} else {
		logger.Warn("Ledger request rejected", "code", mapping.code, "error", err)
	}
	RespondWithErrorDetails(c, mapping.status, mapping.code, err.Error(), mapping.details)
}

func batchItemError(err error) *ErrorInfo {
	mapping, ok := classifyError(err)
	if !ok {
		return &ErrorInfo{Code: "INTERNAL_SERVER_ERROR", Message: "An internal server error occurred"}
	}
	return &ErrorInfo{Code: mapping.code, Message: err.Error(), Details: mapping.details}
}
