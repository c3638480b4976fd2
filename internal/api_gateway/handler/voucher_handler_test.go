package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVoucherHandler_Create(t *testing.T) {
	logger := testLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		expected := sampleVoucher(voucher.KindReceipt, 1001)
		mockService.On("CreateVoucher", mock.Anything, mock.MatchedBy(func(d voucher.Draft) bool {
			return d.Kind == voucher.KindReceipt &&
				d.Amount.Equal(decimal.NewFromInt(150000)) &&
				d.CreatedBy == testActor
		})).Return(expected, nil)

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind":       "receipt",
			"party_name": "Ali",
			"amount":     "150000",
			"currency":   "IQD",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var got voucher.Voucher
		decodeData(t, rr, &got)
		assert.Equal(t, expected.ID, got.ID)
		assert.Equal(t, int64(1001), got.Number)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", `{"kind":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
		mockService.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything)
	})

	t.Run("DistributionExceeded", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("CreateVoucher", mock.Anything, mock.Anything).
			Return(nil, voucher.DistributionExceeded{Excess: decimal.NewFromInt(20)})

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind": "payment", "amount": "100", "currency": "IQD",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeDistributionExceeded, resp.Error.Code)
		assert.Equal(t, "20", resp.Error.Details["excess"])
	})

	t.Run("UnexpectedError", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("CreateVoucher", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind": "receipt", "amount": "1", "currency": "IQD",
		})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection reset")
	})

	t.Run("TransferLegRejected", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind":       "transfer_leg",
			"direction":  "in",
			"party_name": "Branch Safe",
			"party_type": "safe_transfer",
			"amount":     "500",
			"currency":   "IQD",
			"safe_id":    uuid.New().String(),
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, CodeValidationFailed, resp.Error.Code)
		assert.Equal(t, "kind", resp.Error.Details["field"])
		mockService.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything)
	})

	t.Run("NormalizesEnumFields", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("CreateVoucher", mock.Anything, mock.MatchedBy(func(d voucher.Draft) bool {
			return d.Kind == voucher.KindSpecialReceipt &&
				d.Currency == voucher.CurrencyUSD &&
				d.PartyType == voucher.PartyStudent
		})).Return(sampleVoucher(voucher.KindSpecialReceipt, 3), nil)

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind":       " Special_Receipt ",
			"party_name": "Ali",
			"party_type": "Student",
			"amount":     "20",
			"currency":   "usd",
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnknownCurrency", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/vouchers", handler.Create)

		rr := doRequest(t, router, http.MethodPost, "/vouchers", map[string]interface{}{
			"kind": "receipt", "amount": "1", "currency": "EUR",
		})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "currency", resp.Error.Details["field"])
		mockService.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything)
	})
}

func TestVoucherHandler_CreateBatch(t *testing.T) {
	logger := testLogger()

	t.Run("AllSucceed", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		first := sampleVoucher(voucher.KindReceipt, 10)
		second := sampleVoucher(voucher.KindReceipt, 11)
		mockService.On("CreateVouchers", mock.Anything, mock.MatchedBy(func(d []voucher.Draft) bool {
			return len(d) == 2 && d[0].CreatedBy == testActor && d[1].CreatedBy == testActor
		})).Return([]ledger.BatchResult{{Index: 0, Voucher: first}, {Index: 1, Voucher: second}})

		router := setupTestRouter()
		router.POST("/vouchers/batch", handler.CreateBatch)

		rr := doRequest(t, router, http.MethodPost, "/vouchers/batch", map[string]interface{}{
			"vouchers": []map[string]interface{}{
				{"kind": "receipt", "amount": "100", "currency": "IQD"},
				{"kind": "receipt", "amount": "200", "currency": "IQD"},
			},
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var items []BatchItemResponse
		decodeData(t, rr, &items)
		require.Len(t, items, 2)
		assert.Equal(t, int64(10), items[0].Voucher.Number)
		assert.Nil(t, items[1].Error)
		mockService.AssertExpectations(t)
	})

	t.Run("PartialFailure", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("CreateVouchers", mock.Anything, mock.Anything).Return([]ledger.BatchResult{
			{Index: 0, Voucher: sampleVoucher(voucher.KindReceipt, 12)},
			{Index: 1, Err: voucher.ValidationFailed{Field: "amount", Reason: "must be positive"}},
		})

		router := setupTestRouter()
		router.POST("/vouchers/batch", handler.CreateBatch)

		rr := doRequest(t, router, http.MethodPost, "/vouchers/batch", map[string]interface{}{
			"vouchers": []map[string]interface{}{
				{"kind": "receipt", "amount": "100", "currency": "IQD"},
				{"kind": "receipt", "amount": "0", "currency": "IQD"},
			},
		})

		assert.Equal(t, http.StatusMultiStatus, rr.Code)
		var items []BatchItemResponse
		decodeData(t, rr, &items)
		require.Len(t, items, 2)
		assert.NotNil(t, items[0].Voucher)
		require.NotNil(t, items[1].Error)
		assert.Equal(t, CodeValidationFailed, items[1].Error.Code)
		assert.Equal(t, "amount", items[1].Error.Details["field"])
	})

	t.Run("TransferLegItemRejected", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		created := sampleVoucher(voucher.KindPayment, 40)
		mockService.On("CreateVouchers", mock.Anything, mock.MatchedBy(func(d []voucher.Draft) bool {
			return len(d) == 1 && d[0].Kind == voucher.KindPayment
		})).Return([]ledger.BatchResult{{Index: 0, Voucher: created}})

		router := setupTestRouter()
		router.POST("/vouchers/batch", handler.CreateBatch)

		rr := doRequest(t, router, http.MethodPost, "/vouchers/batch", map[string]interface{}{
			"vouchers": []map[string]interface{}{
				{"kind": "transfer_leg", "direction": "out", "amount": "100", "currency": "IQD"},
				{"kind": "payment", "amount": "100", "currency": "IQD"},
			},
		})

		assert.Equal(t, http.StatusMultiStatus, rr.Code)
		var items []BatchItemResponse
		decodeData(t, rr, &items)
		require.Len(t, items, 2)
		require.NotNil(t, items[0].Error)
		assert.Equal(t, CodeValidationFailed, items[0].Error.Code)
		assert.Equal(t, "kind", items[0].Error.Details["field"])
		assert.Nil(t, items[0].Voucher)
		assert.Equal(t, 1, items[1].Index)
		require.NotNil(t, items[1].Voucher)
		assert.Equal(t, int64(40), items[1].Voucher.Number)
		mockService.AssertExpectations(t)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/vouchers/batch", handler.CreateBatch)

		rr := doRequest(t, router, http.MethodPost, "/vouchers/batch", map[string]interface{}{"vouchers": []interface{}{}})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateVouchers", mock.Anything, mock.Anything)
	})
}

func TestVoucherHandler_GetByID(t *testing.T) {
	logger := testLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		expected := sampleVoucher(voucher.KindPayment, 4)
		mockService.On("GetVoucher", mock.Anything, expected.ID).Return(expected, nil)

		router := setupTestRouter()
		router.GET("/vouchers/:id", handler.GetByID)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/"+expected.ID.String(), nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got voucher.Voucher
		decodeData(t, rr, &got)
		assert.Equal(t, expected.ID, got.ID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		id := uuid.New()
		mockService.On("GetVoucher", mock.Anything, id).Return(nil, voucher.ErrVoucherNotFound{ID: id})

		router := setupTestRouter()
		router.GET("/vouchers/:id", handler.GetByID)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/vouchers/:id", handler.GetByID)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "GetVoucher", mock.Anything, mock.Anything)
	})
}

func TestVoucherHandler_NextNumber(t *testing.T) {
	logger := testLogger()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("NextNumber", mock.Anything, voucher.KindPayment).Return(int64(42), nil)

		router := setupTestRouter()
		router.GET("/vouchers/next-number", handler.NextNumber)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/next-number?kind=payment", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var got NextNumberResponse
		decodeData(t, rr, &got)
		assert.Equal(t, int64(42), got.NextNumber)
		assert.True(t, got.Advisory)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/vouchers/next-number", handler.NextNumber)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/next-number?kind=bogus", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeData(t, rr, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "kind", resp.Error.Details["field"])
		mockService.AssertNotCalled(t, "NextNumber", mock.Anything, mock.Anything)
	})

	t.Run("ServiceValidationError", func(t *testing.T) {
		mockService := new(MockVoucherService)
		handler := NewVoucherHandler(logger, mockService)

		mockService.On("NextNumber", mock.Anything, voucher.KindJournal).
			Return(int64(0), fmt.Errorf("wrap: %w", voucher.ValidationFailed{Field: "kind", Reason: "unknown"}))

		router := setupTestRouter()
		router.GET("/vouchers/next-number", handler.NextNumber)

		rr := doRequest(t, router, http.MethodGet, "/vouchers/next-number?kind=JOURNAL", nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})
}
