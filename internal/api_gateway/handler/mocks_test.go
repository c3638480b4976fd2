package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/middleware"
	"github.com/institute-backoffice/voucher-ledger/internal/api_gateway/service"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/exchange"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testActor = shared.Actor{EmployeeID: "emp-7", EmployeeName: "Sara"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter mounts routes behind RequireActor so handlers see an actor
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.RequireActor())
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.EmployeeIDHeader, testActor.EmployeeID)
	req.Header.Set(middleware.EmployeeNameHeader, testActor.EmployeeName)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope's data field into dest
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dest interface{}) *Response {
	t.Helper()

	var envelope struct {
		Data          json.RawMessage `json:"data"`
		Error         *ErrorInfo      `json:"error"`
		CorrelationID string          `json:"correlation_id"`
		Meta          *MetaInfo       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), rr.Body.String())
	if dest != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return &Response{Error: envelope.Error, CorrelationID: envelope.CorrelationID, Meta: envelope.Meta}
}

func sampleVoucher(kind voucher.Kind, number int64) *voucher.Voucher {
	return &voucher.Voucher{
		ID:           uuid.New(),
		Number:       number,
		NumberSeries: string(kind),
		Kind:         kind,
		Direction:    voucher.DirectionIn,
		PartyName:    "Ali",
		Amount:       decimal.NewFromInt(150000),
		Currency:     voucher.CurrencyIQD,
		ExchangeRate: decimal.NewFromInt(1),
		CreatedBy:    testActor,
	}
}

type MockVoucherService struct {
	mock.Mock
}

func (m *MockVoucherService) CreateVoucher(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherService) CreateVouchers(ctx context.Context, drafts []voucher.Draft) []ledger.BatchResult {
	args := m.Called(ctx, drafts)
	return args.Get(0).([]ledger.BatchResult)
}

func (m *MockVoucherService) GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherService) NextNumber(ctx context.Context, kind voucher.Kind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateTransfer(ctx context.Context, cmd service.TransferCommand) (*voucher.Voucher, *voucher.Voucher, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*voucher.Voucher), args.Get(1).(*voucher.Voucher), args.Error(2)
}

type MockSafeService struct {
	mock.Mock
}

func (m *MockSafeService) Balance(ctx context.Context, safeID uuid.UUID) (*service.SafeBalance, error) {
	args := m.Called(ctx, safeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SafeBalance), args.Error(1)
}

func (m *MockSafeService) Statement(ctx context.Context, safeID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error) {
	args := m.Called(ctx, safeID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*statement.Entry), args.Get(1).(int64), args.Error(2)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) BalanceFor(ctx context.Context, q ledger.ReconcileQuery) (*ledger.Balance, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Balance), args.Error(1)
}

type MockExchangeRateService struct {
	mock.Mock
}

func (m *MockExchangeRateService) Latest(ctx context.Context) (*exchange.Rate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exchange.Rate), args.Error(1)
}

func (m *MockExchangeRateService) SetRate(ctx context.Context, rate decimal.Decimal, actor shared.Actor) (*exchange.Rate, error) {
	args := m.Called(ctx, rate, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exchange.Rate), args.Error(1)
}
