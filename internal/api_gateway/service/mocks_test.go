package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockVoucherLedger struct {
	mock.Mock
}

func (m *MockVoucherLedger) Write(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherLedger) NextNumber(ctx context.Context, kind voucher.Kind) (int64, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoucherLedger) GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

type MockBatchWriter struct {
	mock.Mock
}

func (m *MockBatchWriter) WriteAll(ctx context.Context, drafts []voucher.Draft) []ledger.BatchResult {
	args := m.Called(ctx, drafts)
	return args.Get(0).([]ledger.BatchResult)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetSafe(ctx context.Context, id uuid.UUID) (*directory.Safe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Safe), args.Error(1)
}

func (m *MockDirectory) GetParty(ctx context.Context, id uuid.UUID) (*directory.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*directory.Party), args.Error(1)
}

func (m *MockDirectory) FindPartiesByName(ctx context.Context, name string) ([]*directory.Party, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]*directory.Party), args.Error(1)
}

type MockTransferer struct {
	mock.Mock
}

func (m *MockTransferer) Transfer(ctx context.Context, req ledger.TransferRequest) (*voucher.Voucher, *voucher.Voucher, error) {
	args := m.Called(ctx, req)
	var legA, legB *voucher.Voucher
	if args.Get(0) != nil {
		legA = args.Get(0).(*voucher.Voucher)
	}
	if args.Get(1) != nil {
		legB = args.Get(1).(*voucher.Voucher)
	}
	return legA, legB, args.Error(2)
}

type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	return m.Called(ctx, v).Error(0)
}

func (m *MockVoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) SetLinked(ctx context.Context, id, linkedID uuid.UUID) error {
	return m.Called(ctx, id, linkedID).Error(0)
}

func (m *MockVoucherRepository) FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) SafeBalances(ctx context.Context, safeID uuid.UUID) ([]voucher.SafeBalance, error) {
	args := m.Called(ctx, safeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]voucher.SafeBalance), args.Error(1)
}

func (m *MockVoucherRepository) WithTx(tx pgx.Tx) voucher.Repository {
	return m
}

type MockStatementRepository struct {
	mock.Mock
}

func (m *MockStatementRepository) Upsert(ctx context.Context, entry *statement.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStatementRepository) GetByVoucherID(ctx context.Context, voucherID uuid.UUID) (*statement.Entry, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Entry), args.Error(1)
}

func (m *MockStatementRepository) ListBySafe(ctx context.Context, safeID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	args := m.Called(ctx, safeID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Entry), args.Error(1)
}

func (m *MockStatementRepository) CountBySafe(ctx context.Context, safeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, safeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatementRepository) FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*voucher.Voucher), args.Error(1)
}
