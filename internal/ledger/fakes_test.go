package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/outbox"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testActor = shared.Actor{EmployeeID: "emp-7", EmployeeName: "Sara"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLedgerConfig() *config.LedgerConfig {
	return &config.LedgerConfig{
		NumberingScope:       config.NumberingScopeGlobal,
		AllocatorMaxAttempts: 3,
		AllocatorBaseDelay:   time.Millisecond,
		AllocatorMaxDelay:    2 * time.Millisecond,
		CounterLockTimeout:   2 * time.Second,
		JournalEpsilon:       "0.01",
		ReconcileSource:      config.ReconcileSourcePostgres,
	}
}

// fakeCounter is an in-memory counter table; Increment is atomic like the upsert it stands in for
type fakeCounter struct {
	mu           sync.Mutex
	values       map[string]int64
	failures     []error
	lockTimeouts []int64
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{values: map[string]int64{}}
}

func (c *fakeCounter) Increment(ctx context.Context, series string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) > 0 {
		err := c.failures[0]
		c.failures = c.failures[1:]
		return 0, err
	}
	c.values[series]++
	return c.values[series], nil
}

func (c *fakeCounter) Current(ctx context.Context, series string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[series], nil
}

func (c *fakeCounter) SetLockTimeout(ctx context.Context, timeoutMillis int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lockTimeouts = append(c.lockTimeouts, timeoutMillis)
	return nil
}

func (c *fakeCounter) WithTx(tx pgx.Tx) voucher.CounterRepository {
	return c
}

// memVouchers stores vouchers in memory and applies the same linking rule as the table
type memVouchers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*voucher.Voucher
	order     []uuid.UUID
	createErr error
	linkErr   error
}

func newMemVouchers() *memVouchers {
	return &memVouchers{byID: map[uuid.UUID]*voucher.Voucher{}}
}

func (r *memVouchers) Create(ctx context.Context, v *voucher.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	stored := *v
	r.byID[v.ID] = &stored
	r.order = append(r.order, v.ID)
	return nil
}

func (r *memVouchers) GetByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[id]
	if !ok {
		return nil, voucher.ErrVoucherNotFound{ID: id}
	}
	copied := *v
	return &copied, nil
}

func (r *memVouchers) SetLinked(ctx context.Context, id, linkedID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		return r.linkErr
	}
	v, ok := r.byID[id]
	if !ok || v.Kind != voucher.KindTransferLeg || v.LinkedVoucherID != nil {
		return voucher.ErrVoucherNotFound{ID: id}
	}
	v.LinkedVoucherID = &linkedID
	return nil
}

func (r *memVouchers) FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*voucher.Voucher
	for _, id := range r.order {
		v := r.byID[id]
		if !v.Kind.IsReceipt() {
			continue
		}
		if filter.PartyID != nil {
			if v.PartyID == nil || *v.PartyID != *filter.PartyID {
				continue
			}
		} else if v.PartyName != filter.PartyName {
			continue
		}
		copied := *v
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memVouchers) SafeBalances(ctx context.Context, safeID uuid.UUID) ([]voucher.SafeBalance, error) {
	return nil, nil
}

func (r *memVouchers) WithTx(tx pgx.Tx) voucher.Repository {
	return r
}

func (r *memVouchers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memOutbox struct {
	mu       sync.Mutex
	messages []*outbox.Message
}

func (r *memOutbox) Create(ctx context.Context, message *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = int64(len(r.messages) + 1)
	r.messages = append(r.messages, message)
	return nil
}

func (r *memOutbox) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r *memOutbox) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return nil
}

func (r *memOutbox) IncrementAttempts(ctx context.Context, id int64) error { return nil }

func (r *memOutbox) WithTx(tx pgx.Tx) outbox.Repository { return r }

func (r *memOutbox) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.messages))
	for _, m := range r.messages {
		types = append(types, m.EventType)
	}
	return types
}

// inlineTransactor runs the unit of work without a database
type inlineTransactor struct{}

func (inlineTransactor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

var _ persistence.Transactor = inlineTransactor{}

// staticRates counts how often the live rate is requested
type staticRates struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *staticRates) CurrentRate(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.rate, s.err
}

type fakeDirectory struct {
	parties map[uuid.UUID]*directory.Party
}

func (d *fakeDirectory) GetSafe(ctx context.Context, id uuid.UUID) (*directory.Safe, error) {
	return nil, directory.ErrSafeNotFound{ID: id}
}

func (d *fakeDirectory) GetParty(ctx context.Context, id uuid.UUID) (*directory.Party, error) {
	p, ok := d.parties[id]
	if !ok {
		return nil, directory.ErrPartyNotFound{ID: id}
	}
	return p, nil
}

func (d *fakeDirectory) FindPartiesByName(ctx context.Context, name string) ([]*directory.Party, error) {
	return nil, nil
}

// MockVoucherWriter injects failures into the transfer and batch flows
type MockVoucherWriter struct {
	mock.Mock
}

func (m *MockVoucherWriter) Write(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

type ledgerFixture struct {
	counter  *fakeCounter
	vouchers *memVouchers
	outbox   *memOutbox
	rates    *staticRates
	writer   *Writer
}

func newLedgerFixture(t *testing.T, transactor persistence.Transactor) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		counter:  newFakeCounter(),
		vouchers: newMemVouchers(),
		outbox:   &memOutbox{},
		rates:    &staticRates{rate: dec("1310")},
	}
	cfg := testLedgerConfig()
	allocator := NewAllocator(discardLogger(), f.counter, cfg)
	w, err := NewWriter(discardLogger(), transactor, f.vouchers, f.outbox, allocator, NewCurrencyResolver(f.rates), cfg, nil)
	require.NoError(t, err)
	f.writer = w
	return f
}

func receiptDraft(partyName string, amount string) voucher.Draft {
	safeID := uuid.New()
	return voucher.Draft{
		Kind:      voucher.KindReceipt,
		PartyName: partyName,
		PartyType: voucher.PartyStudent,
		Amount:    dec(amount),
		Currency:  voucher.CurrencyIQD,
		SafeID:    &safeID,
		SafeName:  "Main Safe",
		CreatedBy: testActor,
	}
}
