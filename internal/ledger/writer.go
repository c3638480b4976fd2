package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/outbox"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// VoucherWriter is the single entry point for recording a voucher
type VoucherWriter interface {
	Write(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error)
}

// RetryPolicy bounds the retries spent on number contention
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// newBackOff doubles the delay per attempt and randomizes each wait over [0, 2*delay]
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.MaxInterval = p.MaxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 1
	exp.MaxElapsedTime = 0
	exp.Reset()

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Writer validates, prices, numbers and persists vouchers. Each voucher is one transaction.
type Writer struct {
	transactor persistence.Transactor
	vouchers   voucher.Repository
	outbox     outbox.Repository
	allocator  *Allocator
	resolver   *CurrencyResolver
	validate   *validator.Validate
	epsilon    decimal.Decimal
	retry      RetryPolicy
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

var _ VoucherWriter = (*Writer)(nil)

func NewWriter(
	logger *slog.Logger,
	transactor persistence.Transactor,
	vouchers voucher.Repository,
	outboxRepo outbox.Repository,
	allocator *Allocator,
	resolver *CurrencyResolver,
	cfg *config.LedgerConfig,
	m *metrics.Metrics,
) (*Writer, error) {
	epsilon, err := decimal.NewFromString(cfg.JournalEpsilon)
	if err != nil {
		return nil, fmt.Errorf("invalid journal epsilon %q: %w", cfg.JournalEpsilon, err)
	}

	return &Writer{
		transactor: transactor,
		vouchers:   vouchers,
		outbox:     outboxRepo,
		allocator:  allocator,
		resolver:   resolver,
		validate:   newDraftValidator(),
		epsilon:    epsilon,
		retry: RetryPolicy{
			MaxAttempts: cfg.AllocatorMaxAttempts,
			BaseDelay:   cfg.AllocatorBaseDelay,
			MaxDelay:    cfg.AllocatorMaxDelay,
		},
		metrics: m,
		logger:  logger,
	}, nil
}

// Write records a voucher. Only number contention is retried; every other failure
// returns immediately and leaves nothing behind.
func (w *Writer) Write(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error) {
	v, err := checkDraft(w.validate, draft, w.epsilon)
	if err != nil {
		return nil, err
	}

	rate, err := w.resolver.Resolve(ctx, v.Currency, draft.FixedRate)
	if err != nil {
		return nil, err
	}
	v.ExchangeRate = rate

	attempt := 0
	operation := func() error {
		attempt++
		err := w.transactor.ExecuteTx(ctx, func(tx pgx.Tx) error {
			return w.persist(ctx, tx, v)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, voucher.ErrNumberContention) {
			w.metrics.NumberContention()
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Warn("Voucher number contended, retrying",
			"voucher_id", v.ID.String(),
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, w.retry.newBackOff(ctx), notify); err != nil {
		if errors.Is(err, voucher.ErrNumberContention) {
			w.logger.Error("Voucher number contention persisted",
				"voucher_id", v.ID.String(),
				"kind", string(v.Kind),
				"attempts", attempt,
			)
			return nil, err
		}
		w.logger.Error("Failed to record voucher",
			"voucher_id", v.ID.String(),
			"kind", string(v.Kind),
			"amount", v.Amount.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to record voucher: %w", err)
	}

	w.metrics.VoucherCreated(string(v.Kind), string(v.Currency))
	w.logger.Info("Voucher recorded",
		"voucher_id", v.ID.String(),
		"number", v.Number,
		"series", v.NumberSeries,
		"kind", string(v.Kind),
		"amount", v.Amount.String(),
		"currency", string(v.Currency),
		"created_by", v.CreatedBy.EmployeeID,
	)
	return v, nil
}

// NextNumber is advisory; concurrent writers may take the number first
func (w *Writer) NextNumber(ctx context.Context, kind voucher.Kind) (int64, error) {
	if !kind.Valid() {
		return 0, voucher.ValidationFailed{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	return w.allocator.Peek(ctx, kind)
}

// GetVoucher reads a voucher from the system of record
func (w *Writer) GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	return w.vouchers.GetByID(ctx, id)
}

func (w *Writer) persist(ctx context.Context, tx pgx.Tx, v *voucher.Voucher) error {
	assigned, err := w.allocator.Next(ctx, tx, v.Kind)
	if err != nil {
		return err
	}
	v.Number = assigned.Number
	v.NumberSeries = assigned.Series

	if err := w.vouchers.WithTx(tx).Create(ctx, v); err != nil {
		return err
	}

	msg, err := outbox.NewMessage(outbox.EventVoucherCreated, v)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return w.outbox.WithTx(tx).Create(ctx, msg)
}

// checkDraft runs every check that needs no storage and returns the unnumbered voucher
func checkDraft(validate *validator.Validate, draft voucher.Draft, epsilon decimal.Decimal) (*voucher.Voucher, error) {
	if err := validate.Struct(draft); err != nil {
		return nil, validationError(err)
	}
	return voucher.NewVoucher(draft, epsilon)
}

func newDraftValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError reports the first failing field by its JSON path
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return voucher.ValidationFailed{Field: field, Reason: fmt.Sprintf("failed %q check", fe.Tag())}
	}
	return voucher.ValidationFailed{Reason: err.Error()}
}
