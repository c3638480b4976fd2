package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/outbox"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/metrics"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransferRequest moves cash between two safes
type TransferRequest struct {
	From     directory.Safe
	To       directory.Safe
	Amount   decimal.Decimal
	Currency voucher.Currency
	Memo     string
	Actor    shared.Actor
}

// Orchestrator records a transfer as two linked legs
type Orchestrator struct {
	writer     VoucherWriter
	transactor persistence.Transactor
	vouchers   voucher.Repository
	outbox     outbox.Repository
	validate   *validator.Validate
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewOrchestrator(
	logger *slog.Logger,
	writer VoucherWriter,
	transactor persistence.Transactor,
	vouchers voucher.Repository,
	outboxRepo outbox.Repository,
	m *metrics.Metrics,
) *Orchestrator {
	return &Orchestrator{
		writer:     writer,
		transactor: transactor,
		vouchers:   vouchers,
		outbox:     outboxRepo,
		validate:   newDraftValidator(),
		metrics:    m,
		logger:     logger,
	}
}

// Transfer writes the outgoing leg, then the incoming leg at the same rate, then links
// them. Both legs are validated before the first write. No lock is held between the
// steps and nothing is retried. A failure after the first leg is reported as
// voucher.TransferPartiallyApplied naming the orphan.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*voucher.Voucher, *voucher.Voucher, error) {
	if req.From.ID == uuid.Nil || req.To.ID == uuid.Nil {
		return nil, nil, voucher.ValidationFailed{Field: "safe_id", Reason: "both safes are required"}
	}
	if req.From.ID == req.To.ID {
		return nil, nil, voucher.InvalidTransferTarget{SafeID: req.From.ID}
	}

	outDraft := legDraft(req, voucher.DirectionOut, req.From, req.To)
	inDraft := legDraft(req, outDraft.Direction.Opposite(), req.To, req.From)
	for _, d := range []voucher.Draft{outDraft, inDraft} {
		if _, err := checkDraft(o.validate, d, voucher.DefaultJournalEpsilon); err != nil {
			return nil, nil, err
		}
	}

	legA, err := o.writer.Write(ctx, outDraft)
	if err != nil {
		return nil, nil, err
	}

	rate := legA.ExchangeRate
	inDraft.FixedRate = &rate
	legB, err := o.writer.Write(ctx, inDraft)
	if err != nil {
		return legA, nil, o.partial(legA, nil, voucher.TransferStageSecondLeg, err)
	}

	if err := o.link(ctx, legA, legB); err != nil {
		return legA, legB, o.partial(legA, legB, voucher.TransferStageLink, err)
	}

	o.logger.Info("Transfer recorded",
		"out_voucher_id", legA.ID.String(),
		"in_voucher_id", legB.ID.String(),
		"from_safe", req.From.ID.String(),
		"to_safe", req.To.ID.String(),
		"amount", req.Amount.String(),
		"currency", string(req.Currency),
	)
	return legA, legB, nil
}

func legDraft(req TransferRequest, dir voucher.Direction, at, counterpart directory.Safe) voucher.Draft {
	safeID := at.ID
	return voucher.Draft{
		Kind:      voucher.KindTransferLeg,
		Direction: dir,
		PartyName: counterpart.Name,
		PartyType: voucher.PartySafeTransfer,
		Amount:    req.Amount,
		Currency:  req.Currency,
		SafeID:    &safeID,
		SafeName:  at.Name,
		Details:   req.Memo,
		CreatedBy: req.Actor,
	}
}

// link patches both legs in one transaction and emits voucher.linked for each
func (o *Orchestrator) link(ctx context.Context, legA, legB *voucher.Voucher) error {
	err := o.transactor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		vouchers := o.vouchers.WithTx(tx)
		if err := vouchers.SetLinked(ctx, legA.ID, legB.ID); err != nil {
			return err
		}
		if err := vouchers.SetLinked(ctx, legB.ID, legA.ID); err != nil {
			return err
		}

		messages := o.outbox.WithTx(tx)
		for _, pair := range [][2]*voucher.Voucher{{legA, legB}, {legB, legA}} {
			linked := *pair[0]
			linkedID := pair[1].ID
			linked.LinkedVoucherID = &linkedID
			msg, err := outbox.NewMessage(outbox.EventVoucherLinked, &linked)
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			if err := messages.Create(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	idA, idB := legA.ID, legB.ID
	legA.LinkedVoucherID = &idB
	legB.LinkedVoucherID = &idA
	return nil
}

func (o *Orchestrator) partial(legA, legB *voucher.Voucher, stage string, cause error) error {
	perr := voucher.TransferPartiallyApplied{OrphanID: legA.ID, Stage: stage, Cause: cause}
	if legB != nil {
		perr.CounterpartID = legB.ID
	}
	o.metrics.TransferPartiallyApplied()

	attrs := []any{
		"stage", stage,
		"orphan_voucher_id", legA.ID.String(),
		"orphan_number", legA.Number,
		"safe_id", legA.SafeID.String(),
		"amount", legA.Amount.String(),
		"currency", string(legA.Currency),
		"error", cause,
	}
	if legB != nil {
		attrs = append(attrs, "counterpart_voucher_id", legB.ID.String())
	}
	o.logger.Error("Transfer partially applied, manual repair required", attrs...)

	return perr
}
