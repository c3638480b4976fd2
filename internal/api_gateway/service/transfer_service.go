package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/ledger"
)

// Transferer is implemented by ledger.Orchestrator
type Transferer interface {
	Transfer(ctx context.Context, req ledger.TransferRequest) (*voucher.Voucher, *voucher.Voucher, error)
}

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	orchestrator Transferer
	directory    directory.Directory
	logger       *slog.Logger
}

func NewTransferService(logger *slog.Logger, orchestrator Transferer, dir directory.Directory) TransferService {
	return &TransferServiceImpl{
		orchestrator: orchestrator,
		directory:    dir,
		logger:       logger,
	}
}

func (s *TransferServiceImpl) CreateTransfer(ctx context.Context, cmd TransferCommand) (*voucher.Voucher, *voucher.Voucher, error) {
	if cmd.FromSafeID == cmd.ToSafeID {
		return nil, nil, voucher.InvalidTransferTarget{SafeID: cmd.FromSafeID}
	}

	from, err := s.safe(ctx, cmd.FromSafeID, "from_safe_id")
	if err != nil {
		return nil, nil, err
	}
	to, err := s.safe(ctx, cmd.ToSafeID, "to_safe_id")
	if err != nil {
		return nil, nil, err
	}

	legA, legB, err := s.orchestrator.Transfer(ctx, ledger.TransferRequest{
		From:     *from,
		To:       *to,
		Amount:   cmd.Amount,
		Currency: cmd.Currency,
		Memo:     cmd.Memo,
		Actor:    cmd.Actor,
	})
	if err != nil {
		return legA, legB, err
	}

	s.logger.Info("Transfer recorded",
		"from_safe_id", from.ID.String(),
		"to_safe_id", to.ID.String(),
		"amount", cmd.Amount.String(),
		"currency", string(cmd.Currency),
		"out_number", legA.Number,
		"in_number", legB.Number,
	)
	return legA, legB, nil
}

func (s *TransferServiceImpl) safe(ctx context.Context, id uuid.UUID, field string) (*directory.Safe, error) {
	safe, err := s.directory.GetSafe(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrSafeNotFound{}) {
			return nil, voucher.ValidationFailed{Field: field, Reason: "unknown safe " + id.String()}
		}
		return nil, fmt.Errorf("failed to resolve safe: %w", err)
	}
	return safe, nil
}
