package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// SafeServiceImpl implements the SafeService interface
type SafeServiceImpl struct {
	vouchers   voucher.Repository
	statements statement.Repository
	directory  directory.Directory
	logger     *slog.Logger
}

func NewSafeService(logger *slog.Logger, vouchers voucher.Repository, statements statement.Repository, dir directory.Directory) SafeService {
	return &SafeServiceImpl{
		vouchers:   vouchers,
		statements: statements,
		directory:  dir,
		logger:     logger,
	}
}

// Balance is recomputed from the system of record on every call
func (s *SafeServiceImpl) Balance(ctx context.Context, safeID uuid.UUID) (*SafeBalance, error) {
	safe, err := s.directory.GetSafe(ctx, safeID)
	if err != nil {
		return nil, err
	}

	balances, err := s.vouchers.SafeBalances(ctx, safeID)
	if err != nil {
		return nil, err
	}
	if balances == nil {
		balances = []voucher.SafeBalance{}
	}

	return &SafeBalance{SafeID: safe.ID, SafeName: safe.Name, Balances: balances}, nil
}

// Statement pages through the projection newest first
func (s *SafeServiceImpl) Statement(ctx context.Context, safeID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error) {
	if _, err := s.directory.GetSafe(ctx, safeID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	entries, err := s.statements.ListBySafe(ctx, safeID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.statements.CountBySafe(ctx, safeID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
