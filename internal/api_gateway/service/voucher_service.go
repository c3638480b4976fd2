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

// VoucherLedger is the part of ledger.Writer the service drives
type VoucherLedger interface {
	ledger.VoucherWriter
	NextNumber(ctx context.Context, kind voucher.Kind) (int64, error)
	GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error)
}

// BatchWriter is implemented by ledger.BatchWriter
type BatchWriter interface {
	WriteAll(ctx context.Context, drafts []voucher.Draft) []ledger.BatchResult
}

// VoucherServiceImpl implements the VoucherService interface
type VoucherServiceImpl struct {
	writer    VoucherLedger
	batch     BatchWriter
	directory directory.Directory
	logger    *slog.Logger
}

func NewVoucherService(logger *slog.Logger, writer VoucherLedger, batch BatchWriter, dir directory.Directory) VoucherService {
	return &VoucherServiceImpl{
		writer:    writer,
		batch:     batch,
		directory: dir,
		logger:    logger,
	}
}

func (s *VoucherServiceImpl) CreateVoucher(ctx context.Context, draft voucher.Draft) (*voucher.Voucher, error) {
	if err := s.prepare(ctx, &draft); err != nil {
		return nil, err
	}
	return s.writer.Write(ctx, draft)
}

// CreateVouchers prepares every draft first; drafts that fail preparation are not submitted
func (s *VoucherServiceImpl) CreateVouchers(ctx context.Context, drafts []voucher.Draft) []ledger.BatchResult {
	results := make([]ledger.BatchResult, len(drafts))
	var (
		ready   []voucher.Draft
		indexes []int
	)
	for i := range drafts {
		results[i].Index = i
		draft := drafts[i]
		if err := s.prepare(ctx, &draft); err != nil {
			results[i].Err = err
			continue
		}
		ready = append(ready, draft)
		indexes = append(indexes, i)
	}

	if len(ready) > 0 {
		for j, r := range s.batch.WriteAll(ctx, ready) {
			results[indexes[j]].Voucher = r.Voucher
			results[indexes[j]].Err = r.Err
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("Voucher batch processed", "submitted", len(drafts), "failed", failed)
	return results
}

func (s *VoucherServiceImpl) GetVoucher(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	return s.writer.GetVoucher(ctx, id)
}

func (s *VoucherServiceImpl) NextNumber(ctx context.Context, kind voucher.Kind) (int64, error) {
	return s.writer.NextNumber(ctx, kind)
}

// prepare rejects transfer legs, which only the transfer orchestrator may write, then enriches the draft
func (s *VoucherServiceImpl) prepare(ctx context.Context, draft *voucher.Draft) error {
	if err := voucher.RequireStandalone(draft.Kind); err != nil {
		return err
	}
	return s.enrich(ctx, draft)
}

// enrich copies directory names onto a draft that references a safe or party by id only
func (s *VoucherServiceImpl) enrich(ctx context.Context, draft *voucher.Draft) error {
	if draft.SafeID != nil && draft.SafeName == "" {
		safe, err := s.directory.GetSafe(ctx, *draft.SafeID)
		if err != nil {
			if errors.Is(err, directory.ErrSafeNotFound{}) {
				return voucher.ValidationFailed{Field: "safe_id", Reason: "unknown safe " + draft.SafeID.String()}
			}
			return fmt.Errorf("failed to resolve safe: %w", err)
		}
		draft.SafeName = safe.Name
	}

	if draft.PartyID != nil && draft.PartyName == "" {
		party, err := s.directory.GetParty(ctx, *draft.PartyID)
		if err != nil {
			if errors.Is(err, directory.ErrPartyNotFound{}) {
				return voucher.ValidationFailed{Field: "party_id", Reason: "unknown party " + draft.PartyID.String()}
			}
			return fmt.Errorf("failed to resolve party: %w", err)
		}
		draft.PartyName = party.Name
		if draft.PartyType == "" {
			draft.PartyType = party.Type
		}
	}
	return nil
}
