// Package postgres provides PostgreSQL implementations of the domain repositories.
// Postgres is the system of record for vouchers, number counters, the outbox,
// exchange rate history and the read-only safe and party directory.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const voucherColumns = `id, number, number_series, kind, direction, party_name, party_id, party_type,
		amount, currency, exchange_rate, safe_id, safe_name, distribution_mode, allocations,
		journal_lines, details, created_by_id, created_by_name, created_at, linked_voucher_id`

// VoucherRepository implements the voucher.Repository interface for PostgreSQL
type VoucherRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewVoucherRepository(logger *slog.Logger, db *persistence.PostgresDB) voucher.Repository {
	return &VoucherRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *VoucherRepository) WithTx(tx pgx.Tx) voucher.Repository {
	return &VoucherRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts a fully materialized voucher. The (number_series, number) unique
// constraint backs the allocator.
func (r *VoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	query := `
		INSERT INTO vouchers (id, number, number_series, kind, direction, party_name, party_id, party_type,
			amount, currency, exchange_rate, safe_id, safe_name, distribution_mode, allocations,
			journal_lines, details, created_by_id, created_by_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	allocations, err := marshalList(v.Allocations)
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}
	lines, err := marshalList(v.JournalLines)
	if err != nil {
		return fmt.Errorf("failed to encode journal lines: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		v.ID,
		v.Number,
		v.NumberSeries,
		v.Kind,
		v.Direction,
		v.PartyName,
		v.PartyID,
		v.PartyType,
		v.Amount,
		v.Currency,
		v.ExchangeRate,
		v.SafeID,
		v.SafeName,
		v.DistributionMode,
		allocations,
		lines,
		v.Details,
		v.CreatedBy.EmployeeID,
		v.CreatedBy.EmployeeName,
		v.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create voucher",
			"voucher_id", v.ID.String(),
			"number", v.Number,
			"kind", string(v.Kind),
			"amount", v.Amount.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	return nil
}

// GetByID retrieves a voucher by id
func (r *VoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`

	v, err := scanVoucher(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrVoucherNotFound{ID: id}
		}
		r.logger.Error("Failed to get voucher", "voucher_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	return v, nil
}

// SetLinked records the paired leg on an unlinked transfer leg
func (r *VoucherRepository) SetLinked(ctx context.Context, id, linkedID uuid.UUID) error {
	query := `
		UPDATE vouchers
		SET linked_voucher_id = $1
		WHERE id = $2 AND kind = $3 AND linked_voucher_id IS NULL
	`

	result, err := r.querier.Exec(ctx, query, linkedID, id, voucher.KindTransferLeg)
	if err != nil {
		r.logger.Error("Failed to link transfer leg",
			"voucher_id", id.String(),
			"linked_voucher_id", linkedID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to link transfer leg: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no unlinked transfer leg to patch: %w", voucher.ErrVoucherNotFound{ID: id})
	}

	return nil
}

// FindReceipts returns receipt and special receipt vouchers for a party, newest first.
// A party id filter takes precedence over the name.
func (r *VoucherRepository) FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE kind IN ($1, $2) AND `
	args := []interface{}{voucher.KindReceipt, voucher.KindSpecialReceipt}
	if filter.PartyID != nil {
		query += `party_id = $3`
		args = append(args, *filter.PartyID)
	} else {
		query += `party_name = $3`
		args = append(args, filter.PartyName)
	}
	query += ` ORDER BY created_at DESC, number DESC`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query receipts", "party_name", filter.PartyName, "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var vouchers []*voucher.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			r.logger.Error("Failed to scan receipt", "error", err)
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		vouchers = append(vouchers, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over receipts: %w", err)
	}

	return vouchers, nil
}

// SafeBalances derives the per-currency position of a safe from its vouchers
func (r *VoucherRepository) SafeBalances(ctx context.Context, safeID uuid.UUID) ([]voucher.SafeBalance, error) {
	query := `
		SELECT currency,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'in'), 0) AS total_in,
			COALESCE(SUM(amount) FILTER (WHERE direction = 'out'), 0) AS total_out
		FROM vouchers
		WHERE safe_id = $1
		GROUP BY currency
		ORDER BY currency
	`

	rows, err := r.querier.Query(ctx, query, safeID)
	if err != nil {
		r.logger.Error("Failed to query safe balance", "safe_id", safeID.String(), "error", err)
		return nil, fmt.Errorf("failed to query safe balance: %w", err)
	}
	defer rows.Close()

	var balances []voucher.SafeBalance
	for rows.Next() {
		var b voucher.SafeBalance
		if err := rows.Scan(&b.Currency, &b.In, &b.Out); err != nil {
			return nil, fmt.Errorf("failed to scan safe balance: %w", err)
		}
		b.Balance = b.In.Sub(b.Out)
		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over safe balance: %w", err)
	}

	return balances, nil
}

func scanVoucher(row pgx.Row) (*voucher.Voucher, error) {
	var (
		v           voucher.Voucher
		allocations []byte
		lines       []byte
	)

	err := row.Scan(
		&v.ID,
		&v.Number,
		&v.NumberSeries,
		&v.Kind,
		&v.Direction,
		&v.PartyName,
		&v.PartyID,
		&v.PartyType,
		&v.Amount,
		&v.Currency,
		&v.ExchangeRate,
		&v.SafeID,
		&v.SafeName,
		&v.DistributionMode,
		&allocations,
		&lines,
		&v.Details,
		&v.CreatedBy.EmployeeID,
		&v.CreatedBy.EmployeeName,
		&v.CreatedAt,
		&v.LinkedVoucherID,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalList(allocations, &v.Allocations); err != nil {
		return nil, fmt.Errorf("failed to decode allocations: %w", err)
	}
	if err := unmarshalList(lines, &v.JournalLines); err != nil {
		return nil, fmt.Errorf("failed to decode journal lines: %w", err)
	}

	return &v, nil
}

// marshalList encodes a slice as a JSON array, never as null
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func unmarshalList[T any](raw []byte, dest *[]T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return err
	}
	if len(*dest) == 0 {
		*dest = nil
	}
	return nil
}
