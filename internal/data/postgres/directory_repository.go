package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/directory"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// DirectoryRepository reads safes, parties and course enrollments. The ledger never writes them.
type DirectoryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDirectoryRepository(logger *slog.Logger, db *persistence.PostgresDB) directory.Directory {
	return &DirectoryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DirectoryRepository) GetSafe(ctx context.Context, id uuid.UUID) (*directory.Safe, error) {
	query := `SELECT id, name FROM safes WHERE id = $1`

	var safe directory.Safe
	if err := r.querier.QueryRow(ctx, query, id).Scan(&safe.ID, &safe.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrSafeNotFound{ID: id}
		}
		r.logger.Error("Failed to get safe", "safe_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get safe: %w", err)
	}

	return &safe, nil
}

// GetParty loads a party together with its course enrollments
func (r *DirectoryRepository) GetParty(ctx context.Context, id uuid.UUID) (*directory.Party, error) {
	query := `SELECT id, name, party_type FROM parties WHERE id = $1`

	var party directory.Party
	if err := r.querier.QueryRow(ctx, query, id).Scan(&party.ID, &party.Name, &party.Type); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrPartyNotFound{ID: id}
		}
		r.logger.Error("Failed to get party", "party_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get party: %w", err)
	}

	enrollments, err := r.enrollments(ctx, id)
	if err != nil {
		return nil, err
	}
	party.Enrollments = enrollments

	return &party, nil
}

// FindPartiesByName matches the exact name. Enrollments are not loaded.
func (r *DirectoryRepository) FindPartiesByName(ctx context.Context, name string) ([]*directory.Party, error) {
	query := `SELECT id, name, party_type FROM parties WHERE name = $1 ORDER BY id`

	rows, err := r.querier.Query(ctx, query, name)
	if err != nil {
		r.logger.Error("Failed to find parties", "name", name, "error", err)
		return nil, fmt.Errorf("failed to find parties: %w", err)
	}
	defer rows.Close()

	var parties []*directory.Party
	for rows.Next() {
		var party directory.Party
		if err := rows.Scan(&party.ID, &party.Name, &party.Type); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, &party)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over parties: %w", err)
	}

	return parties, nil
}

func (r *DirectoryRepository) enrollments(ctx context.Context, partyID uuid.UUID) ([]directory.CourseEnrollment, error) {
	query := `
		SELECT c.course_id, c.course_name, c.course_fee, c.currency
		FROM course_enrollments c
		WHERE c.party_id = $1
		ORDER BY c.course_name
	`

	rows, err := r.querier.Query(ctx, query, partyID)
	if err != nil {
		r.logger.Error("Failed to load enrollments", "party_id", partyID.String(), "error", err)
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []directory.CourseEnrollment
	for rows.Next() {
		var e directory.CourseEnrollment
		if err := rows.Scan(&e.CourseID, &e.CourseName, &e.CourseFee, &e.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over enrollments: %w", err)
	}

	return enrollments, nil
}
