package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

const (
	// StatementCollectionName is the name of the projection collection in MongoDB
	StatementCollectionName = "voucher_statements"
)

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewStatementRepository(logger *slog.Logger, db *mongo.Database) *StatementRepository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

type allocationDocument struct {
	Name     string               `bson:"name"`
	CourseID *uuid.UUID           `bson:"course_id,omitempty"`
	Amount   primitive.Decimal128 `bson:"amount"`
}

type statementDocument struct {
	VoucherID        uuid.UUID            `bson:"voucher_id"`
	Number           int64                `bson:"number"`
	NumberSeries     string               `bson:"number_series"`
	Kind             string               `bson:"kind"`
	Direction        string               `bson:"direction"`
	PartyName        string               `bson:"party_name"`
	PartyID          *uuid.UUID           `bson:"party_id,omitempty"`
	PartyType        string               `bson:"party_type,omitempty"`
	Amount           primitive.Decimal128 `bson:"amount"`
	Currency         string               `bson:"currency"`
	ExchangeRate     primitive.Decimal128 `bson:"exchange_rate"`
	BaseAmount       primitive.Decimal128 `bson:"base_amount"`
	SafeID           *uuid.UUID           `bson:"safe_id,omitempty"`
	SafeName         string               `bson:"safe_name,omitempty"`
	DistributionMode string               `bson:"distribution_mode"`
	Allocations      []allocationDocument `bson:"allocations,omitempty"`
	Details          string               `bson:"details,omitempty"`
	CreatedBy        shared.Actor         `bson:"created_by"`
	CreatedAt        time.Time            `bson:"created_at"`
	LinkedVoucherID  *uuid.UUID           `bson:"linked_voucher_id,omitempty"`
	ProjectedAt      time.Time            `bson:"projected_at"`
}

// EnsureIndexes creates the unique voucher index and the per-safe statement index
func (r *StatementRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(StatementCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "voucher_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "safe_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "number", Value: -1}}},
		{Keys: bson.D{{Key: "party_id", Value: 1}, {Key: "kind", Value: 1}}},
		{Keys: bson.D{{Key: "party_name", Value: 1}, {Key: "kind", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create statement indexes: %w", err)
	}
	return nil
}

// Upsert replaces the projection of a voucher, inserting it on first sight
func (r *StatementRepository) Upsert(ctx context.Context, entry *statement.Entry) error {
	collection := r.db.Collection(StatementCollectionName)

	doc, err := toDocument(entry)
	if err != nil {
		return fmt.Errorf("failed to encode statement entry: %w", err)
	}

	filter := bson.M{"voucher_id": entry.VoucherID}
	_, err = collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert statement entry",
			"voucher_id", entry.VoucherID.String(),
			"error", err)
		return fmt.Errorf("failed to upsert statement entry: %w", err)
	}

	return nil
}

func (r *StatementRepository) GetByVoucherID(ctx context.Context, voucherID uuid.UUID) (*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	var doc statementDocument
	err := collection.FindOne(ctx, bson.M{"voucher_id": voucherID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, statement.ErrEntryNotFound{VoucherID: voucherID}
		}
		r.logger.Error("Failed to get statement entry",
			"voucher_id", voucherID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement entry: %w", err)
	}

	return fromDocument(&doc)
}

// ListBySafe retrieves paginated entries for a safe, newest first
func (r *StatementRepository) ListBySafe(ctx context.Context, safeID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	collection := r.db.Collection(StatementCollectionName)

	filter := bson.M{"safe_id": safeID}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "number", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	entries, err := r.find(ctx, collection, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list safe statement",
			"safe_id", safeID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list safe statement: %w", err)
	}

	return entries, nil
}

func (r *StatementRepository) CountBySafe(ctx context.Context, safeID uuid.UUID) (int64, error) {
	collection := r.db.Collection(StatementCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"safe_id": safeID})
	if err != nil {
		r.logger.Error("Failed to count safe statement",
			"safe_id", safeID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count safe statement: %w", err)
	}

	return count, nil
}

// FindReceipts serves reconciliation from the projection
func (r *StatementRepository) FindReceipts(ctx context.Context, filter voucher.ReceiptFilter) ([]*voucher.Voucher, error) {
	collection := r.db.Collection(StatementCollectionName)

	query := bson.M{"kind": bson.M{"$in": bson.A{string(voucher.KindReceipt), string(voucher.KindSpecialReceipt)}}}
	if filter.PartyID != nil {
		query["party_id"] = *filter.PartyID
	} else {
		query["party_name"] = filter.PartyName
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "number", Value: -1}})

	entries, err := r.find(ctx, collection, query, opts)
	if err != nil {
		r.logger.Error("Failed to query projected receipts",
			"party_name", filter.PartyName,
			"error", err)
		return nil, fmt.Errorf("failed to query projected receipts: %w", err)
	}

	vouchers := make([]*voucher.Voucher, 0, len(entries))
	for _, e := range entries {
		vouchers = append(vouchers, e.Voucher())
	}
	return vouchers, nil
}

func (r *StatementRepository) find(ctx context.Context, collection *mongo.Collection, filter interface{}, opts *options.FindOptions) ([]*statement.Entry, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []statementDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]*statement.Entry, 0, len(docs))
	for i := range docs {
		e, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func toDocument(e *statement.Entry) (*statementDocument, error) {
	amount, err := toDecimal128(e.Amount)
	if err != nil {
		return nil, err
	}
	rate, err := toDecimal128(e.ExchangeRate)
	if err != nil {
		return nil, err
	}
	base, err := toDecimal128(e.BaseAmount)
	if err != nil {
		return nil, err
	}

	var allocations []allocationDocument
	for _, a := range e.Allocations {
		amt, err := toDecimal128(a.Amount)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, allocationDocument{Name: a.Name, CourseID: a.CourseID, Amount: amt})
	}

	return &statementDocument{
		VoucherID:        e.VoucherID,
		Number:           e.Number,
		NumberSeries:     e.NumberSeries,
		Kind:             string(e.Kind),
		Direction:        string(e.Direction),
		PartyName:        e.PartyName,
		PartyID:          e.PartyID,
		PartyType:        string(e.PartyType),
		Amount:           amount,
		Currency:         string(e.Currency),
		ExchangeRate:     rate,
		BaseAmount:       base,
		SafeID:           e.SafeID,
		SafeName:         e.SafeName,
		DistributionMode: string(e.DistributionMode),
		Allocations:      allocations,
		Details:          e.Details,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
		LinkedVoucherID:  e.LinkedVoucherID,
		ProjectedAt:      e.ProjectedAt,
	}, nil
}

func fromDocument(d *statementDocument) (*statement.Entry, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	rate, err := fromDecimal128(d.ExchangeRate)
	if err != nil {
		return nil, err
	}
	base, err := fromDecimal128(d.BaseAmount)
	if err != nil {
		return nil, err
	}

	var allocations []voucher.Allocation
	for _, a := range d.Allocations {
		amt, err := fromDecimal128(a.Amount)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, voucher.Allocation{Name: a.Name, CourseID: a.CourseID, Amount: amt})
	}

	return &statement.Entry{
		VoucherID:        d.VoucherID,
		Number:           d.Number,
		NumberSeries:     d.NumberSeries,
		Kind:             voucher.Kind(d.Kind),
		Direction:        voucher.Direction(d.Direction),
		PartyName:        d.PartyName,
		PartyID:          d.PartyID,
		PartyType:        voucher.PartyType(d.PartyType),
		Amount:           amount,
		Currency:         voucher.Currency(d.Currency),
		ExchangeRate:     rate,
		BaseAmount:       base,
		SafeID:           d.SafeID,
		SafeName:         d.SafeName,
		DistributionMode: voucher.DistributionMode(d.DistributionMode),
		Allocations:      allocations,
		Details:          d.Details,
		CreatedBy:        d.CreatedBy,
		CreatedAt:        d.CreatedAt,
		LinkedVoucherID:  d.LinkedVoucherID,
		ProjectedAt:      d.ProjectedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("invalid decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal128 %s: %w", v.String(), err)
	}
	return d, nil
}
