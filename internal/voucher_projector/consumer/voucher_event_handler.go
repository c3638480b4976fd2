// Package consumer projects voucher events from Kafka into the statement read model.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/outbox"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/statement"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/messaging/producers"
	"github.com/segmentio/kafka-go"
)

// VoucherEventHandler upserts projected vouchers. Unprocessable messages go to the DLQ.
type VoucherEventHandler struct {
	statements statement.Repository
	producer   producers.DeadLetterPublisher
	logger     *slog.Logger
}

func NewVoucherEventHandler(
	logger *slog.Logger,
	statements statement.Repository,
	producer producers.DeadLetterPublisher,
) *VoucherEventHandler {
	return &VoucherEventHandler{
		statements: statements,
		producer:   producer,
		logger:     logger,
	}
}

// HandleMessage is a consumers.MessageHandler. A nil return commits the offset.
func (h *VoucherEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		return h.deadLetter(ctx, msg, err)
	}

	v := event.Voucher
	logger := h.logger.With("voucher_id", v.ID.String(), "event_type", event.EventType)

	entry := statement.FromVoucher(v)
	if event.EventType == outbox.EventVoucherCreated {
		// a redelivered create must not drop a link that was already projected
		existing, err := h.statements.GetByVoucherID(ctx, v.ID)
		if err != nil && !errors.Is(err, statement.ErrEntryNotFound{}) {
			logger.Error("Failed to read existing statement entry", "error", err)
			return fmt.Errorf("failed to read statement entry %s: %w", v.ID, err)
		}
		if existing != nil && entry.LinkedVoucherID == nil {
			entry.LinkedVoucherID = existing.LinkedVoucherID
		}
	}

	if err := h.statements.Upsert(ctx, entry); err != nil {
		logger.Error("Failed to project voucher", "number", v.Number, "error", err)
		return fmt.Errorf("projecting voucher %s failed: %w", v.ID, err)
	}

	logger.Info("Projected voucher", "number", v.Number, "safe_id", safeIDString(v.SafeID))
	return nil
}

func (h *VoucherEventHandler) deadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	reason := fmt.Sprintf("Failed to decode voucher event: %s", cause)
	h.logger.Error("Unprocessable voucher event", "message_key", string(msg.Key), "offset", msg.Offset, "error", cause)

	if h.producer == nil {
		return fmt.Errorf("failed to decode voucher event: %w", cause)
	}
	if err := h.producer.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(msg.Key),
		)
		return fmt.Errorf("failed to decode voucher event: %w", cause)
	}
	return nil
}

func decodeEvent(value []byte) (*outbox.VoucherEvent, error) {
	msg := outbox.Message{Payload: value}
	event, err := msg.GetVoucherEvent()
	if err != nil {
		return nil, err
	}
	switch event.EventType {
	case outbox.EventVoucherCreated, outbox.EventVoucherLinked:
	default:
		return nil, fmt.Errorf("unknown event type %q", event.EventType)
	}
	if event.Voucher == nil || event.Voucher.ID == uuid.Nil {
		return nil, errors.New("event carries no voucher")
	}
	return event, nil
}

func safeIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
