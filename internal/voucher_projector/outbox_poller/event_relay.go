package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/outbox"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/platform/messaging/producers"
)

// EventRelay moves one outbox message onto the voucher events topic
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaRelay implements EventRelay
type KafkaRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.EventPublisher
	logger     *slog.Logger
}

func NewKafkaRelay(
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	logger *slog.Logger,
) EventRelay {
	return &KafkaRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Relay publishes the payload keyed by voucher id and marks the message PROCESSED.
// A payload that does not decode is marked FAILED_TO_PUBLISH straight away.
func (r *KafkaRelay) Relay(ctx context.Context, message *outbox.Message) error {
	logger := r.logger.With("outbox_id", message.ID, "voucher_id", message.VoucherID.String())

	event, err := message.GetVoucherEvent()
	if err != nil || event.Voucher == nil {
		if err == nil {
			err = fmt.Errorf("payload carries no voucher")
		}
		logger.Error("Failed to decode voucher event from outbox payload", "error", err)
		if updateErr := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			logger.Error("Also failed to mark outbox message FAILED_TO_PUBLISH", "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	if err := r.publisher.Publish(ctx, message.VoucherID.String(), message.Payload, message.EventType); err != nil {
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to mark outbox message PROCESSED after publish", "error", err)
		return fmt.Errorf("event for voucher %s published, but failed to mark outbox %d as PROCESSED: %w", message.VoucherID, message.ID, err)
	}

	logger.Info("Relayed voucher event", "event_type", message.EventType, "number", event.Voucher.Number)
	return nil
}
