package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/shared"
	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
)

// Event types published to the voucher events topic
const (
	EventVoucherCreated = "voucher.created"
	EventVoucherLinked  = "voucher.linked"
)

// VoucherEvent is the payload carried by an outbox message
type VoucherEvent struct {
	EventType  string           `json:"event_type"`
	Voucher    *voucher.Voucher `json:"voucher"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Message stores a voucher event for reliable publishing
type Message struct {
	ID            int64               `json:"id"`
	VoucherID     uuid.UUID           `json:"voucher_id"`
	EventType     string              `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(eventType string, v *voucher.Voucher) (*Message, error) {
	now := time.Now().UTC()
	payload, err := json.Marshal(VoucherEvent{EventType: eventType, Voucher: v, OccurredAt: now})
	if err != nil {
		return nil, err
	}

	return &Message{
		VoucherID: v.ID,
		EventType: eventType,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: now,
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetVoucherEvent decodes the payload
func (m *Message) GetVoucherEvent() (*VoucherEvent, error) {
	var event VoucherEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
