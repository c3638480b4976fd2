package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// VoucherEventProducer writes outbox payloads to the voucher events topic.
// Writes are synchronous so the outbox row is only marked processed after the broker acked.
type VoucherEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

func NewVoucherEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*VoucherEventProducer, error) {
	if cfg.VoucherEventsTopic == "" {
		return nil, fmt.Errorf("kafka voucher events topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for voucher event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(ctx, conn, cfg.VoucherEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s exists for voucher event producer: %w", cfg.VoucherEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:  kafka.TCP(cfg.Brokers),
		Topic: cfg.VoucherEventsTopic,
		// Hash keeps every event of one voucher on one partition
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &VoucherEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.VoucherEventsTopic,
	}, nil
}

func (p *VoucherEventProducer) Publish(ctx context.Context, key string, payload []byte, eventType string) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: EventTypeHeader, Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish voucher event",
			"topic", p.topic,
			"key", key,
			"event_type", eventType,
			"error", err,
		)
		return fmt.Errorf("failed to publish voucher event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published voucher event",
		"topic", p.topic,
		"key", key,
		"event_type", eventType,
	)
	return nil
}

func (p *VoucherEventProducer) Close() error {
	p.logger.Info("Closing voucher event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close voucher event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
