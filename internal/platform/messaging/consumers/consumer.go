package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

type MessageHandler func(ctx context.Context, msg kafka.Message) error

const (
	defaultHandlerBaseDelay = 200 * time.Millisecond
	defaultHandlerMaxDelay  = 30 * time.Second
)

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// kafkaReader is the subset of kafka.Reader the consumer drives
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer on a consumer group
type KafkaConsumer struct {
	reader     kafkaReader
	logger     *slog.Logger
	topic      string
	groupID    string
	retryDelay time.Duration

	// bounds the in-place redelivery of a message the handler failed on
	handlerBaseDelay time.Duration
	handlerMaxDelay  time.Duration
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		logger:     logger,
		topic:      cfg.VoucherEventsTopic,
		groupID:    cfg.ConsumerGroup,
		retryDelay: time.Second,

		handlerBaseDelay: defaultHandlerBaseDelay,
		handlerMaxDelay:  defaultHandlerMaxDelay,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.VoucherEventsTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Subscribe starts consuming in the background until ctx is cancelled.
// Offsets are committed only after the handler succeeds. A failed message is
// retried in place, so the partition stalls on it instead of moving past it.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic", "topic", c.topic, "group_id", c.groupID)

	go c.run(ctx, handler)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		if ctx.Err() != nil {
			c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
			return
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "group_id", c.groupID, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if err := c.process(ctx, handler, msg); err != nil {
			c.logger.Warn("Stopped before message was processed, offset not committed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// process runs handler until it succeeds or ctx is cancelled. Committing a later
// offset on the partition would drop a skipped message for good.
func (c *KafkaConsumer) process(ctx context.Context, handler MessageHandler, msg kafka.Message) error {
	attempt := 0
	operation := func() error {
		attempt++
		return handler(ctx, msg)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Error("Failed to process message, retrying in place",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"wait", wait.String(),
			"error", err,
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(c.handlerBackOff(), ctx), notify)
}

func (c *KafkaConsumer) handlerBackOff() backoff.BackOff {
	base, ceiling := c.handlerBaseDelay, c.handlerMaxDelay
	if base <= 0 {
		base = defaultHandlerBaseDelay
	}
	if ceiling < base {
		ceiling = defaultHandlerMaxDelay
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.MaxInterval = ceiling
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
