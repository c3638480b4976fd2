package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

const topicLookupAttempts = 5

// createKafkaTopicIfNotExists creates the topic unless its partitions can be read
func createKafkaTopicIfNotExists(ctx context.Context, conn *kafka.Conn, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition

	log.Info("Checking if Kafka topic exists", "topic", topicName)
	lookup := func() error {
		var err error
		partitions, err = conn.ReadPartitions(topicName)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), topicLookupAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		log.Warn("Failed to read partitions, retrying", "topic", topicName, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(lookup, policy, notify); err == nil && len(partitions) > 0 {
		log.Info("Kafka topic already exists", "topic", topicName)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if topicConfig.NumPartitions <= 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor <= 0 {
		topicConfig.ReplicationFactor = 1
	}

	log.Info("Creating Kafka topic", "topic", topicName, "partitions", topicConfig.NumPartitions)
	if err := conn.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	return nil
}
