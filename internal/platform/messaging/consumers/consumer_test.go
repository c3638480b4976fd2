package consumers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/institute-backoffice/voucher-ledger/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages and records commits
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.fetchErrs) > 0 {
			err := r.fetchErrs[0]
			r.fetchErrs = r.fetchErrs[1:]
			r.mu.Unlock()
			return kafka.Message{}, err
		}
		if len(r.queue) > 0 {
			msg := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return msg, nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestNewKafkaConsumer(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := &config.KafkaConfig{
		Brokers:            "localhost:9092",
		VoucherEventsTopic: "voucher_events",
		ConsumerGroup:      "voucher-projector-group",
		MinBytes:           1024,
		MaxBytes:           10240,
		MaxWait:            time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), logger, cfg)
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, "voucher_events", consumer.topic)
	assert.Equal(t, "voucher-projector-group", consumer.groupID)
	assert.NoError(t, consumer.Close())
}

func newTestConsumer(reader kafkaReader) *KafkaConsumer {
	return &KafkaConsumer{
		reader:           reader,
		logger:           slog.New(slog.NewJSONHandler(os.Stdout, nil)),
		topic:            "voucher_events",
		groupID:          "g",
		retryDelay:       time.Millisecond,
		handlerBaseDelay: time.Millisecond,
		handlerMaxDelay:  5 * time.Millisecond,
	}
}

func TestKafkaConsumer_Subscribe(t *testing.T) {
	reader := &fakeReader{
		fetchErrs: []error{errors.New("broker unavailable")},
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("a")},
			{Offset: 2, Key: []byte("flaky")},
			{Offset: 3, Key: []byte("b")},
		},
	}
	consumer := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)
	err := consumer.Subscribe(ctx, func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		key := string(msg.Key)
		attempts[key]++
		if key == "flaky" && attempts[key] < 3 {
			return errors.New("statement store unavailable")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(reader.commits()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3}, reader.commits(), "a failed message is retried before later offsets commit")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts["flaky"])
	assert.Equal(t, 1, attempts["b"])
}

func TestKafkaConsumer_FailingMessageBlocksLaterOffsets(t *testing.T) {
	reader := &fakeReader{
		queue: []kafka.Message{
			{Offset: 1, Key: []byte("a")},
			{Offset: 2, Key: []byte("stuck")},
			{Offset: 3, Key: []byte("b")},
		},
	}
	consumer := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	stuck := make(chan struct{}, 8)
	require.NoError(t, consumer.Subscribe(ctx, func(_ context.Context, msg kafka.Message) error {
		mu.Lock()
		seen = append(seen, string(msg.Key))
		mu.Unlock()
		if string(msg.Key) == "stuck" {
			select {
			case stuck <- struct{}{}:
			default:
			}
			return errors.New("projection failed")
		}
		return nil
	}))

	for i := 0; i < 3; i++ {
		select {
		case <-stuck:
		case <-time.After(2 * time.Second):
			t.Fatal("failing message was not retried")
		}
	}
	cancel()

	assert.Never(t, func() bool {
		return len(reader.commits()) > 1
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []int64{1}, reader.commits())

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, seen, "b", "later offsets wait for the failing one")
}

func TestKafkaConsumer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	consumer := &KafkaConsumer{reader: nil, logger: logger}
	require.NoError(t, consumer.Close())

	reader := &fakeReader{}
	consumer = &KafkaConsumer{reader: reader, logger: logger}
	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}
