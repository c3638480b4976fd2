package ledger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/institute-backoffice/voucher-ledger/internal/domain/voucher"
	"github.com/panjf2000/ants/v2"
)

// BatchResult is the outcome of one draft in a batch, in submission order
type BatchResult struct {
	Index   int
	Voucher *voucher.Voucher
	Err     error
}

// BatchWriter records many vouchers concurrently on a bounded pool.
// Each voucher is still its own transaction; a failed item does not affect the others.
type BatchWriter struct {
	writer VoucherWriter
	pool   *ants.Pool
	logger *slog.Logger
}

func NewBatchWriter(logger *slog.Logger, writer VoucherWriter, size int) (*BatchWriter, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &BatchWriter{
		writer: writer,
		pool:   pool,
		logger: logger,
	}, nil
}

// WriteAll blocks until every draft has been attempted
func (b *BatchWriter) WriteAll(ctx context.Context, drafts []voucher.Draft) []BatchResult {
	results := make([]BatchResult, len(drafts))
	var wg sync.WaitGroup

	for i := range drafts {
		results[i].Index = i
		draft := drafts[i]
		idx := i

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			v, err := b.writer.Write(ctx, draft)
			results[idx].Voucher = v
			results[idx].Err = err
		})
		if err != nil {
			wg.Done()
			results[idx].Err = err
			b.logger.Error("Failed to submit voucher to worker pool", "index", idx, "error", err)
		}
	}

	wg.Wait()
	return results
}

// Shutdown releases the pool
func (b *BatchWriter) Shutdown() {
	b.logger.Info("Shutting down batch worker pool", "running_workers", b.pool.Running())
	b.pool.Release()
}
