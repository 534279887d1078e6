package workers

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Consumer is a blocking job source such as a Kafka consumer-group member
// or a MemoryQueue.
type Consumer interface {
	Run(ctx context.Context, handler queue.Handler) error
}

// Pool runs one worker goroutine per consumer. Each worker processes its
// jobs sequentially, so the pool size equals the number of consumers.
type Pool struct {
	handler   queue.Handler
	consumers []Consumer
}

func NewPool(handler queue.Handler, consumers ...Consumer) *Pool {
	return &Pool{handler: handler, consumers: consumers}
}

// Run blocks until ctx is cancelled or a consumer fails.
func (p *Pool) Run(ctx context.Context) error {
	logger.Log.Infow("starting worker pool", "workers", len(p.consumers))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range p.consumers {
		id := i + 1
		g.Go(func() error {
			logger.Log.Debugw("worker started", "worker_id", id)
			defer logger.Log.Debugw("worker stopped", "worker_id", id)

			if err := c.Run(ctx, safeHandler(id, p.handler)); err != nil {
				return fmt.Errorf("worker %d: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// safeHandler turns a handler panic into an error so the job is redelivered
// and the worker keeps running.
func safeHandler(workerID int, h queue.Handler) queue.Handler {
	return func(ctx context.Context, job models.ProcessTransactionJob) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Errorw("worker recovered from panic",
					"alert", true,
					"worker_id", workerID,
					"transaction_id", job.TransactionID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				err = fmt.Errorf("panic processing %s: %v", job.TransactionID, r)
			}
		}()
		return h(ctx, job)
	}
}
