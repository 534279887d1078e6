package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// ErrQueueFull is returned by MemoryQueue.Publish when the buffer is full.
var ErrQueueFull = errors.New("queue full")

type delivery struct {
	job     models.ProcessTransactionJob
	attempt int
}

// MemoryQueue is an in-process at-least-once queue. Failed jobs are put back
// after a backoff until maxDeliveries is reached. Several Run loops may share
// one queue.
type MemoryQueue struct {
	jobs          chan delivery
	maxDeliveries int
	backoff       time.Duration
	published     atomic.Int64
	dead          atomic.Int64
}

// NewMemoryQueue creates a queue with the given buffer size.
func NewMemoryQueue(size, maxDeliveries int, backoff time.Duration) *MemoryQueue {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}
	return &MemoryQueue{
		jobs:          make(chan delivery, size),
		maxDeliveries: maxDeliveries,
		backoff:       backoff,
	}
}

// Publish enqueues a job without blocking.
func (q *MemoryQueue) Publish(ctx context.Context, job models.ProcessTransactionJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- delivery{job: job, attempt: 1}:
		q.published.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers jobs to handler until ctx is cancelled.
func (q *MemoryQueue) Run(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-q.jobs:
			if err := handler(ctx, d.job); err != nil {
				q.redeliver(ctx, d, err)
			}
		}
	}
}

func (q *MemoryQueue) redeliver(ctx context.Context, d delivery, cause error) {
	if d.attempt >= q.maxDeliveries {
		q.dead.Add(1)
		logger.Log.Errorw("job exhausted deliveries",
			"alert", true,
			"transaction_id", d.job.TransactionID,
			"attempts", d.attempt,
			"error", cause,
		)
		return
	}

	next := delivery{job: d.job, attempt: d.attempt + 1}
	go func() {
		if !sleep(ctx, q.backoff*time.Duration(d.attempt)) {
			return
		}
		select {
		case q.jobs <- next:
		case <-ctx.Done():
		}
	}()
}

// Published returns how many jobs were accepted by Publish.
func (q *MemoryQueue) Published() int64 {
	return q.published.Load()
}

// DeadLettered returns how many jobs exhausted their deliveries.
func (q *MemoryQueue) DeadLettered() int64 {
	return q.dead.Load()
}

// Len returns the number of jobs waiting for delivery.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
