package workers

import (
	"context"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// StaleClaimer returns ids of PROCESSING transactions whose job was never
// enqueued or was enqueued before olderThan, stamping them with now.
type StaleClaimer interface {
	ClaimStale(ctx context.Context, olderThan, now time.Time, limit int) ([]string, error)
}

// JobPublisher enqueues process-transaction jobs.
type JobPublisher interface {
	Publish(ctx context.Context, job models.ProcessTransactionJob) error
}

// Reconciler periodically re-enqueues transactions stuck in PROCESSING, e.g.
// after a lost publish or a crash between accept and enqueue.
type Reconciler struct {
	claimer    StaleClaimer
	publisher  JobPublisher
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewReconciler(claimer StaleClaimer, publisher JobPublisher, interval, staleAfter time.Duration, batch int) *Reconciler {
	if batch < 1 {
		batch = 100
	}
	return &Reconciler{
		claimer:    claimer,
		publisher:  publisher,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables the reconciler.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		logger.Log.Infow("reconciler disabled")
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Log.Infow("reconciler started", "interval", r.interval, "stale_after", r.staleAfter)
	for {
		select {
		case <-ctx.Done():
			logger.Log.Infow("reconciler stopped")
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Errorw("reconcile sweep failed", "error", err)
			}
		}
	}
}

// Sweep claims one batch of stale transactions and publishes a job for each.
// It returns the number of jobs published.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	ids, err := r.claimer.ClaimStale(ctx, now.Add(-r.staleAfter), now, r.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, id := range ids {
		if err := r.publisher.Publish(ctx, models.ProcessTransactionJob{TransactionID: id}); err != nil {
			logger.Log.Errorw("failed to re-enqueue stale transaction",
				"alert", true,
				"transaction_id", id,
				"error", err,
			)
			continue
		}
		published++
	}

	if len(ids) > 0 {
		logger.Log.Infow("re-enqueued stale transactions", "claimed", len(ids), "published", published)
	}
	return published, nil
}
