package services

//go:generate mockgen -source=processing.go -destination=processing_mock.go -package=services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TxManager runs fn inside a store transaction carried by the context.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error // Commits when fn returns nil, rolls back otherwise
}

// TransactionLocker defines the store methods used by the worker.
type TransactionLocker interface {
	LockForUpdate(ctx context.Context, transactionID string) (*models.TransactionDB, error) // Locks the row until the surrounding transaction ends
	MarkProcessed(ctx context.Context, transactionID string, at time.Time) (bool, error)    // PROCESSING -> PROCESSED
	MarkFailed(ctx context.Context, transactionID string, cause string) (bool, error)       // PROCESSING -> FAILED
}

// Settler performs the downstream settlement call.
type Settler interface {
	Settle(ctx context.Context, tx *models.TransactionDB) error // Settles the transaction
}

// ProcessingService executes process-transaction jobs.
type ProcessingService struct {
	txm     TxManager
	store   TransactionLocker
	settler Settler
	alerter Alerter
	timeout time.Duration
	now     func() time.Time
}

// NewProcessingService creates a new ProcessingService. A non-positive timeout
// leaves the settlement call bounded only by ctx.
func NewProcessingService(
	txm TxManager,
	store TransactionLocker,
	settler Settler,
	alerter Alerter,
	timeout time.Duration,
) *ProcessingService {
	return &ProcessingService{
		txm:     txm,
		store:   store,
		settler: settler,
		alerter: alerter,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle adapts Process to the queue handler signature.
func (s *ProcessingService) Handle(ctx context.Context, job models.ProcessTransactionJob) error {
	return s.Process(ctx, job.TransactionID)
}

// Process settles a PROCESSING transaction exactly once. Terminal and unknown
// transactions are a no-op. A non-nil error means the job should be redelivered.
func (s *ProcessingService) Process(ctx context.Context, transactionID string) error {
	// settled is set once the downstream call has returned a result, so that a
	// failed write of that result can fall back to FAILED.
	var settled bool

	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.store.LockForUpdate(ctx, transactionID)
		if errors.Is(err, models.ErrTransactionNotFound) {
			logger.Log.Warnw("transaction for job not found, skipping", "transaction_id", transactionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock transaction %s: %w", transactionID, err)
		}
		if tx.Status.IsTerminal() {
			logger.Log.Infow("transaction already terminal, skipping",
				"transaction_id", transactionID,
				"status", tx.Status,
			)
			return nil
		}

		settleErr := s.settle(ctx, tx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		settled = true

		if settleErr == nil {
			return s.markProcessed(ctx, transactionID)
		}
		s.alerter.Alert(ctx, transactionID, "settlement failed", settleErr)
		return s.markFailed(ctx, transactionID, settleErr.Error())
	})
	if err == nil || !settled {
		return err
	}

	return s.fallbackFailed(ctx, transactionID, err)
}

func (s *ProcessingService) settle(ctx context.Context, tx *models.TransactionDB) error {
	if s.timeout <= 0 {
		return s.settler.Settle(ctx, tx)
	}

	settleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.settler.Settle(settleCtx, tx)
	if err != nil && ctx.Err() == nil && errors.Is(settleCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("settlement timed out after %s: %w", s.timeout, err)
	}
	return err
}

func (s *ProcessingService) markProcessed(ctx context.Context, transactionID string) error {
	ok, err := s.store.MarkProcessed(ctx, transactionID, s.now())
	if err != nil {
		return fmt.Errorf("mark %s processed: %w", transactionID, err)
	}
	if !ok {
		logger.Log.Warnw("transaction left PROCESSING before settlement result was written", "transaction_id", transactionID)
		return nil
	}
	logger.Log.Infow("transaction processed", "transaction_id", transactionID)
	return nil
}

func (s *ProcessingService) markFailed(ctx context.Context, transactionID, cause string) error {
	ok, err := s.store.MarkFailed(ctx, transactionID, cause)
	if err != nil {
		return fmt.Errorf("mark %s failed: %w", transactionID, err)
	}
	if ok {
		logger.Log.Infow("transaction failed", "transaction_id", transactionID, "cause", cause)
	}
	return nil
}

// fallbackFailed runs after the scope was rolled back because the result
// could not be written. The write is conditional, so a terminal status set by
// someone else is never overwritten.
func (s *ProcessingService) fallbackFailed(ctx context.Context, transactionID string, cause error) error {
	s.alerter.Alert(ctx, transactionID, "failed to record settlement result", cause)

	if _, err := s.store.MarkFailed(ctx, transactionID, cause.Error()); err != nil {
		s.alerter.Alert(ctx, transactionID, "failed to mark transaction failed", err)
		return fmt.Errorf("record settlement result for %s: %w", transactionID, errors.Join(cause, err))
	}
	return nil
}
