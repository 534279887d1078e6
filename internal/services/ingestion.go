package services

//go:generate mockgen -source=ingestion.go -destination=ingestion_mock.go -package=services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TransactionWriter defines the store methods used on the ingestion path.
type TransactionWriter interface {
	Insert(ctx context.Context, tx *models.TransactionDB) error                         // Inserts a new record or returns models.ErrDuplicateTransaction
	MarkEnqueued(ctx context.Context, transactionID string, at time.Time) (bool, error) // Sets enqueued_at if unset; true for the single winner
}

// TransactionReader retrieves stored transactions.
type TransactionReader interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionDB, error) // Returns the record or models.ErrTransactionNotFound
}

// JobPublisher enqueues process-transaction jobs.
type JobPublisher interface {
	Publish(ctx context.Context, job models.ProcessTransactionJob) error // Publishes a job to the work queue
}

// Alerter reports errors that need operator attention.
type Alerter interface {
	Alert(ctx context.Context, transactionID string, msg string, err error) // Reports an operator-facing error
}

// IngestionService records inbound webhooks and triggers processing at most once
// per transaction_id.
type IngestionService struct {
	writer    TransactionWriter
	reader    TransactionReader
	publisher JobPublisher
	alerter   Alerter
	now       func() time.Time
}

// NewIngestionService creates a new IngestionService.
func NewIngestionService(
	writer TransactionWriter,
	reader TransactionReader,
	publisher JobPublisher,
	alerter Alerter,
) *IngestionService {
	return &IngestionService{
		writer:    writer,
		reader:    reader,
		publisher: publisher,
		alerter:   alerter,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ingest stores the webhook and publishes a processing job unless one was
// already triggered. Errors are wrapped in models.ErrStorageFailure.
func (s *IngestionService) Ingest(ctx context.Context, req models.WebhookRequest) (models.IngestOutcome, error) {
	tx := models.NewTransaction(req, s.now())

	err := s.writer.Insert(ctx, tx)
	switch {
	case err == nil:
		logger.Log.Infow("transaction accepted", "transaction_id", tx.TransactionID)
		s.publish(ctx, tx.TransactionID)
		return models.IngestCreated, nil
	case errors.Is(err, models.ErrDuplicateTransaction):
		return s.ingestDuplicate(ctx, tx.TransactionID)
	default:
		s.alerter.Alert(ctx, tx.TransactionID, "failed to record transaction", err)
		return "", fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
	}
}

func (s *IngestionService) ingestDuplicate(ctx context.Context, transactionID string) (models.IngestOutcome, error) {
	existing, err := s.reader.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, models.ErrTransactionNotFound) {
		logger.Log.Warnw("duplicate transaction not visible, ignoring", "transaction_id", transactionID)
		return models.IngestDuplicate, nil
	}
	if err != nil {
		s.alerter.Alert(ctx, transactionID, "failed to load duplicate transaction", err)
		return "", fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
	}

	switch existing.Status {
	case models.StatusProcessed:
		logger.Log.Infow("transaction already processed", "transaction_id", transactionID)
		return models.IngestAlreadyProcessed, nil
	case models.StatusFailed:
		logger.Log.Infow("transaction already failed", "transaction_id", transactionID)
		return models.IngestDuplicate, nil
	}

	won, err := s.writer.MarkEnqueued(ctx, transactionID, s.now())
	if err != nil {
		s.alerter.Alert(ctx, transactionID, "failed to mark transaction enqueued", err)
		return "", fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
	}
	if !won {
		logger.Log.Infow("duplicate transaction already enqueued", "transaction_id", transactionID)
		return models.IngestDuplicate, nil
	}

	s.publish(ctx, transactionID)
	return models.IngestReenqueued, nil
}

// publish never fails the caller; the record stays PROCESSING for the reconciler.
// The record is already committed, so a client disconnect must not abort the handoff.
func (s *IngestionService) publish(ctx context.Context, transactionID string) {
	ctx = context.WithoutCancel(ctx)
	err := s.publisher.Publish(ctx, models.ProcessTransactionJob{TransactionID: transactionID})
	if err != nil {
		s.alerter.Alert(ctx, transactionID, "failed to publish processing job", err)
	}
}
