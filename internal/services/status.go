package services

//go:generate mockgen -source=status.go -destination=status_mock.go -package=services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TransactionCache caches terminal transaction records.
type TransactionCache interface {
	Get(ctx context.Context, transactionID string) (*models.TransactionDB, error) // Returns models.ErrCacheMiss when absent
	Set(ctx context.Context, tx *models.TransactionDB) error                      // Stores a terminal record
}

// StatusService answers single-record status lookups.
type StatusService struct {
	reader TransactionReader
	cache  TransactionCache
}

// NewStatusService creates a new StatusService. cache may be nil.
func NewStatusService(reader TransactionReader, cache TransactionCache) *StatusService {
	return &StatusService{reader: reader, cache: cache}
}

// GetTransaction returns the record, models.ErrTransactionNotFound, or an
// error wrapping models.ErrStorageFailure.
func (s *StatusService) GetTransaction(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	if s.cache != nil {
		tx, err := s.cache.Get(ctx, transactionID)
		switch {
		case err == nil && tx.Status.IsTerminal():
			return tx, nil
		case err != nil && !errors.Is(err, models.ErrCacheMiss):
			logger.Log.Warnw("status cache read failed", "transaction_id", transactionID, "error", err)
		}
	}

	tx, err := s.reader.GetByTransactionID(ctx, transactionID)
	if errors.Is(err, models.ErrTransactionNotFound) {
		return nil, err
	}
	if err != nil {
		logger.Log.Errorw("failed to get transaction", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("%w: %w", models.ErrStorageFailure, err)
	}

	if s.cache != nil && tx.Status.IsTerminal() {
		if err := s.cache.Set(ctx, tx); err != nil {
			logger.Log.Warnw("status cache write failed", "transaction_id", transactionID, "error", err)
		}
	}
	return tx, nil
}
