package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
)

// TransactionCacheRepository caches terminal transaction records in Redis
type TransactionCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration duration for cached records
}

// NewTransactionCacheRepository creates a new cache repository with the given TTL
func NewTransactionCacheRepository(client *redis.Client, expiration time.Duration) *TransactionCacheRepository {
	return &TransactionCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func transactionKey(transactionID string) string {
	return fmt.Sprintf("transaction:%s", transactionID)
}

// Get returns the cached record or models.ErrCacheMiss.
func (r *TransactionCacheRepository) Get(ctx context.Context, transactionID string) (*models.TransactionDB, error) {
	key := transactionKey(transactionID)

	val, err := r.client.Get(ctx, key).Bytes()
	logger.Log.Debugw("cache get", "key", key, "error", err)
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var tx models.TransactionDB
	if err := json.Unmarshal(val, &tx); err != nil {
		return nil, fmt.Errorf("decode cached transaction %s: %w", transactionID, err)
	}
	return &tx, nil
}

// Set stores a terminal record. Non-terminal records are refused so a reader
// can never be served a stale PROCESSING status.
func (r *TransactionCacheRepository) Set(ctx context.Context, tx *models.TransactionDB) error {
	if !tx.Status.IsTerminal() {
		return fmt.Errorf("refusing to cache non-terminal transaction %s (%s)", tx.TransactionID, tx.Status)
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	key := transactionKey(tx.TransactionID)
	err = r.client.Set(ctx, key, data, r.exp).Err()
	logger.Log.Debugw("cache set", "key", key, "status", tx.Status, "error", err)

	return err
}
