package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestTransactionCacheRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	repo := NewTransactionCacheRepository(rdb, 2*time.Second)
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("set and get terminal record", func(t *testing.T) {
		tx := sampleTransaction(now)
		tx.Status = models.StatusProcessed
		tx.ProcessedAt = &now

		require.NoError(t, repo.Set(ctx, tx))

		got, err := repo.Get(ctx, "tx1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessed, got.Status)
		assert.True(t, tx.Amount.Equal(got.Amount))
		assert.True(t, now.Equal(*got.ProcessedAt))
	})

	t.Run("non-terminal records are refused", func(t *testing.T) {
		tx := sampleTransaction(now)
		tx.TransactionID = "tx-processing"

		assert.Error(t, repo.Set(ctx, tx))

		_, err := repo.Get(ctx, "tx-processing")
		assert.ErrorIs(t, err, models.ErrCacheMiss)
	})

	t.Run("missing key is a cache miss", func(t *testing.T) {
		_, err := repo.Get(ctx, "unknown")
		assert.ErrorIs(t, err, models.ErrCacheMiss)
	})

	t.Run("cached value expires", func(t *testing.T) {
		tx := sampleTransaction(now)
		tx.TransactionID = "tx-expiring"
		tx.Status = models.StatusFailed

		require.NoError(t, repo.Set(ctx, tx))
		time.Sleep(3 * time.Second)

		_, err := repo.Get(ctx, "tx-expiring")
		assert.ErrorIs(t, err, models.ErrCacheMiss)
	})
}
