package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runInScope makes the TxManager mock call fn and return its error, like a
// commit that always succeeds.
func runInScope(txm *MockTxManager) *gomock.Call {
	return txm.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

type processingMocks struct {
	txm     *MockTxManager
	store   *MockTransactionLocker
	settler *MockSettler
	alerter *MockAlerter
}

func newProcessingService(t *testing.T, timeout time.Duration) (*ProcessingService, processingMocks) {
	ctrl := gomock.NewController(t)
	m := processingMocks{
		txm:     NewMockTxManager(ctrl),
		store:   NewMockTransactionLocker(ctrl),
		settler: NewMockSettler(ctrl),
		alerter: NewMockAlerter(ctrl),
	}
	return NewProcessingService(m.txm, m.store, m.settler, m.alerter, timeout), m
}

func TestProcessingService_Process_Success(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil)
	m.store.EXPECT().MarkProcessed(gomock.Any(), "tx1", gomock.Any()).Return(true, nil)

	assert.NoError(t, svc.Process(context.Background(), "tx1"))
}

func TestProcessingService_Process_TerminalIsNoop(t *testing.T) {
	for _, status := range []models.TransactionStatus{models.StatusProcessed, models.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			svc, m := newProcessingService(t, time.Second)

			runInScope(m.txm)
			m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", status), nil)

			assert.NoError(t, svc.Process(context.Background(), "tx1"))
		})
	}
}

func TestProcessingService_Process_NotFoundIsNoop(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "missing").Return(nil, models.ErrTransactionNotFound)

	assert.NoError(t, svc.Process(context.Background(), "missing"))
}

func TestProcessingService_Process_SettlementFailure(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	downstream := errors.New("settlement failed: insufficient funds")

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(downstream)
	m.alerter.EXPECT().Alert(gomock.Any(), "tx1", gomock.Any(), downstream)
	m.store.EXPECT().MarkFailed(gomock.Any(), "tx1", downstream.Error()).Return(true, nil)

	assert.NoError(t, svc.Process(context.Background(), "tx1"))
}

func TestProcessingService_Process_SettlementTimeout(t *testing.T) {
	svc, m := newProcessingService(t, 10*time.Millisecond)

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, tx *models.TransactionDB) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m.alerter.EXPECT().Alert(gomock.Any(), "tx1", gomock.Any(), gomock.Any())
	m.store.EXPECT().MarkFailed(gomock.Any(), "tx1", gomock.Any()).DoAndReturn(func(ctx context.Context, id, cause string) (bool, error) {
		assert.Contains(t, cause, "settlement timed out after 10ms")
		return true, nil
	})

	assert.NoError(t, svc.Process(context.Background(), "tx1"))
}

func TestProcessingService_Process_LockErrorIsReturned(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	lockErr := errors.New("lock timeout")

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(nil, lockErr)

	err := svc.Process(context.Background(), "tx1")
	assert.ErrorIs(t, err, lockErr)
}

func TestProcessingService_Process_WriteFailureFallsBackToFailed(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	writeErr := errors.New("connection reset")

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil)
	m.store.EXPECT().MarkProcessed(gomock.Any(), "tx1", gomock.Any()).Return(false, writeErr)
	m.alerter.EXPECT().Alert(gomock.Any(), "tx1", gomock.Any(), gomock.Any())
	m.store.EXPECT().MarkFailed(gomock.Any(), "tx1", gomock.Any()).Return(true, nil)

	assert.NoError(t, svc.Process(context.Background(), "tx1"))
}

func TestProcessingService_Process_CommitFailureFallsBackToFailed(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	commitErr := errors.New("commit transaction: connection reset")

	m.txm.EXPECT().WithinTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			require.NoError(t, fn(ctx))
			return commitErr
		})
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil)
	m.store.EXPECT().MarkProcessed(gomock.Any(), "tx1", gomock.Any()).Return(true, nil)
	m.alerter.EXPECT().Alert(gomock.Any(), "tx1", gomock.Any(), commitErr)
	m.store.EXPECT().MarkFailed(gomock.Any(), "tx1", commitErr.Error()).Return(true, nil)

	assert.NoError(t, svc.Process(context.Background(), "tx1"))
}

func TestProcessingService_Process_FallbackFailureIsReturned(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	writeErr := errors.New("connection reset")
	fallbackErr := errors.New("database unavailable")

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).Return(nil)
	m.store.EXPECT().MarkProcessed(gomock.Any(), "tx1", gomock.Any()).Return(false, writeErr)
	m.store.EXPECT().MarkFailed(gomock.Any(), "tx1", gomock.Any()).Return(false, fallbackErr)
	m.alerter.EXPECT().Alert(gomock.Any(), "tx1", gomock.Any(), gomock.Any()).Times(2)

	err := svc.Process(context.Background(), "tx1")
	assert.ErrorIs(t, err, writeErr)
	assert.ErrorIs(t, err, fallbackErr)
}

func TestProcessingService_Process_CancelledLeavesStateUntouched(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(storedTransaction("tx1", models.StatusProcessing), nil)
	m.settler.EXPECT().Settle(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, tx *models.TransactionDB) error {
		cancel()
		return ctx.Err()
	})

	err := svc.Process(ctx, "tx1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessingService_Handle(t *testing.T) {
	svc, m := newProcessingService(t, time.Second)

	runInScope(m.txm)
	m.store.EXPECT().LockForUpdate(gomock.Any(), "tx1").Return(nil, models.ErrTransactionNotFound)

	assert.NoError(t, svc.Handle(context.Background(), models.ProcessTransactionJob{TransactionID: "tx1"}))
}
