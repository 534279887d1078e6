package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// --- Fake Kafka reader/writer ---
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []kafka.Message
	fetchErr  error
	drained   chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{messages: msgs, drained: make(chan struct{})}
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		err := f.fetchErr
		f.fetchErr = nil
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.messages) > 0 {
		m := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()

	select {
	case <-f.drained:
	default:
		close(f.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) Committed() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message(nil), f.committed...)
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func jobMessage(t *testing.T, id string, offset int64) kafka.Message {
	data, err := json.Marshal(models.ProcessTransactionJob{TransactionID: id})
	require.NoError(t, err)
	return kafka.Message{Topic: "transactions.process", Key: []byte(id), Value: data, Offset: offset}
}

// runUntilDrained runs the consumer until every queued message was fetched and handled.
func runUntilDrained(t *testing.T, c *KafkaConsumer, r *fakeReader, handler Handler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, handler) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain messages")
	}
	cancel()
	assert.NoError(t, <-done)
}

// --- Publisher ---
func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	err := p.Publish(context.Background(), models.ProcessTransactionJob{TransactionID: "tx1"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	assert.Equal(t, "tx1", string(w.messages[0].Key))
	assert.JSONEq(t, `{"transaction_id":"tx1"}`, string(w.messages[0].Value))
}

func TestKafkaPublisher_PublishLogsQueuedAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core).Sugar()
	defer func() { logger.Log = prev }()

	p := NewKafkaPublisher(&fakeWriter{})
	require.NoError(t, p.Publish(context.Background(), models.ProcessTransactionJob{TransactionID: "tx1"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "job queued", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "tx1", entries[0].ContextMap()["transaction_id"])
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	brokerErr := errors.New("broker down")
	p := NewKafkaPublisher(&fakeWriter{err: brokerErr})

	err := p.Publish(context.Background(), models.ProcessTransactionJob{TransactionID: "tx1"})
	assert.ErrorIs(t, err, brokerErr)
}

// --- Consumer ---
func TestKafkaConsumer_CommitsAfterSuccess(t *testing.T) {
	r := newFakeReader(jobMessage(t, "tx1", 0), jobMessage(t, "tx2", 1))
	c := NewKafkaConsumer(r, &fakeWriter{}, 3, time.Millisecond)

	var mu sync.Mutex
	var handled []string
	runUntilDrained(t, c, r, func(ctx context.Context, job models.ProcessTransactionJob) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, job.TransactionID)
		return nil
	})

	assert.Equal(t, []string{"tx1", "tx2"}, handled)
	assert.Len(t, r.Committed(), 2)
}

func TestKafkaConsumer_RedeliversFailedJob(t *testing.T) {
	r := newFakeReader(jobMessage(t, "tx1", 0))
	dlq := &fakeWriter{}
	c := NewKafkaConsumer(r, dlq, 3, time.Millisecond)

	calls := 0
	runUntilDrained(t, c, r, func(ctx context.Context, job models.ProcessTransactionJob) error {
		calls++
		if calls < 2 {
			return errors.New("transient storage error")
		}
		return nil
	})

	assert.Equal(t, 2, calls)
	assert.Len(t, r.Committed(), 1)
	assert.Empty(t, dlq.messages)
}

func TestKafkaConsumer_DeadLettersAfterMaxDeliveries(t *testing.T) {
	r := newFakeReader(jobMessage(t, "tx1", 0))
	dlq := &fakeWriter{}
	c := NewKafkaConsumer(r, dlq, 2, time.Millisecond)

	calls := 0
	runUntilDrained(t, c, r, func(ctx context.Context, job models.ProcessTransactionJob) error {
		calls++
		return errors.New("still failing")
	})

	assert.Equal(t, 2, calls)
	assert.Len(t, r.Committed(), 1)
	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "tx1", string(dlq.messages[0].Key))

	headers := map[string]string{}
	for _, h := range dlq.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "2", headers["attempts"])
	assert.Equal(t, "still failing", headers["error"])
}

func TestKafkaConsumer_UndecodableMessage(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("x"), Value: []byte("not-json")})
	dlq := &fakeWriter{}
	c := NewKafkaConsumer(r, dlq, 3, time.Millisecond)

	runUntilDrained(t, c, r, func(ctx context.Context, job models.ProcessTransactionJob) error {
		t.Error("handler must not be called")
		return nil
	})

	assert.Len(t, r.Committed(), 1)
	assert.Len(t, dlq.messages, 1)
}

func TestKafkaConsumer_FetchErrorIsRetried(t *testing.T) {
	r := newFakeReader(jobMessage(t, "tx1", 0))
	r.fetchErr = errors.New("rebalance in progress")
	c := NewKafkaConsumer(r, nil, 1, time.Millisecond)

	handled := 0
	runUntilDrained(t, c, r, func(ctx context.Context, job models.ProcessTransactionJob) error {
		handled++
		return nil
	})

	assert.Equal(t, 1, handled)
}

func TestKafkaConsumer_CancelDuringHandlerLeavesMessageUncommitted(t *testing.T) {
	r := newFakeReader(jobMessage(t, "tx1", 0))
	c := NewKafkaConsumer(r, nil, 3, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Run(ctx, func(ctx context.Context, job models.ProcessTransactionJob) error {
		cancel()
		return ctx.Err()
	})

	assert.NoError(t, err)
	assert.Empty(t, r.Committed())
}
