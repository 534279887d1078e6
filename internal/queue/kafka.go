package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/sbilibin2017/gw-payment-webhooks/internal/logger"
	"github.com/sbilibin2017/gw-payment-webhooks/internal/models"
	"github.com/segmentio/kafka-go"
)

// Handler processes one job. A non-nil error means the job must be redelivered.
type Handler func(ctx context.Context, job models.ProcessTransactionJob) error

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
	Close() error                                                   // Closes the Kafka writer
}

// KafkaReader defines the consumer-group reader methods used by KafkaConsumer.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)         // Blocks until the next message
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error // Acknowledges messages
	Close() error                                                    // Leaves the group
}

// NewKafkaWriter creates a writer for topic. Messages are partitioned by key so
// jobs for the same transaction land on one partition. In async mode WriteMessages
// returns immediately and delivery failures are reported to the operator log.
func NewKafkaWriter(brokers []string, topic string, async bool) *kafka.Writer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  async,
	}
	if async {
		w.Completion = func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				logger.Log.Errorw("failed to publish message to Kafka",
					"alert", true,
					"topic", topic,
					"key", string(m.Key),
					"error", err,
				)
			}
		}
	}
	return w
}

// NewKafkaReader creates a consumer-group reader with explicit commits.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
}

// KafkaPublisher publishes process-transaction jobs.
type KafkaPublisher struct {
	writer KafkaWriter
}

func NewKafkaPublisher(writer KafkaWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish writes a job keyed by its transaction id.
func (p *KafkaPublisher) Publish(ctx context.Context, job models.ProcessTransactionJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(job.TransactionID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish job %s: %w", job.TransactionID, err)
	}

	// With an async writer the broker has not acknowledged the message yet;
	// delivery failures surface in the writer's Completion callback.
	logger.Log.Debugw("job queued", "transaction_id", job.TransactionID)
	return nil
}

// Close flushes pending async writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer delivers jobs from a consumer group with at-least-once semantics.
// A message is committed only after the handler succeeds or after it has been
// moved to the dead-letter topic.
type KafkaConsumer struct {
	reader        KafkaReader
	deadLetter    KafkaWriter
	maxDeliveries int
	backoff       time.Duration
}

func NewKafkaConsumer(reader KafkaReader, deadLetter KafkaWriter, maxDeliveries int, backoff time.Duration) *KafkaConsumer {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}
	return &KafkaConsumer{
		reader:        reader,
		deadLetter:    deadLetter,
		maxDeliveries: maxDeliveries,
		backoff:       backoff,
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("kafka reader closed: %w", err)
			}
			logger.Log.Warnw("failed to fetch message", "error", err)
			if !sleep(ctx, c.backoff) {
				return nil
			}
			continue
		}

		if err := c.deliver(ctx, m, handler); err != nil {
			// Context ended mid-delivery; leave the message uncommitted.
			return nil
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Log.Errorw("failed to commit message",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

// deliver hands m to handler, redelivering on failure up to maxDeliveries.
func (c *KafkaConsumer) deliver(ctx context.Context, m kafka.Message, handler Handler) error {
	var job models.ProcessTransactionJob
	if err := json.Unmarshal(m.Value, &job); err != nil || job.TransactionID == "" {
		if err == nil {
			err = errors.New("empty transaction_id")
		}
		c.toDeadLetter(ctx, m, 0, fmt.Errorf("undecodable job: %w", err))
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := handler(ctx, job)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.Log.Warnw("job failed",
			"transaction_id", job.TransactionID,
			"attempt", attempt,
			"max_deliveries", c.maxDeliveries,
			"error", err,
		)
		if attempt >= c.maxDeliveries {
			c.toDeadLetter(ctx, m, attempt, err)
			return nil
		}
		if !sleep(ctx, c.backoff*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
}

func (c *KafkaConsumer) toDeadLetter(ctx context.Context, m kafka.Message, attempts int, cause error) {
	logger.Log.Errorw("moving job to dead-letter topic",
		"alert", true,
		"key", string(m.Key),
		"partition", m.Partition,
		"offset", m.Offset,
		"attempts", attempts,
		"error", cause,
	)
	if c.deadLetter == nil {
		return
	}

	dl := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "error", Value: []byte(cause.Error())},
			{Key: "attempts", Value: []byte(strconv.Itoa(attempts))},
			{Key: "source_topic", Value: []byte(m.Topic)},
		},
	}
	if err := c.deadLetter.WriteMessages(ctx, dl); err != nil {
		logger.Log.Errorw("failed to write dead-letter message", "alert", true, "key", string(m.Key), "error", err)
	}
}

// Close closes the reader and the dead-letter writer.
func (c *KafkaConsumer) Close() error {
	err := c.reader.Close()
	if c.deadLetter != nil {
		err = errors.Join(err, c.deadLetter.Close())
	}
	return err
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
