package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/tracing"
)

// MessageHandler handles one company record message. A non-nil error means
// the record could not be durably handled and delivery is retried in place.
type MessageHandler func(ctx context.Context, msg *IncomingMessage) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string

	// RetryBackoff is the first delay between redeliveries of a failing
	// message. It doubles up to MaxRetryBackoff.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
}

// Consumer reads company records from one topic and hands them to the
// ingest runner in partition order. Offsets are committed only after the
// handler succeeds, so a message is never skipped because the database or
// telemetry store was briefly unavailable.
type Consumer struct {
	reader     messageReader
	topic      string
	logger     ectologger.Logger
	handler    MessageHandler
	backoff    time.Duration
	maxBackoff time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewConsumer creates a consumer group reader for cfg.Topic.
func NewConsumer(cfg ConsumerConfig, logger ectologger.Logger, handler MessageHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       16e6, // one registry record can carry long shareholder lists
		MaxWait:        time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0, // synchronous commits
	})

	c := newConsumer(reader, cfg.Topic, logger, handler)
	if cfg.RetryBackoff > 0 {
		c.backoff = cfg.RetryBackoff
	}
	if cfg.MaxRetryBackoff > 0 {
		c.maxBackoff = cfg.MaxRetryBackoff
	}
	return c
}

func newConsumer(reader messageReader, topic string, logger ectologger.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:     reader,
		topic:      topic,
		logger:     logger,
		handler:    handler,
		backoff:    time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Start launches the fetch loop in the background.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(ctx)

	c.logger.WithContext(ctx).WithField("topic", c.topic).Info("Consuming company records")
	return nil
}

// Stop cancels the fetch loop, waits for the in-flight message and closes
// the reader.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.reader.Close()
}

// Health reports whether the consumer has a reader attached.
func (c *Consumer) Health() bool {
	return c.reader != nil
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	delay := c.backoff
	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.logger.WithContext(ctx).WithError(err).WithField("retry_in", delay).Error("Failed to fetch message")
			if !sleep(ctx, delay) {
				return
			}
			delay = c.next(delay)
			continue
		}
		delay = c.backoff

		if err := c.deliver(ctx, msg); err != nil {
			return
		}
	}
}

// deliver runs the handler until it succeeds and then commits the offset.
// It only gives up when ctx is done, leaving the offset uncommitted.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message) error {
	incoming := newIncomingMessage(msg)

	ctx = tracing.ContextWithTraceParent(ctx, incoming.TraceParent())
	ctx, span := tracing.StartSpan(ctx, "kafka.Consumer.deliver")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"key":       incoming.Key,
	})

	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err := c.handler(ctx, incoming)
		if err == nil {
			break
		}
		metrics.KafkaMessagesConsumed.WithLabelValues(c.topic, "retry").Inc()
		log.WithError(err).WithFields(map[string]any{
			"attempt":  attempt,
			"retry_in": delay,
		}).Error("Failed to handle company record")
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = c.next(delay)
	}

	metrics.KafkaMessagesConsumed.WithLabelValues(c.topic, "handled").Inc()
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.WithError(err).Error("Failed to commit offset")
	}
	return nil
}

func (c *Consumer) next(delay time.Duration) time.Duration {
	delay *= 2
	if delay > c.maxBackoff {
		return c.maxBackoff
	}
	return delay
}

func newIncomingMessage(msg kafka.Message) *IncomingMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &IncomingMessage{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Topic:     msg.Topic,
	}
}

// sleep waits for d or until ctx is done. It reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
