package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeReader struct {
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestConsumer_RetriesUntilHandledThenCommits(t *testing.T) {
	reader := &fakeReader{}
	var seen []*IncomingMessage
	c := newConsumer(reader, "vfsc-companies", testLogger(), func(_ context.Context, msg *IncomingMessage) error {
		seen = append(seen, msg)
		if len(seen) < 3 {
			return errors.New("database unavailable")
		}
		return nil
	})
	c.backoff = time.Millisecond
	c.maxBackoff = 2 * time.Millisecond

	msg := kafka.Message{
		Topic:   "vfsc-companies",
		Key:     []byte("123"),
		Value:   []byte(`{"company_name":"Acme Ltd","company_number":"123"}`),
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("record")}},
		Offset:  7,
	}

	require.NoError(t, c.deliver(context.Background(), msg))
	require.Len(t, reader.committed, 1)
	assert.Equal(t, int64(7), reader.committed[0].Offset)

	require.Len(t, seen, 3)
	assert.Equal(t, "123", seen[0].Key)
	assert.Equal(t, "record", seen[0].Headers[HeaderEventType])
}

func TestConsumer_CancelledDeliveryIsNotCommitted(t *testing.T) {
	reader := &fakeReader{}
	ctx, cancel := context.WithCancel(context.Background())
	c := newConsumer(reader, "vfsc-companies", testLogger(), func(context.Context, *IncomingMessage) error {
		cancel()
		return errors.New("database unavailable")
	})

	err := c.deliver(ctx, kafka.Message{Topic: "vfsc-companies", Offset: 3})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reader.committed)
}

func TestConsumer_BackoffIsCapped(t *testing.T) {
	c := newConsumer(&fakeReader{}, "vfsc-companies", testLogger(), nil)
	assert.Equal(t, 2*time.Second, c.next(time.Second))
	assert.Equal(t, 30*time.Second, c.next(20*time.Second))
}

func TestConsumer_StartStop(t *testing.T) {
	c := newConsumer(&fakeReader{}, "vfsc-companies", testLogger(), func(context.Context, *IncomingMessage) error { return nil })
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Health())
	require.NoError(t, c.Stop())
}

func TestIncomingMessage_DecodeRecord(t *testing.T) {
	msg := &IncomingMessage{Value: []byte(`{"company_name":"Acme Ltd","company_number":"123","unknown":1}`)}
	record, err := msg.DecodeRecord()
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", record.CompanyName)
	assert.Equal(t, "123", record.CompanyNumber)

	_, err = (&IncomingMessage{Value: []byte(`{not json`)}).DecodeRecord()
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := newProducer(writer, "vfsc-company-events", testLogger())

	err := p.Publish(context.Background(), "123", "company.changed", map[string]any{"company_number": "123"})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "vfsc-company-events", msg.Topic)
	assert.Equal(t, []byte("123"), msg.Key)
	assert.Equal(t, HeaderEventType, msg.Headers[0].Key)
	assert.Equal(t, "company.changed", string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "123", body["company_number"])

	writer.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "123", "company.changed", map[string]any{}))
}
