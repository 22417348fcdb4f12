package kafka

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// DecodeRecord parses the message value as one scraped company record.
// Unknown fields are ignored.
func (m *IncomingMessage) DecodeRecord() (*models.CompanyRecord, error) {
	var record models.CompanyRecord
	if err := json.NewDecoder(bytes.NewReader(m.Value)).Decode(&record); err != nil {
		return nil, err
	}
	return &record, nil
}

// TraceParent returns the W3C trace context propagated by the producer, if any.
func (m *IncomingMessage) TraceParent() string {
	return m.Headers[HeaderTraceParent]
}

const (
	HeaderEventType   = "event_type"
	HeaderTraceParent = "traceparent"
)
