package ingest

import (
	"context"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/kafka"
)

// MessageHandler adapts the runner to the Kafka consumer. Bad records are
// recorded as failed items and committed; only a telemetry failure leaves the
// message uncommitted for redelivery.
func (r *Runner) MessageHandler() kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		_, err := r.ProcessRaw(ctx, msg.Value)
		return err
	}
}
