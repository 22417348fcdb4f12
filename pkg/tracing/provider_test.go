package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_NoneIsDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), ProviderConfig{ServiceName: "vfsc", Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), ProviderConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestContextWithTraceParent(t *testing.T) {
	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := ContextWithTraceParent(context.Background(), parent)

	span := trace.SpanContextFromContext(ctx)
	require.True(t, span.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.TraceID().String())

	assert.Equal(t, context.Background(), ContextWithTraceParent(context.Background(), ""))
}

func TestRecordError_NoopSpan(t *testing.T) {
	_, span := StartSpan(context.Background(), "noop", CompanyNumber("123"), NodeID("e-1"))
	assert.NotPanics(t, func() {
		RecordError(span, nil)
		RecordError(span, errors.New("boom"))
	})
}
