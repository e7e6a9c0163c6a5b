package gorestx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestSendRequestEmitsClientSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prevProvider)

	cli := newTestClient(t, nil, nil, (&connCounter{}).connFunc(&RestConnMock{}))

	h, err := cli.Get(context.Background(), "/things", nil)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	span := spans[len(spans)-1]
	assert.Equal(t, "SendRequest", span.Name())
	assert.Equal(t, trace.SpanKindClient, span.SpanKind())
}
