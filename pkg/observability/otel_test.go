package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), OTelConfig{Enabled: false}, NewNopLogger())

	assert.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, ShutdownTracing(context.Background(), tp))
}

func TestWithTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	defer tp.Shutdown(context.Background())

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	t.Run("adds ids for recording span", func(t *testing.T) {
		var buf bytes.Buffer
		ctx, span := StartSpan(context.Background(), "credits.use")
		defer span.End()

		WithTraceContext(ctx, NewLogger(InfoLevel, &buf)).Info("traced")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
		assert.NotEmpty(t, entry["span_id"])
	})

	t.Run("unchanged without span", func(t *testing.T) {
		logger := NewNopLogger()
		assert.Same(t, logger, WithTraceContext(context.Background(), logger))
	})
}
