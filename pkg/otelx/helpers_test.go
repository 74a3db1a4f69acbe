package otelx

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type testStringer struct{ val string }

func (ts testStringer) String() string { return ts.val }

type Outcome string

func newRecorder(t *testing.T) (*tracetest.InMemoryExporter, *trace.TracerProvider) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	return exporter, provider
}

func TestSetSpanAttrs(t *testing.T) {
	t.Run("nil span", func(t *testing.T) {
		SetSpanAttrs(nil, map[string]any{"key": "value"})
	})

	t.Run("empty attrs", func(t *testing.T) {
		exporter, provider := newRecorder(t)
		_, span := provider.Tracer("test").Start(context.TODO(), "test")
		SetSpanAttrs(span, map[string]any{})
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Empty(t, spans[0].Attributes)
	})

	t.Run("mixed types", func(t *testing.T) {
		exporter, provider := newRecorder(t)
		_, span := provider.Tracer("test").Start(context.TODO(), "test")

		id := uuid.MustParse("0199a0e4-7c3b-7d1e-8f00-9a1b2c3d4e5f")
		ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		var nilPtr *string
		siteID := "site-1"

		SetSpanAttrs(span, map[string]any{
			"site.id":  &siteID,
			"reused":   true,
			"count":    3,
			"id":       id,
			"at":       ts,
			"ttl":      30 * time.Minute,
			"outcome":  Outcome("created"),
			"stringer": testStringer{val: "hello"},
			"nil":      nilPtr,
			"uint":     uint8(7),
		})
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		attrs := spans[0].Attributes
		assert.Contains(t, attrs, attribute.String("site.id", "site-1"))
		assert.Contains(t, attrs, attribute.Bool("reused", true))
		assert.Contains(t, attrs, attribute.Int("count", 3))
		assert.Contains(t, attrs, attribute.String("id", id.String()))
		assert.Contains(t, attrs, attribute.String("at", "2025-01-02T03:04:05Z"))
		assert.Contains(t, attrs, attribute.String("ttl", "30m0s"))
		assert.Contains(t, attrs, attribute.String("outcome", "created"))
		assert.Contains(t, attrs, attribute.String("stringer", "hello"))
		assert.Contains(t, attrs, attribute.String("nil", "<nil>"))
		assert.Contains(t, attrs, attribute.Int64("uint", 7))
	})
}

func TestRecordSpanError(t *testing.T) {
	RecordSpanError(nil, errors.New("x"), "")

	exporter, provider := newRecorder(t)
	_, span := provider.Tracer("test").Start(context.TODO(), "test")
	RecordSpanError(span, nil, "ignored")
	RecordSpanError(span, errors.New("store unavailable"), "")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "store unavailable", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestParseExporter(t *testing.T) {
	e, err := ParseExporter("")
	require.NoError(t, err)
	assert.Equal(t, ExporterNone, e)

	e, err = ParseExporter("otlp")
	require.NoError(t, err)
	assert.Equal(t, ExporterOTLP, e)

	_, err = ParseExporter("zipkin")
	assert.Error(t, err)
}

func TestSetupSDK(t *testing.T) {
	t.Run("none installs only the propagator", func(t *testing.T) {
		shutdown, err := SetupSDK(t.Context(), SDKArgs{Exporter: ExporterNone})
		require.NoError(t, err)
		assert.NoError(t, shutdown(t.Context()))
	})

	t.Run("otlp without endpoint", func(t *testing.T) {
		_, err := SetupSDK(t.Context(), SDKArgs{Exporter: ExporterOTLP})
		assert.Error(t, err)
	})

	t.Run("stdout", func(t *testing.T) {
		shutdown, err := SetupSDK(t.Context(), SDKArgs{
			Exporter:    ExporterStdout,
			ServiceName: "authcode-test",
			Writer:      io.Discard,
		})
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}
