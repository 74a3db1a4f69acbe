package eventbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
	"gitlab.com/ucmsv2/authcode-service/tests/mocks"
)

var msg = mail.Message{
	To:      "user@example.com",
	From:    "noreply@acme.test",
	Subject: "Authorization Code from Acme",
	Text:    "Here is your Authorization Code 123456 from Acme.",
	HTML:    "<div>Authorization Code <strong>123456</strong> from Acme.</div>",
}

func TestNotifier_Send(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	repo := mocks.NewEventRepo()
	n := NewNotifier(repo, provider.Tracer("test"), nil)

	ctx, parent := provider.Tracer("test").Start(t.Context(), "RequestCode")
	require.NoError(t, n.Send(ctx, msg))
	parent.End()

	repo.AssertEventCount(t, 1)
	e := mocks.RequireEventExists(t, repo, &authcode.NotificationRequested{})
	assert.Equal(t, msg, e.Message)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, authcode.EventStreamName, e.GetStreamName())

	extracted := trace.SpanContextFromContext(e.Extract())
	require.True(t, extracted.IsValid())
	assert.Equal(t, parent.SpanContext().TraceID(), extracted.TraceID())

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "Notifier.Send", spans[0].Name)
	assert.Equal(t, trace.SpanKindProducer, spans[0].SpanKind)
}

func TestNotifier_PublishFailure(t *testing.T) {
	repo := mocks.NewEventRepo().SetError(errors.New("outbox unavailable"))
	n := NewNotifier(repo, nil, nil)

	err := n.Send(t.Context(), msg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "outbox unavailable")
	repo.AssertEventCount(t, 0)
}

func TestNewNotifier_Panics(t *testing.T) {
	assert.Panics(t, func() { NewNotifier(nil, nil, nil) })
}
