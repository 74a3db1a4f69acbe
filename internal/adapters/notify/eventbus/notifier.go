package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

const scope = "authcode/internal/adapters/notify/eventbus"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

// Publisher is satisfied by *cqrs.EventBus.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Notifier hands auth code messages to the mail worker as
// NotificationRequested events. A nil error only means the event was published.
type Notifier struct {
	tracer    trace.Tracer
	logger    *slog.Logger
	publisher Publisher
}

// NewNotifier creates a new instance of Notifier.
//
//	WARNING; panics if publisher is nil
func NewNotifier(publisher Publisher, t trace.Tracer, l *slog.Logger) *Notifier {
	if publisher == nil {
		panic("publisher cannot be nil")
	}
	if t == nil {
		t = tracer
	}
	if l == nil {
		l = logger
	}

	return &Notifier{
		tracer:    t,
		logger:    l,
		publisher: publisher,
	}
}

func (n *Notifier) Send(ctx context.Context, msg mail.Message) error {
	ctx, span := n.tracer.Start(ctx, "Notifier.Send",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", authcode.EventStreamName),
			attribute.String("mail.to", logging.RedactEmail(msg.To)),
		))
	defer span.End()

	e := authcode.NewNotificationRequested(msg)
	e.Propagate(ctx)
	span.SetAttributes(attribute.String("event.id", e.ID.String()))

	if err := n.publisher.Publish(ctx, e); err != nil {
		otelx.RecordSpanError(span, err, "failed to publish notification")
		return fmt.Errorf("publish notification requested: %w", err)
	}

	n.logger.DebugContext(ctx, "notification requested",
		slog.String("event.id", e.ID.String()),
		slog.String("to", logging.RedactEmail(msg.To)),
	)
	return nil
}
