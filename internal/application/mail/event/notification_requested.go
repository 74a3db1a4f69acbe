package mailevent

import (
	"context"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

// HandleNotificationRequested delivers the message carried by e. Delivery
// failures are logged and swallowed so the message is acked and never
// redelivered.
func (h *MailEventHandler) HandleNotificationRequested(ctx context.Context, e *authcode.NotificationRequested) error {
	if e == nil {
		return nil
	}

	l := h.logger.With(slog.String("event", "NotificationRequested"), slog.String("event.id", e.ID.String()))
	ctx, span := h.tracer.Start(
		ctx,
		"MailEventHandler.HandleNotificationRequested",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(otelx.ContextFromExtractor(&e.Otel))),
		trace.WithAttributes(
			attribute.String("event.id", e.ID.String()),
			attribute.String("mail.to", logging.RedactEmail(e.Message.To)),
		),
	)
	defer span.End()

	msg := e.Message
	err := validation.ValidateStruct(&msg,
		validation.Field(&msg.To, validation.Required, is.EmailFormat),
		validation.Field(&msg.From, validation.Required, is.EmailFormat),
		validation.Field(&msg.Subject, validation.Required),
	)
	if err != nil {
		otelx.RecordSpanError(span, err, "validation failed")
		l.ErrorContext(ctx, "dropping invalid auth code notification", slog.Any("error", err))
		return nil
	}

	if err := h.mailsender.SendMail(ctx, msg); err != nil {
		otelx.RecordSpanError(span, err, "failed to send auth code notification")
		l.ErrorContext(ctx, "failed to send auth code notification",
			slog.String("to", logging.RedactEmail(msg.To)),
			slog.Any("error", err),
		)
		return nil
	}

	span.AddEvent("auth code notification sent")
	return nil
}
