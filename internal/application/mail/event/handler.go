package mailevent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
)

const scope = "authcode/application/mail/event"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

type MailSender interface {
	SendMail(ctx context.Context, msg mail.Message) error
}

type MailEventHandler struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	mailsender MailSender
}

type MailEventHandlerArgs struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	Mailsender MailSender
}

func NewMailEventHandler(args MailEventHandlerArgs) *MailEventHandler {
	if args.Mailsender == nil {
		panic("mail sender is required")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &MailEventHandler{
		tracer:     args.Tracer,
		logger:     args.Logger,
		mailsender: args.Mailsender,
	}
}
