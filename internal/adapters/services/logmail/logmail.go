package logmail

import (
	"context"
	"log/slog"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
)

const scope = "authcode/internal/adapters/services/logmail"

// Sender writes messages to the log instead of delivering them. Meant for
// local runs; the body is only logged at debug level.
type Sender struct {
	logger *slog.Logger
}

func NewSender(l *slog.Logger) *Sender {
	if l == nil {
		l = logging.NewLogger(scope)
	}
	return &Sender{logger: l}
}

func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	return s.SendMail(ctx, msg)
}

func (s *Sender) SendMail(ctx context.Context, msg mail.Message) error {
	s.logger.InfoContext(ctx, "mail not delivered, logged only",
		slog.String("to", logging.RedactEmail(msg.To)),
		slog.String("from", msg.From),
		slog.String("subject", msg.Subject),
	)
	s.logger.DebugContext(ctx, "mail body",
		slog.String("to", msg.To),
		slog.String("text", msg.Text),
	)
	return nil
}
