package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	netmail "net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

const scope = "authcode/internal/adapters/services/smtp"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

const defaultDialTimeout = 5 * time.Second

var ErrEmptyMessage = errors.New("mail message has no body")

type Args struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	Host   string
	Port   int
	User   string
	Pass   string
	// HeloName is announced in EHLO, "localhost" when empty.
	HeloName string
	// InsecureSkipVerify disables certificate checks after STARTTLS, for local relays like MailHog.
	InsecureSkipVerify bool
	DialTimeout        time.Duration
}

// Sender delivers mail.Message values over SMTP as multipart/alternative
// messages. STARTTLS and AUTH are used when the server advertises them.
type Sender struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	host        string
	port        int
	auth        smtp.Auth
	helo        string
	tlsConfig   *tls.Config
	dialTimeout time.Duration
	now         func() time.Time
}

// NewSender creates a new instance of Sender.
//
//	WARNING; panics if host is empty
func NewSender(args Args) *Sender {
	if args.Host == "" {
		panic("smtp host cannot be empty")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Port == 0 {
		args.Port = 587
	}
	if args.HeloName == "" {
		args.HeloName = "localhost"
	}
	if args.DialTimeout <= 0 {
		args.DialTimeout = defaultDialTimeout
	}

	var auth smtp.Auth
	if args.User != "" {
		auth = smtp.PlainAuth("", args.User, args.Pass, args.Host)
	}

	return &Sender{
		tracer: args.Tracer,
		logger: args.Logger,
		host:   args.Host,
		port:   args.Port,
		auth:   auth,
		helo:   args.HeloName,
		tlsConfig: &tls.Config{
			ServerName:         args.Host,
			InsecureSkipVerify: args.InsecureSkipVerify,
		},
		dialTimeout: args.DialTimeout,
		now:         time.Now,
	}
}

// Send lets the sender be used directly as the auth code notifier.
func (s *Sender) Send(ctx context.Context, msg mail.Message) error {
	return s.SendMail(ctx, msg)
}

func (s *Sender) SendMail(ctx context.Context, msg mail.Message) error {
	ctx, span := s.tracer.Start(ctx, "Sender.SendMail",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("server.address", s.host),
			attribute.Int("server.port", s.port),
			attribute.String("mail.to", logging.RedactEmail(msg.To)),
		))
	defer span.End()

	from, err := netmail.ParseAddress(msg.From)
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid sender address")
		return fmt.Errorf("parse from address: %w", err)
	}
	to, err := netmail.ParseAddress(msg.To)
	if err != nil {
		otelx.RecordSpanError(span, err, "invalid recipient address")
		return fmt.Errorf("parse to address: %w", err)
	}

	body, err := buildMessage(from, to, msg, s.now())
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to build message")
		return err
	}

	if err := s.deliver(ctx, from.Address, to.Address, body); err != nil {
		otelx.RecordSpanError(span, err, "failed to deliver message")
		return err
	}

	s.logger.DebugContext(ctx, "mail delivered", slog.String("to", logging.RedactEmail(to.Address)))
	return nil
}

func (s *Sender) deliver(ctx context.Context, from, to string, body []byte) error {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("dial smtp server: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.Hello(s.helo); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(s.tlsConfig); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(s.auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp end data: %w", err)
	}

	if err := c.Quit(); err != nil {
		s.logger.WarnContext(ctx, "smtp quit failed", slog.Any("error", err))
	}
	return nil
}

func buildMessage(from, to *netmail.Address, msg mail.Message, now time.Time) ([]byte, error) {
	if !msg.HasBody() {
		return nil, ErrEmptyMessage
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := []struct{ key, value string }{
		{"From", from.String()},
		{"To", to.String()},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", mime.FormatMediaType("multipart/alternative", map[string]string{"boundary": mw.Boundary()})},
	}
	for _, h := range header {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.key, h.value)
	}
	buf.WriteString("\r\n")

	if msg.Text != "" {
		if err := writePart(mw, "text/plain", msg.Text); err != nil {
			return nil, err
		}
	}
	if msg.HTML != "" {
		if err := writePart(mw, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, body string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType + "; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := io.WriteString(qp, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return qp.Close()
}
