package cmd

import (
	"context"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/errorx"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
	"gitlab.com/ucmsv2/authcode-service/pkg/validationx"
)

const scope = "authcode/application/authcode/cmd"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

const (
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeFailed  = "failed"
)

type RequestCode struct {
	SiteID       string `json:"siteId"`
	UserID       string `json:"userId"`
	CompanyEmail string `json:"companyEmail"`
	CompanyName  string `json:"companyName"`
	UserEmail    string `json:"userEmail"`
}

func (c RequestCode) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SiteID, validationx.RequiredText...),
		validation.Field(&c.UserID, validationx.RequiredText...),
		validation.Field(&c.CompanyEmail, validationx.RequiredText...),
		validation.Field(&c.CompanyName, validationx.RequiredText...),
		validation.Field(&c.UserEmail, validationx.RequiredText...),
	)
}

// Ack describes the code a RequestCode delivered.
type Ack struct {
	RecordID  authcode.ID
	Reused    bool
	ExpiresAt time.Time
}

type RequestCodeHandler struct {
	tracer      trace.Tracer
	logger      *slog.Logger
	repo        Repo
	notifier    Notifier
	policy      authcode.Policy
	conditional bool
	now         func() time.Time
	requests    metric.Int64Counter
}

type RequestCodeHandlerArgs struct {
	Tracer   trace.Tracer
	Logger   *slog.Logger
	Meter    metric.Meter
	Repo     Repo
	Notifier Notifier
	Policy   authcode.Policy
	// ConditionalInsert makes the handler use InsertIfNoneLive when Repo
	// implements ConditionalInserter.
	ConditionalInsert bool
	Now               func() time.Time
}

func NewRequestCodeHandler(args RequestCodeHandlerArgs) *RequestCodeHandler {
	if args.Repo == nil {
		panic("repo is required")
	}
	if args.Notifier == nil {
		panic("notifier is required")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Meter == nil {
		args.Meter = otel.Meter(scope)
	}
	if args.Now == nil {
		args.Now = time.Now
	}

	requests, err := args.Meter.Int64Counter("authcode.requests",
		metric.WithDescription("Auth code requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		args.Logger.Warn("failed to create authcode.requests counter", slog.Any("error", err))
		requests, _ = noop.NewMeterProvider().Meter(scope).Int64Counter("authcode.requests")
	}

	return &RequestCodeHandler{
		tracer:      args.Tracer,
		logger:      args.Logger,
		repo:        args.Repo,
		notifier:    args.Notifier,
		policy:      args.Policy,
		conditional: args.ConditionalInsert,
		now:         args.Now,
		requests:    requests,
	}
}

func (h *RequestCodeHandler) Handle(ctx context.Context, cmd RequestCode) (Ack, error) {
	ctx, span := h.tracer.Start(ctx, "RequestCodeHandler.Handle",
		trace.WithAttributes(
			attribute.String("authcode.site_id", cmd.SiteID),
			attribute.String("authcode.user_id", cmd.UserID),
			attribute.String("authcode.user_email", logging.RedactEmail(cmd.UserEmail)),
		))
	defer span.End()

	l := h.logger.With(
		slog.String("site_id", cmd.SiteID),
		slog.String("user_id", cmd.UserID),
	)

	if err := cmd.Validate(); err != nil {
		otelx.RecordSpanError(span, err, "validation failed")
		h.record(ctx, OutcomeFailed)
		return Ack{}, errorx.NewValidationFailed().WithCause(err)
	}

	now := h.now().UTC()
	filter := authcode.LiveFilter{SiteID: cmd.SiteID, UserID: cmd.UserID, Now: now}

	found, err := h.repo.FindLive(ctx, filter)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to find live auth codes")
		l.ErrorContext(ctx, "failed to find live auth codes", slog.Any("error", err))
		h.record(ctx, OutcomeFailed)
		return Ack{}, errorx.NewStoreReadFailed(err)
	}

	code := authcode.MostRecent(filter.Apply(found))
	reused := code != nil
	if reused {
		span.AddEvent("reusing live auth code")
	} else {
		code, reused, err = h.issue(ctx, filter)
		if err != nil {
			otelx.RecordSpanError(span, err, "failed to issue auth code")
			l.ErrorContext(ctx, "failed to issue auth code", slog.Any("error", err))
			h.record(ctx, OutcomeFailed)
			return Ack{}, err
		}
	}
	otelx.SetSpanAttrs(span, map[string]any{
		"authcode.id":     code.ID().String(),
		"authcode.reused": reused,
	})

	msg := authcode.NewNotification(authcode.NotificationArgs{
		CompanyEmail: cmd.CompanyEmail,
		CompanyName:  cmd.CompanyName,
		UserEmail:    cmd.UserEmail,
		Code:         code.Code(),
	})
	if err := h.notifier.Send(ctx, msg); err != nil {
		otelx.RecordSpanError(span, err, "failed to send auth code notification")
		l.ErrorContext(ctx, "failed to send auth code notification",
			slog.String("authcode_id", code.ID().String()),
			slog.String("code", logging.RedactCode(code.Code())),
			slog.String("to", logging.RedactEmail(cmd.UserEmail)),
			slog.Any("error", err),
		)
		h.record(ctx, OutcomeFailed)
		return Ack{}, errorx.NewNotifyFailed(err)
	}

	outcome := OutcomeCreated
	if reused {
		outcome = OutcomeReused
	}
	h.record(ctx, outcome)
	l.DebugContext(ctx, "auth code sent",
		slog.String("authcode_id", code.ID().String()),
		slog.String("outcome", outcome),
	)

	return Ack{
		RecordID:  code.ID(),
		Reused:    reused,
		ExpiresAt: code.ExpiresAt(),
	}, nil
}

// issue creates and persists a new code. With a conditional store it may
// instead return a live code written concurrently by another request.
func (h *RequestCodeHandler) issue(ctx context.Context, filter authcode.LiveFilter) (*authcode.AuthCode, bool, error) {
	span := trace.SpanFromContext(ctx)

	code, err := authcode.New(authcode.NewArgs{
		SiteID: filter.SiteID,
		UserID: filter.UserID,
		Now:    filter.Now,
		Policy: h.policy,
	})
	if err != nil {
		return nil, false, errorx.NewInternalError().WithCause(err)
	}

	if ci, ok := h.repo.(ConditionalInserter); ok && h.conditional {
		existing, err := ci.InsertIfNoneLive(ctx, code, filter.Now)
		if err != nil {
			return nil, false, errorx.NewStoreWriteFailed(err)
		}
		if live := authcode.MostRecent(filter.Apply(existing)); live != nil {
			span.AddEvent("live auth code appeared concurrently, reusing it")
			return live, true, nil
		}
		span.AddEvent("auth code inserted conditionally")
		return code, false, nil
	}

	if err := h.repo.Insert(ctx, code); err != nil {
		return nil, false, errorx.NewStoreWriteFailed(err)
	}
	span.AddEvent("auth code inserted")
	return code, false, nil
}

func (h *RequestCodeHandler) record(ctx context.Context, outcome string) {
	h.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
