package query

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

const scope = "authcode/application/authcode/query"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

type Finder interface {
	FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error)
}

type VerifyCode struct {
	SiteID   string `json:"siteId"`
	UserID   string `json:"userId"`
	AuthCode string `json:"authCode"`
}

func (q VerifyCode) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.SiteID, validationx.RequiredText...),
		validation.Field(&q.UserID, validationx.RequiredText...),
		validation.Field(&q.AuthCode, validationx.RequiredText...),
	)
}

type VerifyCodeHandler struct {
	tracer        trace.Tracer
	logger        *slog.Logger
	finder        Finder
	now           func() time.Time
	verifications metric.Int64Counter
}

type VerifyCodeHandlerArgs struct {
	Tracer trace.Tracer
	Logger *slog.Logger
	Meter  metric.Meter
	Finder Finder
	Now    func() time.Time
}

func NewVerifyCodeHandler(args VerifyCodeHandlerArgs) *VerifyCodeHandler {
	if args.Finder == nil {
		panic("finder is required")
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

	verifications, err := args.Meter.Int64Counter("authcode.verifications",
		metric.WithDescription("Auth code verifications by verdict"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		args.Logger.Warn("failed to create authcode.verifications counter", slog.Any("error", err))
		verifications, _ = noop.NewMeterProvider().Meter(scope).Int64Counter("authcode.verifications")
	}

	return &VerifyCodeHandler{
		tracer:        args.Tracer,
		logger:        args.Logger,
		finder:        args.Finder,
		now:           args.Now,
		verifications: verifications,
	}
}

// Handle reports whether exactly one live code matches. It never modifies
// the store.
func (h *VerifyCodeHandler) Handle(ctx context.Context, q VerifyCode) (authcode.Verdict, error) {
	ctx, span := h.tracer.Start(ctx, "VerifyCodeHandler.Handle",
		trace.WithAttributes(
			attribute.String("authcode.site_id", q.SiteID),
			attribute.String("authcode.user_id", q.UserID),
			attribute.String("authcode.code", logging.RedactCode(q.AuthCode)),
		))
	defer span.End()

	if err := q.Validate(); err != nil {
		otelx.RecordSpanError(span, err, "validation failed")
		h.record(ctx, "failed")
		return authcode.Invalid, errorx.NewValidationFailed().WithCause(err)
	}

	filter := authcode.LiveFilter{
		SiteID: q.SiteID,
		UserID: q.UserID,
		Code:   q.AuthCode,
		Now:    h.now().UTC(),
	}

	found, err := h.finder.FindLive(ctx, filter)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to find live auth codes")
		h.logger.ErrorContext(ctx, "failed to find live auth codes",
			slog.String("site_id", q.SiteID),
			slog.String("user_id", q.UserID),
			slog.Any("error", err),
		)
		h.record(ctx, "failed")
		return authcode.Invalid, errorx.NewStoreReadFailed(err)
	}

	matches := filter.Apply(found)
	verdict := authcode.Judge(matches)
	otelx.SetSpanAttrs(span, map[string]any{
		"authcode.matches": len(matches),
		"authcode.verdict": verdict.String(),
	})
	h.record(ctx, verdict.String())

	return verdict, nil
}

func (h *VerifyCodeHandler) record(ctx context.Context, verdict string) {
	h.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("verdict", verdict)))
}
