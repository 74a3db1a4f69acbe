package authcodehttp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	authcodeapp "gitlab.com/ucmsv2/authcode-service/internal/application/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/application/authcode/cmd"
	"gitlab.com/ucmsv2/authcode-service/internal/application/authcode/query"
	"gitlab.com/ucmsv2/authcode-service/pkg/errorx"
	"gitlab.com/ucmsv2/authcode-service/pkg/httpx"
	"gitlab.com/ucmsv2/authcode-service/pkg/i18nx"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
	"gitlab.com/ucmsv2/authcode-service/pkg/sanitizex"
)

const scope = "authcode/internal/ports/http/authcode"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

type HTTP struct {
	tracer     trace.Tracer
	logger     *slog.Logger
	cmd        *authcodeapp.Command
	query      *authcodeapp.Query
	errhandler *httpx.ErrorHandler
}

type Args struct {
	Tracer     trace.Tracer
	Logger     *slog.Logger
	App        *authcodeapp.App
	Errhandler *httpx.ErrorHandler
}

func NewHTTP(args Args) *HTTP {
	if args.App == nil {
		panic("authcode app is required")
	}
	if args.Errhandler == nil {
		panic("error handler is required")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}

	return &HTTP{
		tracer:     args.Tracer,
		logger:     args.Logger,
		cmd:        &args.App.CMD,
		query:      &args.App.Query,
		errhandler: args.Errhandler,
	}
}

func (h *HTTP) Route(r chi.Router) {
	r.Route("/v1/auth-codes", func(r chi.Router) {
		r.Get("/", h.RequestCode)
		r.Post("/", h.RequestCode)
		r.Get("/verify", h.VerifyCode)
		r.Post("/verify", h.VerifyCode)
	})
}

// values merges the query string with a url-encoded POST body.
func values(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errorx.NewInvalidRequest().WithCause(err)
	}
	return r.Form, nil
}

type RequestCodeRequest struct {
	SiteID       string
	UserID       string
	CompanyEmail string
	CompanyName  string
	UserEmail    string
}

func (r *RequestCodeRequest) FromValues(v url.Values) {
	// identifiers and addresses are matched and delivered byte for byte;
	// only the display name is cleaned
	r.SiteID = v.Get(i18nx.FieldSiteID)
	r.UserID = v.Get(i18nx.FieldUserID)
	r.CompanyEmail = v.Get(i18nx.FieldCompanyEmail)
	r.CompanyName = sanitizex.QueryParam(v, i18nx.FieldCompanyName)
	r.UserEmail = v.Get(i18nx.FieldUserEmail)
}

func (r *RequestCodeRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{
		"authcode.site_id":    r.SiteID,
		"authcode.user_id":    r.UserID,
		"authcode.user_email": logging.RedactEmail(r.UserEmail),
	})
}

func (h *HTTP) RequestCode(w http.ResponseWriter, r *http.Request) {
	// a client disconnect must not abort the operation between persist and notify
	ctx, span := h.tracer.Start(context.WithoutCancel(r.Context()), "RequestCode")
	defer span.End()

	v, err := values(r)
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to parse request")
		return
	}

	var req RequestCodeRequest
	req.FromValues(v)
	req.SetSpanAttrs(span)

	ack, err := h.cmd.RequestCode.Handle(ctx, cmd.RequestCode{
		SiteID:       req.SiteID,
		UserID:       req.UserID,
		CompanyEmail: req.CompanyEmail,
		CompanyName:  req.CompanyName,
		UserEmail:    req.UserEmail,
	})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to request auth code")
		return
	}

	otelx.SetSpanAttrs(span, map[string]any{
		"authcode.id":     ack.RecordID,
		"authcode.reused": ack.Reused,
	})
	httpx.Message(w, r, http.StatusOK, h.errhandler.Message(r, i18nx.KeyAuthCodeSent))
}

type VerifyCodeRequest struct {
	SiteID   string
	UserID   string
	AuthCode string
}

func (r *VerifyCodeRequest) FromValues(v url.Values) {
	r.SiteID = v.Get(i18nx.FieldSiteID)
	r.UserID = v.Get(i18nx.FieldUserID)
	r.AuthCode = v.Get(i18nx.FieldAuthCode)
}

func (r *VerifyCodeRequest) SetSpanAttrs(span trace.Span) {
	otelx.SetSpanAttrs(span, map[string]any{
		"authcode.site_id": r.SiteID,
		"authcode.user_id": r.UserID,
	})
}

func (h *HTTP) VerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(context.WithoutCancel(r.Context()), "VerifyCode")
	defer span.End()

	v, err := values(r)
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to parse request")
		return
	}

	var req VerifyCodeRequest
	req.FromValues(v)
	req.SetSpanAttrs(span)

	verdict, err := h.query.VerifyCode.Handle(ctx, query.VerifyCode{
		SiteID:   req.SiteID,
		UserID:   req.UserID,
		AuthCode: req.AuthCode,
	})
	if err != nil {
		h.errhandler.HandleError(w, r, span, err, "failed to verify auth code")
		return
	}

	otelx.SetSpanAttrs(span, map[string]any{"authcode.verdict": verdict})
	if !verdict.IsValid() {
		h.errhandler.HandleError(w, r, span, errorx.NewInvalidAuthCode(), "auth code rejected")
		return
	}

	httpx.Message(w, r, http.StatusOK, h.errhandler.Message(r, i18nx.KeyAuthCodeVerified))
}
