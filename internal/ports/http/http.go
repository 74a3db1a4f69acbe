package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	authcodeapp "gitlab.com/ucmsv2/authcode-service/internal/application/authcode"
	authcodehttp "gitlab.com/ucmsv2/authcode-service/internal/ports/http/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/ports/http/middlewares"
	"gitlab.com/ucmsv2/authcode-service/pkg/errorx"
	"gitlab.com/ucmsv2/authcode-service/pkg/httpx"
	"gitlab.com/ucmsv2/authcode-service/pkg/i18nx"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether the code store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Port struct {
	authcode       *authcodehttp.HTTP
	errhandler     *httpx.ErrorHandler
	health         Pinger
	logger         *slog.Logger
	allowedOrigins []string
	serviceName    string
	rateLimit      RateLimit
}

// RateLimit caps auth code requests per client IP. A zero value disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

type Args struct {
	AuthCodeApp *authcodeapp.App
	Errhandler  *httpx.ErrorHandler
	// Health is optional; /healthz always reports OK without it.
	Health         Pinger
	Logger         *slog.Logger
	AllowedOrigins []string
	ServiceName    string
	RateLimit      RateLimit
}

func NewPort(args Args) *Port {
	if args.ServiceName == "" {
		args.ServiceName = "authcode-service"
	}

	return &Port{
		authcode: authcodehttp.NewHTTP(authcodehttp.Args{
			App:        args.AuthCodeApp,
			Errhandler: args.Errhandler,
		}),
		errhandler:     args.Errhandler,
		health:         args.Health,
		logger:         args.Logger,
		allowedOrigins: args.AllowedOrigins,
		serviceName:    args.ServiceName,
		rateLimit:      args.RateLimit,
	}
}

func (p *Port) Route(r chi.Router) chi.Router {
	if r == nil {
		r = chi.NewRouter()
	}

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middlewares.Logger(p.logger),
		middleware.Recoverer,
		middlewares.OTel(p.serviceName),
		middlewares.CORS(p.allowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		p.errhandler.HandleError(w, r, trace.SpanFromContext(r.Context()), errorx.NewNotFound(), "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		p.errhandler.HandleError(w, r, trace.SpanFromContext(r.Context()), errorx.NewMethodNotAllowed(), "method not allowed")
	})

	r.Get("/healthz", p.Healthz)
	r.Group(func(r chi.Router) {
		r.Use(middlewares.RateLimit(middlewares.RateLimitArgs{
			Requests: p.rateLimit.Requests,
			Window:   p.rateLimit.Window,
			Burst:    p.rateLimit.Burst,
			Reject: func(w http.ResponseWriter, r *http.Request) {
				p.errhandler.HandleError(w, r, trace.SpanFromContext(r.Context()), errorx.NewTooManyRequests(), "rate limit exceeded")
			},
		}))
		p.authcode.Route(r)
	})

	return r
}

func (p *Port) Healthz(w http.ResponseWriter, r *http.Request) {
	if p.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := p.health.Ping(ctx); err != nil {
			p.errhandler.HandleError(w, r, trace.SpanFromContext(r.Context()),
				errorx.NewServiceUnavailable().WithCause(err), "store is not reachable")
			return
		}
	}

	httpx.Message(w, r, http.StatusOK, p.errhandler.Message(r, i18nx.KeyHealthy))
}
