package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/ucmsv2/authcode-service/internal/adapters/notify/eventbus"
	"gitlab.com/ucmsv2/authcode-service/internal/adapters/repos/postgres"
	authcodeapp "gitlab.com/ucmsv2/authcode-service/internal/application/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/application/housekeeping"
	"gitlab.com/ucmsv2/authcode-service/internal/application/mail"
	httpport "gitlab.com/ucmsv2/authcode-service/internal/ports/http"
	watermillport "gitlab.com/ucmsv2/authcode-service/internal/ports/watermill"
	"gitlab.com/ucmsv2/authcode-service/pkg/httpx"
	"gitlab.com/ucmsv2/authcode-service/pkg/watermillx"
	"gitlab.com/ucmsv2/authcode-service/tests/mocks"
)

// App is the service wired the way cmd/api wires it with NOTIFIER=outbox,
// except that mail goes to a recording sender.
type App struct {
	HTTPHandler  http.Handler
	MailSender   *mocks.MailSender
	AuthCodeRepo *postgres.AuthCodeRepo
	Housekeeping *housekeeping.Service

	router *message.Router
}

func NewApp(ctx context.Context, pool *pgxpool.Pool) (*App, error) {
	wmlogger := watermillx.NewSlogAdapter(slog.Default(), slog.LevelWarn)

	publisher, err := watermillx.NewSQLPublisher(pool, wmlogger)
	if err != nil {
		return nil, err
	}
	bus, err := watermillx.NewEventBus(publisher, wmlogger)
	if err != nil {
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, wmlogger)
	if err != nil {
		return nil, err
	}
	wmport, err := watermillport.NewPort(router, watermillx.SQLSubscriber(pool, 50*time.Millisecond, wmlogger), wmlogger)
	if err != nil {
		return nil, err
	}

	mailSender := mocks.NewMailSender()
	if err := wmport.Register(watermillport.AppEventHandlers{
		Mail: mail.NewApp(mail.Args{Mailsender: mailSender}),
	}); err != nil {
		return nil, err
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case err := <-runErr:
		return nil, fmt.Errorf("event router failed to start: %w", err)
	}

	repo := postgres.NewAuthCodeRepo(pool, nil, nil)
	app := authcodeapp.NewApp(authcodeapp.Args{
		Repo:              repo,
		Notifier:          eventbus.NewNotifier(bus, nil, nil),
		ConditionalInsert: true,
	})

	errhandler, err := httpx.NewErrorHandler(nil)
	if err != nil {
		return nil, err
	}
	mux := chi.NewRouter()
	httpport.NewPort(httpport.Args{
		AuthCodeApp: app,
		Errhandler:  errhandler,
		Health:      repo,
	}).Route(mux)

	return &App{
		HTTPHandler:  mux,
		MailSender:   mailSender,
		AuthCodeRepo: repo,
		Housekeeping: housekeeping.NewService(housekeeping.Args{Purger: repo}),
		router:       router,
	}, nil
}

func (a *App) Close() error {
	return a.router.Close()
}
