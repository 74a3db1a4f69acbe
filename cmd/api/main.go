package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	authcodesvc "gitlab.com/ucmsv2/authcode-service"
	"gitlab.com/ucmsv2/authcode-service/internal/adapters/notify/eventbus"
	dynamorepo "gitlab.com/ucmsv2/authcode-service/internal/adapters/repos/dynamodb"
	"gitlab.com/ucmsv2/authcode-service/internal/adapters/repos/postgres"
	"gitlab.com/ucmsv2/authcode-service/internal/adapters/services/logmail"
	"gitlab.com/ucmsv2/authcode-service/internal/adapters/services/smtp"
	authcodeapp "gitlab.com/ucmsv2/authcode-service/internal/application/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/application/authcode/cmd"
	"gitlab.com/ucmsv2/authcode-service/internal/application/housekeeping"
	"gitlab.com/ucmsv2/authcode-service/internal/application/mail"
	mailevent "gitlab.com/ucmsv2/authcode-service/internal/application/mail/event"
	"gitlab.com/ucmsv2/authcode-service/internal/config"
	httpport "gitlab.com/ucmsv2/authcode-service/internal/ports/http"
	watermillport "gitlab.com/ucmsv2/authcode-service/internal/ports/watermill"
	"gitlab.com/ucmsv2/authcode-service/pkg/env"
	"gitlab.com/ucmsv2/authcode-service/pkg/httpx"
	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
	pgpkg "gitlab.com/ucmsv2/authcode-service/pkg/postgres"
	"gitlab.com/ucmsv2/authcode-service/pkg/watermillx"
)

var version = "dev"

const outboxPollInterval = time.Second

// Store is what the service needs from a code store backend.
type Store interface {
	cmd.Repo
	Ping(ctx context.Context) error
}

// Mailer delivers auth code emails directly and from the mail event handler.
type Mailer interface {
	cmd.Notifier
	mailevent.MailSender
}

type closer func()

func main() {
	if err := run(); err != nil {
		slog.Error("authcode service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	env.SetMode(cfg.Mode)
	logging.Setup(cfg.Mode, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := otelx.SetupSDK(ctx, otelx.SDKArgs{
		Exporter:    cfg.OTEL.Exporter,
		Endpoint:    cfg.OTEL.Endpoint,
		Insecure:    cfg.OTEL.Insecure,
		ServiceName: cfg.OTEL.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry SDK: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			slog.Error("failed to shutdown OpenTelemetry SDK", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting authcode service",
		"mode", cfg.Mode,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
		"notifier", cfg.Notifier,
		"version", version,
	)

	store, pool, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := setupNotifier(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeNotifier()

	app := authcodeapp.NewApp(authcodeapp.Args{
		Repo:              store,
		Notifier:          notifier,
		Policy:            cfg.Policy,
		ConditionalInsert: cfg.ConditionalInsert,
	})

	if purger, ok := store.(housekeeping.Purger); ok && cfg.Housekeeping.Interval > 0 {
		hk := housekeeping.NewService(housekeeping.Args{
			Purger:    purger,
			Interval:  cfg.Housekeeping.Interval,
			Retention: cfg.Housekeeping.Retention,
		})
		hk.Start()
		defer hk.Stop()
	}

	server, err := setupHTTPServer(cfg, app, store)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down HTTP server", "grace_period", cfg.ShutdownGracePeriod)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	slog.Info("authcode service stopped")
	return nil
}

// setupStore returns the pool as well when the store is postgres so the
// outbox can share it.
func setupStore(ctx context.Context, cfg config.Config) (Store, *pgxpool.Pool, closer, error) {
	switch cfg.StoreDriver {
	case config.StoreDynamoDB:
		client, err := dynamorepo.NewClient(ctx, dynamorepo.ClientArgs{
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create dynamodb client: %w", err)
		}
		return dynamorepo.NewAuthCodeRepo(client, cfg.DynamoDB.Table, nil, nil), nil, func() {}, nil

	default:
		pool, err := setupDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewAuthCodeRepo(pool, nil, nil), pool, pool.Close, nil
	}
}

func setupDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := pgpkg.NewPgxPool(ctx, pgpkg.PoolArgs{
		DSN:      cfg.Postgres.DSN,
		Mode:     cfg.Mode,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pgpkg.Migrate(pgpkg.MigrateDSN(cfg.Postgres.DSN), authcodesvc.Migrations, "migrations"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pool, nil
}

func setupMailSender(cfg config.Config) Mailer {
	if cfg.SMTPFallbackToLog() {
		slog.Warn("no SMTP server configured, auth code emails are only logged")
		return logmail.NewSender(nil)
	}
	return smtp.NewSender(smtp.Args{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		User:               cfg.SMTP.User,
		Pass:               cfg.SMTP.Pass,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
	})
}

func setupNotifier(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (cmd.Notifier, closer, error) {
	switch cfg.Notifier {
	case config.NotifierOutbox:
		return setupEventProcessing(ctx, cfg, pool)
	case config.NotifierLog:
		return logmail.NewSender(nil), func() {}, nil
	default:
		return setupMailSender(cfg), func() {}, nil
	}
}

// setupEventProcessing publishes notification requests to the event bus and
// runs the mail handler behind it. The bus lives in postgres when the store
// does, in process otherwise.
func setupEventProcessing(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (cmd.Notifier, closer, error) {
	wmlogger := watermillx.NewSlogAdapter(slog.Default(), slog.LevelInfo)

	var (
		publisher message.Publisher
		subscribe watermillx.SubscriberConstructor
	)
	if pool != nil {
		if err := watermillx.InitializeEventSchema(ctx, pool, wmlogger); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize event schema: %w", err)
		}
		pub, err := watermillx.NewSQLPublisher(pool, wmlogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = pub
		subscribe = watermillx.SQLSubscriber(pool, outboxPollInterval, wmlogger)
	} else {
		pubsub := watermillx.NewGoChannel(wmlogger)
		publisher = pubsub
		subscribe = watermillx.ChannelSubscriber(pubsub)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.ShutdownGracePeriod}, wmlogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create event router: %w", err)
	}

	wmport, err := watermillport.NewPort(router, subscribe, wmlogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watermill port: %w", err)
	}
	if err := wmport.Register(watermillport.AppEventHandlers{
		Mail: mail.NewApp(mail.Args{Mailsender: setupMailSender(cfg)}),
	}); err != nil {
		return nil, nil, err
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- router.Run(ctx)
	}()
	select {
	case <-router.Running():
	case err := <-runErr:
		return nil, nil, fmt.Errorf("event router failed to start: %w", err)
	}

	bus, err := watermillx.NewEventBus(publisher, wmlogger)
	if err != nil {
		_ = router.Close()
		return nil, nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	closeRouter := func() {
		if err := router.Close(); err != nil {
			slog.Error("failed to close event router", "error", err)
		}
		if err := publisher.Close(); err != nil {
			slog.Error("failed to close event publisher", "error", err)
		}
	}

	return eventbus.NewNotifier(bus, nil, nil), closeRouter, nil
}

func setupHTTPServer(cfg config.Config, app *authcodeapp.App, store Store) (*http.Server, error) {
	errhandler, err := httpx.NewErrorHandler(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create error handler: %w", err)
	}

	router := chi.NewRouter()
	httpport.NewPort(httpport.Args{
		AuthCodeApp:    app,
		Errhandler:     errhandler,
		Health:         store,
		Logger:         slog.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
		ServiceName:    cfg.OTEL.ServiceName,
		RateLimit: httpport.RateLimit{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
		},
	}).Route(router)

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	}, nil
}
