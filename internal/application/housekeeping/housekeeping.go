package housekeeping

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/ucmsv2/authcode-service/pkg/logging"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

const scope = "authcode/application/housekeeping"

var (
	tracer = otel.Tracer(scope)
	logger = logging.NewLogger(scope)
)

const (
	DefaultInterval  = time.Hour
	DefaultRetention = 24 * time.Hour
)

type Purger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Service periodically removes auth codes that expired more than Retention
// ago. Expired codes are already ignored at read time, so purging only bounds
// storage growth.
type Service struct {
	tracer    trace.Tracer
	logger    *slog.Logger
	purger    Purger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type Args struct {
	Tracer    trace.Tracer
	Logger    *slog.Logger
	Purger    Purger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time
}

func NewService(args Args) *Service {
	if args.Purger == nil {
		panic("purger is required")
	}
	if args.Tracer == nil {
		args.Tracer = tracer
	}
	if args.Logger == nil {
		args.Logger = logger
	}
	if args.Interval <= 0 {
		args.Interval = DefaultInterval
	}
	if args.Retention < 0 {
		args.Retention = DefaultRetention
	}
	if args.Now == nil {
		args.Now = time.Now
	}

	return &Service{
		tracer:    args.Tracer,
		logger:    args.Logger,
		purger:    args.Purger,
		interval:  args.Interval,
		retention: args.Retention,
		now:       args.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the purge loop in the background until Stop is called.
func (s *Service) Start() {
	go s.run()
	s.logger.Info("housekeeping started", slog.Duration("interval", s.interval), slog.Duration("retention", s.retention))
}

// Stop waits for an in-flight purge to finish.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	s.logger.Info("housekeeping stopped")
}

func (s *Service) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Purge(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Purge(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Purge deletes codes that expired before now minus retention and reports
// how many were removed.
func (s *Service) Purge(ctx context.Context) int64 {
	before := s.now().UTC().Add(-s.retention)

	ctx, span := s.tracer.Start(ctx, "housekeeping.Purge",
		trace.WithAttributes(attribute.String("authcode.expired_before", before.Format(time.RFC3339))))
	defer span.End()

	deleted, err := s.purger.DeleteExpired(ctx, before)
	if err != nil {
		otelx.RecordSpanError(span, err, "failed to delete expired auth codes")
		s.logger.ErrorContext(ctx, "failed to delete expired auth codes", slog.Any("error", err))
		return 0
	}

	span.SetAttributes(attribute.Int64("authcode.deleted", deleted))
	s.logger.DebugContext(ctx, "deleted expired auth codes", slog.Int64("deleted", deleted))
	return deleted
}
