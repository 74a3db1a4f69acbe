package otelx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Exporter string

const (
	ExporterNone   Exporter = "none"
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
)

func ParseExporter(s string) (Exporter, error) {
	switch e := Exporter(s); e {
	case ExporterNone, ExporterStdout, ExporterOTLP:
		return e, nil
	case "":
		return ExporterNone, nil
	default:
		return "", fmt.Errorf("unknown otel exporter %q, expected one of: none, stdout, otlp", s)
	}
}

type SDKArgs struct {
	Exporter    Exporter
	Endpoint    string // host:port of the OTLP gRPC collector
	Insecure    bool
	ServiceName string
	Version     string
	// Writer receives stdout exporter output, os.Stdout when nil.
	Writer         io.Writer
	MetricInterval time.Duration
}

// SetupSDK bootstraps the OpenTelemetry pipeline.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupSDK(ctx context.Context, args SDKArgs) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if args.Exporter == "" || args.Exporter == ExporterNone {
		return shutdown, nil
	}
	if args.Exporter == ExporterOTLP && args.Endpoint == "" {
		return shutdown, errors.New("otlp exporter requires an endpoint")
	}
	if args.Writer == nil {
		args.Writer = os.Stdout
	}
	if args.MetricInterval <= 0 {
		args.MetricInterval = time.Minute
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", args.ServiceName),
		attribute.String("service.version", args.Version),
	))
	if err != nil {
		return shutdown, fmt.Errorf("failed to build otel resource: %w", err)
	}

	handleErr := func(inErr error) error {
		return errors.Join(inErr, shutdown(ctx))
	}

	spanExporter, err := newSpanExporter(ctx, args)
	if err != nil {
		return nil, handleErr(err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := newMetricExporter(ctx, args)
	if err != nil {
		return nil, handleErr(err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(args.MetricInterval),
		)),
	)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	logExporter, err := newLogExporter(ctx, args)
	if err != nil {
		return nil, handleErr(err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	return shutdown, nil
}

func newSpanExporter(ctx context.Context, args SDKArgs) (sdktrace.SpanExporter, error) {
	if args.Exporter == ExporterStdout {
		return stdouttrace.New(stdouttrace.WithWriter(args.Writer))
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(args.Endpoint)}
	if args.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, args SDKArgs) (sdkmetric.Exporter, error) {
	if args.Exporter == ExporterStdout {
		return stdoutmetric.New(stdoutmetric.WithWriter(args.Writer))
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(args.Endpoint)}
	if args.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func newLogExporter(ctx context.Context, args SDKArgs) (sdklog.Exporter, error) {
	if args.Exporter == ExporterStdout {
		return stdoutlog.New(stdoutlog.WithWriter(args.Writer))
	}
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(args.Endpoint)}
	if args.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	return otlploggrpc.New(ctx, opts...)
}
