package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"elms-extractor/pkg/configutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter is one otlp destination, grpc wins when both endpoints are set.
// An exporter with neither endpoint is disabled.
type Exporter struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (e Exporter) protocol() string {
	switch {
	case e.GrpcEndpoint != "":
		return "grpc"
	case e.HttpEndpoint != "":
		return "http"
	default:
		return ""
	}
}

type Config struct {
	Traces  Exporter `json:"traces"`
	Metrics Exporter `json:"metrics"`
	// MetricIntervalSeconds defaults to 15.
	MetricIntervalSeconds int `json:"metric_interval_seconds"`
}

// Telemetry holds what has to be flushed before the process exits.
type Telemetry struct {
	shutdown []func(context.Context) error
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range t.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// SetupFromEnv looks for telemetry.json5 in the working directory or any of
// its parents and sets up telemetry with it. os.ErrNotExist is returned when
// there is no such file.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

// Setup installs the global tracer and meter providers for every enabled
// exporter in config.
func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Telemetry{}, err
	}

	var t Telemetry
	if config.Traces.protocol() != "" {
		exporter, err := traceExporter(ctx, config.Traces)
		if err != nil {
			return t, err
		}
		provider := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
		t.shutdown = append(t.shutdown, provider.Shutdown)
	}

	if config.Metrics.protocol() != "" {
		exporter, err := metricExporter(ctx, config.Metrics)
		if err != nil {
			return t, errors.Join(err, t.Shutdown(ctx))
		}
		interval := time.Duration(config.MetricIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = time.Second * 15
		}
		provider := metric.NewMeterProvider(
			metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
			metric.WithResource(res),
		)
		otel.SetMeterProvider(provider)
		t.shutdown = append(t.shutdown, provider.Shutdown)
	}

	return t, nil
}

func logExporter(kind string, e Exporter) {
	slog.Info(
		"otlp exporter enabled",
		"signal", kind,
		"protocol", e.protocol(),
		"endpoint", e.GrpcEndpoint+e.HttpEndpoint,
		"headers", len(e.Headers),
	)
}

func traceExporter(ctx context.Context, e Exporter) (trace.SpanExporter, error) {
	logExporter("traces", e)
	if e.protocol() == "grpc" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(e.GrpcEndpoint),
			otlptracegrpc.WithHeaders(e.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(e.HttpEndpoint),
		otlptracehttp.WithHeaders(e.Headers),
	)
}

func metricExporter(ctx context.Context, e Exporter) (metric.Exporter, error) {
	logExporter("metrics", e)
	if e.protocol() == "grpc" {
		return otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(e.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(e.Headers),
		)
	}
	return otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(e.HttpEndpoint),
		otlpmetrichttp.WithHeaders(e.Headers),
	)
}
