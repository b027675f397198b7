// Package otel wires OpenTelemetry tracing, metrics and log-record export (OTLP over gRPC) and
// adapts decision telemetry events to OTel log records.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"adaptive-auth/backend/internal/logging"
)

const defaultMetricInterval = 10 * time.Second

// Options describes the process being instrumented and where its telemetry goes.
type Options struct {
	// Endpoint is OTEL_EXPORTER_OTLP_ENDPOINT. Empty keeps all providers local.
	Endpoint string
	// Insecure forces plaintext even for https endpoints.
	Insecure    bool
	ServiceName string
	// Environment is APP_ENV; omitted from the resource when empty.
	Environment string
	// InstanceID distinguishes replicas. A random id is used when empty.
	InstanceID     string
	MetricInterval time.Duration
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
	Shutdown       func(context.Context) error
}

// NewProviders builds tracer, meter and logger providers sharing one resource. Decision events
// reach the collector through LoggerProvider; login and challenge spans and the otelgrpc
// server metrics go through the globals installed by SetGlobal.
func NewProviders(ctx context.Context, opts Options) (*Providers, error) {
	target, insecure, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	res, err := newResource(opts)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithResource(res)),
			MeterProvider:  metric.NewMeterProvider(metric.WithResource(res)),
			LoggerProvider: sdklog.NewLoggerProvider(sdklog.WithResource(res)),
			Resource:       res,
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	insecure = insecure || opts.Insecure

	p := &Providers{Resource: res}
	var shutdownFns []func(context.Context) error
	fail := func(err error) (*Providers, error) {
		for i := len(shutdownFns) - 1; i >= 0; i-- {
			_ = shutdownFns[i](ctx)
		}
		return nil, err
	}

	traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if insecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
	}
	traceExp, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return fail(err)
	}
	p.TracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	shutdownFns = append(shutdownFns, p.TracerProvider.Shutdown)

	metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}
	metricExp, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return fail(err)
	}
	interval := opts.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	p.MeterProvider = metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp, metric.WithInterval(interval))),
	)
	shutdownFns = append(shutdownFns, p.MeterProvider.Shutdown)

	logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if insecure {
		logOpts = append(logOpts, otlploggrpc.WithInsecure())
	}
	logExp, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		return fail(err)
	}
	p.LoggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	shutdownFns = append(shutdownFns, p.LoggerProvider.Shutdown)

	p.Shutdown = func(ctx context.Context) error {
		var errs []error
		// Logger first, tracer last.
		for i := len(shutdownFns) - 1; i >= 0; i-- {
			if err := shutdownFns[i](ctx); err != nil {
				logging.For("otel").WithError(err).Warn("otel: provider shutdown failed")
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return p, nil
}

// parseEndpoint returns the host:port to dial and whether the scheme implies plaintext.
// An empty endpoint returns an empty target. Paths are ignored.
func parseEndpoint(raw string) (target string, insecure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}
	return u.Host, u.Scheme != "https", nil
}

func newResource(opts Options) (*resource.Resource, error) {
	instance := strings.TrimSpace(opts.InstanceID)
	if instance == "" {
		instance = uuid.NewString()
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceInstanceID(instance),
	}
	if env := strings.ToLower(strings.TrimSpace(opts.Environment)); env != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(env))
	}
	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// SetGlobal installs the tracer provider used by the risk, mfa and auth spans, the meter provider
// read by the otelgrpc stats handler, and W3C trace-context propagation. The LoggerProvider is
// passed explicitly to NewEventEmitter.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
