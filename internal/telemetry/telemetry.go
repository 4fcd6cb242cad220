// Package telemetry wires OpenTelemetry tracing and metrics for the HTTP
// service. Library packages only depend on the otel API; this package
// installs the SDK providers and OTLP/HTTP exporters behind it.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Export cadence.
const (
	traceBatchTimeout = 5 * time.Second
	metricInterval    = 30 * time.Second
)

// Config selects the OTLP collector. Telemetry stays off unless Endpoint is set.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // host:port, no scheme
	Headers        map[string]string
	Insecure       bool
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}

// Environment variables read by ConfigFromEnv.
const (
	EnvEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvHeaders     = "OTEL_EXPORTER_OTLP_HEADERS"
	EnvEnvironment = "WORKOUT_ENV"
)

// ConfigFromEnv reads the standard OTLP variables. The endpoint may be a
// bare host:port or an http(s) URL; plain http implies an insecure export.
// Headers use the "k1=v1,k2=v2" form.
func ConfigFromEnv(getenv func(string) string, service, version string) Config {
	cfg := Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    getenv(EnvEnvironment),
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	raw := strings.TrimSpace(getenv(EnvEndpoint))
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		cfg.Endpoint = u.Host
		cfg.Insecure = u.Scheme == "http"
	} else {
		cfg.Endpoint = raw
	}

	for _, pair := range strings.Split(getenv(EnvHeaders), ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		cfg.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return cfg
}

// Provider owns the SDK providers installed by Initialize.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	logger         *zap.Logger
}

// Initialize installs global tracer and meter providers exporting to cfg.Endpoint.
// It returns a nil Provider when telemetry is disabled; Shutdown on nil is a no-op.
func Initialize(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Debug("telemetry disabled")
		return nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
			attribute.String("service.namespace", "go-workout"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithHeaders(cfg.Headers),
	}
	metricOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithHeaders(cfg.Headers),
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(traceBatchTimeout)),
		sdktrace.WithResource(res),
	)

	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(metricInterval),
		)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("telemetry initialized", zap.String("endpoint", cfg.Endpoint))
	return &Provider{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		logger:         logger,
	}, nil
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("telemetry shutdown", zap.Error(err))
		return err
	}
	return nil
}
