package telemetry

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/alnah/go-workout/internal/telemetry"

// TraceIDHeader carries the request's trace id back to the client.
const TraceIDHeader = "X-Trace-ID"

type middlewareConfig struct {
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
}

// MiddlewareOption configures FiberMiddleware.
type MiddlewareOption func(*middlewareConfig)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) MiddlewareOption {
	return func(c *middlewareConfig) { c.provider = tp }
}

// FiberMiddleware starts a server span per request and stores it in the
// request's user context, so handlers pass it down with c.UserContext().
func FiberMiddleware(opts ...MiddlewareOption) fiber.Handler {
	cfg := middlewareConfig{
		provider:   otel.GetTracerProvider(),
		propagator: otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	tracer := cfg.provider.Tracer(tracerName)

	return func(c *fiber.Ctx) error {
		ctx := cfg.propagator.Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Method(), c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.url", c.OriginalURL()),
				attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set(TraceIDHeader, sc.TraceID().String())
		}

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			span.RecordError(err)
		}
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.String("http.route", c.Route().Path),
		)
		if status >= fiber.StatusBadRequest || err != nil {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		return err
	}
}
