// Package tracing wires OpenTelemetry for inbound API requests and
// outbound Steam Web API calls.
package tracing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/maltehedderich/steam-api-go/internal/logger"
)

// TracerName is the instrumentation name of every span this module starts.
const TracerName = "github.com/maltehedderich/steam-api-go"

var tracerProvider *sdktrace.TracerProvider

// Config contains tracing configuration
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled" env:"ENABLED"`
	// Endpoint is the OTLP/HTTP collector host:port, e.g. localhost:4318
	Endpoint       string  `yaml:"endpoint" json:"endpoint" env:"ENDPOINT"`
	Insecure       bool    `yaml:"insecure" json:"insecure" env:"INSECURE"`
	ServiceName    string  `yaml:"service_name" json:"service_name" env:"SERVICE_NAME"`
	ServiceVersion string  `yaml:"service_version" json:"service_version" env:"SERVICE_VERSION"`
	Environment    string  `yaml:"environment" json:"environment" env:"ENVIRONMENT"`
	SampleRate     float64 `yaml:"sample_rate" json:"sample_rate" env:"SAMPLE_RATE"`
}

func propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Init installs the global tracer provider. With tracing disabled a
// no-op provider is installed so instrumented code runs unchanged.
func Init(ctx context.Context, cfg *Config) error {
	log := logger.Get().WithComponent("tracing")

	if cfg == nil || !cfg.Enabled {
		log.Debug("distributed tracing is disabled")
		otel.SetTracerProvider(noop.NewTracerProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagator())

	log.Info("distributed tracing initialized", logger.Fields{
		"endpoint":     cfg.Endpoint,
		"service_name": cfg.ServiceName,
		"environment":  cfg.Environment,
		"sample_rate":  cfg.SampleRate,
	})

	return nil
}

// Shutdown flushes and stops the tracer provider installed by Init.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	tracerProvider = nil
	return nil
}

// Tracer returns a tracer instance
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// SpanFromContext returns the current span from the context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// StartSpan starts a new span with the given name and options
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartClientSpan starts a client span for an outbound Steam call.
// The URL attribute must already have its credential removed.
func StartClientSpan(ctx context.Context, endpoint, redactedURL string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "steam "+endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(http.MethodGet),
			semconv.HTTPURLKey.String(redactedURL),
			attribute.String("steam.endpoint", endpoint),
		),
	)
}

// EndClientSpan records the outcome of an outbound call and ends span.
func EndClientSpan(span trace.Span, statusCode int, err error) {
	if statusCode > 0 {
		span.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	if err != nil {
		SpanFromContext(ctx).RecordError(err)
	}
}

// TraceID returns the trace ID from the context
func TraceID(ctx context.Context) string {
	sc := SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// AddEvent adds an event to the current span in the context
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
