// Package telemetry implements platform.Telemetry with OpenTelemetry,
// modeled on gomind's telemetry.OTelProvider but trimmed to tracing only
// (metrics are recorded as attributes on short-lived spans) — enough for
// the control plane to emit a span per command worker, per go-home task,
// and per HTTP request.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/HukkaMehu/LePetPal/internal/platform"
)

// Provider implements platform.Telemetry on top of an OpenTelemetry
// TracerProvider. With no endpoint configured it exports spans to stdout
// (useful for local runs without a collector); with ROBOTD_OTEL_ENDPOINT
// set it exports via OTLP/gRPC, mirroring telemetry.NewOTelProvider's
// fallback-to-local-exporter design.
type Provider struct {
	tracer trace.Tracer
	tp     *sdktrace.TracerProvider

	mu       sync.RWMutex
	shutdown bool

	logger platform.Logger
}

// NewProvider builds a Provider for serviceName. endpoint == "" selects the
// stdout exporter.
func NewProvider(serviceName, endpoint string, logger platform.Logger) (*Provider, error) {
	if logger == nil {
		logger = platform.NoOpLogger{}
	}
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name is required")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String("1.0.0"),
	)

	var exporter sdktrace.SpanExporter
	var err error
	if endpoint == "" {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating stdout exporter: %w", err)
		}
		logger.Info("telemetry using stdout exporter", map[string]interface{}{"reason": "no endpoint configured"})
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("telemetry: creating OTLP exporter for %s: %w", endpoint, err)
		}
		logger.Info("telemetry using OTLP/gRPC exporter", map[string]interface{}{"endpoint": endpoint})
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		tracer: tp.Tracer("robot-control-plane"),
		tp:     tp,
		logger: logger,
	}, nil
}

// StartSpan implements platform.Telemetry.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, platform.Span) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shutdown || p.tracer == nil {
		return ctx, platform.NoOpSpan{}
	}
	ctx, span := p.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric implements platform.Telemetry by setting the measurement
// (and its labels) as attributes on a short-lived span named
// "metric.<name>", keeping the dependency surface to
// tracing only — sufficient for this single-process control plane, where
// OTel metrics export would need its own collector wiring spec.md doesn't
// call for.
func (p *Provider) RecordMetric(name string, value float64, labels map[string]string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shutdown || p.tracer == nil {
		return
	}
	_, span := p.tracer.Start(context.Background(), "metric."+name)
	defer span.End()
	attrs := make([]attribute.KeyValue, 0, len(labels)+1)
	attrs = append(attrs, attribute.Float64("value", value))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	span.SetAttributes(attrs...)
}

// Shutdown flushes and stops the exporter. Idempotent.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil
	}
	p.shutdown = true
	p.mu.Unlock()
	return p.tp.Shutdown(ctx)
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}
