// Package telemetry wires OpenTelemetry trace and metric providers. With
// telemetry disabled every helper is backed by no-op providers.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/straja-ai/arrhythmia/internal/redact"
)

const instrumentationName = "arrhythmia"

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Observation is one finished diagnose request.
type Observation struct {
	Source    string
	ProjectID string
	// Outcome is the activation decision, e.g. "diagnosed" or "rejected".
	Outcome  string
	Category string

	Total        time.Duration
	Conditioning time.Duration
	Inference    time.Duration
}

// Provider owns the tracer, meter and the service instruments.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	conditioning    metric.Float64Histogram
	inference       metric.Float64Histogram
	diagnoses       metric.Int64Counter

	shutdown []func(context.Context) error
}

// NewProvider configures OTLP exporters. When disabled it returns no-op providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol))
	if protocol == "" {
		protocol = "grpc"
	}
	if protocol != "grpc" && protocol != "http" {
		return nil, fmt.Errorf("unsupported telemetry protocol %q", cfg.Protocol)
	}
	redact.Logf("telemetry enabled (OpenTelemetry OTLP %s) endpoint=%s", protocol, cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	var (
		traceExp  sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
	)
	switch protocol {
	case "grpc":
		traceExp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err == nil {
			metricExp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure())
		}
	case "http":
		traceExp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err == nil {
			metricExp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:  true,
		tracer:   tp.Tracer(instrumentationName),
		meter:    mp.Meter(instrumentationName),
		shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}
	p.initInstruments()
	return p, nil
}

// Noop returns a disabled provider.
func Noop() *Provider {
	p := &Provider{
		tracer: tracenoop.NewTracerProvider().Tracer(""),
		meter:  metricnoop.NewMeterProvider().Meter(""),
	}
	p.initInstruments()
	return p
}

// NewWithMeter builds a provider around an existing meter, for tests and
// embedding.
func NewWithMeter(meter metric.Meter) *Provider {
	p := &Provider{
		Enabled: true,
		tracer:  tracenoop.NewTracerProvider().Tracer(""),
		meter:   meter,
	}
	p.initInstruments()
	return p
}

func (p *Provider) initInstruments() {
	// Instrument errors only happen on invalid names; telemetry stays best-effort.
	p.requests, _ = p.meter.Int64Counter("arrhythmia_requests_total",
		metric.WithDescription("Diagnose requests by source and outcome"))
	p.requestDuration, _ = p.meter.Float64Histogram("arrhythmia_request_duration_ms", metric.WithUnit("ms"))
	p.conditioning, _ = p.meter.Float64Histogram("arrhythmia_conditioning_duration_ms", metric.WithUnit("ms"))
	p.inference, _ = p.meter.Float64Histogram("arrhythmia_inference_duration_ms", metric.WithUnit("ms"))
	p.diagnoses, _ = p.meter.Int64Counter("arrhythmia_diagnoses_total",
		metric.WithDescription("Successful diagnoses by category"))
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}
	return p.tracer
}

// StartSpan opens a span carrying only safe attributes.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs map[string]interface{}) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, trace.WithAttributes(SafeAttributes(attrs)...))
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			redact.Logf("telemetry: shutdown: %v", err)
		}
	}
}

// Record emits counters and histograms for one request.
func (p *Provider) Record(ctx context.Context, o Observation) {
	if p == nil {
		return
	}
	labels := metric.WithAttributes(
		attribute.String("arrhythmia.source", o.Source),
		attribute.String("arrhythmia.outcome", o.Outcome),
		attribute.String("arrhythmia.project_id", o.ProjectID),
	)
	p.requests.Add(ctx, 1, labels)
	p.requestDuration.Record(ctx, millis(o.Total), labels)
	if o.Conditioning > 0 {
		p.conditioning.Record(ctx, millis(o.Conditioning), labels)
	}
	if o.Inference > 0 {
		p.inference.Record(ctx, millis(o.Inference), labels)
	}
	if o.Category != "" {
		p.diagnoses.Add(ctx, 1, metric.WithAttributes(
			attribute.String("arrhythmia.category", o.Category),
			attribute.String("arrhythmia.source", o.Source),
		))
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
