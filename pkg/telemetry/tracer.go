package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps the OpenTelemetry tracer with beacon-specific functionality.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// NewTracer creates a new tracer with the given configuration.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion, environment string) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{
			provider: sdktrace.NewTracerProvider(),
			tracer:   otel.Tracer(serviceName),
			config:   cfg,
		}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("environment", environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exporter, err = createStdoutExporter(cfg)
	case "none":
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampler := sdktrace.ParentBased(
		sdktrace.TraceIDRatioBased(cfg.SamplingRate),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}

	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(
			exporter,
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithExportTimeout(cfg.ExportTimeout),
		))
	}

	provider := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(provider)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   cfg,
	}, nil
}

// createStdoutExporter creates a stdout exporter for debugging.
func createStdoutExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// StartSpan is a convenience method that starts a span with common attributes.
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
}

// StartCompileSpan starts a span for a specification compile operation.
func (t *Tracer) StartCompileSpan(ctx context.Context, specHash string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "compile",
		attribute.String("spec.hash", specHash),
		attribute.String("span.kind", "compile"),
	)
}

// StartEpochSpan starts a span for one traversal epoch.
func (t *Tracer) StartEpochSpan(ctx context.Context, campaignID string, epoch int64) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "traversal.epoch",
		attribute.String("campaign.id", campaignID),
		attribute.Int64("epoch", epoch),
		attribute.String("span.kind", "traversal"),
	)
}

// StartSolveSpan starts a span for one solver fracture/solve call.
func (t *Tracer) StartSolveSpan(ctx context.Context, campaignID, stage string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, fmt.Sprintf("solver.%s", stage),
		attribute.String("campaign.id", campaignID),
		attribute.String("solver.stage", stage),
		attribute.String("span.kind", "solver"),
	)
}

// StartCoordinatorFoldSpan starts a span for one coordinator epoch fold.
func (t *Tracer) StartCoordinatorFoldSpan(ctx context.Context, campaignID string, epoch int64) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "coordinator.fold",
		attribute.String("campaign.id", campaignID),
		attribute.Int64("epoch", epoch),
		attribute.String("span.kind", "coordinator"),
	)
}

// RecordError records an error on the current span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span as successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetAttributes sets multiple attributes on a span.
func SetAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// AddEvent adds an event to the span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// AddFindingEvent adds a finding-related event to the span.
func AddFindingEvent(span trace.Span, findingID, kind, message string) {
	span.AddEvent("finding", trace.WithAttributes(
		attribute.String("finding.id", findingID),
		attribute.String("finding.kind", kind),
		attribute.String("event.message", message),
	))
}

// AddSignalEvent adds a coordinator-signal event to the span.
func AddSignalEvent(span trace.Span, signalKind, message string) {
	span.AddEvent(signalKind, trace.WithAttributes(
		attribute.String("event.message", message),
		attribute.String("event.category", "signal"),
	))
}

// Shutdown gracefully shuts down the tracer, flushing any pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// ForceFlush forces all pending spans to be exported immediately.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.ForceFlush(ctx)
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// TraceID returns the OpenTelemetry trace ID of the current span in the context.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// SpanID returns the span ID of the current span in the context.
func SpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().SpanID().String()
}

// Common attribute keys for beacon tracing.
var (
	// Campaign attributes
	AttrCampaignID = attribute.Key("campaign.id")
	AttrSpecHash   = attribute.Key("spec.hash")

	// Traversal attributes
	AttrEpoch      = attribute.Key("epoch")
	AttrActionName = attribute.Key("action.name")
	AttrTraceID    = attribute.Key("trace.id")

	// Solver attributes
	AttrSolverStage = attribute.Key("solver.stage")

	// Guest attributes
	AttrGuestModule  = attribute.Key("guest.module")
	AttrGuestVersion = attribute.Key("guest.version")

	// Error attributes
	AttrErrorClass   = attribute.Key("error.class")
	AttrErrorCode    = attribute.Key("error.code")
	AttrErrorMessage = attribute.Key("error.message")
)
