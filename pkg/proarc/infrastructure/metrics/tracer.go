package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
)

// Tracer opens spans around batches and producer runs.
type Tracer interface {
	// StartBatchSpan returns a context carrying the span and a function
	// ending it with the final error, if any.
	StartBatchSpan(ctx context.Context, b *model.Batch) (context.Context, func(error))
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error))
	RecordEvent(ctx context.Context, name string, attrs map[string]string)
}

// OpenTelemetryTracer uses the global tracer provider, which is a no-op
// until telemetry installs an exporter.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

var _ Tracer = (*OpenTelemetryTracer)(nil)

// NewOpenTelemetryTracer creates the tracer.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: otel.Tracer("github.com/proarc/proarc")}
}

func (t *OpenTelemetryTracer) StartBatchSpan(ctx context.Context, b *model.Batch) (context.Context, func(error)) {
	return t.start(ctx, "batch "+string(b.Profile),
		attribute.Int64("proarc.batch.id", b.ID),
		attribute.String("proarc.batch.profile", string(b.Profile)),
		attribute.StringSlice("proarc.batch.pids", b.Params.PIDs),
	)
}

func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(error)) {
	return t.start(ctx, name, toAttributes(attrs)...)
}

func (t *OpenTelemetryTracer) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attrs map[string]string) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attrs)...))
}

func toAttributes(m map[string]string) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		out = append(out, attribute.String(k, v))
	}
	return out
}
