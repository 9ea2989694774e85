package metrics

import "go.uber.org/fx"

// Module provides the recorder and tracer.
var Module = fx.Options(
	fx.Provide(
		NewPrometheusRecorder,
		func(r *PrometheusRecorder) MetricRecorder { return r },
		fx.Annotate(NewOpenTelemetryTracer, fx.As(new(Tracer))),
	),
)
