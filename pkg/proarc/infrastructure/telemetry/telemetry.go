// Package telemetry installs the global OpenTelemetry trace and meter
// providers with OTLP exporters selected by configuration.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/proarc/proarc/pkg/proarc/core/config"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// Exporter names accepted in telemetry.exporter.
const (
	ExporterNone = "none"
	ExporterGRPC = "otlp-grpc"
	ExporterHTTP = "otlp-http"
)

// Providers holds the installed SDK providers. Both are nil for "none".
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if p.Tracer != nil {
		if err := p.Tracer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Setup creates the exporters for cfg and installs the providers globally.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Providers, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		logger.Debugf("Telemetry export disabled.")
		return &Providers{}, nil
	case ExporterGRPC, ExporterHTTP:
	default:
		return nil, fmt.Errorf("unknown telemetry exporter '%s'", cfg.Exporter)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName(cfg)))
	spans, err := traceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	metrics, err := metricExporter(ctx, cfg)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	interval := time.Duration(cfg.MetricIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	p := &Providers{
		Tracer: sdktrace.NewTracerProvider(sdktrace.WithBatcher(spans), sdktrace.WithResource(res)),
		Meter: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics, sdkmetric.WithInterval(interval))),
			sdkmetric.WithResource(res),
		),
	}
	otel.SetTracerProvider(p.Tracer)
	otel.SetMeterProvider(p.Meter)
	logger.Infof("Telemetry exporting via %s to %s.", cfg.Exporter, cfg.Endpoint)
	return p, nil
}

func serviceName(cfg config.TelemetryConfig) string {
	if cfg.ServiceName == "" {
		return "proarc"
	}
	return cfg.ServiceName
}

func traceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == ExporterGRPC {
		var opts []otlptracegrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func metricExporter(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	if cfg.Exporter == ExporterGRPC {
		var opts []otlpmetricgrpc.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
	var opts []otlpmetrichttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

// Module installs the providers on start and flushes them on stop.
var Module = fx.Options(
	fx.Provide(func(lc fx.Lifecycle, cfg *config.Config) (*Providers, error) {
		p, err := Setup(context.Background(), cfg.ProArc.Telemetry)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(p.Shutdown))
		return p, nil
	}),
)
