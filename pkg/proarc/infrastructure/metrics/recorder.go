// Package metrics records batch and producer outcomes for Prometheus and
// OpenTelemetry.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/support/util/logger"
)

// MetricRecorder receives pipeline events.
type MetricRecorder interface {
	RecordBatchStart(ctx context.Context, b *model.Batch)
	RecordBatchEnd(ctx context.Context, b *model.Batch, duration time.Duration)
	// RecordResult counts one producer result; outcome is "success",
	// "invalid" or "failed".
	RecordResult(ctx context.Context, profile model.Profile, outcome string)
	RecordPages(ctx context.Context, profile model.Profile, pages int)
	RecordBag(ctx context.Context, uploaded bool, err error)
	RecordIngestItem(ctx context.Context, state model.ItemState)
}

// PrometheusRecorder keeps its collectors on a private registry and mirrors
// the counters to the global OpenTelemetry meter.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchDuration *prometheus.HistogramVec
	batchStatus   *prometheus.CounterVec
	results       *prometheus.CounterVec
	pages         *prometheus.CounterVec
	bags          *prometheus.CounterVec
	ingestItems   *prometheus.CounterVec

	otelBatches metric.Int64Counter
	otelResults metric.Int64Counter
}

var _ MetricRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates and registers all collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proarc_batch_duration_seconds",
			Help:    "Duration of batch processing.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"profile", "state"}),
		batchStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proarc_batch_state_total",
			Help: "Batches by profile and reached state.",
		}, []string{"profile", "state"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proarc_export_results_total",
			Help: "Producer results per exported root.",
		}, []string{"profile", "outcome"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proarc_export_pages_total",
			Help: "Pages written to export packages.",
		}, []string{"profile"}),
		bags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proarc_bagit_total",
			Help: "BagIt post-processing by result.",
		}, []string{"uploaded", "result"}),
		ingestItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proarc_ingest_items_total",
			Help: "Import items by final state.",
		}, []string{"state"}),
	}
	registry.MustRegister(r.batchDuration, r.batchStatus, r.results, r.pages, r.bags, r.ingestItems)

	meter := otel.Meter("github.com/proarc/proarc")
	var err error
	if r.otelBatches, err = meter.Int64Counter("proarc.batches", metric.WithDescription("Batches by reached state.")); err != nil {
		logger.Warnf("Cannot create otel counter proarc.batches: %v", err)
	}
	if r.otelResults, err = meter.Int64Counter("proarc.export.results", metric.WithDescription("Producer results.")); err != nil {
		logger.Warnf("Cannot create otel counter proarc.export.results: %v", err)
	}
	return r
}

// Registry exposes the collectors for scraping.
func (r *PrometheusRecorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus text format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *PrometheusRecorder) RecordBatchStart(ctx context.Context, b *model.Batch) {
	r.batchStatus.WithLabelValues(string(b.Profile), string(b.State)).Inc()
	logger.Debugf("Metrics: batch %d (%s) started.", b.ID, b.Profile)
}

func (r *PrometheusRecorder) RecordBatchEnd(ctx context.Context, b *model.Batch, duration time.Duration) {
	r.batchStatus.WithLabelValues(string(b.Profile), string(b.State)).Inc()
	r.batchDuration.WithLabelValues(string(b.Profile), string(b.State)).Observe(duration.Seconds())
	if r.otelBatches != nil {
		r.otelBatches.Add(ctx, 1, metric.WithAttributes(
			attribute.String("profile", string(b.Profile)),
			attribute.String("state", string(b.State)),
		))
	}
	logger.Debugf("Metrics: batch %d ended in %s after %.3fs.", b.ID, b.State, duration.Seconds())
}

func (r *PrometheusRecorder) RecordResult(ctx context.Context, profile model.Profile, outcome string) {
	r.results.WithLabelValues(string(profile), outcome).Inc()
	if r.otelResults != nil {
		r.otelResults.Add(ctx, 1, metric.WithAttributes(
			attribute.String("profile", string(profile)),
			attribute.String("outcome", outcome),
		))
	}
}

func (r *PrometheusRecorder) RecordPages(ctx context.Context, profile model.Profile, pages int) {
	if pages > 0 {
		r.pages.WithLabelValues(string(profile)).Add(float64(pages))
	}
}

func (r *PrometheusRecorder) RecordBag(ctx context.Context, uploaded bool, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	up := "false"
	if uploaded {
		up = "true"
	}
	r.bags.WithLabelValues(up, result).Inc()
}

func (r *PrometheusRecorder) RecordIngestItem(ctx context.Context, state model.ItemState) {
	r.ingestItems.WithLabelValues(string(state)).Inc()
}
