package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proarc/proarc/pkg/proarc/core/config"
)

func TestSetupNone(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{Exporter: ExporterNone})
	require.NoError(t, err)
	assert.Nil(t, p.Tracer)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestSetupHTTPIsLazy(t *testing.T) {
	// Exporters connect on first export, so setup succeeds without a collector.
	p, err := Setup(context.Background(), config.TelemetryConfig{
		Exporter: ExporterHTTP, Endpoint: "127.0.0.1:4318", Insecure: true, ServiceName: "proarc-test",
	})
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)
	require.NotNil(t, p.Meter)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}
