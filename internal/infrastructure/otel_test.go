package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gridexport/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel_Prometheus(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.MeterProvider)
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateHTTPMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RequestsTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("route", "/api/health")))

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests")
}

func TestInitializeOTel_Twice(t *testing.T) {
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(OTelConfigFrom(config.Default().Telemetry), quietLogger())
		require.NoError(t, err)
		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestInitializeOTel_Disabled(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.EnableMetrics = false
	cfg.EnableTracing = false

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Meter)

	_, err = CreateHTTPMetrics(providers.Meter)
	assert.NoError(t, err)
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "none"

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	assert.NotNil(t, providers.TracerProvider)
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.MetricExporter = "statsd"
	_, err := InitializeOTel(cfg, quietLogger())
	assert.Error(t, err)

	cfg = OTelConfigFrom(config.Default().Telemetry)
	cfg.TraceExporter = "jaeger"
	_, err = InitializeOTel(cfg, quietLogger())
	assert.Error(t, err)
}

func TestOTelConfigFrom(t *testing.T) {
	tel := config.Default().Telemetry
	cfg := OTelConfigFrom(tel)

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, tel.MetricExporter, cfg.MetricExporter)
	assert.Equal(t, tel.SampleRatio, cfg.SampleRatio)
}

func TestInitializeOTel_NilConfig(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	assert.NotNil(t, providers.Meter)
}

func TestSpanHelpersWithoutSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, TraceIDFromContext(ctx))
	assert.NotPanics(t, func() {
		RecordError(ctx, assert.AnError)
		SetSpanAttributes(ctx, attribute.Int("a", 1), attribute.String("b", "x"))
	})
}
