package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics exposes the service's instruments. The backing MeterProvider
// exports to Prometheus via the /metrics handler.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	handler  http.Handler

	assessments   metric.Int64Counter
	degraded      metric.Int64Counter
	duration      metric.Float64Histogram
	batchInFlight metric.Int64Gauge
}

// InitMetrics builds the Prometheus-backed meter provider and the service
// instruments.
func InitMetrics(serviceName string) (*Metrics, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	meter := provider.Meter(serviceName)

	assessments, err := meter.Int64Counter("risk_assessments_total",
		metric.WithDescription("Completed risk assessments by risk level"))
	if err != nil {
		return nil, err
	}
	degraded, err := meter.Int64Counter("risk_assessments_degraded_total",
		metric.WithDescription("Assessments completed with at least one auxiliary signal unavailable"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("risk_assessment_duration_seconds",
		metric.WithDescription("End-to-end assessment latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	batchInFlight, err := meter.Int64Gauge("risk_batch_in_flight",
		metric.WithDescription("Batch items currently being assessed"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		provider:      provider,
		handler:       promhttp.Handler(),
		assessments:   assessments,
		degraded:      degraded,
		duration:      duration,
		batchInFlight: batchInFlight,
	}, nil
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler { return m.handler }

// RecordAssessment counts a completed assessment and its latency.
func (m *Metrics) RecordAssessment(ctx context.Context, riskLevel string, degraded bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("risk_level", riskLevel))
	m.assessments.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if degraded {
		m.degraded.Add(ctx, 1)
	}
}

// RecordBatchInFlight sets the in-flight gauge to the current active count.
func (m *Metrics) RecordBatchInFlight(ctx context.Context, active int64) {
	m.batchInFlight.Record(ctx, active)
}

// Shutdown flushes the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
