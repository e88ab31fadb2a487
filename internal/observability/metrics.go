// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a
// Prometheus exporter. It returns the HTTP handler for the /metrics
// endpoint and a shutdown function for graceful cleanup on exit.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// GameMetrics bundles the instruments incremented by the schedulers and the
// submission validator. A nil *GameMetrics is safe to use everywhere.
type GameMetrics struct {
	TicksExecuted  otelmetric.Int64Counter
	Submissions    otelmetric.Int64Counter
	ChecksRecorded otelmetric.Int64Counter
}

// NewGameMetrics registers the gameserver instruments on the global meter.
func NewGameMetrics() (*GameMetrics, error) {
	meter := otel.Meter("flagrange")

	ticks, err := meter.Int64Counter("flagrange.ticks.executed",
		otelmetric.WithDescription("Ticks executed across all games"))
	if err != nil {
		return nil, err
	}

	subs, err := meter.Int64Counter("flagrange.submissions.total",
		otelmetric.WithDescription("Flag submission attempts by outcome"))
	if err != nil {
		return nil, err
	}

	checks, err := meter.Int64Counter("flagrange.checks.recorded",
		otelmetric.WithDescription("Service statuses recorded by the checker scheduler"))
	if err != nil {
		return nil, err
	}

	return &GameMetrics{
		TicksExecuted:  ticks,
		Submissions:    subs,
		ChecksRecorded: checks,
	}, nil
}

// CountTick records one executed tick.
func (m *GameMetrics) CountTick(ctx context.Context) {
	if m == nil {
		return
	}
	m.TicksExecuted.Add(ctx, 1)
}

// CountSubmission records one submission attempt with its outcome.
func (m *GameMetrics) CountSubmission(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Submissions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}

// CountCheck records one recorded service status with its verdict.
func (m *GameMetrics) CountCheck(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.ChecksRecorded.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
}
