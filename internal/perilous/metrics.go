package perilous

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "PerilousSimulator/internal/perilous"

type metrics struct {
	started  metric.Int64Counter
	ended    metric.Int64Counter
	rejected metric.Int64Counter
	bashed   metric.Int64Counter
	anomaly  metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}
	var (
		m   metrics
		err error
	)
	if m.started, err = meter.Int64Counter("perilous.attack.started",
		metric.WithDescription("Tracked perilous attacks started")); err != nil {
		return nil, err
	}
	if m.ended, err = meter.Int64Counter("perilous.attack.ended",
		metric.WithDescription("Tracked perilous attacks retired")); err != nil {
		return nil, err
	}
	if m.rejected, err = meter.Int64Counter("perilous.attack.rejected",
		metric.WithDescription("Attack attempts that passed preconditions but did not start")); err != nil {
		return nil, err
	}
	if m.bashed, err = meter.Int64Counter("perilous.bash.started",
		metric.WithDescription("Perilous bashes flagged")); err != nil {
		return nil, err
	}
	if m.anomaly, err = meter.Int64Counter("perilous.anomaly",
		metric.WithDescription("Flag and registry disagreements")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *metrics) reject(reason string) {
	m.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metrics) add(c metric.Int64Counter) {
	c.Add(context.Background(), 1)
}
