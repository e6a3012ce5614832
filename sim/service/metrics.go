package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/wricardo/autodrive/sim/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// runMetrics holds the OTel instruments for simulation runs
type runMetrics struct {
	runs       metric.Int64Counter
	collisions metric.Int64Counter
	steps      metric.Int64Histogram
	sessions   metric.Int64ObservableGauge

	registration metric.Registration
}

// newRunMetrics creates the instruments on the global meter provider
// (no-op if not configured). activeSessions is sampled on collection.
func newRunMetrics(activeSessions func() int) (*runMetrics, error) {
	m := meter()
	rm := &runMetrics{}

	var err error

	rm.runs, err = m.Int64Counter(
		"autodrive.runs",
		metric.WithDescription("Total simulation runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}

	rm.collisions, err = m.Int64Counter(
		"autodrive.collisions",
		metric.WithDescription("Total vehicles halted by a collision"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating collisions counter: %w", err)
	}

	rm.steps, err = m.Int64Histogram(
		"autodrive.run.steps",
		metric.WithDescription("Steps executed per run"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps histogram: %w", err)
	}

	rm.sessions, err = m.Int64ObservableGauge(
		"autodrive.sessions.active",
		metric.WithDescription("Current number of sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sessions gauge: %w", err)
	}

	rm.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(rm.sessions, int64(activeSessions()))
			return nil
		},
		rm.sessions,
	)
	if err != nil {
		return nil, fmt.Errorf("registering sessions callback: %w", err)
	}

	return rm, nil
}

// close unregisters the sessions callback. Safe to call more than once.
func (rm *runMetrics) close() error {
	if rm.registration == nil {
		return nil
	}
	reg := rm.registration
	rm.registration = nil
	return reg.Unregister()
}

// record adds one run to the instruments. kind is "session" or "stateless".
func (rm *runMetrics) record(ctx context.Context, kind string, result *RunResult) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	rm.runs.Add(ctx, 1, attrs)
	rm.collisions.Add(ctx, int64(result.Collisions), attrs)
	rm.steps.Record(ctx, int64(result.Steps), attrs)
}
