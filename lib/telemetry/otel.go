// Package telemetry bridges pool metrics onto OpenTelemetry instruments.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/coachpo/objectpool/pool"
)

const scopeName = "github.com/coachpo/objectpool"

// Registration is a live binding between one pool and a meter. Unregister
// stops the observations.
type Registration struct {
	reg metric.Registration
}

// Unregister detaches the pool from the meter.
func (r *Registration) Unregister() error {
	if r == nil || r.reg == nil {
		return nil
	}
	return r.reg.Unregister()
}

// Register exposes the pool's gauges and counters as observable instruments
// on the provider, labelled with the pool name. The snapshot is taken inside
// the collection callback, so readings are as fresh as each scrape.
func Register(provider metric.MeterProvider, poolName string, view pool.Instrumented) (*Registration, error) {
	if provider == nil {
		return nil, fmt.Errorf("telemetry: meter provider required")
	}
	if view == nil {
		return nil, fmt.Errorf("telemetry: pool view required")
	}
	meter := provider.Meter(scopeName)

	active, err := meter.Int64ObservableGauge("objectpool.objects.active",
		metric.WithDescription("Current active objects"))
	if err != nil {
		return nil, fmt.Errorf("create active gauge: %w", err)
	}
	available, err := meter.Int64ObservableGauge("objectpool.objects.available",
		metric.WithDescription("Current available objects"))
	if err != nil {
		return nil, fmt.Errorf("create available gauge: %w", err)
	}
	utilization, err := meter.Float64ObservableGauge("objectpool.utilization",
		metric.WithDescription("Pool utilization ratio"))
	if err != nil {
		return nil, fmt.Errorf("create utilization gauge: %w", err)
	}
	retrieved, err := meter.Int64ObservableCounter("objectpool.objects.retrieved",
		metric.WithDescription("Total objects retrieved"))
	if err != nil {
		return nil, fmt.Errorf("create retrieved counter: %w", err)
	}
	returned, err := meter.Int64ObservableCounter("objectpool.objects.returned",
		metric.WithDescription("Total objects returned"))
	if err != nil {
		return nil, fmt.Errorf("create returned counter: %w", err)
	}
	emptyEvents, err := meter.Int64ObservableCounter("objectpool.events.empty",
		metric.WithDescription("Pool empty events"))
	if err != nil {
		return nil, fmt.Errorf("create empty counter: %w", err)
	}
	validationFailures, err := meter.Int64ObservableCounter("objectpool.validation.failures",
		metric.WithDescription("Validation failures"))
	if err != nil {
		return nil, fmt.Errorf("create validation counter: %w", err)
	}

	attrs := metric.WithAttributes(attribute.String("pool", poolName))
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := view.Metrics()
		o.ObserveInt64(active, int64(snap.ActiveObjects), attrs)
		o.ObserveInt64(available, int64(snap.AvailableObjects), attrs)
		o.ObserveFloat64(utilization, snap.Utilization, attrs)
		o.ObserveInt64(retrieved, int64(snap.TotalRetrieved), attrs)
		o.ObserveInt64(returned, int64(snap.TotalReturned), attrs)
		o.ObserveInt64(emptyEvents, int64(snap.PoolEmptyEvents), attrs)
		o.ObserveInt64(validationFailures, int64(snap.ValidationFailures), attrs)
		return nil
	}, active, available, utilization, retrieved, returned, emptyEvents, validationFailures)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	return &Registration{reg: reg}, nil
}
