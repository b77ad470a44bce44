package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StateObservation is the number of records of one kind in one sync state.
type StateObservation struct {
	Kind  string
	State string
	Count int64
}

// StateObserver reports the current record counts. It is called on every collection.
type StateObserver func(ctx context.Context) ([]StateObservation, error)

// RegisterRecordStateGauge registers an observable gauge "<namespace>_records" labelled by
// kind and state. The returned registration must be unregistered on shutdown.
func RegisterRecordStateGauge(
	meterProvider metric.MeterProvider,
	namespace string,
	observe StateObserver,
) (metric.Registration, error) {
	meter := meterProvider.Meter(namespace)

	gauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_records", namespace),
		metric.WithDescription("Number of records per kind and sync state"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create record state gauge: %w", err)
	}

	registration, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		observations, err := observe(ctx)
		if err != nil {
			return err
		}
		for _, obs := range observations {
			o.ObserveInt64(gauge, obs.Count, metric.WithAttributes(
				attribute.String("kind", obs.Kind),
				attribute.String("state", obs.State),
			))
		}
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("failed to register record state callback: %w", err)
	}
	return registration, nil
}
