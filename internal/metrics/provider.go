// Package metrics exports the ledgersync instruments in Prometheus format through
// OpenTelemetry: sync outcomes, record state counts and HTTP requests.
package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Provider owns the meter provider of the service and the registry it is scraped from.
// The registry also carries the Go runtime and process collectors, plus any collector
// passed to NewProvider such as the record store pool statistics.
type Provider struct {
	namespace     string
	registry      *prometheus.Registry
	meterProvider *sdkmetric.MeterProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewProvider creates the provider for namespace, the prefix of every ledgersync series.
func NewProvider(namespace string, extra ...prometheus.Collector) (*Provider, error) {
	registry := prometheus.NewRegistry()

	builtin := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	}
	for _, collector := range append(builtin, extra...) {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	// Scope labels would repeat the namespace on every series.
	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
		promexporter.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return &Provider{
		namespace: namespace,
		registry:  registry,
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(exporter),
			sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", namespace))),
		),
	}, nil
}

// DBStatsCollector reports the connection pool of the record store as go_sql_* series
// labelled with the driver name.
func DBStatsCollector(db *sql.DB, driver string) prometheus.Collector {
	return collectors.NewDBStatsCollector(db, driver)
}

// Namespace returns the series prefix.
func (p *Provider) Namespace() string {
	return p.namespace
}

// Handler serves the registry. Scrapes are counted in promhttp_metric_handler_requests_total.
func (p *Provider) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(p.registry, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		Registry:          p.registry,
		EnableOpenMetrics: true,
	}))
}

// MeterProvider returns the meter provider instruments are created from.
func (p *Provider) MeterProvider() *sdkmetric.MeterProvider {
	return p.meterProvider
}

// Shutdown stops the meter provider. Only the first call does any work.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		if p.meterProvider != nil {
			p.shutdownErr = p.meterProvider.Shutdown(ctx)
		}
	})
	return p.shutdownErr
}
