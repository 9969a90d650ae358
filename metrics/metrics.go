// Package metrics wires the relay's OTel meter provider to a Prometheus
// exporter, grounded on the teacher's core/metric.go.
package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

const fallbackAddr = "localhost:0"

var (
	meterProvider *metric.MeterProvider
	meter         api.Meter
)

// Initialize starts a /metrics HTTP endpoint on addr (or an OS-assigned
// port if addr is empty) and sets the package-wide OTel meter every gauge
// in this repo is created against.
func Initialize(addr string) error {
	var err error
	if addr == "" {
		addr = fallbackAddr
	}
	meterProvider, err = newPrometheusMeterProvider(addr)
	if err != nil {
		return errors.Wrap(err, "failed to create the MeterProvider with the Prometheus exporter")
	}
	meter = meterProvider.Meter("github.com/paritytech/parity-bridges-common")
	return nil
}

// Shutdown flushes and stops the meter provider.
func Shutdown(ctx context.Context) error {
	if meterProvider == nil {
		return nil
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown the MeterProvider")
	}
	return nil
}

// Meter returns the package-wide meter, valid after Initialize.
func Meter() api.Meter { return meter }

func newPrometheusMeterProvider(addr string) (*metric.MeterProvider, error) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Prometheus exporter server failed", "error", err)
		}
	}()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the Prometheus exporter")
	}

	return metric.NewMeterProvider(metric.WithReader(exporter)), nil
}
