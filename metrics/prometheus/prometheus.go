// Package prometheus is an additional, optional exporter that mirrors a
// netkit/metrics.Counters snapshot into prometheus/client_golang
// collectors. Nothing in the engine requires it; it is imported only by
// consumers that want Prometheus visibility.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/corexis/netkit/metrics"
)

// Exporter holds the Prometheus collectors that mirror a Counters
// snapshot. Call Export after each call (or on a timer) to publish the
// latest values.
type Exporter struct {
	total       prometheus.Counter
	success     prometheus.Counter
	fail        prometheus.Counter
	bytes       prometheus.Counter
	avgDuration prometheus.Gauge
	successRate prometheus.Gauge
}

// ExporterConfig configures the exporter's registry and metric naming.
type ExporterConfig struct {
	// Registry is the Prometheus registry to use. If nil, uses
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Namespace for metrics (default: "netkit").
	Namespace string
}

// NewExporter creates an Exporter with default registry and namespace.
func NewExporter() *Exporter {
	return NewExporterWithConfig(ExporterConfig{})
}

// NewExporterWithConfig creates an Exporter with custom configuration.
func NewExporterWithConfig(config ExporterConfig) *Exporter {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "netkit"
	}

	factory := promauto.With(config.Registry)

	return &Exporter{
		total: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "Total number of engine calls observed at last export.",
		}),
		success: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_success_total",
			Help:      "Total number of successful engine calls observed at last export.",
		}),
		fail: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_failed_total",
			Help:      "Total number of failed engine calls observed at last export.",
		}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "response_bytes_total",
			Help:      "Cumulative response bytes observed at last export.",
		}),
		avgDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "request_duration_seconds_average",
			Help:      "Average call duration as of last export.",
		}),
		successRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "success_rate",
			Help:      "Fraction of successful calls as of last export.",
		}),
	}
}

// Export publishes snap's values into the exporter's collectors. Counters
// in Prometheus are monotonic, so Export adds only snap's increase over the
// prev* values the caller passes (normally the counts it exported last
// time); the Exporter keeps no record of earlier calls. Callers should
// export on a single goroutine or serialize calls themselves.
func (e *Exporter) Export(snap metrics.Snapshot, prevTotal, prevSuccess, prevFail, prevBytes int64) {
	if d := snap.Total - prevTotal; d > 0 {
		e.total.Add(float64(d))
	}
	if d := snap.Success - prevSuccess; d > 0 {
		e.success.Add(float64(d))
	}
	if d := snap.Fail - prevFail; d > 0 {
		e.fail.Add(float64(d))
	}
	if d := snap.Bytes - prevBytes; d > 0 {
		e.bytes.Add(float64(d))
	}
	e.avgDuration.Set(snap.AverageDuration.Seconds())
	e.successRate.Set(snap.SuccessRate)
}
