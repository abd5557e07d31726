// Package metrics exposes the Prometheus instruments for device operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/icarus-itcs/simyard/internal/device"
)

// Metrics holds the instrument set. A nil *Metrics is valid and records
// nothing, so instrumentation stays optional outside the daemon.
type Metrics struct {
	operations   *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	devices      *prometheus.GaugeVec
}

// New builds the instrument set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "simyard_operations_total",
			Help: "Device operations by platform, operation and outcome.",
		}, []string{"platform", "operation", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "simyard_operation_duration_seconds",
			Help: "Device operation latency in seconds.",
			// Cold emulator boots run into minutes, so the ladder is long.
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"platform", "operation"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "simyard_device_list_cache_total",
			Help: "Device list cache lookups by result.",
		}, []string{"result"}),
		devices: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "simyard_devices",
			Help: "Devices each backend reported at the last full listing.",
		}, []string{"platform"}),
	}
}

// ObserveOperation records one finished device operation. The outcome label
// is "success" or the error kind.
func (m *Metrics) ObserveOperation(platform device.Platform, operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(device.KindOf(err))
	}
	m.operations.WithLabelValues(string(platform), operation, outcome).Inc()
	m.durations.WithLabelValues(string(platform), operation).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records a device list cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetDeviceCount records how many devices a backend reported.
func (m *Metrics) SetDeviceCount(platform device.Platform, count int) {
	if m == nil {
		return
	}
	m.devices.WithLabelValues(string(platform)).Set(float64(count))
}
