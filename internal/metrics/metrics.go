// Package metrics records runtime operation outcomes with Prometheus.
//
// kittynode runs as a short-lived CLI, so the registry is not served over
// HTTP. Instead it can be written to a node_exporter textfile collector
// file after each command (see WriteTextfile).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// UnknownPackage is the package label recorded for names the registry
// does not know, so caller input cannot grow the label set.
const UnknownPackage = "unknown"

// Metrics holds the Prometheus collectors for runtime and lifecycle
// operations.
type Metrics struct {
	RuntimeOps      *prometheus.CounterVec
	RuntimeDuration *prometheus.HistogramVec
	PackageOps      *prometheus.CounterVec
	PullEventErrors prometheus.Counter
	registry        *prometheus.Registry
}

var (
	defaultInstance *Metrics
	defaultOnce     sync.Once
)

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RuntimeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kittynode_runtime_operations_total",
				Help: "Total number of container runtime calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		RuntimeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kittynode_runtime_operation_duration_seconds",
				Help:    "Container runtime call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PackageOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kittynode_package_operations_total",
				Help: "Total number of package install/delete operations by result",
			},
			[]string{"operation", "package", "result"},
		),
		PullEventErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kittynode_image_pull_event_errors_total",
				Help: "Image pull progress events that reported an error",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.RuntimeOps, m.RuntimeDuration, m.PackageOps, m.PullEventErrors)
	return m
}

// Default returns the process-wide Metrics instance.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultInstance = New()
	})
	return defaultInstance
}

// ObserveRuntime records one runtime call that started at start and
// finished with err.
func (m *Metrics) ObserveRuntime(operation string, start time.Time, err error) {
	m.RuntimeOps.WithLabelValues(operation, result(err)).Inc()
	m.RuntimeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObservePackage records the outcome of an install or delete.
func (m *Metrics) ObservePackage(operation, pkg string, err error) {
	m.PackageOps.WithLabelValues(operation, pkg, result(err)).Inc()
}

// IncPullEventError counts one errored pull progress event.
func (m *Metrics) IncPullEventError() {
	m.PullEventErrors.Inc()
}

// Registry returns the registry backing this instance.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metric values in the text exposition
// format to path, atomically, for a node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
