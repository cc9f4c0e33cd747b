// Package metrics provides the engine's Prometheus metrics taxonomy.
// Adapted from pkg/metrics/registry.go's lazy-singleton-by-category
// design, trimmed to the four core subsystems: metrics here are
// point-in-time counters/gauges, never windowed aggregation (the
// explicit Non-goal in spec.md §1).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the central registry for the engine's Prometheus metrics.
// Thread-safe, lazily initialized per category.
type Registry struct {
	namespace string

	controller *ControllerMetrics
	stack      *StackMetrics
	reporter   *ReporterMetrics
	writer     *WriterMetrics

	controllerOnce sync.Once
	stackOnce      sync.Once
	reporterOnce   sync.Once
	writerOnce     sync.Once
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the global singleton Registry. Collectors are
// lazily constructed per category but not registered against any
// prometheus.Registerer until RegisterAll is called.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry("methodtrace")
	})
	return defaultRegistry
}

// NewRegistry returns a standalone Registry under the given namespace,
// useful in tests that want isolated metric instances.
func NewRegistry(namespace string) *Registry {
	return &Registry{namespace: namespace}
}

// Controller returns the Monitoring Controller metric group.
func (r *Registry) Controller() *ControllerMetrics {
	r.controllerOnce.Do(func() {
		r.controller = newControllerMetrics(r.namespace)
	})
	return r.controller
}

// Stack returns the Call Stack metric group.
func (r *Registry) Stack() *StackMetrics {
	r.stackOnce.Do(func() {
		r.stack = newStackMetrics(r.namespace)
	})
	return r.stack
}

// Reporter returns the Reporter Pipeline metric group.
func (r *Registry) Reporter() *ReporterMetrics {
	r.reporterOnce.Do(func() {
		r.reporter = newReporterMetrics(r.namespace)
	})
	return r.reporter
}

// Writer returns the Report Output Engine metric group.
func (r *Registry) Writer() *WriterMetrics {
	r.writerOnce.Do(func() {
		r.writer = newWriterMetrics(r.namespace)
	})
	return r.writer
}

// RegisterAll registers every category that has been touched so far
// (via Controller/Stack/Reporter/Writer) against reg. Call once, after
// all categories of interest have been accessed.
func (r *Registry) RegisterAll(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{}
	if r.controller != nil {
		collectors = append(collectors, r.controller.VersionBumps, r.controller.GlobalEnabled)
	}
	if r.stack != nil {
		collectors = append(collectors, r.stack.PushesTotal, r.stack.PopsTotal, r.stack.DroppedPushesTotal, r.stack.ActiveThreads)
	}
	if r.reporter != nil {
		collectors = append(collectors, r.reporter.BatchesFlushed, r.reporter.GapsEmitted, r.reporter.ItemsDropped)
	}
	if r.writer != nil {
		collectors = append(collectors, r.writer.RowsWritten, r.writer.WriteErrors, r.writer.ArchiveRuns)
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ControllerMetrics tracks gating state transitions.
type ControllerMetrics struct {
	VersionBumps   prometheus.Counter
	GlobalEnabled  prometheus.Gauge
}

func newControllerMetrics(namespace string) *ControllerMetrics {
	return &ControllerMetrics{
		VersionBumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "version_bumps_total",
			Help:      "Total number of monitoring version bumps.",
		}),
		GlobalEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "global_enabled",
			Help:      "1 if global tracking is currently enabled, else 0.",
		}),
	}
}

// StackMetrics tracks push/pop behavior.
type StackMetrics struct {
	PushesTotal        prometheus.Counter
	PopsTotal          prometheus.Counter
	DroppedPushesTotal prometheus.Counter
	ActiveThreads      prometheus.Gauge
}

func newStackMetrics(namespace string) *StackMetrics {
	return &StackMetrics{
		PushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stack", Name: "pushes_total",
			Help: "Total number of CallRecord pushes.",
		}),
		PopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stack", Name: "pops_total",
			Help: "Total number of CallRecord pops.",
		}),
		DroppedPushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stack", Name: "dropped_pushes_total",
			Help: "Pushes dropped because MaxCallStackDepth was reached.",
		}),
		ActiveThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "stack", Name: "active_threads",
			Help: "Number of threads with a non-empty call stack.",
		}),
	}
}

// ReporterMetrics tracks the reporter pipeline.
type ReporterMetrics struct {
	BatchesFlushed prometheus.Counter
	GapsEmitted    prometheus.Counter
	ItemsDropped   prometheus.Counter
}

func newReporterMetrics(namespace string) *ReporterMetrics {
	return &ReporterMetrics{
		BatchesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reporter", Name: "batches_flushed_total",
			Help: "Total number of batches flushed to writers.",
		}),
		GapsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reporter", Name: "gaps_emitted_total",
			Help: "Total number of synthetic CallGap items emitted.",
		}),
		ItemsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reporter", Name: "items_dropped_total",
			Help: "Total number of items dropped by the filter chain.",
		}),
	}
}

// WriterMetrics tracks the report output engine.
type WriterMetrics struct {
	RowsWritten  prometheus.Counter
	WriteErrors  prometheus.Counter
	ArchiveRuns  prometheus.Counter
}

func newWriterMetrics(namespace string) *WriterMetrics {
	return &WriterMetrics{
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "writer", Name: "rows_written_total",
			Help: "Total number of rows written across all writers.",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "writer", Name: "write_errors_total",
			Help: "Total number of I/O errors surfaced on writer Close.",
		}),
		ArchiveRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "writer", Name: "archive_runs_total",
			Help: "Total number of prior runs rotated into archive/.",
		}),
	}
}
