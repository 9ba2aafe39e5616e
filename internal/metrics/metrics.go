// Package metrics exports the outcome of a run in the Prometheus textfile
// format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the figures recorded for one invocation
type Run struct {
	Deleted  uint64
	Dirs     uint64
	Bytes    uint64
	Skipped  uint64
	Failed   uint64
	Vanished uint64
	Counted  uint64
	Duration time.Duration
	DryRun   bool
	Quit     bool
	Errors   map[string]int // by reason
}

// Recorder owns a private registry so nothing leaks into the default one
type Recorder struct {
	registry *prometheus.Registry

	entriesDeleted *prometheus.CounterVec
	bytesFreed     prometheus.Counter
	entriesSkipped prometheus.Counter
	errorsTotal    *prometheus.CounterVec
	entriesCounted prometheus.Gauge
	duration       prometheus.Histogram
	lastRun        prometheus.Gauge
	dryRun         prometheus.Gauge
	quit           prometheus.Gauge
}

// NewRecorder creates and registers every collector
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		entriesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rmrfp_entries_deleted_total",
			Help: "Entries removed, by kind.",
		}, []string{"kind"}),
		bytesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rmrfp_bytes_freed_total",
			Help: "Bytes freed by removed files.",
		}),
		entriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rmrfp_entries_skipped_total",
			Help: "Entries left in place.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rmrfp_errors_total",
			Help: "Entries that could not be listed or removed, by reason.",
		}, []string{"reason"}),
		entriesCounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rmrfp_entries_counted",
			Help: "Entries found by the background counter.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rmrfp_run_duration_seconds",
			Help:    "Duration of the deletion run in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rmrfp_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		dryRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rmrfp_dry_run",
			Help: "1 when the last run deleted nothing on purpose.",
		}),
		quit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rmrfp_quit",
			Help: "1 when the operator quit the last run early.",
		}),
	}

	r.registry.MustRegister(
		r.entriesDeleted,
		r.bytesFreed,
		r.entriesSkipped,
		r.errorsTotal,
		r.entriesCounted,
		r.duration,
		r.lastRun,
		r.dryRun,
		r.quit,
	)
	return r
}

// Registry exposes the registry, for tests and custom gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records one run
func (r *Recorder) Observe(run Run, finished time.Time) {
	r.entriesDeleted.WithLabelValues("dir").Add(float64(run.Dirs))
	r.entriesDeleted.WithLabelValues("file").Add(float64(run.Deleted - run.Dirs))
	r.bytesFreed.Add(float64(run.Bytes))
	r.entriesSkipped.Add(float64(run.Skipped))
	for reason, n := range run.Errors {
		r.errorsTotal.WithLabelValues(reason).Add(float64(n))
	}
	r.entriesCounted.Set(float64(run.Counted))
	r.duration.Observe(run.Duration.Seconds())
	r.lastRun.Set(float64(finished.Unix()))
	r.dryRun.Set(boolGauge(run.DryRun))
	r.quit.Set(boolGauge(run.Quit))
}

// WriteTextfile writes every metric to path atomically
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
