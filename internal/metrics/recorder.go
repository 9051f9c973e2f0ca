package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linemill"

// Recorder owns the Prometheus collectors for a single run.
// Every run gets its own registry so metrics never leak between runs.
type Recorder struct {
	registry *prometheus.Registry

	tasks     *prometheus.CounterVec
	abandoned prometheus.Counter
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge

	lines   *Counter
	latency *Latency
}

// NewRecorder creates a recorder whose line total is read from lines
func NewRecorder(lines *Counter) *Recorder {
	if lines == nil {
		lines = NewCounter()
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lines:    lines,
		latency:  NewLatency(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Tasks that reached a verdict, by outcome.",
		}, []string{"outcome"}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_abandoned_total",
			Help:      "Tasks still running when the forced shutdown window elapsed.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent running a task operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	linesProcessed := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_processed_total",
		Help:      "Lines written to output files.",
	}, func() float64 {
		return float64(r.lines.Value())
	})

	r.registry.MustRegister(r.tasks, r.abandoned, r.duration, r.lastRun, linesProcessed)

	return r
}

// Lines returns the line counter backing lines_processed_total
func (r *Recorder) Lines() *Counter {
	return r.lines
}

// ObserveTask records the outcome label and, for tasks that ran, the duration
func (r *Recorder) ObserveTask(outcome string, d time.Duration, ran bool) {
	r.tasks.WithLabelValues(outcome).Inc()
	if ran {
		r.duration.Observe(d.Seconds())
		r.latency.Observe(d)
	}
}

// ObserveAbandoned records tasks that were abandoned by the drain
func (r *Recorder) ObserveAbandoned(n int) {
	if n <= 0 {
		return
	}
	r.tasks.WithLabelValues("abandoned").Add(float64(n))
	r.abandoned.Add(float64(n))
}

// Finish stamps the completion time of the run
func (r *Recorder) Finish(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Latency returns the duration percentiles observed so far
func (r *Recorder) Latency() LatencySnapshot {
	return r.latency.Snapshot()
}

// Registry exposes the underlying registry as a Gatherer
func (r *Recorder) Registry() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically, as the node_exporter textfile collector expects.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}

	return nil
}
