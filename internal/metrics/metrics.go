// Package metrics counts pipeline runs on a private prometheus registry.
// The CLI dumps the registry in textfile format at exit so a node exporter
// can pick it up.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/officeloom/internal/apperrors"
)

const namespace = "officeloom"

// Run statuses used as the status label.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Recorder owns the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	strategy *prometheus.CounterVec
	rows     prometheus.Counter
}

// New registers the officeloom collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by kind and outcome.",
		}, []string{"kind", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Failed runs by error code.",
		}, []string{"kind", "code"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent per pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 10, 30},
		}, []string{"stage"}),
		strategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keypoint_strategy_total",
			Help:      "Keypoint extractions by the strategy that produced them.",
		}, []string{"strategy"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Tabular rows profiled.",
		}),
	}
	r.reg.MustRegister(r.runs, r.failures, r.stages, r.strategy, r.rows)
	return r
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// RunFinished counts one run of kind. A non-nil err marks it failed and is
// classified with apperrors.Code.
func (r *Recorder) RunFinished(kind string, err error) {
	if r == nil {
		return
	}
	if err == nil {
		r.runs.WithLabelValues(kind, StatusCompleted).Inc()
		return
	}
	r.runs.WithLabelValues(kind, StatusFailed).Inc()
	r.failures.WithLabelValues(kind, apperrors.Code(err)).Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stages.WithLabelValues(stage).Observe(d.Seconds())
}

// KeypointStrategy counts which ranker produced a deck's points.
func (r *Recorder) KeypointStrategy(strategy string) {
	if r == nil || strategy == "" {
		return
	}
	r.strategy.WithLabelValues(strategy).Inc()
}

// RowsProcessed adds n profiled rows.
func (r *Recorder) RowsProcessed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.Add(float64(n))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
