// Package metrics provides Prometheus metrics for separation runs.
//
// Each run owns a private registry. A one-shot CLI has no scrape endpoint, so
// the registry is written to a node_exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File outcome labels.
const (
	FileOrganized     = "organized"
	FileMissingOutput = "missing_output"
	FileIncomplete    = "incomplete"
	FileBatchFailed   = "batch_failed"
	FileError         = "error"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Recorder collects run metrics. A nil Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry

	// modelRuns counts separator invocations.
	// Labels:
	//   - model: checkpoint name
	//   - status: success or failed
	modelRuns *prometheus.CounterVec

	// modelDuration records wall time per separator invocation.
	// Buckets span a short clip on an accelerator to a large CPU batch.
	modelDuration *prometheus.HistogramVec

	// files counts per-file outcomes, labelled by one of the File* constants.
	files *prometheus.CounterVec

	// batches counts batches by outcome.
	batches *prometheus.CounterVec

	// processed is the size of the processed set after the run.
	processed prometheus.Gauge
}

// New constructs a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		modelRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsep_model_runs_total",
				Help: "Total number of separator invocations",
			},
			[]string{"model", "status"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemsep_model_run_duration_seconds",
				Help:    "Duration of separator invocations in seconds",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
			},
			[]string{"model"},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsep_files_total",
				Help: "Total number of input files by outcome",
			},
			[]string{"status"},
		),
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsep_batches_total",
				Help: "Total number of batches by outcome",
			},
			[]string{"status"},
		),
		processed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stemsep_processed_files",
			Help: "Number of files recorded as processed",
		}),
	}
	r.registry.MustRegister(r.modelRuns, r.modelDuration, r.files, r.batches, r.processed)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveModelRun records one separator invocation.
func (r *Recorder) ObserveModelRun(model string, ok bool, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.modelRuns.WithLabelValues(model, outcome(ok)).Inc()
	r.modelDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// RecordFiles adds n files with the given outcome.
func (r *Recorder) RecordFiles(status string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.files.WithLabelValues(status).Add(float64(n))
}

// RecordBatch records one batch outcome.
func (r *Recorder) RecordBatch(ok bool) {
	if r == nil {
		return
	}
	r.batches.WithLabelValues(outcome(ok)).Inc()
}

// SetProcessed sets the processed-set size.
func (r *Recorder) SetProcessed(n int) {
	if r == nil {
		return
	}
	r.processed.Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically as prometheus.WriteToTextfile does.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(ok bool) string {
	if ok {
		return statusSuccess
	}
	return statusFailed
}
