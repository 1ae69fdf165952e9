// Package metrics records pipeline and publish counters on a private
// Prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "content_pipeline"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Recorder holds the pipeline metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry       *prometheus.Registry
	stageItems     *prometheus.CounterVec
	publishResults *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunSuccess prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	return &Recorder{
		registry: registry,
		stageItems: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_pipeline_stage_items_total",
				Help: "Items processed per pipeline stage, partitioned by result.",
			},
			[]string{"stage", "result"},
		),
		publishResults: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_pipeline_publish_attempts_total",
				Help: "Publish attempts, partitioned by platform and result.",
			},
			[]string{"platform", "result"},
		),
		runDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_pipeline_run_duration_seconds",
				Help:    "Wall time of pipeline runs.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		lastRunSuccess: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "content_pipeline_last_run_success",
				Help: "1 if the last run finished without errors, else 0.",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// StageItem counts one item in stage with result.
func (r *Recorder) StageItem(stage, result string) {
	if r == nil {
		return
	}
	r.stageItems.WithLabelValues(stage, result).Inc()
}

// PublishAttempt counts one publish attempt.
func (r *Recorder) PublishAttempt(platform, result string) {
	if r == nil {
		return
	}
	r.publishResults.WithLabelValues(platform, result).Inc()
}

// RunFinished records a run's duration and outcome.
func (r *Recorder) RunFinished(seconds float64, success bool) {
	if r == nil {
		return
	}
	r.runDuration.Observe(seconds)
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Push sends all metrics to a Pushgateway.
func (r *Recorder) Push(gatewayURL string) error {
	if r == nil {
		return nil
	}
	if err := push.New(gatewayURL, jobName).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
