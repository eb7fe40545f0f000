// Package metrics exposes Prometheus instrumentation for conversion jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lofi/internal/artifacts"
	"lofi/internal/history"
)

const namespace = "lofi"

// Collector owns a private registry so tests and multiple servers never
// collide on the global default registry.
type Collector struct {
	registry *prometheus.Registry

	jobsStarted   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobsRejected  prometheus.Counter
	jobsInFlight  prometheus.Gauge
	jobDuration   *prometheus.HistogramVec
	cleanupFiles  *prometheus.CounterVec
	historyStatus *prometheus.GaugeVec
}

// New builds a Collector. When withRuntime is set the Go and process
// collectors are registered as well.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_started_total",
				Help:      "Jobs that passed validation, by execution mode",
			},
			[]string{"mode"},
		),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_finished_total",
				Help:      "Finished jobs by execution mode and outcome (completed, validation, fetch, transcode)",
			},
			[]string{"mode", "outcome"},
		),
		jobsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_rejected_total",
				Help:      "Requests rejected before any work started",
			},
		),
		jobsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_in_flight",
				Help:      "Jobs currently executing",
			},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall time of finished jobs",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"mode"},
		),
		cleanupFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_cleanup_files_total",
				Help:      "Job files handled during release (removed, missing, failed)",
			},
			[]string{"result"},
		),
		historyStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "history_jobs",
				Help:      "Jobs in the history store by status",
			},
			[]string{"status"},
		),
	}
	c.registry.MustRegister(
		c.jobsStarted,
		c.jobsFinished,
		c.jobsRejected,
		c.jobsInFlight,
		c.jobDuration,
		c.cleanupFiles,
		c.historyStatus,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// JobStarted counts a job entering execution.
func (c *Collector) JobStarted(mode string) {
	c.jobsStarted.WithLabelValues(mode).Inc()
	c.jobsInFlight.Inc()
}

// JobFinished records the outcome of a job that JobStarted counted.
func (c *Collector) JobFinished(mode, outcome string, elapsed time.Duration) {
	c.jobsInFlight.Dec()
	c.jobsFinished.WithLabelValues(mode, outcome).Inc()
	c.jobDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// JobRejected counts a request that failed validation.
func (c *Collector) JobRejected() {
	c.jobsRejected.Inc()
}

// ArtifactsReleased folds a cleanup report into the file counters.
func (c *Collector) ArtifactsReleased(report artifacts.Report) {
	c.cleanupFiles.WithLabelValues("removed").Add(float64(report.Removed))
	c.cleanupFiles.WithLabelValues("missing").Add(float64(report.Missing))
	c.cleanupFiles.WithLabelValues("failed").Add(float64(report.Failed))
}

// ObserveHistory refreshes the per-status gauges from a history summary.
func (c *Collector) ObserveHistory(summary history.Summary) {
	c.historyStatus.WithLabelValues(string(history.StatusRunning)).Set(float64(summary.Running))
	c.historyStatus.WithLabelValues(string(history.StatusCompleted)).Set(float64(summary.Completed))
	c.historyStatus.WithLabelValues(string(history.StatusFailed)).Set(float64(summary.Failed))
	c.historyStatus.WithLabelValues(string(history.StatusInterrupted)).Set(float64(summary.Interrupted))
}
