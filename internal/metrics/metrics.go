// Package metrics holds the Prometheus instruments for the worker, the
// pipeline and the sweeper.
//
// Instruments live on a Metrics value with its own registry so tests and
// multiple daemons in one process do not collide. Every method is nil-safe;
// packages accept a nil *Metrics when instrumentation is not wanted.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vidpipe/internal/queue"
)

const namespace = "vidpipe"

// Metrics bundles the registry and the instruments registered on it.
type Metrics struct {
	registry *prometheus.Registry

	jobsClaimed     prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	stepDuration    *prometheus.HistogramVec
	jobsByStatus    *prometheus.GaugeVec
	sweptJobs       *prometheus.CounterVec
	sweptFiles      prometheus.Counter
	missingArtifact prometheus.Counter
}

// New creates a registry with process and Go collectors plus the vidpipe instruments.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "Jobs claimed by this worker",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs driven to a terminal state, by outcome and failure category",
		}, []string{"status", "category"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Transcoder step duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"step", "outcome"}),
		jobsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Jobs in the store by status",
		}, []string{"status"}),
		sweptJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_jobs_deleted_total",
			Help:      "Job rows removed by the sweeper, by reason",
		}, []string{"reason"}),
		sweptFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_files_deleted_total",
			Help:      "Artifact files removed by the sweeper",
		}),
		missingArtifact: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_files_missing_total",
			Help:      "Artifact files already absent when the sweeper reached them",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobsClaimed,
		m.jobsFinished,
		m.stepDuration,
		m.jobsByStatus,
		m.sweptJobs,
		m.sweptFiles,
		m.missingArtifact,
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobClaimed() {
	if m == nil {
		return
	}
	m.jobsClaimed.Inc()
}

// JobFinished counts a terminal outcome. category is empty for completions.
func (m *Metrics) JobFinished(status queue.Status, category string) {
	if m == nil {
		return
	}
	if category == "" {
		category = "none"
	}
	m.jobsFinished.WithLabelValues(string(status), category).Inc()
}

// ObserveStep records one transcoder invocation.
func (m *Metrics) ObserveStep(step string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.stepDuration.WithLabelValues(step, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) SweptJob(reason string) {
	if m == nil {
		return
	}
	m.sweptJobs.WithLabelValues(reason).Inc()
}

func (m *Metrics) SweptFiles(removed, missing int) {
	if m == nil {
		return
	}
	m.sweptFiles.Add(float64(removed))
	m.missingArtifact.Add(float64(missing))
}

// StatsSource reports job counts by status.
type StatsSource interface {
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// RefreshStatus sets the status gauge from the store, zeroing absent statuses.
func (m *Metrics) RefreshStatus(ctx context.Context, source StatsSource) error {
	if m == nil || source == nil {
		return nil
	}
	stats, err := source.Stats(ctx)
	if err != nil {
		return err
	}
	for _, status := range queue.AllStatuses() {
		m.jobsByStatus.WithLabelValues(string(status)).Set(float64(stats[status]))
	}
	return nil
}
